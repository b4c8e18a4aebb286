package adjustments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"hrops/internal/domain/auth"
)

// AuthorizationGate confirms the acting principal currently holds the role
// a transition requires.
type AuthorizationGate interface {
	HasRole(ctx context.Context, tenantID, principalID, roleName string) (bool, error)
}

// Notifier delivers role-targeted and individual notifications. Delivery is
// best effort: the workflow never fails a committed transition over it.
type Notifier interface {
	NotifyUser(ctx context.Context, tenantID, userID, ntype, title, body, entityID string) error
	NotifyRole(ctx context.Context, tenantID, roleName, ntype, title, body, entityID string) error
}

const (
	NotifySubmitted          = "adjustment_submitted"
	NotifyPendingManager     = "adjustment_pending_manager"
	NotifyConfirmationNeeded = "adjustment_confirmation_needed"
	NotifyRejected           = "adjustment_rejected"
	NotifyApproved           = "adjustment_approved"
	NotifyRefundDue          = "adjustment_refund_due"
)

type Service struct {
	store  StoreAPI
	authz  AuthorizationGate
	notify Notifier
}

func NewService(store StoreAPI, authz AuthorizationGate, notify Notifier) *Service {
	return &Service{store: store, authz: authz, notify: notify}
}

type CreateInput struct {
	EmployeeID    string
	Kind          string
	PayslipID     string
	Description   string
	ClaimType     string
	ClaimedAmount *float64
}

type FirstLineInput struct {
	RequestID       string
	ActorID         string
	Action          string
	ProposedAmount  *float64
	RejectionReason string
	Comment         string
}

type SecondLineInput struct {
	RequestID           string
	ActorID             string
	Action              string
	FinalAmountOverride *float64
	RejectionReason     string
	Comment             string
}

type IssueRefundInput struct {
	RequestID      string
	FinanceStaffID string
	Description    string
}

// Create opens a request in under_review. Validation and the
// duplicate-active-subject check happen before any write.
func (s *Service) Create(ctx context.Context, tenantID string, in CreateInput) (AdjustmentRequest, error) {
	if !ValidKind(in.Kind) {
		return AdjustmentRequest{}, ErrValidation
	}

	req := AdjustmentRequest{
		EmployeeID: in.EmployeeID,
		Kind:       in.Kind,
	}
	switch in.Kind {
	case KindDispute:
		if strings.TrimSpace(in.PayslipID) == "" {
			return AdjustmentRequest{}, ErrValidation
		}
		owned, err := s.store.PayslipOwnedByEmployee(ctx, tenantID, in.PayslipID, in.EmployeeID)
		if err != nil {
			return AdjustmentRequest{}, err
		}
		if !owned {
			return AdjustmentRequest{}, ErrNotFound
		}
		req.PayslipID = in.PayslipID
		req.SubjectRef = in.PayslipID
		req.Description = strings.TrimSpace(in.Description)
	case KindClaim:
		description := strings.TrimSpace(in.Description)
		if description == "" || strings.TrimSpace(in.ClaimType) == "" {
			return AdjustmentRequest{}, ErrValidation
		}
		if in.ClaimedAmount == nil || *in.ClaimedAmount < 0 {
			return AdjustmentRequest{}, ErrValidation
		}
		req.Description = description
		req.ClaimType = strings.TrimSpace(in.ClaimType)
		req.ClaimedAmount = in.ClaimedAmount
		req.SubjectRef = description
	}

	active, err := s.store.ActiveRequestExists(ctx, tenantID, in.EmployeeID, req.SubjectRef)
	if err != nil {
		return AdjustmentRequest{}, err
	}
	if active {
		return AdjustmentRequest{}, ErrDuplicateActiveRequest
	}

	seq, err := s.store.NextSequence(ctx, tenantID, SequencePrefix(in.Kind))
	if err != nil {
		return AdjustmentRequest{}, err
	}
	req.HumanID = fmt.Sprintf("%s-%04d", SequencePrefix(in.Kind), seq)

	id, err := s.store.InsertRequest(ctx, tenantID, req)
	if err != nil {
		return AdjustmentRequest{}, err
	}
	created, err := s.store.GetRequest(ctx, tenantID, id)
	if err != nil {
		return AdjustmentRequest{}, err
	}
	s.notifyRole(ctx, tenantID, auth.RoleSpecialist, created, NotifySubmitted,
		"New adjustment request",
		fmt.Sprintf("Request %s was submitted and awaits first-line review.", created.HumanID))
	return created, nil
}

// FirstLineDecision applies the specialist's approve or reject. Inputs are
// validated in full before the conditional write, so a malformed call
// leaves the record untouched.
func (s *Service) FirstLineDecision(ctx context.Context, tenantID string, in FirstLineInput) (AdjustmentRequest, error) {
	if err := s.requireRole(ctx, tenantID, in.ActorID, auth.RoleSpecialist); err != nil {
		return AdjustmentRequest{}, err
	}

	req, err := s.store.GetRequest(ctx, tenantID, in.RequestID)
	if err != nil {
		return AdjustmentRequest{}, err
	}

	switch in.Action {
	case ActionApprove:
		if in.ProposedAmount == nil {
			return AdjustmentRequest{}, ErrValidation
		}
		if err := ValidateProposed(req.Kind, *in.ProposedAmount, req.ClaimedAmount); err != nil {
			return AdjustmentRequest{}, err
		}
		if req.Status != StatusUnderReview {
			return AdjustmentRequest{}, firstLineStateError(req.Status)
		}

		entry := ResolutionEntry{Stage: StageSpecialistApproval, ActorID: in.ActorID, ActorRole: auth.RoleSpecialist, Comment: in.Comment}
		applied, err := s.store.ApplyFirstLineApproval(ctx, tenantID, in.RequestID, *in.ProposedAmount, entry)
		if err != nil {
			return AdjustmentRequest{}, err
		}
		if !applied {
			return AdjustmentRequest{}, s.staleFirstLine(ctx, tenantID, in.RequestID)
		}

		updated, err := s.store.GetRequest(ctx, tenantID, in.RequestID)
		if err != nil {
			return AdjustmentRequest{}, err
		}
		s.notifyOwner(ctx, tenantID, updated, NotifyPendingManager,
			"Adjustment request pending manager approval",
			fmt.Sprintf("Your request %s was reviewed and awaits manager confirmation.", updated.HumanID))
		s.notifyRole(ctx, tenantID, auth.RoleManager, updated, NotifyConfirmationNeeded,
			"Adjustment request awaiting confirmation",
			fmt.Sprintf("Request %s has a proposed amount of %.2f and needs manager confirmation.", updated.HumanID, *in.ProposedAmount))
		return updated, nil

	case ActionReject:
		if strings.TrimSpace(in.RejectionReason) == "" {
			return AdjustmentRequest{}, ErrValidation
		}
		if req.Status != StatusUnderReview {
			return AdjustmentRequest{}, firstLineStateError(req.Status)
		}

		entry := ResolutionEntry{Stage: StageSpecialistRejection, ActorID: in.ActorID, ActorRole: auth.RoleSpecialist, Comment: in.Comment}
		applied, err := s.store.ApplyRejection(ctx, tenantID, in.RequestID, StatusUnderReview, in.RejectionReason, entry)
		if err != nil {
			return AdjustmentRequest{}, err
		}
		if !applied {
			return AdjustmentRequest{}, s.staleFirstLine(ctx, tenantID, in.RequestID)
		}

		updated, err := s.store.GetRequest(ctx, tenantID, in.RequestID)
		if err != nil {
			return AdjustmentRequest{}, err
		}
		s.notifyOwner(ctx, tenantID, updated, NotifyRejected,
			"Adjustment request rejected",
			fmt.Sprintf("Your request %s was rejected: %s", updated.HumanID, in.RejectionReason))
		s.notifyRole(ctx, tenantID, auth.RoleManager, updated, NotifyRejected,
			"Adjustment request rejected",
			fmt.Sprintf("Request %s was rejected at first-line review.", updated.HumanID))
		return updated, nil

	default:
		return AdjustmentRequest{}, ErrValidation
	}
}

// SecondLineDecision applies the manager's confirm or reject. Beyond the
// status guard it checks the resolution log: a first-line approval entry
// must exist and no manager confirmation may be present.
func (s *Service) SecondLineDecision(ctx context.Context, tenantID string, in SecondLineInput) (AdjustmentRequest, error) {
	if err := s.requireRole(ctx, tenantID, in.ActorID, auth.RoleManager); err != nil {
		return AdjustmentRequest{}, err
	}

	req, err := s.store.GetRequest(ctx, tenantID, in.RequestID)
	if err != nil {
		return AdjustmentRequest{}, err
	}
	if req.Status != StatusPendingManagerApproval {
		return AdjustmentRequest{}, secondLineStateError(req.Status)
	}

	approvedBefore, err := s.store.HasResolutionStage(ctx, tenantID, in.RequestID, StageSpecialistApproval)
	if err != nil {
		return AdjustmentRequest{}, err
	}
	if !approvedBefore {
		return AdjustmentRequest{}, ErrInvalidStateTransition
	}
	confirmedBefore, err := s.store.HasResolutionStage(ctx, tenantID, in.RequestID, StageManagerConfirmation)
	if err != nil {
		return AdjustmentRequest{}, err
	}
	if confirmedBefore {
		return AdjustmentRequest{}, ErrConflict
	}

	switch in.Action {
	case ActionConfirm:
		if in.FinalAmountOverride != nil {
			if err := ValidateFinal(req.Kind, *in.FinalAmountOverride, req.ClaimedAmount); err != nil {
				return AdjustmentRequest{}, err
			}
		}
		final, err := ResolveFinalAmount(req.ProposedAmount, in.FinalAmountOverride)
		if err != nil {
			return AdjustmentRequest{}, err
		}

		entry := ResolutionEntry{Stage: StageManagerConfirmation, ActorID: in.ActorID, ActorRole: auth.RoleManager, Comment: in.Comment}
		applied, err := s.store.ApplyConfirmation(ctx, tenantID, in.RequestID, final, entry)
		if err != nil {
			return AdjustmentRequest{}, err
		}
		if !applied {
			return AdjustmentRequest{}, s.staleSecondLine(ctx, tenantID, in.RequestID)
		}

		updated, err := s.store.GetRequest(ctx, tenantID, in.RequestID)
		if err != nil {
			return AdjustmentRequest{}, err
		}
		s.notifyOwner(ctx, tenantID, updated, NotifyApproved,
			"Adjustment request approved",
			fmt.Sprintf("Your request %s was approved for %.2f.", updated.HumanID, final))
		s.notifyRole(ctx, tenantID, auth.RoleFinance, updated, NotifyRefundDue,
			"Refund to issue",
			fmt.Sprintf("Request %s is approved for %.2f and awaits a refund.", updated.HumanID, final))
		return updated, nil

	case ActionReject:
		if strings.TrimSpace(in.RejectionReason) == "" {
			return AdjustmentRequest{}, ErrValidation
		}

		entry := ResolutionEntry{Stage: StageManagerRejection, ActorID: in.ActorID, ActorRole: auth.RoleManager, Comment: in.Comment}
		applied, err := s.store.ApplyRejection(ctx, tenantID, in.RequestID, StatusPendingManagerApproval, in.RejectionReason, entry)
		if err != nil {
			return AdjustmentRequest{}, err
		}
		if !applied {
			return AdjustmentRequest{}, s.staleSecondLine(ctx, tenantID, in.RequestID)
		}

		updated, err := s.store.GetRequest(ctx, tenantID, in.RequestID)
		if err != nil {
			return AdjustmentRequest{}, err
		}
		s.notifyOwner(ctx, tenantID, updated, NotifyRejected,
			"Adjustment request rejected",
			fmt.Sprintf("Your request %s was rejected: %s", updated.HumanID, in.RejectionReason))
		return updated, nil

	default:
		return AdjustmentRequest{}, ErrValidation
	}
}

// IssueRefund converts an approved request into a pending refund. The
// amount is always the request's final amount; callers cannot supply one.
func (s *Service) IssueRefund(ctx context.Context, tenantID string, in IssueRefundInput) (Refund, error) {
	if err := s.requireRole(ctx, tenantID, in.FinanceStaffID, auth.RoleFinance); err != nil {
		return Refund{}, err
	}

	req, err := s.store.GetRequest(ctx, tenantID, in.RequestID)
	if err != nil {
		return Refund{}, err
	}
	if req.Status != StatusApproved {
		return Refund{}, ErrNotApproved
	}
	if req.FinalAmount == nil {
		return Refund{}, ErrMissingApprovedAmount
	}
	if *req.FinalAmount <= 0 {
		return Refund{}, ErrZeroAmount
	}

	if err := s.store.ClaimFinanceOwner(ctx, tenantID, in.RequestID, in.FinanceStaffID); err != nil {
		return Refund{}, err
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = fmt.Sprintf("Refund for %s", req.HumanID)
	}
	id, err := s.store.InsertRefund(ctx, tenantID, Refund{
		SourceRequestID: in.RequestID,
		EmployeeID:      req.EmployeeID,
		FinanceStaffID:  in.FinanceStaffID,
		Description:     description,
		Amount:          *req.FinalAmount,
	})
	if err != nil {
		return Refund{}, err
	}
	return s.store.GetRefund(ctx, tenantID, id)
}

// MarkRefundProcessed and MarkRefundIncluded advance the refund artifact on
// behalf of the payroll execution process, with the same conditional-update
// discipline as request transitions.
func (s *Service) MarkRefundProcessed(ctx context.Context, tenantID, refundID, actorID string) (Refund, error) {
	return s.advanceRefund(ctx, tenantID, refundID, actorID, RefundStatusPending, RefundStatusProcessed)
}

func (s *Service) MarkRefundIncluded(ctx context.Context, tenantID, refundID, actorID string) (Refund, error) {
	return s.advanceRefund(ctx, tenantID, refundID, actorID, RefundStatusProcessed, RefundStatusIncludedInPayroll)
}

func (s *Service) advanceRefund(ctx context.Context, tenantID, refundID, actorID, fromStatus, toStatus string) (Refund, error) {
	if err := s.requireRole(ctx, tenantID, actorID, auth.RoleFinance); err != nil {
		return Refund{}, err
	}
	applied, err := s.store.AdvanceRefundStatus(ctx, tenantID, refundID, fromStatus, toStatus)
	if err != nil {
		return Refund{}, err
	}
	if !applied {
		if _, err := s.store.GetRefund(ctx, tenantID, refundID); err != nil {
			return Refund{}, err
		}
		return Refund{}, ErrInvalidStateTransition
	}
	return s.store.GetRefund(ctx, tenantID, refundID)
}

func (s *Service) GetRequest(ctx context.Context, tenantID, requestID string) (AdjustmentRequest, []Refund, error) {
	req, err := s.store.GetRequest(ctx, tenantID, requestID)
	if err != nil {
		return AdjustmentRequest{}, nil, err
	}
	log, err := s.store.ResolutionLog(ctx, tenantID, requestID)
	if err != nil {
		return AdjustmentRequest{}, nil, err
	}
	req.ResolutionLog = log
	refunds, err := s.store.RefundsForRequest(ctx, tenantID, requestID)
	if err != nil {
		return AdjustmentRequest{}, nil, err
	}
	return req, refunds, nil
}

func (s *Service) ListRequests(ctx context.Context, tenantID string, filter RequestFilter) (RequestListResult, error) {
	return s.store.ListRequests(ctx, tenantID, filter)
}

func (s *Service) ListRefunds(ctx context.Context, tenantID string, limit, offset int) (RefundListResult, error) {
	return s.store.ListRefunds(ctx, tenantID, limit, offset)
}

func (s *Service) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	return s.store.EmployeeIDByUserID(ctx, tenantID, userID)
}

func (s *Service) requireRole(ctx context.Context, tenantID, principalID, roleName string) error {
	if s.authz == nil {
		return ErrUnauthorized
	}
	ok, err := s.authz.HasRole(ctx, tenantID, principalID, roleName)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// staleFirstLine re-reads after a conditional update found zero rows: a
// concurrent actor won the race between our precondition read and the write.
func (s *Service) staleFirstLine(ctx context.Context, tenantID, requestID string) error {
	fresh, err := s.store.GetRequest(ctx, tenantID, requestID)
	if err != nil {
		return err
	}
	return firstLineStateError(fresh.Status)
}

func (s *Service) staleSecondLine(ctx context.Context, tenantID, requestID string) error {
	fresh, err := s.store.GetRequest(ctx, tenantID, requestID)
	if err != nil {
		return err
	}
	return secondLineStateError(fresh.Status)
}

func firstLineStateError(status string) error {
	switch status {
	case StatusPendingManagerApproval:
		return ErrAlreadyPendingManager
	case StatusApproved, StatusRejected:
		return ErrConflict
	default:
		return ErrInvalidStateTransition
	}
}

func secondLineStateError(status string) error {
	switch status {
	case StatusApproved, StatusRejected:
		return ErrConflict
	default:
		return ErrInvalidStateTransition
	}
}

func (s *Service) notifyOwner(ctx context.Context, tenantID string, req AdjustmentRequest, ntype, title, body string) {
	if s.notify == nil {
		return
	}
	userID, err := s.store.EmployeeUserID(ctx, tenantID, req.EmployeeID)
	if err != nil || userID == "" {
		if err != nil {
			slog.Warn("owner lookup for notification failed", "requestId", req.ID, "err", err)
		}
		return
	}
	if err := s.notify.NotifyUser(ctx, tenantID, userID, ntype, title, body, req.ID); err != nil {
		slog.Warn("owner notification failed", "requestId", req.ID, "err", err)
	}
}

func (s *Service) notifyRole(ctx context.Context, tenantID, roleName string, req AdjustmentRequest, ntype, title, body string) {
	if s.notify == nil {
		return
	}
	if err := s.notify.NotifyRole(ctx, tenantID, roleName, ntype, title, body, req.ID); err != nil {
		slog.Warn("role notification failed", "requestId", req.ID, "role", roleName, "err", err)
	}
}

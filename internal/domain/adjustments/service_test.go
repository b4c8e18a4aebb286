package adjustments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"hrops/internal/domain/auth"
)

type fakeStore struct {
	requests  map[string]*AdjustmentRequest
	log       map[string][]ResolutionEntry
	refunds   map[string]*Refund
	payslips  map[string]string // payslip id -> owning employee id
	employees map[string]string // employee id -> user id
	seq       map[string]int
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests:  map[string]*AdjustmentRequest{},
		log:       map[string][]ResolutionEntry{},
		refunds:   map[string]*Refund{},
		payslips:  map[string]string{},
		employees: map[string]string{},
		seq:       map[string]int{},
	}
}

func (f *fakeStore) id() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeStore) ActiveRequestExists(_ context.Context, _, employeeID, subjectRef string) (bool, error) {
	for _, req := range f.requests {
		if req.EmployeeID != employeeID || req.SubjectRef != subjectRef {
			continue
		}
		if req.Status == StatusUnderReview || req.Status == StatusPendingManagerApproval {
			return true, nil
		}
		if req.Status == StatusApproved && !f.hasRefundFor(req.ID) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) hasRefundFor(requestID string) bool {
	for _, refund := range f.refunds {
		if refund.SourceRequestID == requestID {
			return true
		}
	}
	return false
}

func (f *fakeStore) NextSequence(_ context.Context, _, prefix string) (int, error) {
	f.seq[prefix]++
	return f.seq[prefix], nil
}

func (f *fakeStore) InsertRequest(_ context.Context, _ string, req AdjustmentRequest) (string, error) {
	id := f.id()
	req.ID = id
	req.Status = StatusUnderReview
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	f.requests[id] = &req
	return id, nil
}

func (f *fakeStore) GetRequest(_ context.Context, _, requestID string) (AdjustmentRequest, error) {
	req, ok := f.requests[requestID]
	if !ok {
		return AdjustmentRequest{}, ErrNotFound
	}
	return *req, nil
}

func (f *fakeStore) ListRequests(_ context.Context, _ string, filter RequestFilter) (RequestListResult, error) {
	var out []AdjustmentRequest
	for _, req := range f.requests {
		if filter.EmployeeID != "" && req.EmployeeID != filter.EmployeeID {
			continue
		}
		out = append(out, *req)
	}
	return RequestListResult{Requests: out, Total: len(out)}, nil
}

func (f *fakeStore) ResolutionLog(_ context.Context, _, requestID string) ([]ResolutionEntry, error) {
	return f.log[requestID], nil
}

func (f *fakeStore) HasResolutionStage(_ context.Context, _, requestID, stage string) (bool, error) {
	for _, entry := range f.log[requestID] {
		if entry.Stage == stage {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) appendEntry(requestID string, entry ResolutionEntry) {
	entry.ID = f.id()
	entry.RequestID = requestID
	entry.CreatedAt = time.Now()
	f.log[requestID] = append(f.log[requestID], entry)
}

func (f *fakeStore) ApplyFirstLineApproval(_ context.Context, _, requestID string, proposed float64, entry ResolutionEntry) (bool, error) {
	req, ok := f.requests[requestID]
	if !ok || req.Status != StatusUnderReview {
		return false, nil
	}
	amount := proposed
	req.ProposedAmount = &amount
	req.Status = StatusPendingManagerApproval
	req.UpdatedAt = time.Now()
	f.appendEntry(requestID, entry)
	return true, nil
}

func (f *fakeStore) ApplyRejection(_ context.Context, _, requestID, fromStatus, reason string, entry ResolutionEntry) (bool, error) {
	req, ok := f.requests[requestID]
	if !ok || req.Status != fromStatus {
		return false, nil
	}
	req.RejectionReason = reason
	req.Status = StatusRejected
	req.UpdatedAt = time.Now()
	f.appendEntry(requestID, entry)
	return true, nil
}

func (f *fakeStore) ApplyConfirmation(_ context.Context, _, requestID string, final float64, entry ResolutionEntry) (bool, error) {
	req, ok := f.requests[requestID]
	if !ok || req.Status != StatusPendingManagerApproval {
		return false, nil
	}
	amount := final
	req.FinalAmount = &amount
	req.Status = StatusApproved
	req.UpdatedAt = time.Now()
	f.appendEntry(requestID, entry)
	return true, nil
}

func (f *fakeStore) ClaimFinanceOwner(_ context.Context, _, requestID, financeStaffID string) error {
	req, ok := f.requests[requestID]
	if !ok {
		return ErrNotFound
	}
	if req.FinanceOwnerID == "" {
		req.FinanceOwnerID = financeStaffID
	}
	return nil
}

func (f *fakeStore) InsertRefund(_ context.Context, _ string, refund Refund) (string, error) {
	for _, existing := range f.refunds {
		if existing.SourceRequestID == refund.SourceRequestID && existing.Status == RefundStatusPending {
			return "", ErrDuplicatePendingRefund
		}
	}
	id := f.id()
	refund.ID = id
	refund.Status = RefundStatusPending
	refund.CreatedAt = time.Now()
	refund.UpdatedAt = refund.CreatedAt
	f.refunds[id] = &refund
	return id, nil
}

func (f *fakeStore) GetRefund(_ context.Context, _, refundID string) (Refund, error) {
	refund, ok := f.refunds[refundID]
	if !ok {
		return Refund{}, ErrRefundNotFound
	}
	return *refund, nil
}

func (f *fakeStore) ListRefunds(_ context.Context, _ string, _, _ int) (RefundListResult, error) {
	var out []Refund
	for _, refund := range f.refunds {
		out = append(out, *refund)
	}
	return RefundListResult{Refunds: out, Total: len(out)}, nil
}

func (f *fakeStore) RefundsForRequest(_ context.Context, _, requestID string) ([]Refund, error) {
	var out []Refund
	for _, refund := range f.refunds {
		if refund.SourceRequestID == requestID {
			out = append(out, *refund)
		}
	}
	return out, nil
}

func (f *fakeStore) AdvanceRefundStatus(_ context.Context, _, refundID, fromStatus, toStatus string) (bool, error) {
	refund, ok := f.refunds[refundID]
	if !ok || refund.Status != fromStatus {
		return false, nil
	}
	refund.Status = toStatus
	refund.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeStore) PayslipOwnedByEmployee(_ context.Context, _, payslipID, employeeID string) (bool, error) {
	return f.payslips[payslipID] == employeeID, nil
}

func (f *fakeStore) EmployeeUserID(_ context.Context, _, employeeID string) (string, error) {
	return f.employees[employeeID], nil
}

func (f *fakeStore) EmployeeIDByUserID(_ context.Context, _, userID string) (string, error) {
	for employeeID, uid := range f.employees {
		if uid == userID {
			return employeeID, nil
		}
	}
	return "", nil
}

type fakeGate struct {
	roles map[string]string
}

func (g *fakeGate) HasRole(_ context.Context, _, principalID, roleName string) (bool, error) {
	return g.roles[principalID] == roleName, nil
}

type notice struct {
	kind   string // "user" or "role"
	target string
	ntype  string
}

type fakeNotifier struct {
	sent []notice
	err  error
}

func (n *fakeNotifier) NotifyUser(_ context.Context, _, userID, ntype, _, _, _ string) error {
	n.sent = append(n.sent, notice{kind: "user", target: userID, ntype: ntype})
	return n.err
}

func (n *fakeNotifier) NotifyRole(_ context.Context, _, roleName, ntype, _, _, _ string) error {
	n.sent = append(n.sent, notice{kind: "role", target: roleName, ntype: ntype})
	return n.err
}

const testTenant = "t1"

func newTestService() (*Service, *fakeStore, *fakeNotifier) {
	store := newFakeStore()
	store.payslips["slip-1"] = "emp-1"
	store.employees["emp-1"] = "user-emp-1"
	gate := &fakeGate{roles: map[string]string{
		"user-emp-1": auth.RoleEmployee,
		"spec-1":     auth.RoleSpecialist,
		"mgr-1":      auth.RoleManager,
		"fin-1":      auth.RoleFinance,
		"fin-2":      auth.RoleFinance,
	}}
	notifier := &fakeNotifier{}
	return NewService(store, gate, notifier), store, notifier
}

func createClaim(t *testing.T, svc *Service, amount float64) AdjustmentRequest {
	t.Helper()
	req, err := svc.Create(context.Background(), testTenant, CreateInput{
		EmployeeID:    "emp-1",
		Kind:          KindClaim,
		Description:   "taxi to client site",
		ClaimType:     "travel",
		ClaimedAmount: &amount,
	})
	if err != nil {
		t.Fatalf("create claim failed: %v", err)
	}
	return req
}

func createDispute(t *testing.T, svc *Service) AdjustmentRequest {
	t.Helper()
	req, err := svc.Create(context.Background(), testTenant, CreateInput{
		EmployeeID: "emp-1",
		Kind:       KindDispute,
		PayslipID:  "slip-1",
	})
	if err != nil {
		t.Fatalf("create dispute failed: %v", err)
	}
	return req
}

func TestClaimFullApprovalAndRefundFlow(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	req := createClaim(t, svc, 500)
	if req.Status != StatusUnderReview {
		t.Fatalf("expected under_review, got %s", req.Status)
	}
	if req.HumanID != "CLM-0001" {
		t.Fatalf("expected human id CLM-0001, got %s", req.HumanID)
	}

	proposed := 500.0
	req, err := svc.FirstLineDecision(ctx, testTenant, FirstLineInput{
		RequestID: req.ID, ActorID: "spec-1", Action: ActionApprove, ProposedAmount: &proposed,
	})
	if err != nil {
		t.Fatalf("first-line approve failed: %v", err)
	}
	if req.Status != StatusPendingManagerApproval {
		t.Fatalf("expected pending_manager_approval, got %s", req.Status)
	}

	req, err = svc.SecondLineDecision(ctx, testTenant, SecondLineInput{
		RequestID: req.ID, ActorID: "mgr-1", Action: ActionConfirm,
	})
	if err != nil {
		t.Fatalf("second-line confirm failed: %v", err)
	}
	if req.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", req.Status)
	}
	if req.FinalAmount == nil || *req.FinalAmount != 500 {
		t.Fatalf("expected final amount to inherit 500, got %v", req.FinalAmount)
	}

	refund, err := svc.IssueRefund(ctx, testTenant, IssueRefundInput{RequestID: req.ID, FinanceStaffID: "fin-1"})
	if err != nil {
		t.Fatalf("issue refund failed: %v", err)
	}
	if refund.Amount != 500 {
		t.Fatalf("expected refund amount 500, got %v", refund.Amount)
	}
	if refund.Status != RefundStatusPending {
		t.Fatalf("expected pending refund, got %s", refund.Status)
	}
	if refund.EmployeeID != "emp-1" || refund.FinanceStaffID != "fin-1" {
		t.Fatalf("unexpected refund parties: %+v", refund)
	}

	var financeNotified, managerNotified bool
	for _, n := range notifier.sent {
		if n.kind == "role" && n.target == auth.RoleFinance && n.ntype == NotifyRefundDue {
			financeNotified = true
		}
		if n.kind == "role" && n.target == auth.RoleManager && n.ntype == NotifyConfirmationNeeded {
			managerNotified = true
		}
	}
	if !managerNotified {
		t.Fatal("expected manager role notification after first-line approval")
	}
	if !financeNotified {
		t.Fatal("expected finance role notification after confirmation")
	}
}

func TestFirstLineApproveOverClaimCap(t *testing.T) {
	svc, store, _ := newTestService()

	req := createClaim(t, svc, 500)
	proposed := 600.0
	_, err := svc.FirstLineDecision(context.Background(), testTenant, FirstLineInput{
		RequestID: req.ID, ActorID: "spec-1", Action: ActionApprove, ProposedAmount: &proposed,
	})
	if !errors.Is(err, ErrAmountExceedsClaim) {
		t.Fatalf("expected ErrAmountExceedsClaim, got %v", err)
	}

	fresh := store.requests[req.ID]
	if fresh.Status != StatusUnderReview || fresh.ProposedAmount != nil {
		t.Fatalf("record must be untouched after a rejected amount, got %+v", fresh)
	}
	if len(store.log[req.ID]) != 0 {
		t.Fatal("no log entry may exist for a failed transition")
	}
}

func TestRejectWithoutReasonLeavesStateUntouched(t *testing.T) {
	svc, store, _ := newTestService()

	req := createDispute(t, svc)
	_, err := svc.FirstLineDecision(context.Background(), testTenant, FirstLineInput{
		RequestID: req.ID, ActorID: "spec-1", Action: ActionReject, RejectionReason: "   ",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if store.requests[req.ID].Status != StatusUnderReview {
		t.Fatalf("status changed on failed reject: %s", store.requests[req.ID].Status)
	}
}

func TestManagerOverrideWins(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	req := createDispute(t, svc)
	proposed := 200.0
	if _, err := svc.FirstLineDecision(ctx, testTenant, FirstLineInput{
		RequestID: req.ID, ActorID: "spec-1", Action: ActionApprove, ProposedAmount: &proposed,
	}); err != nil {
		t.Fatalf("first-line approve failed: %v", err)
	}

	override := 150.0
	updated, err := svc.SecondLineDecision(ctx, testTenant, SecondLineInput{
		RequestID: req.ID, ActorID: "mgr-1", Action: ActionConfirm, FinalAmountOverride: &override,
	})
	if err != nil {
		t.Fatalf("confirm with override failed: %v", err)
	}
	if updated.FinalAmount == nil || *updated.FinalAmount != 150 {
		t.Fatalf("expected override 150 to win, got %v", updated.FinalAmount)
	}
}

func TestDuplicatePendingRefund(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	req := approveClaim(t, svc, 500)
	if _, err := svc.IssueRefund(ctx, testTenant, IssueRefundInput{RequestID: req.ID, FinanceStaffID: "fin-1"}); err != nil {
		t.Fatalf("first issue failed: %v", err)
	}
	_, err := svc.IssueRefund(ctx, testTenant, IssueRefundInput{RequestID: req.ID, FinanceStaffID: "fin-1"})
	if !errors.Is(err, ErrDuplicatePendingRefund) {
		t.Fatalf("expected ErrDuplicatePendingRefund, got %v", err)
	}
}

func TestDuplicateActiveSubjectConflictsAtCreation(t *testing.T) {
	svc, _, _ := newTestService()

	createDispute(t, svc)
	_, err := svc.Create(context.Background(), testTenant, CreateInput{
		EmployeeID: "emp-1",
		Kind:       KindDispute,
		PayslipID:  "slip-1",
	})
	if !errors.Is(err, ErrDuplicateActiveRequest) {
		t.Fatalf("expected ErrDuplicateActiveRequest, got %v", err)
	}
}

func TestTerminalRequestsRejectFurtherDecisions(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	req := createDispute(t, svc)
	if _, err := svc.FirstLineDecision(ctx, testTenant, FirstLineInput{
		RequestID: req.ID, ActorID: "spec-1", Action: ActionReject, RejectionReason: "not a valid line item",
	}); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	proposed := 10.0
	_, err := svc.FirstLineDecision(ctx, testTenant, FirstLineInput{
		RequestID: req.ID, ActorID: "spec-1", Action: ActionApprove, ProposedAmount: &proposed,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict after terminal state, got %v", err)
	}

	_, err = svc.SecondLineDecision(ctx, testTenant, SecondLineInput{
		RequestID: req.ID, ActorID: "mgr-1", Action: ActionConfirm,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if store.requests[req.ID].Status != StatusRejected {
		t.Fatal("terminal record must stay unchanged")
	}
	if len(store.log[req.ID]) != 1 {
		t.Fatalf("expected a single log entry, got %d", len(store.log[req.ID]))
	}
}

func TestFirstLineOnPendingManagerApproval(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	req := createDispute(t, svc)
	proposed := 50.0
	if _, err := svc.FirstLineDecision(ctx, testTenant, FirstLineInput{
		RequestID: req.ID, ActorID: "spec-1", Action: ActionApprove, ProposedAmount: &proposed,
	}); err != nil {
		t.Fatalf("first-line approve failed: %v", err)
	}

	_, err := svc.FirstLineDecision(ctx, testTenant, FirstLineInput{
		RequestID: req.ID, ActorID: "spec-1", Action: ActionApprove, ProposedAmount: &proposed,
	})
	if !errors.Is(err, ErrAlreadyPendingManager) {
		t.Fatalf("expected ErrAlreadyPendingManager, got %v", err)
	}
}

func TestDecisionsRequireRole(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	req := createDispute(t, svc)
	proposed := 50.0

	_, err := svc.FirstLineDecision(ctx, testTenant, FirstLineInput{
		RequestID: req.ID, ActorID: "user-emp-1", Action: ActionApprove, ProposedAmount: &proposed,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for employee acting as specialist, got %v", err)
	}
	if store.requests[req.ID].Status != StatusUnderReview {
		t.Fatal("unauthorized call must not mutate the request")
	}

	_, err = svc.IssueRefund(ctx, testTenant, IssueRefundInput{RequestID: req.ID, FinanceStaffID: "mgr-1"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for manager issuing refunds, got %v", err)
	}
}

func TestRefundRequiresApprovedRequest(t *testing.T) {
	svc, _, _ := newTestService()

	req := createDispute(t, svc)
	_, err := svc.IssueRefund(context.Background(), testTenant, IssueRefundInput{RequestID: req.ID, FinanceStaffID: "fin-1"})
	if !errors.Is(err, ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved, got %v", err)
	}
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	svc, _, notifier := newTestService()
	notifier.err = errors.New("smtp down")

	req := createDispute(t, svc)
	proposed := 75.0
	updated, err := svc.FirstLineDecision(context.Background(), testTenant, FirstLineInput{
		RequestID: req.ID, ActorID: "spec-1", Action: ActionApprove, ProposedAmount: &proposed,
	})
	if err != nil {
		t.Fatalf("transition must survive notification failure, got %v", err)
	}
	if updated.Status != StatusPendingManagerApproval {
		t.Fatalf("expected pending_manager_approval, got %s", updated.Status)
	}
}

func TestSecondLineGuardsAgainstCorruptLog(t *testing.T) {
	svc, store, _ := newTestService()

	req := createDispute(t, svc)
	// Force the status forward without a first-line log entry.
	amount := 30.0
	store.requests[req.ID].Status = StatusPendingManagerApproval
	store.requests[req.ID].ProposedAmount = &amount

	_, err := svc.SecondLineDecision(context.Background(), testTenant, SecondLineInput{
		RequestID: req.ID, ActorID: "mgr-1", Action: ActionConfirm,
	})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition for a missing approval entry, got %v", err)
	}
}

func TestRefundProgressionAndOwnerImmutability(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	req := approveClaim(t, svc, 300)
	refund, err := svc.IssueRefund(ctx, testTenant, IssueRefundInput{RequestID: req.ID, FinanceStaffID: "fin-1"})
	if err != nil {
		t.Fatalf("issue refund failed: %v", err)
	}

	if _, err := svc.MarkRefundIncluded(ctx, testTenant, refund.ID, "fin-1"); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("pending refund may not skip processed, got %v", err)
	}

	refund, err = svc.MarkRefundProcessed(ctx, testTenant, refund.ID, "fin-1")
	if err != nil {
		t.Fatalf("mark processed failed: %v", err)
	}
	if refund.Status != RefundStatusProcessed {
		t.Fatalf("expected processed, got %s", refund.Status)
	}

	// With no pending refund left, a second issuance is possible; the
	// finance owner recorded on the request stays with the first caller.
	if _, err := svc.IssueRefund(ctx, testTenant, IssueRefundInput{RequestID: req.ID, FinanceStaffID: "fin-2"}); err != nil {
		t.Fatalf("re-issue after processed failed: %v", err)
	}
	if store.requests[req.ID].FinanceOwnerID != "fin-1" {
		t.Fatalf("finance owner must stay with the first caller, got %s", store.requests[req.ID].FinanceOwnerID)
	}
}

func approveClaim(t *testing.T, svc *Service, amount float64) AdjustmentRequest {
	t.Helper()
	ctx := context.Background()
	req := createClaim(t, svc, amount)
	if _, err := svc.FirstLineDecision(ctx, testTenant, FirstLineInput{
		RequestID: req.ID, ActorID: "spec-1", Action: ActionApprove, ProposedAmount: &amount,
	}); err != nil {
		t.Fatalf("first-line approve failed: %v", err)
	}
	updated, err := svc.SecondLineDecision(ctx, testTenant, SecondLineInput{
		RequestID: req.ID, ActorID: "mgr-1", Action: ActionConfirm,
	})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	return updated
}

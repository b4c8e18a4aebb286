package adjustmentshandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrops/internal/domain/adjustments"
	"hrops/internal/domain/audit"
	"hrops/internal/domain/auth"
	"hrops/internal/platform/metrics"
	"hrops/internal/transport/http/api"
	"hrops/internal/transport/http/middleware"
	"hrops/internal/transport/http/shared"
)

type Handler struct {
	Service     *adjustments.Service
	Perms       middleware.PermissionStore
	Audit       *audit.Service
	Idempotency *middleware.IdempotencyStore
	Metrics     *metrics.Collector
}

func NewHandler(service *adjustments.Service, perms middleware.PermissionStore, auditSvc *audit.Service, idem *middleware.IdempotencyStore, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Idempotency: idem, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/adjustments", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAdjustmentsWrite, h.Perms)).Post("/requests", h.handleCreateRequest)
		r.With(middleware.RequirePermission(auth.PermAdjustmentsRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermAdjustmentsRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermAdjustmentsFirstLine, h.Perms)).Post("/requests/{requestID}/firstline", h.handleFirstLine)
		r.With(middleware.RequirePermission(auth.PermAdjustmentsSecondLine, h.Perms)).Post("/requests/{requestID}/secondline", h.handleSecondLine)
		r.With(middleware.RequirePermission(auth.PermAdjustmentsRefund, h.Perms)).Post("/requests/{requestID}/refund", h.handleIssueRefund)
		r.With(middleware.RequirePermission(auth.PermAdjustmentsRefund, h.Perms)).Get("/refunds", h.handleListRefunds)
		r.With(middleware.RequirePermission(auth.PermAdjustmentsRefund, h.Perms)).Post("/refunds/{refundID}/processed", h.handleRefundProcessed)
		r.With(middleware.RequirePermission(auth.PermAdjustmentsRefund, h.Perms)).Post("/refunds/{refundID}/included", h.handleRefundIncluded)
	})
}

type createRequestPayload struct {
	Kind          string   `json:"kind"`
	PayslipID     string   `json:"payslipId"`
	Description   string   `json:"description"`
	ClaimType     string   `json:"claimType"`
	ClaimedAmount *float64 `json:"claimedAmount"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload createRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("kind", payload.Kind, "kind is required")
	v.Enum("kind", payload.Kind, []string{adjustments.KindDispute, adjustments.KindClaim}, "must be dispute or claim")
	if payload.Kind == adjustments.KindDispute {
		v.Required("payslipId", payload.PayslipID, "payslip id is required for disputes")
	}
	if payload.Kind == adjustments.KindClaim {
		v.Required("description", payload.Description, "description is required for claims")
		v.Required("claimType", payload.ClaimType, "claim type is required for claims")
		if payload.ClaimedAmount == nil {
			v.Add("claimedAmount", "claimed amount is required for claims")
		}
		v.NonNegativeAmount("claimedAmount", payload.ClaimedAmount)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	employeeID, err := h.Service.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil || employeeID == "" {
		api.Fail(w, http.StatusBadRequest, "no_employee_record", "no employee record for this user", middleware.GetRequestID(r.Context()))
		return
	}

	created, err := h.Service.Create(r.Context(), user.TenantID, adjustments.CreateInput{
		EmployeeID:    employeeID,
		Kind:          payload.Kind,
		PayslipID:     payload.PayslipID,
		Description:   payload.Description,
		ClaimType:     payload.ClaimType,
		ClaimedAmount: payload.ClaimedAmount,
	})
	if err != nil {
		h.failWorkflow(w, r, err, "request_create_failed", "failed to create request")
		return
	}

	h.record(r, user, audit.ActionAdjustmentCreated, audit.EntityAdjustmentRequest, created.ID, nil, created)
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	filter := adjustments.RequestFilter{
		Kind:   r.URL.Query().Get("kind"),
		Status: r.URL.Query().Get("status"),
		Limit:  page.Limit,
		Offset: page.Offset,
	}

	// Employees only see their own requests; reviewer roles may scope by
	// employee id.
	if user.RoleName == auth.RoleEmployee {
		employeeID, err := h.Service.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
		if err != nil || employeeID == "" {
			api.Fail(w, http.StatusBadRequest, "no_employee_record", "no employee record for this user", middleware.GetRequestID(r.Context()))
			return
		}
		filter.EmployeeID = employeeID
	} else if employeeID := r.URL.Query().Get("employeeId"); employeeID != "" {
		filter.EmployeeID = employeeID
	}

	result, err := h.Service.ListRequests(r.Context(), user.TenantID, filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "request_list_failed", "failed to list requests", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	requestID := chi.URLParam(r, "requestID")
	req, refunds, err := h.Service.GetRequest(r.Context(), user.TenantID, requestID)
	if err != nil {
		h.failWorkflow(w, r, err, "request_get_failed", "failed to load request")
		return
	}

	if user.RoleName == auth.RoleEmployee {
		employeeID, err := h.Service.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
		if err != nil || employeeID == "" || employeeID != req.EmployeeID {
			api.Fail(w, http.StatusNotFound, "not_found", "adjustment request not found", middleware.GetRequestID(r.Context()))
			return
		}
	}

	api.Success(w, map[string]any{"request": req, "refunds": refunds}, middleware.GetRequestID(r.Context()))
}

type firstLinePayload struct {
	Action          string   `json:"action"`
	ProposedAmount  *float64 `json:"proposedAmount"`
	RejectionReason string   `json:"rejectionReason"`
	Comment         string   `json:"comment"`
}

func (h *Handler) handleFirstLine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload firstLinePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("action", payload.Action, "action is required")
	v.Enum("action", payload.Action, []string{adjustments.ActionApprove, adjustments.ActionReject}, "must be approve or reject")
	v.NonNegativeAmount("proposedAmount", payload.ProposedAmount)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	requestID := chi.URLParam(r, "requestID")
	updated, err := h.Service.FirstLineDecision(r.Context(), user.TenantID, adjustments.FirstLineInput{
		RequestID:       requestID,
		ActorID:         user.UserID,
		Action:          payload.Action,
		ProposedAmount:  payload.ProposedAmount,
		RejectionReason: payload.RejectionReason,
		Comment:         payload.Comment,
	})
	if err != nil {
		h.failWorkflow(w, r, err, "firstline_failed", "first-line decision failed")
		return
	}

	if h.Metrics != nil {
		h.Metrics.RecordTransition()
	}
	h.record(r, user, audit.ActionFirstLineDecision, audit.EntityAdjustmentRequest, requestID, payload, updated)
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

type secondLinePayload struct {
	Action              string   `json:"action"`
	FinalAmountOverride *float64 `json:"finalAmountOverride"`
	RejectionReason     string   `json:"rejectionReason"`
	Comment             string   `json:"comment"`
}

func (h *Handler) handleSecondLine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload secondLinePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("action", payload.Action, "action is required")
	v.Enum("action", payload.Action, []string{adjustments.ActionConfirm, adjustments.ActionReject}, "must be confirm or reject")
	v.NonNegativeAmount("finalAmountOverride", payload.FinalAmountOverride)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	requestID := chi.URLParam(r, "requestID")
	updated, err := h.Service.SecondLineDecision(r.Context(), user.TenantID, adjustments.SecondLineInput{
		RequestID:           requestID,
		ActorID:             user.UserID,
		Action:              payload.Action,
		FinalAmountOverride: payload.FinalAmountOverride,
		RejectionReason:     payload.RejectionReason,
		Comment:             payload.Comment,
	})
	if err != nil {
		h.failWorkflow(w, r, err, "secondline_failed", "second-line decision failed")
		return
	}

	if h.Metrics != nil {
		h.Metrics.RecordTransition()
	}
	h.record(r, user, audit.ActionSecondLineDecision, audit.EntityAdjustmentRequest, requestID, payload, updated)
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

type issueRefundPayload struct {
	Description string `json:"description"`
}

func (h *Handler) handleIssueRefund(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	var payload issueRefundPayload
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
	}

	requestID := chi.URLParam(r, "requestID")
	endpoint := "adjustments.refund." + requestID
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	requestHash := middleware.RequestHash(raw)

	if idemKey != "" {
		stored, found, err := h.Idempotency.Check(r.Context(), user.TenantID, user.UserID, endpoint, idemKey, requestHash)
		if err != nil {
			if errors.Is(err, middleware.ErrIdempotencyConflict) {
				api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key reused with a different payload", middleware.GetRequestID(r.Context()))
				return
			}
			api.Fail(w, http.StatusInternalServerError, "idempotency_failed", "idempotency check failed", middleware.GetRequestID(r.Context()))
			return
		}
		if found {
			var refund adjustments.Refund
			if err := json.Unmarshal(stored, &refund); err == nil {
				api.Created(w, refund, middleware.GetRequestID(r.Context()))
				return
			}
		}
	}

	refund, err := h.Service.IssueRefund(r.Context(), user.TenantID, adjustments.IssueRefundInput{
		RequestID:      requestID,
		FinanceStaffID: user.UserID,
		Description:    payload.Description,
	})
	if err != nil {
		h.failWorkflow(w, r, err, "refund_issue_failed", "failed to issue refund")
		return
	}

	if idemKey != "" {
		if response, err := json.Marshal(refund); err == nil {
			if err := h.Idempotency.Save(r.Context(), user.TenantID, user.UserID, endpoint, idemKey, requestHash, response); err != nil {
				slog.Warn("idempotency save failed", "endpoint", endpoint, "err", err)
			}
		}
	}

	if h.Metrics != nil {
		h.Metrics.RecordRefundIssued()
	}
	h.record(r, user, audit.ActionRefundIssued, audit.EntityRefund, refund.ID, nil, refund)
	api.Created(w, refund, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRefunds(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	result, err := h.Service.ListRefunds(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "refund_list_failed", "failed to list refunds", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRefundProcessed(w http.ResponseWriter, r *http.Request) {
	h.advanceRefund(w, r, audit.ActionRefundProcessed, func(r *http.Request, user auth.UserContext, refundID string) (adjustments.Refund, error) {
		return h.Service.MarkRefundProcessed(r.Context(), user.TenantID, refundID, user.UserID)
	})
}

func (h *Handler) handleRefundIncluded(w http.ResponseWriter, r *http.Request) {
	h.advanceRefund(w, r, audit.ActionRefundIncluded, func(r *http.Request, user auth.UserContext, refundID string) (adjustments.Refund, error) {
		return h.Service.MarkRefundIncluded(r.Context(), user.TenantID, refundID, user.UserID)
	})
}

func (h *Handler) advanceRefund(w http.ResponseWriter, r *http.Request, action string, fn func(*http.Request, auth.UserContext, string) (adjustments.Refund, error)) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	refundID := chi.URLParam(r, "refundID")
	refund, err := fn(r, user, refundID)
	if err != nil {
		h.failWorkflow(w, r, err, "refund_advance_failed", "failed to advance refund")
		return
	}

	if h.Metrics != nil {
		h.Metrics.RecordTransition()
	}
	h.record(r, user, action, audit.EntityRefund, refundID, nil, refund)
	api.Success(w, refund, middleware.GetRequestID(r.Context()))
}

// failWorkflow translates workflow errors into the HTTP vocabulary: unknown
// ids are 404, state races and duplicates are 409, bad input is 400, and a
// principal without the acting role is 403.
func (h *Handler) failWorkflow(w http.ResponseWriter, r *http.Request, err error, fallbackCode, fallbackMessage string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, adjustments.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "adjustment request not found", requestID)
	case errors.Is(err, adjustments.ErrRefundNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "refund not found", requestID)
	case errors.Is(err, adjustments.ErrUnauthorized):
		api.Fail(w, http.StatusForbidden, "forbidden", "acting role required for this transition", requestID)
	case errors.Is(err, adjustments.ErrConflict):
		api.Fail(w, http.StatusConflict, "already_resolved", err.Error(), requestID)
	case errors.Is(err, adjustments.ErrAlreadyPendingManager):
		api.Fail(w, http.StatusConflict, "already_pending_manager", err.Error(), requestID)
	case errors.Is(err, adjustments.ErrDuplicateActiveRequest):
		api.Fail(w, http.StatusConflict, "duplicate_active_request", err.Error(), requestID)
	case errors.Is(err, adjustments.ErrDuplicatePendingRefund):
		api.Fail(w, http.StatusConflict, "duplicate_pending_refund", err.Error(), requestID)
	case errors.Is(err, adjustments.ErrInvalidStateTransition):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, adjustments.ErrNotApproved):
		api.Fail(w, http.StatusConflict, "not_approved", err.Error(), requestID)
	case errors.Is(err, adjustments.ErrAmountExceedsClaim),
		errors.Is(err, adjustments.ErrMissingApprovedAmount),
		errors.Is(err, adjustments.ErrZeroAmount),
		errors.Is(err, adjustments.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "invalid_request", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, fallbackCode, fallbackMessage, requestID)
	}
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, entityType, entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

package employeeshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrops/internal/domain/audit"
	"hrops/internal/domain/auth"
	"hrops/internal/domain/employees"
	"hrops/internal/transport/http/api"
	"hrops/internal/transport/http/middleware"
	"hrops/internal/transport/http/shared"
)

type Handler struct {
	Service *employees.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *employees.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAdjustmentsRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermAdjustmentsRead, h.Perms)).Get("/{employeeID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermAdjustmentsRead, h.Perms)).Get("/{employeeID}/payslips", h.handleListPayslips)
		r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Post("/{employeeID}/payslips", h.handleCreatePayslip)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if user.RoleName == auth.RoleEmployee {
		api.Fail(w, http.StatusForbidden, "forbidden", "reviewer role required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	out, err := h.Service.ListEmployees(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if !h.canViewEmployee(r, user, employeeID) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Service.GetEmployee(r.Context(), user.TenantID, employeeID)
	if err != nil {
		if errors.Is(err, employees.ErrEmployeeNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_get_failed", "failed to load employee", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

type createEmployeePayload struct {
	UserID         string `json:"userId"`
	EmployeeNumber string `json:"employeeNumber"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload createEmployeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("firstName", payload.FirstName, "first name is required")
	v.Required("lastName", payload.LastName, "last name is required")
	v.Required("email", payload.Email, "email is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreateEmployee(r.Context(), user.TenantID, employees.Employee{
		UserID:         payload.UserID,
		EmployeeNumber: payload.EmployeeNumber,
		FirstName:      payload.FirstName,
		LastName:       payload.LastName,
		Email:          payload.Email,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", middleware.GetRequestID(r.Context()))
		return
	}

	if h.Audit != nil {
		if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "employee.created", "employee", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
			slog.Warn("audit employee.created failed", "err", err)
		}
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPayslips(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if !h.canViewEmployee(r, user, employeeID) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	slips, err := h.Service.ListPayslips(r.Context(), user.TenantID, employeeID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payslip_list_failed", "failed to list payslips", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, slips, middleware.GetRequestID(r.Context()))
}

type createPayslipPayload struct {
	PeriodStart string  `json:"periodStart"`
	PeriodEnd   string  `json:"periodEnd"`
	GrossAmount float64 `json:"grossAmount"`
	NetAmount   float64 `json:"netAmount"`
}

func (h *Handler) handleCreatePayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload createPayslipPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	start, err := time.Parse("2006-01-02", payload.PeriodStart)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "periodStart must be YYYY-MM-DD", middleware.GetRequestID(r.Context()))
		return
	}
	end, err := time.Parse("2006-01-02", payload.PeriodEnd)
	if err != nil || end.Before(start) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "periodEnd must be YYYY-MM-DD on or after periodStart", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	id, err := h.Service.CreatePayslip(r.Context(), user.TenantID, employees.Payslip{
		EmployeeID:  employeeID,
		PeriodStart: start,
		PeriodEnd:   end,
		GrossAmount: payload.GrossAmount,
		NetAmount:   payload.NetAmount,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payslip_create_failed", "failed to create payslip", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

// canViewEmployee restricts employees to their own record; reviewer roles
// see everyone in the tenant.
func (h *Handler) canViewEmployee(r *http.Request, user auth.UserContext, employeeID string) bool {
	if user.RoleName != auth.RoleEmployee {
		return true
	}
	selfID, err := h.Service.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		slog.Warn("self employee lookup failed", "userId", user.UserID, "err", err)
		return false
	}
	return selfID != "" && selfID == employeeID
}

package employees

import (
	"context"
	"strings"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error) {
	return s.store.GetEmployee(ctx, tenantID, employeeID)
}

func (s *Service) ListEmployees(ctx context.Context, tenantID string, limit, offset int) ([]Employee, error) {
	return s.store.ListEmployees(ctx, tenantID, limit, offset)
}

func (s *Service) CreateEmployee(ctx context.Context, tenantID string, emp Employee) (string, error) {
	if strings.TrimSpace(emp.Status) == "" {
		emp.Status = EmployeeStatusActive
	}
	return s.store.CreateEmployee(ctx, tenantID, emp)
}

func (s *Service) ListPayslips(ctx context.Context, tenantID, employeeID string, limit, offset int) ([]Payslip, error) {
	return s.store.ListPayslips(ctx, tenantID, employeeID, limit, offset)
}

func (s *Service) CreatePayslip(ctx context.Context, tenantID string, slip Payslip) (string, error) {
	if strings.TrimSpace(slip.Status) == "" {
		slip.Status = PayslipStatusPublished
	}
	return s.store.CreatePayslip(ctx, tenantID, slip)
}

func (s *Service) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	return s.store.EmployeeIDByUserID(ctx, tenantID, userID)
}

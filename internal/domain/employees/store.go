package employees

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEmployeeNotFound = errors.New("employee not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT id,
           COALESCE(user_id::text, ''),
           COALESCE(employee_number, ''),
           first_name, last_name, email, status, created_at, updated_at
    FROM employees
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID)

	var emp Employee
	err := row.Scan(&emp.ID, &emp.UserID, &emp.EmployeeNumber, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	if err != nil {
		return Employee{}, err
	}
	return emp, nil
}

func (s *Store) ListEmployees(ctx context.Context, tenantID string, limit, offset int) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id,
           COALESCE(user_id::text, ''),
           COALESCE(employee_number, ''),
           first_name, last_name, email, status, created_at, updated_at
    FROM employees
    WHERE tenant_id = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var emp Employee
		if err := rows.Scan(&emp.ID, &emp.UserID, &emp.EmployeeNumber, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) CreateEmployee(ctx context.Context, tenantID string, emp Employee) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, user_id, employee_number, first_name, last_name, email, status)
    VALUES ($1, NULLIF($2,'')::uuid, $3, $4, $5, $6, $7)
    RETURNING id
  `, tenantID, emp.UserID, emp.EmployeeNumber, emp.FirstName, emp.LastName, emp.Email, emp.Status).Scan(&id)
	return id, err
}

func (s *Store) ListPayslips(ctx context.Context, tenantID, employeeID string, limit, offset int) ([]Payslip, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, period_start, period_end, gross_amount, net_amount, status, created_at
    FROM payslips
    WHERE tenant_id = $1 AND employee_id = $2
    ORDER BY period_end DESC
    LIMIT $3 OFFSET $4
  `, tenantID, employeeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payslip
	for rows.Next() {
		var slip Payslip
		if err := rows.Scan(&slip.ID, &slip.EmployeeID, &slip.PeriodStart, &slip.PeriodEnd, &slip.GrossAmount, &slip.NetAmount, &slip.Status, &slip.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, slip)
	}
	return out, rows.Err()
}

func (s *Store) CreatePayslip(ctx context.Context, tenantID string, slip Payslip) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO payslips (tenant_id, employee_id, period_start, period_end, gross_amount, net_amount, status)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    RETURNING id
  `, tenantID, slip.EmployeeID, slip.PeriodStart, slip.PeriodEnd, slip.GrossAmount, slip.NetAmount, slip.Status).Scan(&id)
	return id, err
}

func (s *Store) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    SELECT id FROM employees WHERE tenant_id = $1 AND user_id = $2
  `, tenantID, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return id, err
}

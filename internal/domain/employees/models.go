package employees

import "time"

// Employee is the HR record behind a login. Adjustment requests and refunds
// reference employees, not users.
type Employee struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId,omitempty"`
	EmployeeNumber string    `json:"employeeNumber"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Payslip is the published pay statement a dispute contests.
type Payslip struct {
	ID          string    `json:"id"`
	EmployeeID  string    `json:"employeeId"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	GrossAmount float64   `json:"grossAmount"`
	NetAmount   float64   `json:"netAmount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

const (
	EmployeeStatusActive   = "active"
	EmployeeStatusInactive = "inactive"

	PayslipStatusPublished = "published"
)

package adjustments

import "time"

// AdjustmentRequest is a payslip dispute or an expense claim moving through
// the two-stage approval workflow. Disputes reference the contested payslip;
// claims carry a free-text description and a claim type.
type AdjustmentRequest struct {
	ID              string            `json:"id"`
	HumanID         string            `json:"humanId"`
	EmployeeID      string            `json:"employeeId"`
	Kind            string            `json:"kind"`
	SubjectRef      string            `json:"subjectRef"`
	PayslipID       string            `json:"payslipId,omitempty"`
	Description     string            `json:"description,omitempty"`
	ClaimType       string            `json:"claimType,omitempty"`
	ClaimedAmount   *float64          `json:"claimedAmount,omitempty"`
	ProposedAmount  *float64          `json:"proposedAmount,omitempty"`
	FinalAmount     *float64          `json:"finalAmount,omitempty"`
	Status          string            `json:"status"`
	RejectionReason string            `json:"rejectionReason,omitempty"`
	FinanceOwnerID  string            `json:"financeOwnerId,omitempty"`
	ResolutionLog   []ResolutionEntry `json:"resolutionLog,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// ResolutionEntry is one append-only record of a workflow transition.
type ResolutionEntry struct {
	ID        string    `json:"id"`
	RequestID string    `json:"requestId,omitempty"`
	Stage     string    `json:"stage"`
	ActorID   string    `json:"actorId"`
	ActorRole string    `json:"actorRole"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Refund struct {
	ID              string    `json:"id"`
	SourceRequestID string    `json:"sourceRequestId"`
	EmployeeID      string    `json:"employeeId"`
	FinanceStaffID  string    `json:"financeStaffId"`
	Description     string    `json:"description,omitempty"`
	Amount          float64   `json:"amount"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type RequestFilter struct {
	EmployeeID string
	Kind       string
	Status     string
	Limit      int
	Offset     int
}

type RequestListResult struct {
	Requests []AdjustmentRequest
	Total    int
}

type RefundListResult struct {
	Refunds []Refund
	Total   int
}

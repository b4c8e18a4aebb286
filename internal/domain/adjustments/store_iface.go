package adjustments

import "context"

type StoreAPI interface {
	ActiveRequestExists(ctx context.Context, tenantID, employeeID, subjectRef string) (bool, error)
	NextSequence(ctx context.Context, tenantID, prefix string) (int, error)
	InsertRequest(ctx context.Context, tenantID string, req AdjustmentRequest) (string, error)
	GetRequest(ctx context.Context, tenantID, requestID string) (AdjustmentRequest, error)
	ListRequests(ctx context.Context, tenantID string, filter RequestFilter) (RequestListResult, error)
	ResolutionLog(ctx context.Context, tenantID, requestID string) ([]ResolutionEntry, error)
	HasResolutionStage(ctx context.Context, tenantID, requestID, stage string) (bool, error)

	ApplyFirstLineApproval(ctx context.Context, tenantID, requestID string, proposed float64, entry ResolutionEntry) (bool, error)
	ApplyRejection(ctx context.Context, tenantID, requestID, fromStatus, reason string, entry ResolutionEntry) (bool, error)
	ApplyConfirmation(ctx context.Context, tenantID, requestID string, final float64, entry ResolutionEntry) (bool, error)

	ClaimFinanceOwner(ctx context.Context, tenantID, requestID, financeStaffID string) error
	InsertRefund(ctx context.Context, tenantID string, refund Refund) (string, error)
	GetRefund(ctx context.Context, tenantID, refundID string) (Refund, error)
	ListRefunds(ctx context.Context, tenantID string, limit, offset int) (RefundListResult, error)
	RefundsForRequest(ctx context.Context, tenantID, requestID string) ([]Refund, error)
	AdvanceRefundStatus(ctx context.Context, tenantID, refundID, fromStatus, toStatus string) (bool, error)

	PayslipOwnedByEmployee(ctx context.Context, tenantID, payslipID, employeeID string) (bool, error)
	EmployeeUserID(ctx context.Context, tenantID, employeeID string) (string, error)
	EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error)
}

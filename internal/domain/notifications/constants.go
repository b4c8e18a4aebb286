package notifications

const (
	TypeAdjustmentSubmitted          = "adjustment_submitted"
	TypeAdjustmentPendingManager     = "adjustment_pending_manager"
	TypeAdjustmentConfirmationNeeded = "adjustment_confirmation_needed"
	TypeAdjustmentApproved           = "adjustment_approved"
	TypeAdjustmentRejected           = "adjustment_rejected"
	TypeAdjustmentRefundDue          = "adjustment_refund_due"
	TypeRefundProcessed              = "refund_processed"
)

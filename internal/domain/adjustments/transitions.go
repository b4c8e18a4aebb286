package adjustments

// allowedTransitions maps each request status to the statuses it may move
// to. Approved and rejected are terminal.
var allowedTransitions = map[string][]string{
	StatusUnderReview: {
		StatusPendingManagerApproval,
		StatusRejected,
	},
	StatusPendingManagerApproval: {
		StatusApproved,
		StatusRejected,
	},
	StatusApproved: {},
	StatusRejected: {},
}

// refundTransitions is the refund artifact's own progression, owned by the
// payroll execution process once the refund exists.
var refundTransitions = map[string][]string{
	RefundStatusPending:           {RefundStatusProcessed},
	RefundStatusProcessed:         {RefundStatusIncludedInPayroll},
	RefundStatusIncludedInPayroll: {},
}

func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func CanTransitionRefund(from, to string) bool {
	for _, next := range refundTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

package adjustments

const (
	KindDispute = "dispute"
	KindClaim   = "claim"

	StatusUnderReview            = "under_review"
	StatusPendingManagerApproval = "pending_manager_approval"
	StatusApproved               = "approved"
	StatusRejected               = "rejected"

	RefundStatusPending           = "pending"
	RefundStatusProcessed         = "processed"
	RefundStatusIncludedInPayroll = "included_in_payroll"

	StageSpecialistApproval  = "specialist_approval"
	StageSpecialistRejection = "specialist_rejection"
	StageManagerConfirmation = "manager_confirmation"
	StageManagerRejection    = "manager_rejection"

	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionConfirm = "confirm"

	SequencePrefixDispute = "DSP"
	SequencePrefixClaim   = "CLM"
)

func SequencePrefix(kind string) string {
	if kind == KindDispute {
		return SequencePrefixDispute
	}
	return SequencePrefixClaim
}

func ValidKind(kind string) bool {
	return kind == KindDispute || kind == KindClaim
}

func TerminalStatus(status string) bool {
	return status == StatusApproved || status == StatusRejected
}

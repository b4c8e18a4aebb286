package adjustments

import "errors"

var (
	ErrNotFound               = errors.New("adjustment request not found")
	ErrRefundNotFound         = errors.New("refund not found")
	ErrConflict               = errors.New("request is already resolved")
	ErrDuplicateActiveRequest = errors.New("an active request already exists for this subject")
	ErrInvalidStateTransition = errors.New("action not allowed in the current state")
	ErrAlreadyPendingManager  = errors.New("request is already pending manager approval")
	ErrValidation             = errors.New("missing or invalid field for this action")
	ErrAmountExceedsClaim     = errors.New("amount exceeds the claimed amount")
	ErrMissingApprovedAmount  = errors.New("no proposed or override amount available")
	ErrNotApproved            = errors.New("request is not approved")
	ErrDuplicatePendingRefund = errors.New("a pending refund already exists for this request")
	ErrZeroAmount             = errors.New("refund amount must be positive")
	ErrUnauthorized           = errors.New("principal lacks the required role")
)

package adjustments

// Amount policy for the two request kinds. Claims are capped at the amount
// originally claimed; disputes carry no ceiling because the specialist's
// proposal is itself the first authoritative figure for the contested item.

// ValidateProposed checks a first-line approver's proposed amount against
// the kind's cap. cap is ignored for disputes and for claims is the
// claimed amount.
func ValidateProposed(kind string, amount float64, cap *float64) error {
	if amount < 0 {
		return ErrValidation
	}
	if kind == KindClaim && cap != nil && amount > *cap {
		return ErrAmountExceedsClaim
	}
	return nil
}

// ValidateFinal checks a second-line override amount under the same rules.
func ValidateFinal(kind string, amount float64, cap *float64) error {
	if amount < 0 {
		return ErrValidation
	}
	if kind == KindClaim && cap != nil && amount > *cap {
		return ErrAmountExceedsClaim
	}
	return nil
}

// ResolveFinalAmount applies the inheritance rule for second-line
// confirmation: an explicit override wins, otherwise the specialist's
// proposed amount carries forward unchanged.
func ResolveFinalAmount(proposed, override *float64) (float64, error) {
	if override != nil {
		return *override, nil
	}
	if proposed != nil {
		return *proposed, nil
	}
	return 0, ErrMissingApprovedAmount
}

package adjustments

import (
	"errors"
	"testing"
)

func TestValidateProposedClaimCap(t *testing.T) {
	cap := 500.0

	if err := ValidateProposed(KindClaim, 500, &cap); err != nil {
		t.Fatalf("unexpected error at the cap: %v", err)
	}
	if err := ValidateProposed(KindClaim, 600, &cap); !errors.Is(err, ErrAmountExceedsClaim) {
		t.Fatalf("expected ErrAmountExceedsClaim, got %v", err)
	}
	if err := ValidateProposed(KindClaim, -1, &cap); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for negative amount, got %v", err)
	}
}

func TestValidateProposedDisputeUncapped(t *testing.T) {
	if err := ValidateProposed(KindDispute, 1000000, nil); err != nil {
		t.Fatalf("disputes carry no cap, got %v", err)
	}
	if err := ValidateProposed(KindDispute, -0.01, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for negative amount, got %v", err)
	}
}

func TestValidateFinalClaimCap(t *testing.T) {
	cap := 200.0
	if err := ValidateFinal(KindClaim, 150, &cap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateFinal(KindClaim, 200.01, &cap); !errors.Is(err, ErrAmountExceedsClaim) {
		t.Fatalf("expected ErrAmountExceedsClaim, got %v", err)
	}
}

func TestResolveFinalAmount(t *testing.T) {
	proposed := 200.0
	override := 150.0

	amount, err := ResolveFinalAmount(&proposed, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 200 {
		t.Fatalf("expected inherited proposed amount 200, got %v", amount)
	}

	amount, err = ResolveFinalAmount(&proposed, &override)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount != 150 {
		t.Fatalf("expected override 150 to win, got %v", amount)
	}

	if _, err := ResolveFinalAmount(nil, nil); !errors.Is(err, ErrMissingApprovedAmount) {
		t.Fatalf("expected ErrMissingApprovedAmount, got %v", err)
	}
}

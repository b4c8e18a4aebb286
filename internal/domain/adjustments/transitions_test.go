package adjustments

import "testing"

func TestRequestTransitions(t *testing.T) {
	allowed := [][2]string{
		{StatusUnderReview, StatusPendingManagerApproval},
		{StatusUnderReview, StatusRejected},
		{StatusPendingManagerApproval, StatusApproved},
		{StatusPendingManagerApproval, StatusRejected},
	}
	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be allowed", pair[0], pair[1])
		}
	}

	denied := [][2]string{
		{StatusUnderReview, StatusApproved},
		{StatusApproved, StatusRejected},
		{StatusApproved, StatusUnderReview},
		{StatusRejected, StatusUnderReview},
		{StatusRejected, StatusApproved},
		{StatusPendingManagerApproval, StatusUnderReview},
	}
	for _, pair := range denied {
		if CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be denied", pair[0], pair[1])
		}
	}
}

func TestTerminalStatusesAdmitNothing(t *testing.T) {
	for _, status := range []string{StatusApproved, StatusRejected} {
		if len(allowedTransitions[status]) != 0 {
			t.Fatalf("expected %s to be terminal", status)
		}
	}
}

func TestRefundTransitions(t *testing.T) {
	if !CanTransitionRefund(RefundStatusPending, RefundStatusProcessed) {
		t.Fatal("expected pending -> processed")
	}
	if !CanTransitionRefund(RefundStatusProcessed, RefundStatusIncludedInPayroll) {
		t.Fatal("expected processed -> included_in_payroll")
	}
	if CanTransitionRefund(RefundStatusPending, RefundStatusIncludedInPayroll) {
		t.Fatal("pending may not skip processed")
	}
	if CanTransitionRefund(RefundStatusIncludedInPayroll, RefundStatusPending) {
		t.Fatal("included_in_payroll is terminal")
	}
}

package donation

import (
	"errors"
	"testing"
)

func newTestDonation(t *testing.T) *Donation {
	t.Helper()
	d, err := New(7, Donor{Email: "donor@example.com"}, 5000, NGN, "key", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name       string
		campaignID int64
		donor      Donor
		amount     Money
	}{
		{"zero campaign", 0, Donor{Email: "a@b.c"}, 5000},
		{"zero amount", 7, Donor{Email: "a@b.c"}, 0},
		{"negative amount", 7, Donor{Email: "a@b.c"}, -100},
		{"missing email", 7, Donor{}, 5000},
		{"blank email", 7, Donor{Email: "   "}, 5000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.campaignID, tc.donor, tc.amount, NGN, "key", true); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to Status
	}{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusFailed},
		{StatusPending, StatusCancelled},
		{StatusCompleted, StatusRefunded},
		{StatusPending, StatusPending},
	}
	for _, tc := range allowed {
		d := newTestDonation(t)
		d.Status = tc.from
		if err := d.UpdateStatus(tc.to); err != nil {
			t.Errorf("%s -> %s should be allowed: %v", tc.from, tc.to, err)
		}
	}

	denied := []struct {
		from, to Status
	}{
		{StatusCompleted, StatusPending},
		{StatusFailed, StatusCompleted},
		{StatusRefunded, StatusCompleted},
		{StatusCancelled, StatusCompleted},
		{StatusPending, StatusRefunded},
	}
	for _, tc := range denied {
		d := newTestDonation(t)
		d.Status = tc.from
		err := d.UpdateStatus(tc.to)
		if err == nil {
			t.Errorf("%s -> %s should be denied", tc.from, tc.to)
			continue
		}
		var derr DomainError
		if !errors.As(err, &derr) || derr.Code != ErrInvalidStatus {
			t.Errorf("expected INVALID_STATUS error, got %v", err)
		}
	}
}

func TestSetGatewayTransactionID(t *testing.T) {
	d := newTestDonation(t)

	if err := d.SetGatewayTransactionID("ref1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Setting the same reference again is fine.
	if err := d.SetGatewayTransactionID("ref1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := d.SetGatewayTransactionID("ref2")
	var derr DomainError
	if !errors.As(err, &derr) || derr.Code != ErrReferenceConflict {
		t.Fatalf("expected REFERENCE_CONFLICT, got %v", err)
	}
	if d.GatewayTransactionID != "ref1" {
		t.Fatalf("reference must not change, got %q", d.GatewayTransactionID)
	}
}

func TestAddLogSkipsEmpty(t *testing.T) {
	d := newTestDonation(t)
	d.AddLog("")
	d.AddLog("paid")
	if len(d.Logs) != 1 || d.Logs[0].Message != "paid" {
		t.Fatalf("unexpected logs: %v", d.Logs)
	}
}

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"charipay/internal/domain/donation"
	"charipay/internal/domain/recurring"
	"charipay/internal/paystack"
	"charipay/internal/store/repositories"
)

const testSecret = "sk_test_webhooksecret"

func sign(body string) string {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func signedRequest(body string) Request {
	return Request{Method: http.MethodPost, Signature: sign(body), Body: []byte(body)}
}

type fakeDonations struct {
	byID  map[int64]*donation.Donation
	byRef map[string]*donation.Donation
}

func newFakeDonations(ds ...*donation.Donation) *fakeDonations {
	f := &fakeDonations{byID: map[int64]*donation.Donation{}, byRef: map[string]*donation.Donation{}}
	for _, d := range ds {
		f.add(d)
	}
	return f
}

func (f *fakeDonations) add(d *donation.Donation) {
	f.byID[d.ID] = d
	if d.GatewayTransactionID != "" {
		f.byRef[d.GatewayTransactionID] = d
	}
}

func (f *fakeDonations) Save(ctx context.Context, d *donation.Donation) error {
	if d.ID == 0 {
		d.ID = int64(len(f.byID) + 1)
	}
	f.add(d)
	return nil
}

func (f *fakeDonations) FindByID(ctx context.Context, id int64) (*donation.Donation, error) {
	if d, ok := f.byID[id]; ok {
		return d, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeDonations) FindByGatewayTransactionID(ctx context.Context, ref string) (*donation.Donation, error) {
	if d, ok := f.byRef[ref]; ok {
		return d, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeDonations) MarkProcessed(ctx context.Context, ref string) (bool, error) {
	d, ok := f.byRef[ref]
	if !ok || d.Processed {
		return false, nil
	}
	d.Processed = true
	return true, nil
}

type fakeRecurring struct {
	byID map[int64]*recurring.RecurringDonation
}

func newFakeRecurring(rds ...*recurring.RecurringDonation) *fakeRecurring {
	f := &fakeRecurring{byID: map[int64]*recurring.RecurringDonation{}}
	for _, rd := range rds {
		f.byID[rd.ID] = rd
	}
	return f
}

func (f *fakeRecurring) Save(ctx context.Context, rd *recurring.RecurringDonation) error {
	if rd.ID == 0 {
		rd.ID = int64(len(f.byID) + 1)
	}
	f.byID[rd.ID] = rd
	return nil
}

func (f *fakeRecurring) FindByID(ctx context.Context, id int64) (*recurring.RecurringDonation, error) {
	if rd, ok := f.byID[id]; ok {
		return rd, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeRecurring) FindByGatewaySubscriptionID(ctx context.Context, code string) (*recurring.RecurringDonation, error) {
	for _, rd := range f.byID {
		if rd.GatewaySubscriptionID == code && code != "" {
			return rd, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeRecurring) FindByAuthorizationCode(ctx context.Context, code string) (*recurring.RecurringDonation, error) {
	for _, rd := range f.byID {
		if rd.AuthorizationCode == code && code != "" {
			return rd, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type verifierFunc func(ctx context.Context, reference string, testMode bool) (*paystack.Transaction, error)

func (f verifierFunc) VerifyTransaction(ctx context.Context, reference string, testMode bool) (*paystack.Transaction, error) {
	return f(ctx, reference, testMode)
}

func pendingDonation(id int64, reference string) *donation.Donation {
	d, _ := donation.New(7, donation.Donor{Email: "donor@example.com"}, 5000, donation.NGN, "key", true)
	d.ID = id
	d.GatewayTransactionID = reference
	return d
}

func testDeps(donations *fakeDonations, rec *fakeRecurring, verifier TransactionVerifier) Deps {
	return Deps{SecretKey: testSecret, Donations: donations, Recurring: rec, Verifier: verifier}
}

func TestInterpretRejectsBadRequests(t *testing.T) {
	deps := testDeps(newFakeDonations(), newFakeRecurring(), nil)

	cases := []struct {
		name string
		req  Request
		want string
	}{
		{"wrong method", Request{Method: http.MethodGet, Body: []byte("{}")}, MsgInvalidRequest},
		{"empty body", Request{Method: http.MethodPost}, MsgEmptyData},
		{"bad signature", Request{Method: http.MethodPost, Signature: "nope", Body: []byte(`{"event":"charge.success"}`)}, MsgInvalidKeys},
		{"not json", signedRequest("not json at all"), MsgInvalidData},
		{"missing event", signedRequest(`{"data":{"reference":"ref1"}}`), MsgInvalidData},
		{"unknown event", signedRequest(`{"event":"transfer.success","data":{"reference":"ref1"}}`), MsgInvalidData},
		{"unknown status", signedRequest(`{"event":"charge.success","data":{"reference":"ref1","status":"ongoing"}}`), MsgInvalidData},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := Interpret(context.Background(), tc.req, deps)
			if in.IsValid() {
				t.Fatal("expected invalid webhook")
			}
			if in.ResponseMessage() != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, in.ResponseMessage())
			}
			if in.ResponseStatus() != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d", in.ResponseStatus())
			}
		})
	}
}

func TestInterpretUnknownDonation(t *testing.T) {
	deps := testDeps(newFakeDonations(), newFakeRecurring(), nil)

	body := `{"event":"charge.success","data":{"reference":"missing","status":"success"}}`
	in := Interpret(context.Background(), signedRequest(body), deps)

	if in.IsValid() {
		t.Fatal("expected invalid webhook")
	}
	if in.ResponseMessage() != MsgNoSuchDonation {
		t.Fatalf("expected %q, got %q", MsgNoSuchDonation, in.ResponseMessage())
	}
}

func TestInterpretIncorrectGateway(t *testing.T) {
	d := pendingDonation(1, "ref1")
	d.Gateway = "stripe"
	deps := testDeps(newFakeDonations(d), newFakeRecurring(), nil)

	body := `{"event":"charge.success","data":{"reference":"ref1","status":"success"}}`
	in := Interpret(context.Background(), signedRequest(body), deps)

	if in.ResponseMessage() != MsgIncorrectGateway {
		t.Fatalf("expected %q, got %q", MsgIncorrectGateway, in.ResponseMessage())
	}
}

func TestInterpretCompletedCharge(t *testing.T) {
	d := pendingDonation(1, "ref1")
	deps := testDeps(newFakeDonations(d), newFakeRecurring(), nil)

	body := `{"event":"charge.success","data":{"id":42,"domain":"test","reference":"ref1","status":"success","amount":5000}}`
	in := Interpret(context.Background(), signedRequest(body), deps)

	if !in.IsValid() {
		t.Fatalf("expected valid webhook, got %q", in.ResponseMessage())
	}
	if in.EventSubject() != SubjectDonation {
		t.Fatalf("expected donation subject, got %s", in.EventSubject())
	}
	if in.EventType() != EventCompletedPayment {
		t.Fatalf("expected completed_payment, got %s", in.EventType())
	}
	if !in.TestMode() {
		t.Fatal("expected test mode")
	}
	if in.Donation() != d {
		t.Fatal("expected resolved donation")
	}
	if in.DonationStatus() != donation.StatusCompleted {
		t.Fatalf("expected completed status, got %s", in.DonationStatus())
	}
}

func TestInterpretRefundOverridesStatus(t *testing.T) {
	d := pendingDonation(1, "ref1")
	d.Status = donation.StatusCompleted
	deps := testDeps(newFakeDonations(d), newFakeRecurring(), nil)

	// Status says success; the nonzero refunded amount wins.
	body := `{"event":"charge.success","data":{"reference":"ref1","status":"success","refunded_amount":5000}}`
	in := Interpret(context.Background(), signedRequest(body), deps)

	if !in.IsValid() {
		t.Fatalf("expected valid webhook, got %q", in.ResponseMessage())
	}
	if in.EventType() != EventRefund {
		t.Fatalf("expected refund, got %s", in.EventType())
	}
	if in.RefundAmount() != 5000 {
		t.Fatalf("expected refund amount 5000, got %d", in.RefundAmount())
	}
}

func TestInterpretRefundEventUsesAmount(t *testing.T) {
	d := pendingDonation(1, "ref1")
	d.Status = donation.StatusCompleted
	deps := testDeps(newFakeDonations(d), newFakeRecurring(), nil)

	body := `{"event":"refund.processed","data":{"transaction_reference":"ref1","amount":2500,"merchant_note":"duplicate charge"}}`
	in := Interpret(context.Background(), signedRequest(body), deps)

	if !in.IsValid() {
		t.Fatalf("expected valid webhook, got %q", in.ResponseMessage())
	}
	if in.EventType() != EventRefund {
		t.Fatalf("expected refund, got %s", in.EventType())
	}
	if in.RefundAmount() != 2500 {
		t.Fatalf("expected refund amount 2500, got %d", in.RefundAmount())
	}
	if in.RefundLogMessage() != "duplicate charge" {
		t.Fatalf("unexpected refund note: %q", in.RefundLogMessage())
	}
}

func TestInterpretFailedCharge(t *testing.T) {
	d := pendingDonation(1, "ref1")
	deps := testDeps(newFakeDonations(d), newFakeRecurring(), nil)

	body := `{"event":"charge.success","data":{"reference":"ref1","status":"failed","gateway_response":"Insufficient funds"}}`
	in := Interpret(context.Background(), signedRequest(body), deps)

	if !in.IsValid() {
		t.Fatalf("expected valid webhook, got %q", in.ResponseMessage())
	}
	if in.EventType() != EventFailedPayment {
		t.Fatalf("expected failed_payment, got %s", in.EventType())
	}

	logs := in.Logs()
	if len(logs) != 1 || logs[0] != "Insufficient funds" {
		t.Fatalf("expected gateway response in logs, got %v", logs)
	}
}

func TestInterpretSubscriptionCreateByAuthorizationCode(t *testing.T) {
	rd, _ := recurring.New(7, recurring.PeriodMonth, 5000, donation.NGN, 0)
	rd.ID = 3
	rd.AuthorizationCode = "AUTH_xyz"
	rd.FirstDonationID = 1

	d := pendingDonation(1, "ref1")
	d.RecurringID = 3

	deps := testDeps(newFakeDonations(d), newFakeRecurring(rd), nil)

	body := `{"event":"subscription.create","data":{"domain":"test","subscription_code":"SUB_1","email_token":"tok_1","authorization":{"authorization_code":"AUTH_xyz"},"customer":{"customer_code":"CUS_1"}}}`
	in := Interpret(context.Background(), signedRequest(body), deps)

	if !in.IsValid() {
		t.Fatalf("expected valid webhook, got %q", in.ResponseMessage())
	}
	if in.EventType() != EventFirstPayment {
		t.Fatalf("expected first_payment, got %s", in.EventType())
	}
	if in.RecurringDonation() != rd {
		t.Fatal("expected recurring donation resolved by authorization code")
	}
	if in.Donation() == nil || in.Donation().ID != 1 {
		t.Fatal("expected first donation resolved as anchor")
	}
	if in.GatewaySubscriptionID() != "SUB_1" {
		t.Fatalf("unexpected subscription code: %q", in.GatewaySubscriptionID())
	}
	if in.EmailToken() != "tok_1" {
		t.Fatalf("unexpected email token: %q", in.EmailToken())
	}
}

func TestInterpretCancellation(t *testing.T) {
	rd, _ := recurring.New(7, recurring.PeriodMonth, 5000, donation.NGN, 0)
	rd.ID = 3
	rd.GatewaySubscriptionID = "SUB_1"
	rd.Status = recurring.StatusActive

	deps := testDeps(newFakeDonations(), newFakeRecurring(rd), nil)

	body := `{"event":"subscription.disable","data":{"subscription_code":"SUB_1"}}`
	in := Interpret(context.Background(), signedRequest(body), deps)

	if !in.IsValid() {
		t.Fatalf("expected valid webhook, got %q", in.ResponseMessage())
	}
	if in.EventType() != EventCancellation {
		t.Fatalf("expected cancellation, got %s", in.EventType())
	}
}

func TestInterpretChargeResolvesRecurringParent(t *testing.T) {
	rd, _ := recurring.New(7, recurring.PeriodMonth, 5000, donation.NGN, 0)
	rd.ID = 3
	rd.FirstDonationID = 1

	d := pendingDonation(1, "ref1")
	d.RecurringID = 3

	deps := testDeps(newFakeDonations(d), newFakeRecurring(rd), nil)

	body := `{"event":"charge.success","data":{"reference":"ref1","status":"success"}}`
	in := Interpret(context.Background(), signedRequest(body), deps)

	if !in.IsValid() {
		t.Fatalf("expected valid webhook, got %q", in.ResponseMessage())
	}
	if in.RecurringDonation() != rd {
		t.Fatal("expected recurring parent resolved for charge event")
	}
}

func TestInterpretRenewal(t *testing.T) {
	rd, _ := recurring.New(7, recurring.PeriodMonth, 5000, donation.NGN, 0)
	rd.ID = 3
	rd.GatewaySubscriptionID = "SUB_1"
	rd.FirstDonationID = 1

	first := pendingDonation(1, "ref1")
	first.RecurringID = 3

	verifier := verifierFunc(func(ctx context.Context, reference string, testMode bool) (*paystack.Transaction, error) {
		if reference != "ref2" {
			return nil, fmt.Errorf("unexpected reference %s", reference)
		}
		return &paystack.Transaction{
			ID:        99,
			Status:    "success",
			Reference: "ref2",
			Authorization: paystack.Authorization{
				AuthorizationCode: "AUTH_xyz",
			},
		}, nil
	})

	deps := testDeps(newFakeDonations(first), newFakeRecurring(rd), verifier)

	body := `{"event":"invoice.create","data":{"domain":"test","subscription":{"subscription_code":"SUB_1"},"transaction":{"id":99,"reference":"ref2"}}}`
	in := Interpret(context.Background(), signedRequest(body), deps)

	if !in.IsValid() {
		t.Fatalf("expected valid webhook, got %q", in.ResponseMessage())
	}
	if in.EventType() != EventRenewal {
		t.Fatalf("expected renewal, got %s", in.EventType())
	}
	if in.GatewayTransactionID() != "ref2" {
		t.Fatalf("expected verified reference, got %q", in.GatewayTransactionID())
	}
	if in.AuthorizationCode() != "AUTH_xyz" {
		t.Fatalf("expected authorization from verified transaction, got %q", in.AuthorizationCode())
	}

	meta := in.Meta()
	if meta["_gateway_transaction_id"] != "ref2" {
		t.Fatalf("expected transaction id in meta, got %v", meta)
	}
}

func TestInterpretRenewalRejectsUnverified(t *testing.T) {
	rd, _ := recurring.New(7, recurring.PeriodMonth, 5000, donation.NGN, 0)
	rd.ID = 3
	rd.GatewaySubscriptionID = "SUB_1"

	existing := pendingDonation(2, "ref2")

	cases := []struct {
		name      string
		body      string
		donations *fakeDonations
		verifier  verifierFunc
	}{
		{
			name:      "missing transaction",
			body:      `{"event":"invoice.create","data":{"subscription":{"subscription_code":"SUB_1"}}}`,
			donations: newFakeDonations(),
		},
		{
			name:      "already recorded",
			body:      `{"event":"invoice.create","data":{"subscription":{"subscription_code":"SUB_1"},"transaction":{"reference":"ref2"}}}`,
			donations: newFakeDonations(existing),
		},
		{
			name:      "verification fails",
			body:      `{"event":"invoice.create","data":{"subscription":{"subscription_code":"SUB_1"},"transaction":{"reference":"ref3"}}}`,
			donations: newFakeDonations(),
			verifier: func(ctx context.Context, reference string, testMode bool) (*paystack.Transaction, error) {
				return nil, errors.New("gateway down")
			},
		},
		{
			name:      "transaction not successful",
			body:      `{"event":"invoice.create","data":{"subscription":{"subscription_code":"SUB_1"},"transaction":{"reference":"ref3"}}}`,
			donations: newFakeDonations(),
			verifier: func(ctx context.Context, reference string, testMode bool) (*paystack.Transaction, error) {
				return &paystack.Transaction{Status: "failed", Reference: reference}, nil
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deps := testDeps(tc.donations, newFakeRecurring(rd), tc.verifier)
			in := Interpret(context.Background(), signedRequest(tc.body), deps)

			if in.IsValid() {
				t.Fatal("expected invalid webhook")
			}
			if in.ResponseMessage() != MsgUnverifiedTransaction {
				t.Fatalf("expected %q, got %q", MsgUnverifiedTransaction, in.ResponseMessage())
			}
		})
	}
}

func TestMapDonationStatus(t *testing.T) {
	cases := map[string]donation.Status{
		"open":      donation.StatusPending,
		"pending":   donation.StatusPending,
		"canceled":  donation.StatusCancelled,
		"cancelled": donation.StatusCancelled,
		"expired":   donation.StatusCancelled,
		"failed":    donation.StatusFailed,
		"paid":      donation.StatusCompleted,
		"success":   donation.StatusCompleted,
	}

	for status, want := range cases {
		if got := MapDonationStatus(status); got != want {
			t.Errorf("MapDonationStatus(%q) = %s, want %s", status, got, want)
		}
	}
}

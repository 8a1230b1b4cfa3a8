package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"charipay/internal/domain/donation"
	"charipay/internal/domain/recurring"
	"charipay/internal/paystack"
	"charipay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// SignatureHeader carries the HMAC-SHA512 hex digest of the raw body,
// computed with the webhook secret key.
const SignatureHeader = "X-Webhook-Signature"

// EventSubject is what kind of record a webhook event concerns.
type EventSubject string

const (
	SubjectDonation     EventSubject = "donation"
	SubjectSubscription EventSubject = "subscription"
)

// EventType is the domain event derived from a webhook.
type EventType string

const (
	EventCompletedPayment EventType = "completed_payment"
	EventFailedPayment    EventType = "failed_payment"
	EventRefund           EventType = "refund"
	EventFirstPayment     EventType = "first_payment"
	EventRenewal          EventType = "renewal"
	EventCancellation     EventType = "cancellation"
)

// Rejection messages. These are stable: callers and tests rely on the
// exact strings.
const (
	MsgInvalidRequest        = "Invalid request"
	MsgEmptyData             = "Empty data"
	MsgInvalidKeys           = "Invalid keys"
	MsgInvalidData           = "Invalid data"
	MsgNoSuchDonation        = "No such donation here."
	MsgIncorrectGateway      = "Incorrect gateway"
	MsgUnverifiedTransaction = "Unable to verify transaction, or transaction has already been processed"
)

// invalidResponseStatus is sent for every rejected webhook.
const invalidResponseStatus = http.StatusInternalServerError

// Request is the inbound webhook request context. The interpreter
// never touches the HTTP environment directly, so it is testable
// without a server.
type Request struct {
	Method    string
	Signature string
	Body      []byte
}

// TransactionVerifier confirms a transaction's status directly with
// the gateway. It is the interpreter's only effectful dependency.
type TransactionVerifier interface {
	VerifyTransaction(ctx context.Context, reference string, testMode bool) (*paystack.Transaction, error)
}

// Deps are the interpreter's collaborators.
type Deps struct {
	SecretKey string
	Donations repositories.DonationRepository
	Recurring repositories.RecurringRepository
	Verifier  TransactionVerifier
}

// Interpreter authenticates an inbound webhook, classifies its event,
// and resolves the donation or recurring donation it concerns. Once
// built, every accessor is a pure projection of the parsed state.
type Interpreter struct {
	valid    bool
	response string
	status   int

	payload   *Payload
	subject   EventSubject
	eventType EventType

	donation    *donation.Donation
	recurring   *recurring.RecurringDonation
	transaction *paystack.Transaction // verified invoice transaction
}

// Interpret runs the webhook through authentication, classification
// and resolution, and returns the settled interpreter.
func Interpret(ctx context.Context, req Request, deps Deps) *Interpreter {
	in := &Interpreter{}

	if !in.authenticate(req, deps.SecretKey) {
		return in
	}
	if !in.classify() {
		return in
	}
	if !in.resolve(ctx, deps) {
		return in
	}

	in.valid = true
	in.status = http.StatusOK
	return in
}

// IsValid reports whether the webhook survived authentication,
// classification and resolution.
func (in *Interpreter) IsValid() bool { return in.valid }

// ResponseMessage returns the message to send in the HTTP response.
func (in *Interpreter) ResponseMessage() string { return in.response }

// ResponseStatus returns the HTTP status to respond with.
func (in *Interpreter) ResponseStatus() int { return in.status }

// EventSubject returns whether the event concerns a donation or a
// subscription.
func (in *Interpreter) EventSubject() EventSubject { return in.subject }

// EventType returns the derived domain event.
func (in *Interpreter) EventType() EventType { return in.eventType }

// Donation returns the resolved donation. For subscription events
// this is the first-payment anchor, and may be nil.
func (in *Interpreter) Donation() *donation.Donation { return in.donation }

// RecurringDonation returns the resolved recurring donation, or nil.
func (in *Interpreter) RecurringDonation() *recurring.RecurringDonation { return in.recurring }

// TestMode reports whether the event came from the test domain.
func (in *Interpreter) TestMode() bool { return in.payload.TestMode() }

// GatewayTransactionID returns the transaction reference the event is
// about. Renewal events report the verified transaction's reference.
func (in *Interpreter) GatewayTransactionID() string {
	if in.transaction != nil {
		return in.transaction.Reference
	}
	return in.payload.Reference()
}

// GatewayTransactionURL returns the dashboard URL for the transaction.
func (in *Interpreter) GatewayTransactionURL() string {
	if in.transaction != nil {
		return paystack.TransactionURL(in.transaction.ID)
	}
	return paystack.TransactionURL(in.payload.Data.ID)
}

// GatewaySubscriptionID returns the subscription code, or "" when the
// event carries none.
func (in *Interpreter) GatewaySubscriptionID() string {
	return in.payload.GatewaySubscriptionID()
}

// GatewaySubscriptionURL returns the dashboard URL for the customer's
// subscriptions, or "" when the customer is unknown.
func (in *Interpreter) GatewaySubscriptionURL() string {
	if in.payload.Data.Customer.CustomerCode == "" {
		return ""
	}
	return paystack.SubscriptionsURL(in.payload.Data.Customer.CustomerCode)
}

// EmailToken returns the subscription email token, or "".
func (in *Interpreter) EmailToken() string { return in.payload.EmailToken() }

// AuthorizationCode returns the reusable authorization captured by
// the payment, or "".
func (in *Interpreter) AuthorizationCode() string {
	if in.transaction != nil && in.transaction.Authorization.AuthorizationCode != "" {
		return in.transaction.Authorization.AuthorizationCode
	}
	return in.payload.Data.Authorization.AuthorizationCode
}

// CustomerCode returns the gateway customer code, or "".
func (in *Interpreter) CustomerCode() string {
	if in.transaction != nil && in.transaction.Customer.CustomerCode != "" {
		return in.transaction.Customer.CustomerCode
	}
	return in.payload.Data.Customer.CustomerCode
}

// PlanCode returns the plan code attached to the payment, or "".
func (in *Interpreter) PlanCode() string {
	if in.transaction != nil && in.transaction.Plan != "" {
		return in.transaction.Plan
	}
	if in.payload.Data.Plan != nil {
		return in.payload.Data.Plan.PlanCode
	}
	return ""
}

// DonationStatus maps the gateway's payment status onto the local
// donation status enum.
func (in *Interpreter) DonationStatus() donation.Status {
	status := in.payload.Data.Status
	if in.transaction != nil {
		status = in.transaction.Status
	}

	return MapDonationStatus(status)
}

// MapDonationStatus maps a Paystack payment status onto the local
// donation status enum.
func MapDonationStatus(status string) donation.Status {
	switch status {
	case "canceled", "cancelled", "expired":
		return donation.StatusCancelled
	case "failed":
		return donation.StatusFailed
	case "paid", "success":
		return donation.StatusCompleted
	default: // "open", "pending"
		return donation.StatusPending
	}
}

// RefundAmount returns the refunded amount, or zero when the event is
// not a refund.
func (in *Interpreter) RefundAmount() donation.Money {
	return donation.Money(in.payload.RefundAmount())
}

// RefundLogMessage returns the note to include in the refund log.
func (in *Interpreter) RefundLogMessage() string {
	if in.payload.Data.MerchantNote != "" {
		return in.payload.Data.MerchantNote
	}
	return in.payload.Data.CustomerNote
}

// Logs returns human-readable log lines to append to the donation.
func (in *Interpreter) Logs() []string {
	var logs []string

	if in.eventType == EventFailedPayment && in.payload.Data.GatewayResponse != "" {
		logs = append(logs, in.payload.Data.GatewayResponse)
	}

	return logs
}

// Meta returns key/value pairs to persist against the donation.
func (in *Interpreter) Meta() map[string]string {
	meta := make(map[string]string)

	if in.eventType == EventRenewal {
		meta["_gateway_transaction_id"] = in.GatewayTransactionID()
		meta["_gateway_transaction_url"] = in.GatewayTransactionURL()
	}

	return meta
}

// authenticate checks method, body, signature and JSON shape.
func (in *Interpreter) authenticate(req Request, secretKey string) bool {
	if req.Method != http.MethodPost {
		return in.setInvalid(MsgInvalidRequest)
	}

	if len(req.Body) == 0 {
		return in.setInvalid(MsgEmptyData)
	}

	if !validSignature(req.Body, req.Signature, secretKey) {
		return in.setInvalid(MsgInvalidKeys)
	}

	var payload Payload
	if err := json.Unmarshal(req.Body, &payload); err != nil || payload.Event == "" {
		return in.setInvalid(MsgInvalidData)
	}

	in.payload = &payload
	return true
}

// classify derives the event subject and type. A nonzero refunded
// amount always classifies as a refund, whatever the payment status
// says.
func (in *Interpreter) classify() bool {
	switch {
	case strings.HasPrefix(in.payload.Event, "charge."), isRefundEvent(in.payload.Event):
		in.subject = SubjectDonation
	case strings.HasPrefix(in.payload.Event, "subscription."), strings.HasPrefix(in.payload.Event, "invoice."):
		in.subject = SubjectSubscription
	default:
		return in.setInvalid(MsgInvalidData)
	}

	if in.payload.RefundAmount() != 0 {
		in.eventType = EventRefund
		in.subject = SubjectDonation
		return true
	}

	switch in.payload.Event {
	case "subscription.disable", "subscription.not_renew":
		in.eventType = EventCancellation
	case "subscription.create":
		in.eventType = EventFirstPayment
	case "invoice.create", "invoice.update":
		in.eventType = EventRenewal
	default:
		switch in.payload.Data.Status {
		case "failed":
			in.eventType = EventFailedPayment
		case "success", "paid":
			in.eventType = EventCompletedPayment
		default:
			return in.setInvalid(MsgInvalidData)
		}
	}

	return true
}

// resolve looks up the record the event concerns, verifying the
// underlying transaction first for renewal events.
func (in *Interpreter) resolve(ctx context.Context, deps Deps) bool {
	if in.eventType == EventRenewal && !in.verifyRenewalTransaction(ctx, deps) {
		return false
	}

	if in.subject == SubjectDonation {
		return in.resolveDonation(ctx, deps)
	}

	return in.resolveSubscription(ctx, deps)
}

func (in *Interpreter) resolveDonation(ctx context.Context, deps Deps) bool {
	reference := in.payload.Reference()
	if reference == "" {
		return in.setInvalid(MsgInvalidData)
	}

	d, err := deps.Donations.FindByGatewayTransactionID(ctx, reference)
	if errors.Is(err, repositories.ErrNotFound) {
		return in.setInvalid(MsgNoSuchDonation)
	}
	if err != nil {
		log.Error().Err(err).Str("reference", reference).Msg("donation lookup failed")
		return in.setInvalid(MsgNoSuchDonation)
	}

	if d.Gateway != donation.GatewayPaystack {
		return in.setInvalid(MsgIncorrectGateway)
	}

	in.donation = d

	// A charge against a recurring donation's first payment also
	// settles the subscription, so the parent rides along.
	if d.RecurringID != 0 {
		if rd, err := deps.Recurring.FindByID(ctx, d.RecurringID); err == nil {
			in.recurring = rd
		}
	}

	return true
}

func (in *Interpreter) resolveSubscription(ctx context.Context, deps Deps) bool {
	rd := in.lookupRecurring(ctx, deps)
	if rd == nil {
		return in.setInvalid(MsgNoSuchDonation)
	}

	in.recurring = rd

	// The first donation anchors the subscription until a renewal
	// donation exists for the event's transaction.
	if rd.FirstDonationID != 0 {
		if d, err := deps.Donations.FindByID(ctx, rd.FirstDonationID); err == nil {
			if d.Gateway != donation.GatewayPaystack {
				return in.setInvalid(MsgIncorrectGateway)
			}
			in.donation = d
		}
	}

	return true
}

func (in *Interpreter) lookupRecurring(ctx context.Context, deps Deps) *recurring.RecurringDonation {
	if code := in.payload.GatewaySubscriptionID(); code != "" {
		if rd, err := deps.Recurring.FindByGatewaySubscriptionID(ctx, code); err == nil {
			return rd
		}
	}

	// Fall back to the authorization code captured from the first
	// payment, which links a subscription before its code is stored.
	if code := in.payload.Data.Authorization.AuthorizationCode; code != "" {
		if rd, err := deps.Recurring.FindByAuthorizationCode(ctx, code); err == nil {
			return rd
		}
	}

	return nil
}

// verifyRenewalTransaction confirms an invoice's transaction with the
// gateway before trusting the webhook. A transaction that is already
// recorded against a donation has been processed and is rejected.
func (in *Interpreter) verifyRenewalTransaction(ctx context.Context, deps Deps) bool {
	if in.payload.Data.Transaction == nil || in.payload.Data.Transaction.Reference == "" {
		return in.setInvalid(MsgUnverifiedTransaction)
	}

	reference := in.payload.Data.Transaction.Reference

	if _, err := deps.Donations.FindByGatewayTransactionID(ctx, reference); err == nil {
		return in.setInvalid(MsgUnverifiedTransaction)
	}

	tx, err := deps.Verifier.VerifyTransaction(ctx, reference, in.payload.TestMode())
	if err != nil || tx.Status != "success" {
		return in.setInvalid(MsgUnverifiedTransaction)
	}

	in.transaction = tx
	return true
}

func (in *Interpreter) setInvalid(response string) bool {
	in.valid = false
	in.response = response
	in.status = invalidResponseStatus
	return false
}

func validSignature(body []byte, signature, secretKey string) bool {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

package webhook

import (
	"charipay/internal/paystack"
)

// Payload is the decoded body of a Paystack webhook. Fields are
// typed and named; events only populate the subset that concerns
// them.
type Payload struct {
	Event string      `json:"event"`
	Data  PayloadData `json:"data"`
}

// PayloadData is the event-specific data object.
type PayloadData struct {
	ID              int64  `json:"id"`
	Domain          string `json:"domain"`
	Status          string `json:"status"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	RefundedAmount  int64  `json:"refunded_amount"`
	GatewayResponse string `json:"gateway_response"`

	// Refund events reference the charged transaction separately.
	TransactionReference string `json:"transaction_reference"`
	MerchantNote         string `json:"merchant_note"`
	CustomerNote         string `json:"customer_note"`

	// Subscription lifecycle events.
	SubscriptionCode string         `json:"subscription_code"`
	EmailToken       string         `json:"email_token"`
	Plan             *paystack.Plan `json:"plan"`

	// Invoice (renewal) events nest the subscription and transaction.
	Subscription *NestedSubscription `json:"subscription"`
	Transaction  *NestedTransaction  `json:"transaction"`

	Authorization paystack.Authorization `json:"authorization"`
	Customer      paystack.Customer      `json:"customer"`
}

// NestedSubscription is the subscription object embedded in invoice
// events.
type NestedSubscription struct {
	SubscriptionCode string `json:"subscription_code"`
	EmailToken       string `json:"email_token"`
	Status           string `json:"status"`
}

// NestedTransaction is the transaction object embedded in invoice
// events.
type NestedTransaction struct {
	ID        int64  `json:"id"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// TestMode reports whether the event originated from the test domain.
func (p *Payload) TestMode() bool {
	return p.Data.Domain == "test"
}

// Reference returns the gateway transaction reference the event is
// about. Refund events carry it in a dedicated field.
func (p *Payload) Reference() string {
	if p.Data.TransactionReference != "" {
		return p.Data.TransactionReference
	}
	return p.Data.Reference
}

// RefundAmount returns the refunded amount, or zero when the event is
// not a refund. Refund events carry the amount in the generic amount
// field.
func (p *Payload) RefundAmount() int64 {
	if p.Data.RefundedAmount != 0 {
		return p.Data.RefundedAmount
	}
	if isRefundEvent(p.Event) {
		return p.Data.Amount
	}
	return 0
}

// GatewaySubscriptionID returns the subscription code named by the
// event, depending on where the event nests it.
func (p *Payload) GatewaySubscriptionID() string {
	if p.Data.Subscription != nil && p.Data.Subscription.SubscriptionCode != "" {
		return p.Data.Subscription.SubscriptionCode
	}
	return p.Data.SubscriptionCode
}

// EmailToken returns the email token named by the event.
func (p *Payload) EmailToken() string {
	if p.Data.Subscription != nil && p.Data.Subscription.EmailToken != "" {
		return p.Data.Subscription.EmailToken
	}
	return p.Data.EmailToken
}

func isRefundEvent(event string) bool {
	switch event {
	case "refund.processed", "refund.processing", "refund.pending":
		return true
	}
	return false
}

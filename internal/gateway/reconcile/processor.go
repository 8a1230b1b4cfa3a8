// Package reconcile applies interpreted gateway events to donation
// records. The webhook flow and the browser return flow both land
// here, so a payment observed twice settles on the same state.
package reconcile

import (
	"context"
	"fmt"
	"net/http"

	"charipay/internal/domain/donation"
	"charipay/internal/domain/recurring"
	"charipay/internal/gateway/webhook"
	"charipay/internal/paystack"
	"charipay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// Response messages. Stable strings, asserted by tests.
const (
	MsgAlreadyProcessed      = "Transaction already processed"
	MsgPaymentCompleted      = "Donation Webhook: Payment completed"
	MsgPaymentFailed         = "Donation Webhook: Payment failed"
	MsgRefundProcessed       = "Donation Webhook: Refund processed"
	MsgFirstPaymentProcessed = "Subscription Webhook: First payment processed"
	MsgRenewalProcessed      = "Subscription Webhook: Renewal processed"
	MsgSubscriptionCancelled = "Subscription Webhook: Subscription cancelled"
	MsgProcessingFailed      = "Unable to process webhook"
)

// GatewayAPI is the slice of the payment gateway the processor calls.
// *paystack.Gateway satisfies it.
type GatewayAPI interface {
	VerifyTransaction(ctx context.Context, reference string, testMode bool) (*paystack.Transaction, error)
	CreateSubscription(ctx context.Context, customerCode, planCode, authorizationCode string, testMode bool) (*paystack.Subscription, error)
	Refund(ctx context.Context, reference, merchantNote string, testMode bool) error
}

// Result is the outcome reported back to the caller, ready to be
// written as an HTTP response.
type Result struct {
	Message string
	Status  int
}

func ok(message string) Result {
	return Result{Message: message, Status: http.StatusOK}
}

func failed(message string) Result {
	return Result{Message: message, Status: http.StatusInternalServerError}
}

// Processor applies the state transitions an interpreted event calls
// for, marking each transaction reference processed exactly once.
type Processor struct {
	donations repositories.DonationRepository
	recurring repositories.RecurringRepository
	api       GatewayAPI
}

// NewProcessor creates a Processor.
func NewProcessor(donations repositories.DonationRepository, recurring repositories.RecurringRepository, api GatewayAPI) *Processor {
	return &Processor{donations: donations, recurring: recurring, api: api}
}

// ProcessWebhook applies an interpreted webhook. Invalid webhooks pass
// straight through with the interpreter's rejection response.
func (p *Processor) ProcessWebhook(ctx context.Context, in *webhook.Interpreter) Result {
	if !in.IsValid() {
		return Result{Message: in.ResponseMessage(), Status: in.ResponseStatus()}
	}

	switch in.EventType() {
	case webhook.EventCompletedPayment:
		return p.processCompletedPayment(ctx, in, MsgPaymentCompleted)
	case webhook.EventFirstPayment:
		return p.processCompletedPayment(ctx, in, MsgFirstPaymentProcessed)
	case webhook.EventFailedPayment:
		return p.processFailedPayment(ctx, in)
	case webhook.EventRenewal:
		return p.processRenewal(ctx, in)
	case webhook.EventCancellation:
		return p.processCancellation(ctx, in)
	case webhook.EventRefund:
		return p.processRefund(ctx, in)
	}

	return failed(MsgProcessingFailed)
}

// completion carries everything needed to settle a payment as
// completed. Both the webhook flow and the return flow build one.
type completion struct {
	Reference         string
	TransactionURL    string
	SubscriptionCode  string
	SubscriptionURL   string
	EmailToken        string
	AuthorizationCode string
	CustomerCode      string
	PlanCode          string
	Logs              []string
	Meta              map[string]string
	TestMode          bool
}

func completionFromWebhook(in *webhook.Interpreter) completion {
	return completion{
		Reference:         in.GatewayTransactionID(),
		TransactionURL:    in.GatewayTransactionURL(),
		SubscriptionCode:  in.GatewaySubscriptionID(),
		SubscriptionURL:   in.GatewaySubscriptionURL(),
		EmailToken:        in.EmailToken(),
		AuthorizationCode: in.AuthorizationCode(),
		CustomerCode:      in.CustomerCode(),
		PlanCode:          in.PlanCode(),
		Logs:              in.Logs(),
		Meta:              in.Meta(),
		TestMode:          in.TestMode(),
	}
}

func (p *Processor) processCompletedPayment(ctx context.Context, in *webhook.Interpreter, message string) Result {
	d := in.Donation()
	if d == nil {
		return failed(MsgProcessingFailed)
	}

	if d.Processed {
		return ok(MsgAlreadyProcessed)
	}

	c := completionFromWebhook(in)

	if err := p.applyCompletion(ctx, d, in.RecurringDonation(), c); err != nil {
		log.Error().Err(err).Int64("donation_id", d.ID).Msg("completed payment not applied")
		return failed(MsgProcessingFailed)
	}

	return p.claimMarker(ctx, d, c.Reference, message)
}

// claimMarker records the reference as reconciled, strictly after the
// state transition has been written. A failure between the two leaves
// the webhook retryable; the reverse order would strand the donation
// behind the marker.
func (p *Processor) claimMarker(ctx context.Context, d *donation.Donation, reference, message string) Result {
	if reference == "" {
		return ok(message)
	}

	claimed, err := p.donations.MarkProcessed(ctx, reference)
	if err != nil {
		log.Error().Err(err).Str("reference", reference).Msg("processed marker update failed")
		return failed(MsgProcessingFailed)
	}
	if !claimed {
		return ok(MsgAlreadyProcessed)
	}

	d.Processed = true
	return ok(message)
}

// applyCompletion settles a donation, and its recurring parent when it
// has one, after a successful payment. The donation status is written
// last so a partial failure never leaves a completed donation with
// missing gateway data.
func (p *Processor) applyCompletion(ctx context.Context, d *donation.Donation, rd *recurring.RecurringDonation, c completion) error {
	if rd != nil {
		if err := p.activateSubscription(ctx, d, rd, c); err != nil {
			return err
		}
	}

	if c.Reference != "" {
		if err := d.SetGatewayTransactionID(c.Reference); err != nil {
			return err
		}
		d.GatewayTransactionURL = c.TransactionURL
	}

	for k, v := range c.Meta {
		d.SetMeta(k, v)
	}
	for _, line := range c.Logs {
		d.AddLog(line)
	}

	if err := d.UpdateStatus(donation.StatusCompleted); err != nil {
		return err
	}

	return p.donations.Save(ctx, d)
}

// activateSubscription binds the gateway subscription to the recurring
// donation and activates it. When the event does not name a
// subscription yet, one is created from the captured authorization.
// A create failure is logged against the donation rather than failing
// the payment, since the charge itself has settled.
func (p *Processor) activateSubscription(ctx context.Context, d *donation.Donation, rd *recurring.RecurringDonation, c completion) error {
	if c.AuthorizationCode != "" {
		rd.AuthorizationCode = c.AuthorizationCode
	}

	code, token := c.SubscriptionCode, c.EmailToken

	if code == "" && rd.GatewaySubscriptionID == "" {
		sub, err := p.createSubscription(ctx, c)
		if err != nil {
			d.AddLog(fmt.Sprintf("Unable to create gateway subscription: %s", err))
		} else if sub != nil {
			code, token = sub.SubscriptionCode, sub.EmailToken
		}
	}

	if code != "" {
		if err := rd.SetGatewaySubscriptionID(code); err != nil {
			return err
		}
	}
	if token != "" {
		rd.EmailToken = token
	}
	if c.SubscriptionURL != "" {
		rd.GatewaySubscriptionURL = c.SubscriptionURL
	}

	rd.Activate()

	return p.recurring.Save(ctx, rd)
}

func (p *Processor) createSubscription(ctx context.Context, c completion) (*paystack.Subscription, error) {
	if c.CustomerCode == "" || c.PlanCode == "" || c.AuthorizationCode == "" {
		return nil, nil
	}
	return p.api.CreateSubscription(ctx, c.CustomerCode, c.PlanCode, c.AuthorizationCode, c.TestMode)
}

func (p *Processor) processFailedPayment(ctx context.Context, in *webhook.Interpreter) Result {
	d := in.Donation()
	if d == nil {
		return failed(MsgProcessingFailed)
	}

	if d.Processed {
		return ok(MsgAlreadyProcessed)
	}

	if err := p.applyFailure(ctx, d, in.RecurringDonation(), in.Logs()); err != nil {
		log.Error().Err(err).Int64("donation_id", d.ID).Msg("failed payment not applied")
		return failed(MsgProcessingFailed)
	}

	return p.claimMarker(ctx, d, in.GatewayTransactionID(), MsgPaymentFailed)
}

// applyFailure marks a donation failed. When the donation is the
// first payment of a recurring donation, the whole subscription fails
// with it.
func (p *Processor) applyFailure(ctx context.Context, d *donation.Donation, rd *recurring.RecurringDonation, logs []string) error {
	for _, line := range logs {
		d.AddLog(line)
	}

	if err := d.UpdateStatus(donation.StatusFailed); err != nil {
		return err
	}

	if err := p.donations.Save(ctx, d); err != nil {
		return err
	}

	if rd != nil && rd.FirstDonationID == d.ID {
		rd.SetToFailed("Initial donation failed.")
		return p.recurring.Save(ctx, rd)
	}

	return nil
}

// processRenewal creates a new donation for an invoice's verified
// transaction, cross-linked with the recurring donation's log.
func (p *Processor) processRenewal(ctx context.Context, in *webhook.Interpreter) Result {
	rd := in.RecurringDonation()
	anchor := in.Donation()
	if rd == nil || anchor == nil {
		return failed(MsgProcessingFailed)
	}

	d, err := donation.New(rd.CampaignID, anchor.Donor, rd.Amount, rd.Currency, "", in.TestMode())
	if err != nil {
		log.Error().Err(err).Int64("recurring_id", rd.ID).Msg("renewal donation rejected")
		return failed(MsgProcessingFailed)
	}

	d.RecurringID = rd.ID
	if err := d.SetGatewayTransactionID(in.GatewayTransactionID()); err != nil {
		return failed(MsgProcessingFailed)
	}
	d.GatewayTransactionURL = in.GatewayTransactionURL()
	for k, v := range in.Meta() {
		d.SetMeta(k, v)
	}
	d.AddLog(fmt.Sprintf("Renewal of recurring donation #%d", rd.ID))
	d.Processed = true

	if err := d.UpdateStatus(donation.StatusCompleted); err != nil {
		return failed(MsgProcessingFailed)
	}

	if err := p.donations.Save(ctx, d); err != nil {
		log.Error().Err(err).Int64("recurring_id", rd.ID).Msg("renewal donation not saved")
		return failed(MsgProcessingFailed)
	}

	rd.AddLog(fmt.Sprintf("Renewal processed. Donation #%d", d.ID))
	if err := p.recurring.Save(ctx, rd); err != nil {
		log.Error().Err(err).Int64("recurring_id", rd.ID).Msg("renewal log not saved")
		return failed(MsgProcessingFailed)
	}

	return ok(MsgRenewalProcessed)
}

func (p *Processor) processCancellation(ctx context.Context, in *webhook.Interpreter) Result {
	rd := in.RecurringDonation()
	if rd == nil {
		return failed(MsgProcessingFailed)
	}

	rd.Cancel()

	if err := p.recurring.Save(ctx, rd); err != nil {
		log.Error().Err(err).Int64("recurring_id", rd.ID).Msg("cancellation not saved")
		return failed(MsgProcessingFailed)
	}

	return ok(MsgSubscriptionCancelled)
}

// processRefund records a structured refund against the donation. The
// processed marker stays out of the way here: the reference was marked
// when the payment completed, and the refunded status guards repeats.
func (p *Processor) processRefund(ctx context.Context, in *webhook.Interpreter) Result {
	d := in.Donation()
	if d == nil {
		return failed(MsgProcessingFailed)
	}

	if d.Status == donation.StatusRefunded {
		return ok(MsgAlreadyProcessed)
	}

	if err := p.applyRefund(ctx, d, in.RefundAmount(), in.RefundLogMessage()); err != nil {
		log.Error().Err(err).Int64("donation_id", d.ID).Msg("refund not applied")
		return failed(MsgProcessingFailed)
	}

	return ok(MsgRefundProcessed)
}

func (p *Processor) applyRefund(ctx context.Context, d *donation.Donation, amount donation.Money, message string) error {
	d.Refund = donation.NewRefundLog(amount, message)

	if err := d.UpdateStatus(donation.StatusRefunded); err != nil {
		return err
	}

	return p.donations.Save(ctx, d)
}

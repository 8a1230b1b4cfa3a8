package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"charipay/internal/domain/donation"
	"charipay/internal/domain/recurring"
	"charipay/internal/gateway/webhook"
	"charipay/internal/paystack"
	"charipay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// Return-flow response messages.
const (
	MsgReturnNoSuchDonation   = "No such donation here."
	MsgReturnReferenceInvalid = "Transaction reference does not match this donation"
	MsgReturnVerifyFailed     = "Unable to verify transaction with the gateway"
)

// ProcessReturn settles a donation when the donor lands back from the
// Paystack checkout. Webhooks usually win the race, so the processed
// marker decides which path applies the transition.
func (p *Processor) ProcessReturn(ctx context.Context, donationID int64, reference string) Result {
	d, err := p.donations.FindByID(ctx, donationID)
	if errors.Is(err, repositories.ErrNotFound) {
		return Result{Message: MsgReturnNoSuchDonation, Status: http.StatusNotFound}
	}
	if err != nil {
		log.Error().Err(err).Int64("donation_id", donationID).Msg("return-flow donation lookup failed")
		return failed(MsgProcessingFailed)
	}

	if d.GatewayTransactionID == "" || d.GatewayTransactionID != reference {
		return Result{Message: MsgReturnReferenceInvalid, Status: http.StatusBadRequest}
	}

	if d.Processed {
		return ok(MsgAlreadyProcessed)
	}

	tx, err := p.api.VerifyTransaction(ctx, reference, d.TestMode)
	if err != nil {
		log.Error().Err(err).Str("reference", reference).Msg("return-flow verification failed")
		return Result{Message: MsgReturnVerifyFailed, Status: http.StatusBadGateway}
	}

	rd := p.findRecurring(ctx, d)

	if webhook.MapDonationStatus(tx.Status) == donation.StatusCompleted {
		if err := p.applyCompletion(ctx, d, rd, completionFromTransaction(tx, d.TestMode)); err != nil {
			log.Error().Err(err).Int64("donation_id", d.ID).Msg("return-flow completion not applied")
			return failed(MsgProcessingFailed)
		}
		return p.claimMarker(ctx, d, reference, MsgPaymentCompleted)
	}

	var logs []string
	if tx.GatewayResp != "" {
		logs = append(logs, fmt.Sprintf("Donation failed in gateway with error: %s", tx.GatewayResp))
	}

	if err := p.applyFailure(ctx, d, rd, logs); err != nil {
		log.Error().Err(err).Int64("donation_id", d.ID).Msg("return-flow failure not applied")
		return failed(MsgProcessingFailed)
	}

	return p.claimMarker(ctx, d, reference, MsgPaymentFailed)
}

func (p *Processor) findRecurring(ctx context.Context, d *donation.Donation) *recurring.RecurringDonation {
	if d.RecurringID == 0 {
		return nil
	}

	rd, err := p.recurring.FindByID(ctx, d.RecurringID)
	if err != nil {
		log.Error().Err(err).Int64("recurring_id", d.RecurringID).Msg("recurring donation lookup failed")
		return nil
	}

	return rd
}

func completionFromTransaction(tx *paystack.Transaction, testMode bool) completion {
	var subscriptionURL string
	if tx.Customer.CustomerCode != "" {
		subscriptionURL = paystack.SubscriptionsURL(tx.Customer.CustomerCode)
	}

	return completion{
		Reference:         tx.Reference,
		TransactionURL:    paystack.TransactionURL(tx.ID),
		SubscriptionURL:   subscriptionURL,
		AuthorizationCode: tx.Authorization.AuthorizationCode,
		CustomerCode:      tx.Customer.CustomerCode,
		PlanCode:          tx.Plan,
		TestMode:          testMode,
	}
}

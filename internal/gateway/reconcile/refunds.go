package reconcile

import (
	"context"
	"errors"
	"net/http"

	"charipay/internal/paystack"
	"charipay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// Dashboard refund response messages.
const (
	MsgRefundNotRefundable = "Donation cannot be refunded"
	MsgRefundRequested     = "Refund requested with the gateway"
)

// RefundDonation asks the gateway to refund a completed donation and
// records the refund locally. Paystack settles refunds
// asynchronously, so a refund webhook for the same donation may still
// arrive; the refunded status makes it a no-op.
func (p *Processor) RefundDonation(ctx context.Context, donationID int64, note string) Result {
	d, err := p.donations.FindByID(ctx, donationID)
	if errors.Is(err, repositories.ErrNotFound) {
		return Result{Message: MsgReturnNoSuchDonation, Status: http.StatusNotFound}
	}
	if err != nil {
		log.Error().Err(err).Int64("donation_id", donationID).Msg("refund donation lookup failed")
		return failed(MsgProcessingFailed)
	}

	if !d.IsCompleted() || d.GatewayTransactionID == "" {
		return Result{Message: MsgRefundNotRefundable, Status: http.StatusConflict}
	}

	if err := p.api.Refund(ctx, d.GatewayTransactionID, note, d.TestMode); err != nil {
		var apiErr *paystack.APIError
		if errors.As(err, &apiErr) {
			return Result{Message: apiErr.Message, Status: http.StatusBadGateway}
		}
		log.Error().Err(err).Str("reference", d.GatewayTransactionID).Msg("refund request failed")
		return Result{Message: MsgProcessingFailed, Status: http.StatusBadGateway}
	}

	if err := p.applyRefund(ctx, d, d.Amount, note); err != nil {
		log.Error().Err(err).Int64("donation_id", d.ID).Msg("refund not recorded")
		return failed(MsgProcessingFailed)
	}

	return ok(MsgRefundRequested)
}

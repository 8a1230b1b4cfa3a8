// Package checkout builds Paystack payment requests for new
// donations: it creates the local records, makes sure the gateway
// knows the customer and plan, and returns the hosted checkout URL.
package checkout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"

	"charipay/internal/config"
	"charipay/internal/domain/donation"
	"charipay/internal/domain/recurring"
	"charipay/internal/paystack"
	"charipay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// DonationRequest is the inbound request to start a donation.
type DonationRequest struct {
	CampaignID   int64
	CampaignName string
	DonorID      int64 // 0 for guest donors
	Donor        donation.Donor
	Amount       donation.Money
	Currency     donation.Currency
	Period       recurring.Period // empty for a one-off donation
	Length       int
}

// Recurring reports whether the request asks for a recurring donation.
func (r DonationRequest) Recurring() bool { return r.Period != "" }

// Checkout is the outcome of a built payment request. The donor is
// redirected to the authorization URL to pay.
type Checkout struct {
	Donation         *donation.Donation
	Recurring        *recurring.RecurringDonation
	Reference        string
	AuthorizationURL string
}

// Builder creates donations and prepares their gateway checkout.
type Builder struct {
	gateway   *paystack.Gateway
	donations repositories.DonationRepository
	recurring repositories.RecurringRepository
	plans     repositories.PlanRepository
	customers repositories.CustomerCodeRepository

	cfg       config.PaystackCfg
	returnURL string
	testMode  bool
}

// NewBuilder creates a Builder. returnURL is the base URL donors are
// sent back to after paying.
func NewBuilder(
	gateway *paystack.Gateway,
	donations repositories.DonationRepository,
	recurring repositories.RecurringRepository,
	plans repositories.PlanRepository,
	customers repositories.CustomerCodeRepository,
	cfg config.PaystackCfg,
	returnURL string,
) *Builder {
	return &Builder{
		gateway:   gateway,
		donations: donations,
		recurring: recurring,
		plans:     plans,
		customers: customers,
		cfg:       cfg,
		returnURL: returnURL,
		testMode:  cfg.TestMode,
	}
}

// Process creates the donation records and initializes the gateway
// transaction. The returned reference is persisted against the
// donation before the donor is redirected, so the webhook and return
// flows can always find it.
func (b *Builder) Process(ctx context.Context, req DonationRequest) (*Checkout, error) {
	d, rd, err := b.createRecords(ctx, req)
	if err != nil {
		return nil, err
	}

	client := b.gateway.Client(b.testMode)

	if _, err := b.ensureCustomer(ctx, client, req); err != nil {
		return nil, fmt.Errorf("checkout: ensure customer: %w", err)
	}

	init := paystack.InitializeRequest{
		Email:       req.Donor.Email,
		Amount:      int64(req.Amount),
		Currency:    string(req.Currency),
		CallbackURL: fmt.Sprintf("%s/donations/%d/return", b.returnURL, d.ID),
		Metadata: map[string]string{
			"donation_id":  strconv.FormatInt(d.ID, 10),
			"donation_key": d.DonationKey,
		},
	}

	if rd != nil {
		planCode, err := b.resolvePlan(ctx, client, req)
		if err != nil {
			return nil, fmt.Errorf("checkout: resolve plan: %w", err)
		}
		init.Plan = planCode
	}

	tx, err := client.InitializeTransaction(ctx, init)
	if err != nil {
		log.Error().Err(err).Int64("donation_id", d.ID).Msg("transaction initialize failed")
		return nil, fmt.Errorf("checkout: initialize transaction: %w", err)
	}

	if err := d.SetGatewayTransactionID(tx.Reference); err != nil {
		return nil, err
	}
	if err := b.donations.Save(ctx, d); err != nil {
		return nil, err
	}

	return &Checkout{
		Donation:         d,
		Recurring:        rd,
		Reference:        tx.Reference,
		AuthorizationURL: tx.AuthorizationURL,
	}, nil
}

// createRecords persists the pending donation and, for recurring
// requests, the recurring donation it belongs to. The two records
// point at each other once both have IDs.
func (b *Builder) createRecords(ctx context.Context, req DonationRequest) (*donation.Donation, *recurring.RecurringDonation, error) {
	key, err := newDonationKey()
	if err != nil {
		return nil, nil, err
	}

	d, err := donation.New(req.CampaignID, req.Donor, req.Amount, req.Currency, key, b.testMode)
	if err != nil {
		return nil, nil, err
	}

	if !req.Recurring() {
		if err := b.donations.Save(ctx, d); err != nil {
			return nil, nil, err
		}
		return d, nil, nil
	}

	rd, err := recurring.New(req.CampaignID, req.Period, req.Amount, req.Currency, req.Length)
	if err != nil {
		return nil, nil, err
	}
	if err := b.recurring.Save(ctx, rd); err != nil {
		return nil, nil, err
	}

	d.RecurringID = rd.ID
	if err := b.donations.Save(ctx, d); err != nil {
		return nil, nil, err
	}

	rd.FirstDonationID = d.ID
	if err := b.recurring.Save(ctx, rd); err != nil {
		return nil, nil, err
	}

	return d, rd, nil
}

func newDonationKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("checkout: generate donation key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

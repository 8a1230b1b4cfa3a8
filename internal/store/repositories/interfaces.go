package repositories

import (
	"context"
	"errors"

	"charipay/internal/domain/donation"
	"charipay/internal/domain/recurring"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// DonationRepository defines the contract for donation data access.
type DonationRepository interface {
	Save(ctx context.Context, d *donation.Donation) error
	FindByID(ctx context.Context, id int64) (*donation.Donation, error)
	FindByGatewayTransactionID(ctx context.Context, reference string) (*donation.Donation, error)

	// MarkProcessed sets the processed flag for the given gateway
	// reference. It returns false when the flag was already set, so a
	// second writer fails deterministically instead of racing.
	MarkProcessed(ctx context.Context, reference string) (bool, error)
}

// RecurringRepository defines the contract for recurring donation
// data access.
type RecurringRepository interface {
	Save(ctx context.Context, r *recurring.RecurringDonation) error
	FindByID(ctx context.Context, id int64) (*recurring.RecurringDonation, error)
	FindByGatewaySubscriptionID(ctx context.Context, code string) (*recurring.RecurringDonation, error)
	FindByAuthorizationCode(ctx context.Context, code string) (*recurring.RecurringDonation, error)
}

// PlanRepository stores the Paystack plan codes created per campaign,
// keyed by mode and plan key so test and live plans never mix.
type PlanRepository interface {
	FindPlanCode(ctx context.Context, campaignID int64, mode, planKey string) (string, error)
	SavePlanCode(ctx context.Context, campaignID int64, mode, planKey, planCode string) error
}

// CustomerCodeRepository stores the Paystack customer code recorded
// against a registered donor.
type CustomerCodeRepository interface {
	FindCustomerCode(ctx context.Context, donorID int64, mode string) (string, error)
	SaveCustomerCode(ctx context.Context, donorID int64, mode, customerCode string) error
}

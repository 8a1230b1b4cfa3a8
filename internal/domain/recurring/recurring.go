package recurring

import (
	"fmt"
	"time"

	"charipay/internal/domain/donation"
)

// RecurringDonation is a donor's commitment to recurring payments
// against one campaign. It owns the first donation and every renewal
// donation generated from gateway invoice events.
type RecurringDonation struct {
	ID                     int64
	CampaignID             int64
	Period                 Period
	Amount                 donation.Money
	Currency               donation.Currency
	Length                 int // number of payments, 0 for unbounded
	Status                 Status
	GatewaySubscriptionID  string
	GatewaySubscriptionURL string
	AuthorizationCode      string
	EmailToken             string
	FirstDonationID        int64
	Note                   string
	Logs                   []donation.LogEntry
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Period is the donation interval.
type Period string

const (
	PeriodHour       Period = "hour"
	PeriodDay        Period = "day"
	PeriodWeek       Period = "week"
	PeriodMonth      Period = "month"
	PeriodSemiannual Period = "semiannual"
	PeriodAnnual     Period = "annual"
)

// Status represents the subscription status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// New creates a pending recurring donation with validation.
func New(campaignID int64, period Period, amount donation.Money, currency donation.Currency, length int) (*RecurringDonation, error) {
	if campaignID <= 0 {
		return nil, fmt.Errorf("invalid campaign ID: %d", campaignID)
	}

	if amount <= 0 {
		return nil, fmt.Errorf("recurring amount must be positive: %d", amount)
	}

	if !isValidPeriod(period) {
		return nil, fmt.Errorf("invalid donation period: %s", period)
	}

	now := time.Now()

	return &RecurringDonation{
		CampaignID: campaignID,
		Period:     period,
		Amount:     amount,
		Currency:   currency,
		Length:     length,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// SetGatewaySubscriptionID records the subscription reference. Once
// set, the reference uniquely identifies this recurring donation.
func (r *RecurringDonation) SetGatewaySubscriptionID(code string) error {
	if r.GatewaySubscriptionID != "" && r.GatewaySubscriptionID != code {
		return fmt.Errorf("recurring donation %d already bound to subscription %s", r.ID, r.GatewaySubscriptionID)
	}

	r.GatewaySubscriptionID = code
	r.UpdatedAt = time.Now()
	return nil
}

// Activate marks the subscription active after a successful first payment.
func (r *RecurringDonation) Activate() {
	r.Status = StatusActive
	r.UpdatedAt = time.Now()
}

// Cancel marks the subscription cancelled.
func (r *RecurringDonation) Cancel() {
	r.Status = StatusCancelled
	r.UpdatedAt = time.Now()
}

// AddLog appends a log line to the recurring donation.
func (r *RecurringDonation) AddLog(message string) {
	if message == "" {
		return
	}
	r.Logs = append(r.Logs, donation.LogEntry{Time: time.Now(), Message: message})
}

// SetToFailed marks the subscription failed with an explanatory note.
func (r *RecurringDonation) SetToFailed(note string) {
	r.Status = StatusFailed
	r.Note = note
	r.UpdatedAt = time.Now()
}

func isValidPeriod(period Period) bool {
	switch period {
	case PeriodHour, PeriodDay, PeriodWeek, PeriodMonth, PeriodSemiannual, PeriodAnnual:
		return true
	}
	return false
}

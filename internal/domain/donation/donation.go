package donation

import (
	"fmt"
	"strings"
	"time"
)

// Donation represents a single contribution record.
type Donation struct {
	ID                    int64
	CampaignID            int64
	RecurringID           int64 // 0 when this is a one-off donation
	DonationKey           string
	Gateway               string
	Donor                 Donor
	Amount                Money
	Currency              Currency
	Status                Status
	GatewayTransactionID  string
	GatewayTransactionURL string
	TestMode              bool
	Processed             bool
	Refund                *RefundLog
	Logs                  []LogEntry
	Meta                  map[string]string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Donor holds the donor fields forwarded to the gateway. Email is the
// only mandatory field.
type Donor struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Address   string
	Address2  string
	City      string
	Country   string
	Postcode  string
}

// Money is a monetary amount in the smallest currency unit.
type Money int64

// Currency is an ISO currency code.
type Currency string

const (
	NGN Currency = "NGN"
	GHS Currency = "GHS"
	ZAR Currency = "ZAR"
	USD Currency = "USD"
)

// GatewayPaystack is the gateway identifier recorded on donations
// collected through Paystack.
const GatewayPaystack = "paystack"

// Status represents donation status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// LogEntry is one human-readable line in a donation's log.
type LogEntry struct {
	Time    time.Time
	Message string
}

// RefundLog is the structured record stored when a refund is applied.
type RefundLog struct {
	Time            time.Time
	Message         string
	TotalRefund     Money
	CampaignRefunds []Money
}

// NewRefundLog builds the refund record stored against a donation.
func NewRefundLog(amount Money, message string) *RefundLog {
	return &RefundLog{
		Time:            time.Now(),
		Message:         message,
		TotalRefund:     amount,
		CampaignRefunds: []Money{amount},
	}
}

// New creates a pending donation with validation.
func New(campaignID int64, donor Donor, amount Money, currency Currency, key string, testMode bool) (*Donation, error) {
	if err := validateCreation(campaignID, donor, amount); err != nil {
		return nil, err
	}

	now := time.Now()

	return &Donation{
		CampaignID:  campaignID,
		DonationKey: key,
		Gateway:     GatewayPaystack,
		Donor:       donor,
		Amount:      amount,
		Currency:    currency,
		Status:      StatusPending,
		TestMode:    testMode,
		Meta:        make(map[string]string),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetGatewayTransactionID records the gateway reference. A donation
// carries at most one reference for its lifetime.
func (d *Donation) SetGatewayTransactionID(reference string) error {
	if d.GatewayTransactionID != "" && d.GatewayTransactionID != reference {
		return DomainError{
			Code:    ErrReferenceConflict,
			Message: fmt.Sprintf("donation %d already has gateway reference %s", d.ID, d.GatewayTransactionID),
		}
	}

	d.GatewayTransactionID = reference
	d.UpdatedAt = time.Now()
	return nil
}

// UpdateStatus transitions the donation following business rules.
func (d *Donation) UpdateStatus(status Status) error {
	if !d.CanTransitionTo(status) {
		return DomainError{
			Code:    ErrInvalidStatus,
			Message: fmt.Sprintf("donation %d cannot move from %s to %s", d.ID, d.Status, status),
		}
	}

	d.Status = status
	d.UpdatedAt = time.Now()
	return nil
}

// CanTransitionTo reports whether a status change is allowed. A
// terminal donation is only ever refunded, never reopened.
func (d *Donation) CanTransitionTo(status Status) bool {
	if status == d.Status {
		return true
	}

	switch d.Status {
	case StatusPending:
		return status == StatusCompleted || status == StatusFailed || status == StatusCancelled
	case StatusCompleted:
		return status == StatusRefunded
	}

	return false
}

// AddLog appends a log line to the donation.
func (d *Donation) AddLog(message string) {
	if message == "" {
		return
	}
	d.Logs = append(d.Logs, LogEntry{Time: time.Now(), Message: message})
}

// SetMeta records a key/value pair against the donation.
func (d *Donation) SetMeta(key, value string) {
	if d.Meta == nil {
		d.Meta = make(map[string]string)
	}
	d.Meta[key] = value
}

// IsRecurring reports whether the donation belongs to a recurring plan.
func (d *Donation) IsRecurring() bool {
	return d.RecurringID != 0
}

// IsCompleted checks if the donation is in completed state.
func (d *Donation) IsCompleted() bool {
	return d.Status == StatusCompleted
}

func validateCreation(campaignID int64, donor Donor, amount Money) error {
	if campaignID <= 0 {
		return fmt.Errorf("invalid campaign ID: %d", campaignID)
	}

	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %d", amount)
	}

	if strings.TrimSpace(donor.Email) == "" {
		return fmt.Errorf("donor email is required")
	}

	return nil
}

// DomainError represents a domain-level error.
type DomainError struct {
	Message string
	Code    string
}

func (e DomainError) Error() string {
	return fmt.Sprintf("domain error [%s]: %s", e.Code, e.Message)
}

// Domain error codes
const (
	ErrInvalidStatus     = "INVALID_STATUS"
	ErrReferenceConflict = "REFERENCE_CONFLICT"
)

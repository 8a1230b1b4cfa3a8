package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"charipay/internal/domain/donation"
	"charipay/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// donationRepository implements DonationRepository with pure data access.
type donationRepository struct {
	db *pgxpool.Pool
}

// NewDonationRepository creates a new donation repository.
func NewDonationRepository(db *pgxpool.Pool) repositories.DonationRepository {
	return &donationRepository{db: db}
}

const donationColumns = `id, campaign_id, recurring_id, donation_key, gateway, donor, amount, currency, status,
	gateway_transaction_id, gateway_transaction_url, test_mode, processed, refund, logs, meta, created_at, updated_at`

// Save saves a donation (insert or update).
func (r *donationRepository) Save(ctx context.Context, d *donation.Donation) error {
	if d.ID == 0 {
		return r.insert(ctx, d)
	}
	return r.update(ctx, d)
}

// FindByID finds a donation by ID.
func (r *donationRepository) FindByID(ctx context.Context, id int64) (*donation.Donation, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+donationColumns+`
		FROM donations
		WHERE id = $1`, id)

	return r.scanDonation(row)
}

// FindByGatewayTransactionID finds a donation by its gateway reference.
func (r *donationRepository) FindByGatewayTransactionID(ctx context.Context, reference string) (*donation.Donation, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+donationColumns+`
		FROM donations
		WHERE gateway_transaction_id = $1`, reference)

	return r.scanDonation(row)
}

// MarkProcessed flips the processed flag for a gateway reference. The
// conditional update makes the check-then-set a single statement, so
// only one of two racing writers sees a row change.
func (r *donationRepository) MarkProcessed(ctx context.Context, reference string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE donations
		SET processed = TRUE, updated_at = now()
		WHERE gateway_transaction_id = $1 AND NOT processed`, reference)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (r *donationRepository) insert(ctx context.Context, d *donation.Donation) error {
	donor, refund, logs, meta, err := encodeDonationFields(d)
	if err != nil {
		return err
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO donations (campaign_id, recurring_id, donation_key, gateway, donor, amount, currency, status,
			gateway_transaction_id, gateway_transaction_url, test_mode, processed, refund, logs, meta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`,
		d.CampaignID, nullInt64(d.RecurringID), d.DonationKey, d.Gateway, donor, int64(d.Amount), string(d.Currency),
		string(d.Status), nullString(d.GatewayTransactionID), nullString(d.GatewayTransactionURL),
		d.TestMode, d.Processed, refund, logs, meta, d.CreatedAt, d.UpdatedAt).Scan(&d.ID)
}

func (r *donationRepository) update(ctx context.Context, d *donation.Donation) error {
	donor, refund, logs, meta, err := encodeDonationFields(d)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		UPDATE donations
		SET recurring_id = $1, donor = $2, amount = $3, currency = $4, status = $5,
			gateway_transaction_id = $6, gateway_transaction_url = $7, processed = $8,
			refund = $9, logs = $10, meta = $11, updated_at = $12
		WHERE id = $13`,
		nullInt64(d.RecurringID), donor, int64(d.Amount), string(d.Currency), string(d.Status),
		nullString(d.GatewayTransactionID), nullString(d.GatewayTransactionURL), d.Processed,
		refund, logs, meta, d.UpdatedAt, d.ID)

	return err
}

func (r *donationRepository) scanDonation(row pgx.Row) (*donation.Donation, error) {
	var d donation.Donation
	var recurringID sql.NullInt64
	var reference, txURL sql.NullString
	var donor, refund, logs, meta []byte

	err := row.Scan(
		&d.ID, &d.CampaignID, &recurringID, &d.DonationKey, &d.Gateway, &donor, &d.Amount, &d.Currency, &d.Status,
		&reference, &txURL, &d.TestMode, &d.Processed, &refund, &logs, &meta, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if recurringID.Valid {
		d.RecurringID = recurringID.Int64
	}
	if reference.Valid {
		d.GatewayTransactionID = reference.String
	}
	if txURL.Valid {
		d.GatewayTransactionURL = txURL.String
	}

	if err := json.Unmarshal(donor, &d.Donor); err != nil {
		return nil, err
	}
	if len(refund) > 0 {
		if err := json.Unmarshal(refund, &d.Refund); err != nil {
			return nil, err
		}
	}
	if len(logs) > 0 {
		if err := json.Unmarshal(logs, &d.Logs); err != nil {
			return nil, err
		}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &d.Meta); err != nil {
			return nil, err
		}
	}

	return &d, nil
}

func encodeDonationFields(d *donation.Donation) (donor, refund, logs, meta []byte, err error) {
	if donor, err = json.Marshal(d.Donor); err != nil {
		return
	}
	if d.Refund != nil {
		if refund, err = json.Marshal(d.Refund); err != nil {
			return
		}
	}
	if logs, err = json.Marshal(d.Logs); err != nil {
		return
	}
	meta, err = json.Marshal(d.Meta)
	return
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}

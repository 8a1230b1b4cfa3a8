package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"charipay/internal/domain/recurring"
	"charipay/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// recurringRepository implements RecurringRepository with pure data access.
type recurringRepository struct {
	db *pgxpool.Pool
}

// NewRecurringRepository creates a new recurring donation repository.
func NewRecurringRepository(db *pgxpool.Pool) repositories.RecurringRepository {
	return &recurringRepository{db: db}
}

const recurringColumns = `id, campaign_id, period, amount, currency, length, status,
	gateway_subscription_id, gateway_subscription_url, authorization_code, email_token,
	first_donation_id, note, logs, created_at, updated_at`

// Save saves a recurring donation (insert or update).
func (r *recurringRepository) Save(ctx context.Context, rd *recurring.RecurringDonation) error {
	if rd.ID == 0 {
		return r.insert(ctx, rd)
	}
	return r.update(ctx, rd)
}

// FindByID finds a recurring donation by ID.
func (r *recurringRepository) FindByID(ctx context.Context, id int64) (*recurring.RecurringDonation, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+recurringColumns+`
		FROM recurring_donations
		WHERE id = $1`, id)

	return r.scanRecurring(row)
}

// FindByGatewaySubscriptionID finds a recurring donation by its
// gateway subscription code. The column carries a unique index, so
// lookups are deterministic.
func (r *recurringRepository) FindByGatewaySubscriptionID(ctx context.Context, code string) (*recurring.RecurringDonation, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+recurringColumns+`
		FROM recurring_donations
		WHERE gateway_subscription_id = $1`, code)

	return r.scanRecurring(row)
}

// FindByAuthorizationCode finds a recurring donation by the
// authorization code captured from its first payment.
func (r *recurringRepository) FindByAuthorizationCode(ctx context.Context, code string) (*recurring.RecurringDonation, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+recurringColumns+`
		FROM recurring_donations
		WHERE authorization_code = $1`, code)

	return r.scanRecurring(row)
}

func (r *recurringRepository) insert(ctx context.Context, rd *recurring.RecurringDonation) error {
	logs, err := json.Marshal(rd.Logs)
	if err != nil {
		return err
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO recurring_donations (campaign_id, period, amount, currency, length, status,
			gateway_subscription_id, gateway_subscription_url, authorization_code, email_token,
			first_donation_id, note, logs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		rd.CampaignID, string(rd.Period), int64(rd.Amount), string(rd.Currency), rd.Length, string(rd.Status),
		nullString(rd.GatewaySubscriptionID), nullString(rd.GatewaySubscriptionURL),
		nullString(rd.AuthorizationCode), nullString(rd.EmailToken),
		nullInt64(rd.FirstDonationID), rd.Note, logs, rd.CreatedAt, rd.UpdatedAt).Scan(&rd.ID)
}

func (r *recurringRepository) update(ctx context.Context, rd *recurring.RecurringDonation) error {
	logs, err := json.Marshal(rd.Logs)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		UPDATE recurring_donations
		SET status = $1, gateway_subscription_id = $2, gateway_subscription_url = $3,
			authorization_code = $4, email_token = $5, first_donation_id = $6, note = $7, logs = $8, updated_at = $9
		WHERE id = $10`,
		string(rd.Status), nullString(rd.GatewaySubscriptionID), nullString(rd.GatewaySubscriptionURL),
		nullString(rd.AuthorizationCode), nullString(rd.EmailToken),
		nullInt64(rd.FirstDonationID), rd.Note, logs, rd.UpdatedAt, rd.ID)

	return err
}

func (r *recurringRepository) scanRecurring(row pgx.Row) (*recurring.RecurringDonation, error) {
	var rd recurring.RecurringDonation
	var subID, subURL, authCode, emailToken sql.NullString
	var firstDonationID sql.NullInt64
	var logs []byte

	err := row.Scan(
		&rd.ID, &rd.CampaignID, &rd.Period, &rd.Amount, &rd.Currency, &rd.Length, &rd.Status,
		&subID, &subURL, &authCode, &emailToken, &firstDonationID, &rd.Note, &logs, &rd.CreatedAt, &rd.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(logs) > 0 {
		if err := json.Unmarshal(logs, &rd.Logs); err != nil {
			return nil, err
		}
	}

	if subID.Valid {
		rd.GatewaySubscriptionID = subID.String
	}
	if subURL.Valid {
		rd.GatewaySubscriptionURL = subURL.String
	}
	if authCode.Valid {
		rd.AuthorizationCode = authCode.String
	}
	if emailToken.Valid {
		rd.EmailToken = emailToken.String
	}
	if firstDonationID.Valid {
		rd.FirstDonationID = firstDonationID.Int64
	}

	return &rd, nil
}

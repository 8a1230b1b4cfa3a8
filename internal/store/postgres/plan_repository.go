package postgres

import (
	"context"
	"errors"

	"charipay/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// planRepository stores Paystack plan codes created per campaign.
type planRepository struct {
	db *pgxpool.Pool
}

// NewPlanRepository creates a new plan repository.
func NewPlanRepository(db *pgxpool.Pool) repositories.PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) FindPlanCode(ctx context.Context, campaignID int64, mode, planKey string) (string, error) {
	var code string
	err := r.db.QueryRow(ctx, `
		SELECT plan_code
		FROM campaign_plans
		WHERE campaign_id = $1 AND mode = $2 AND plan_key = $3`,
		campaignID, mode, planKey).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", repositories.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return code, nil
}

func (r *planRepository) SavePlanCode(ctx context.Context, campaignID int64, mode, planKey, planCode string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO campaign_plans (campaign_id, mode, plan_key, plan_code)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (campaign_id, mode, plan_key) DO UPDATE SET plan_code = EXCLUDED.plan_code`,
		campaignID, mode, planKey, planCode)

	return err
}

// customerCodeRepository stores Paystack customer codes per donor.
type customerCodeRepository struct {
	db *pgxpool.Pool
}

// NewCustomerCodeRepository creates a new customer code repository.
func NewCustomerCodeRepository(db *pgxpool.Pool) repositories.CustomerCodeRepository {
	return &customerCodeRepository{db: db}
}

func (r *customerCodeRepository) FindCustomerCode(ctx context.Context, donorID int64, mode string) (string, error) {
	var code string
	err := r.db.QueryRow(ctx, `
		SELECT customer_code
		FROM donor_customer_codes
		WHERE donor_id = $1 AND mode = $2`,
		donorID, mode).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", repositories.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return code, nil
}

func (r *customerCodeRepository) SaveCustomerCode(ctx context.Context, donorID int64, mode, customerCode string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO donor_customer_codes (donor_id, mode, customer_code)
		VALUES ($1, $2, $3)
		ON CONFLICT (donor_id, mode) DO UPDATE SET customer_code = EXCLUDED.customer_code`,
		donorID, mode, customerCode)

	return err
}

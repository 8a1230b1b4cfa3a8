package checkout

import (
	"context"
	"fmt"

	"charipay/internal/domain/recurring"
	"charipay/internal/paystack"

	"github.com/rs/zerolog/log"
)

// planIntervals maps donation periods onto Paystack plan intervals.
var planIntervals = map[recurring.Period]string{
	recurring.PeriodHour:       "hourly",
	recurring.PeriodDay:        "daily",
	recurring.PeriodWeek:       "weekly",
	recurring.PeriodMonth:      "monthly",
	recurring.PeriodSemiannual: "biannually",
	recurring.PeriodAnnual:     "annually",
}

var periodLabels = map[recurring.Period]string{
	recurring.PeriodHour:       "Hourly",
	recurring.PeriodDay:        "Daily",
	recurring.PeriodWeek:       "Weekly",
	recurring.PeriodMonth:      "Monthly",
	recurring.PeriodSemiannual: "Semiannual",
	recurring.PeriodAnnual:     "Annual",
}

// resolvePlan returns the Paystack plan code for the request's
// campaign, period and amount, creating the plan when none exists
// yet. Stored codes are confirmed with the gateway first, so a plan
// deleted from the dashboard is recreated instead of breaking
// checkout.
func (b *Builder) resolvePlan(ctx context.Context, client *paystack.Client, req DonationRequest) (string, error) {
	mode := modeString(b.testMode)
	key := planKey(req)

	code, err := b.plans.FindPlanCode(ctx, req.CampaignID, mode, key)
	if err == nil && code != "" {
		if _, err := client.FetchPlan(ctx, code); err == nil {
			return code, nil
		}
		log.Warn().Str("plan_code", code).Msg("stored plan missing from gateway, recreating")
	}

	plan, err := client.CreatePlan(ctx, paystack.PlanRequest{
		Name:         fmt.Sprintf("%s Donation to %s", periodLabels[req.Period], req.CampaignName),
		Amount:       int64(req.Amount),
		Interval:     planIntervals[req.Period],
		Currency:     string(req.Currency),
		SendInvoices: b.cfg.SendInvoices,
		SendSMS:      b.cfg.SendSMS,
	})
	if err != nil {
		return "", err
	}

	if err := b.plans.SavePlanCode(ctx, req.CampaignID, mode, key, plan.PlanCode); err != nil {
		log.Error().Err(err).Str("plan_code", plan.PlanCode).Msg("plan code not saved")
	}

	return plan.PlanCode, nil
}

func planKey(req DonationRequest) string {
	return fmt.Sprintf("%s_%d_%s", req.Period, req.Amount, req.Currency)
}

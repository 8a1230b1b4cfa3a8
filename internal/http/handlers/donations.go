package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"charipay/internal/domain/donation"
	"charipay/internal/domain/recurring"
	"charipay/internal/gateway/checkout"

	"github.com/rs/zerolog/log"
)

type donationReq struct {
	CampaignID   int64  `json:"campaignId"`
	CampaignName string `json:"campaignName"`
	DonorID      int64  `json:"donorId,omitempty"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Period       string `json:"period,omitempty"`
	Length       int    `json:"length,omitempty"`

	Donor struct {
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Phone     string `json:"phone"`
		Address   string `json:"address"`
		Address2  string `json:"address2"`
		City      string `json:"city"`
		Country   string `json:"country"`
		Postcode  string `json:"postcode"`
	} `json:"donor"`
}

type donationResp struct {
	DonationID       int64  `json:"donationId"`
	RecurringID      int64  `json:"recurringId,omitempty"`
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorizationUrl"`
}

// CreateDonation starts a donation and returns the checkout URL the
// donor pays at.
func CreateDonation(builder *checkout.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in donationReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if in.CampaignID <= 0 || in.Amount <= 0 || in.Donor.Email == "" {
			http.Error(w, "missing campaignId/amount/donor.email", http.StatusBadRequest)
			return
		}

		// Short, bounded context for the gateway calls
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		out, err := builder.Process(ctx, checkout.DonationRequest{
			CampaignID:   in.CampaignID,
			CampaignName: in.CampaignName,
			DonorID:      in.DonorID,
			Donor: donation.Donor{
				Email:     in.Donor.Email,
				FirstName: in.Donor.FirstName,
				LastName:  in.Donor.LastName,
				Phone:     in.Donor.Phone,
				Address:   in.Donor.Address,
				Address2:  in.Donor.Address2,
				City:      in.Donor.City,
				Country:   in.Donor.Country,
				Postcode:  in.Donor.Postcode,
			},
			Amount:   donation.Money(in.Amount),
			Currency: donation.Currency(in.Currency),
			Period:   recurring.Period(in.Period),
			Length:   in.Length,
		})
		if err != nil {
			log.Error().Err(err).
				Int64("campaign_id", in.CampaignID).
				Int64("amount", in.Amount).
				Msg("checkout failed")
			http.Error(w, "checkout failed", http.StatusBadGateway)
			return
		}

		resp := donationResp{
			DonationID:       out.Donation.ID,
			Reference:        out.Reference,
			AuthorizationURL: out.AuthorizationURL,
		}
		if out.Recurring != nil {
			resp.RecurringID = out.Recurring.ID
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

package checkout

import (
	"context"

	"charipay/internal/paystack"

	"github.com/rs/zerolog/log"
)

// ensureCustomer makes sure the gateway has an up-to-date customer for
// the donor. A registered donor with a stored customer code gets an
// update; everyone else gets a create, which Paystack resolves to the
// existing customer when the email is already known.
func (b *Builder) ensureCustomer(ctx context.Context, client *paystack.Client, req DonationRequest) (*paystack.Customer, error) {
	cr := customerRequest(req)
	mode := modeString(b.testMode)

	if req.DonorID != 0 {
		code, err := b.customers.FindCustomerCode(ctx, req.DonorID, mode)
		if err == nil && code != "" {
			return client.UpdateCustomer(ctx, code, cr)
		}
	}

	// Paystack knows the customer but we hold no code for them, for
	// example a guest donor who has given before.
	customer, err := client.FindCustomer(ctx, req.Donor.Email)
	if err != nil {
		customer, err = client.CreateCustomer(ctx, cr)
	}
	if err != nil {
		return nil, err
	}

	if req.DonorID != 0 {
		if err := b.customers.SaveCustomerCode(ctx, req.DonorID, mode, customer.CustomerCode); err != nil {
			log.Error().Err(err).Int64("donor_id", req.DonorID).Msg("customer code not saved")
		}
	}

	return customer, nil
}

func customerRequest(req DonationRequest) paystack.CustomerRequest {
	donor := req.Donor

	metadata := map[string]string{}
	for key, value := range map[string]string{
		"address":  donor.Address,
		"address2": donor.Address2,
		"city":     donor.City,
		"country":  donor.Country,
		"postcode": donor.Postcode,
	} {
		if value != "" {
			metadata[key] = value
		}
	}

	return paystack.CustomerRequest{
		Email:     donor.Email,
		FirstName: donor.FirstName,
		LastName:  donor.LastName,
		Phone:     donor.Phone,
		Metadata:  metadata,
	}
}

func modeString(testMode bool) string {
	if testMode {
		return "test"
	}
	return "live"
}

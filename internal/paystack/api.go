package paystack

import (
	"context"
	"fmt"
	"net/url"
)

// APIError is an application-level failure: the request reached the
// gateway but Paystack reported status false.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack: %s", e.Message)
}

// VerifyTransaction confirms the status of a transaction directly
// with Paystack.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	resp, err := c.Get(ctx, "transaction/verify/"+url.PathEscape(reference))
	if err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, &APIError{Message: resp.Message}
	}

	var tx Transaction
	if err := resp.Decode(&tx); err != nil {
		return nil, err
	}

	return &tx, nil
}

// CreateSubscription creates a subscription for a customer, charging
// the authorization captured from the first payment.
func (c *Client) CreateSubscription(ctx context.Context, customerCode, planCode, authorizationCode string) (*Subscription, error) {
	body := map[string]string{
		"plan":          planCode,
		"authorization": authorizationCode,
	}

	resp, err := c.Post(ctx, "customers/"+url.PathEscape(customerCode)+"/subscriptions", body)
	if err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, &APIError{Message: resp.Message}
	}

	var sub Subscription
	if err := resp.Decode(&sub); err != nil {
		return nil, err
	}

	return &sub, nil
}

// Refund refunds a transaction, with a note shown in the Paystack
// dashboard.
func (c *Client) Refund(ctx context.Context, reference, merchantNote string) error {
	body := map[string]string{
		"transaction":   reference,
		"merchant_note": merchantNote,
	}

	resp, err := c.Post(ctx, "refund", body)
	if err != nil {
		return err
	}
	if !resp.Status {
		return &APIError{Message: resp.Message}
	}

	return nil
}

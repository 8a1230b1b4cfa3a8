package paystack

import (
	"context"
	"net/url"
)

// InitializeRequest is the body of a transaction/initialize call.
// Amount is in the smallest currency unit.
type InitializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Plan        string            `json:"plan,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CustomerRequest is the body of a customer create or update call.
type CustomerRequest struct {
	Email     string            `json:"email"`
	FirstName string            `json:"first_name,omitempty"`
	LastName  string            `json:"last_name,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// PlanRequest is the body of a plan create call.
type PlanRequest struct {
	Name         string `json:"name"`
	Amount       int64  `json:"amount"`
	Interval     string `json:"interval"`
	Currency     string `json:"currency"`
	SendInvoices bool   `json:"send_invoices"`
	SendSMS      bool   `json:"send_sms"`
}

// InitializeTransaction starts a hosted checkout and returns the
// authorization URL the donor is redirected to.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializedTransaction, error) {
	resp, err := c.Post(ctx, "transaction/initialize", req)
	if err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, &APIError{Message: resp.Message}
	}

	var tx InitializedTransaction
	if err := resp.Decode(&tx); err != nil {
		return nil, err
	}

	return &tx, nil
}

// FindCustomer fetches a customer by email address.
func (c *Client) FindCustomer(ctx context.Context, email string) (*Customer, error) {
	resp, err := c.Get(ctx, "customer/"+url.PathEscape(email))
	if err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, &APIError{Message: resp.Message}
	}

	var customer Customer
	if err := resp.Decode(&customer); err != nil {
		return nil, err
	}

	return &customer, nil
}

// CreateCustomer registers a customer with the gateway.
func (c *Client) CreateCustomer(ctx context.Context, req CustomerRequest) (*Customer, error) {
	resp, err := c.Post(ctx, "customer", req)
	if err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, &APIError{Message: resp.Message}
	}

	var customer Customer
	if err := resp.Decode(&customer); err != nil {
		return nil, err
	}

	return &customer, nil
}

// UpdateCustomer pushes fresh customer details to the gateway.
func (c *Client) UpdateCustomer(ctx context.Context, customerCode string, req CustomerRequest) (*Customer, error) {
	resp, err := c.Put(ctx, "customer/"+url.PathEscape(customerCode), req)
	if err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, &APIError{Message: resp.Message}
	}

	var customer Customer
	if err := resp.Decode(&customer); err != nil {
		return nil, err
	}

	return &customer, nil
}

// FetchPlan fetches a plan by its plan code.
func (c *Client) FetchPlan(ctx context.Context, planCode string) (*Plan, error) {
	resp, err := c.Get(ctx, "plan/"+url.PathEscape(planCode))
	if err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, &APIError{Message: resp.Message}
	}

	var plan Plan
	if err := resp.Decode(&plan); err != nil {
		return nil, err
	}

	return &plan, nil
}

// CreatePlan creates a recurring payment plan.
func (c *Client) CreatePlan(ctx context.Context, req PlanRequest) (*Plan, error) {
	resp, err := c.Post(ctx, "plan", req)
	if err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, &APIError{Message: resp.Message}
	}

	var plan Plan
	if err := resp.Decode(&plan); err != nil {
		return nil, err
	}

	return &plan, nil
}

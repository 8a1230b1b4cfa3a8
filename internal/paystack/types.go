package paystack

import (
	"encoding/json"
	"fmt"
)

// Response is the envelope Paystack wraps every API response in.
type Response struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Decode unmarshals the envelope's data into the given struct.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

// InitializedTransaction is the data of a transaction/initialize call.
type InitializedTransaction struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

// Transaction is the data of a transaction/verify call.
type Transaction struct {
	ID            int64         `json:"id"`
	Status        string        `json:"status"`
	Reference     string        `json:"reference"`
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	Domain        string        `json:"domain"`
	GatewayResp   string        `json:"gateway_response"`
	Authorization Authorization `json:"authorization"`
	Customer      Customer      `json:"customer"`
	Plan          string        `json:"plan"`
}

// Authorization is the reusable charge credential attached to a
// transaction. The authorization code is how a Paystack subscription
// is linked back to a recurring donation.
type Authorization struct {
	AuthorizationCode string `json:"authorization_code"`
	Channel           string `json:"channel"`
	Reusable          bool   `json:"reusable"`
}

// Customer is a Paystack customer record.
type Customer struct {
	ID           int64  `json:"id"`
	CustomerCode string `json:"customer_code"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone"`
}

// Plan is a Paystack recurring payment plan.
type Plan struct {
	ID       int64  `json:"id"`
	PlanCode string `json:"plan_code"`
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Interval string `json:"interval"`
	Currency string `json:"currency"`
}

// Subscription is a Paystack subscription record.
type Subscription struct {
	ID               int64  `json:"id"`
	SubscriptionCode string `json:"subscription_code"`
	EmailToken       string `json:"email_token"`
	Status           string `json:"status"`
}

// TransactionURL returns the dashboard URL for a transaction.
func TransactionURL(id int64) string {
	return fmt.Sprintf("https://dashboard.paystack.com/#/transactions/%d", id)
}

// SubscriptionsURL returns the dashboard URL listing a customer's
// subscriptions.
func SubscriptionsURL(customerCode string) string {
	return fmt.Sprintf("https://dashboard.paystack.com/#/customers/%s/subscriptions", customerCode)
}

package paystack

import (
	"context"

	"charipay/internal/config"
)

// Gateway holds a client per mode and routes each call to the one
// keyed for the transaction's domain. Webhooks carry their own
// test/live flag, so the ambient setting alone is not enough.
type Gateway struct {
	test *Client
	live *Client
}

// NewGateway creates a Gateway from configuration.
func NewGateway(cfg config.PaystackCfg, opts ...Option) *Gateway {
	return &Gateway{
		test: NewForMode(cfg, true, opts...),
		live: NewForMode(cfg, false, opts...),
	}
}

// Client returns the client keyed for the given mode.
func (g *Gateway) Client(testMode bool) *Client {
	if testMode {
		return g.test
	}
	return g.live
}

// VerifyTransaction verifies a transaction in the given mode.
func (g *Gateway) VerifyTransaction(ctx context.Context, reference string, testMode bool) (*Transaction, error) {
	return g.Client(testMode).VerifyTransaction(ctx, reference)
}

// CreateSubscription creates a gateway subscription in the given mode.
func (g *Gateway) CreateSubscription(ctx context.Context, customerCode, planCode, authorizationCode string, testMode bool) (*Subscription, error) {
	return g.Client(testMode).CreateSubscription(ctx, customerCode, planCode, authorizationCode)
}

// Refund refunds a transaction in the given mode.
func (g *Gateway) Refund(ctx context.Context, reference, merchantNote string, testMode bool) error {
	return g.Client(testMode).Refund(ctx, reference, merchantNote)
}

package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"charipay/internal/config"

	"github.com/rs/zerolog/log"
)

const defaultEndpoint = "https://api.paystack.co"

// DefaultTimeout bounds every outbound call unless overridden.
const DefaultTimeout = 10 * time.Second

// ErrNoAPIKey is returned when no secret key is configured for the
// active mode, or when a previous call established that the key is
// invalid. Callers short-circuit without a network request.
var ErrNoAPIKey = errors.New("paystack: no valid API key")

// ErrRequestFailed covers transport errors and non-2xx responses
// alike. Details are only inspectable via LastResponse.
var ErrRequestFailed = errors.New("paystack: request failed")

// LastResponse captures the raw outcome of the most recent call so
// callers can build user-facing error messages.
type LastResponse struct {
	StatusCode int
	Body       []byte
	Err        error // transport-level error, if any
}

// Message pulls the gateway's message field out of the raw body, if
// the body carries one.
func (r *LastResponse) Message() string {
	if r == nil || len(r.Body) == 0 {
		return ""
	}
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.Body, &envelope); err != nil {
		return ""
	}
	return envelope.Message
}

// Client is a minimum-abstraction wrapper over the Paystack REST API.
type Client struct {
	endpoint string
	key      string
	client   *http.Client

	mu           sync.Mutex
	keyValidated *bool // nil until the first call settles it
	lastResponse *LastResponse
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithEndpoint overrides the API endpoint. Used in tests.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = strings.TrimRight(endpoint, "/") }
}

// New creates a client keyed for the configured mode.
func New(cfg config.PaystackCfg, opts ...Option) *Client {
	return NewForMode(cfg, cfg.TestMode, opts...)
}

// NewForMode creates a client with an explicit test/live mode,
// overriding the ambient setting.
func NewForMode(cfg config.PaystackCfg, testMode bool, opts ...Option) *Client {
	c := &Client{
		endpoint: defaultEndpoint,
		key:      cfg.SecretKey(testMode),
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasValidAPIKey reports whether calls can be attempted. Before any
// call it only checks that a key is configured; after the first call
// it reflects whether the gateway accepted the key.
func (c *Client) HasValidAPIKey() bool {
	if c.key == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.keyValidated != nil {
		return *c.keyValidated
	}
	return true
}

// LastResponse returns the raw response to the most recent request.
func (c *Client) LastResponse() *LastResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResponse
}

// Get performs a GET request against the given API path.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*Response, error) {
	if !c.HasValidAPIKey() {
		return nil, ErrNoAPIKey
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("paystack: marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	url := c.endpoint + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("paystack: build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("gateway", "paystack").
		Str("method", method).
		Str("path", path).
		Msg("making API request")

	resp, err := c.client.Do(req)
	if err != nil {
		c.record(&LastResponse{Err: err})
		log.Error().Str("path", path).Err(err).Msg("paystack request failed")
		return nil, ErrRequestFailed
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(&LastResponse{StatusCode: resp.StatusCode, Err: err})
		return nil, ErrRequestFailed
	}

	c.record(&LastResponse{StatusCode: resp.StatusCode, Body: raw})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ErrRequestFailed
	}

	var decoded Response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("paystack: decode response: %w", err)
	}

	return &decoded, nil
}

// record stores the last response and, on the first settled call,
// decides whether the key is usable. A 401 marks the key invalid for
// the remainder of the client's lifetime.
func (c *Client) record(resp *LastResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastResponse = resp

	if c.keyValidated == nil && resp.Err == nil {
		valid := resp.StatusCode != http.StatusUnauthorized
		c.keyValidated = &valid
	}
}

// Package payment implements the payment-provider client against the
// Stripe-compatible payment-intent API, including webhook signature
// verification. Calls are plain fallible I/O; retries are the caller's
// decision.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/securticket/securticket/internal/core/port"
	"github.com/securticket/securticket/internal/infra/config"
)

// Intent statuses surfaced to callers.
const (
	IntentStatusSucceeded = "succeeded"
	IntentStatusCanceled  = "canceled"
)

// StripeClient talks to the provider's payment-intent endpoints.
type StripeClient struct {
	baseURL          string
	secretKey        string
	webhookSecret    string
	webhookTolerance time.Duration
	logger           *zap.Logger
	hc               *http.Client
	now              func() time.Time
}

// NewStripeClient constructs the provider client from configuration.
func NewStripeClient(cfg config.PaymentSettings, logger *zap.Logger, hc *http.Client) (*StripeClient, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("payment secret key is required")
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}

	tolerance := cfg.WebhookTolerance
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}

	return &StripeClient{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:        cfg.SecretKey,
		webhookSecret:    cfg.WebhookSecret,
		webhookTolerance: tolerance,
		logger:           logger,
		hc:               hc,
		now:              time.Now,
	}, nil
}

// WithClock injects a custom clock, primarily for webhook tolerance tests.
func (c *StripeClient) WithClock(now func() time.Time) *StripeClient {
	if now != nil {
		c.now = now
	}
	return c
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// CreateIntent creates a payment intent for the given amount in minor units.
func (c *StripeClient) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*port.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", currency)
	for key, value := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	var resp intentResponse
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", strings.NewReader(form.Encode()), &resp); err != nil {
		return nil, err
	}

	if resp.ID == "" || resp.ClientSecret == "" {
		return nil, fmt.Errorf("payment provider returned malformed intent")
	}

	return &port.PaymentIntent{
		ID:           resp.ID,
		ClientSecret: resp.ClientSecret,
		Status:       resp.Status,
	}, nil
}

// RetrieveIntent fetches the current status of a payment intent.
func (c *StripeClient) RetrieveIntent(ctx context.Context, id string) (*port.PaymentIntent, error) {
	if id == "" {
		return nil, fmt.Errorf("intent id is required")
	}

	var resp intentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}

	if resp.ID == "" {
		return nil, fmt.Errorf("payment provider returned malformed intent")
	}

	return &port.PaymentIntent{
		ID:           resp.ID,
		ClientSecret: resp.ClientSecret,
		Status:       resp.Status,
	}, nil
}

func (c *StripeClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("call payment provider: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("payment provider call failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}

	return nil
}

var (
	_ port.PaymentProvider = (*StripeClient)(nil)
	_ port.WebhookVerifier = (*StripeClient)(nil)
)

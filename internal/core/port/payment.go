package port

import "context"

// PaymentIntent is the provider-side object representing an
// authorized-but-not-yet-settled charge.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// Webhook event types delivered by the payment provider.
const (
	WebhookPaymentSucceeded = "payment_intent.succeeded"
	WebhookPaymentFailed    = "payment_intent.payment_failed"
)

// WebhookEvent is a verified, parsed provider webhook payload.
type WebhookEvent struct {
	ID        string
	Type      string
	IntentID  string
	BookingID string
}

// PaymentProvider creates and retrieves payment intents. Calls are fallible
// I/O with no automatic retry; failures surface to the caller.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*PaymentIntent, error)
}

// WebhookVerifier authenticates and parses inbound provider webhooks.
// Signature verification is mandatory before any payload content is trusted.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error)
}

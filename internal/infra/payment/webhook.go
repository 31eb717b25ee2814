package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/securticket/securticket/internal/core/port"
)

var (
	// ErrInvalidSignature indicates the webhook signature header failed
	// verification; the payload must not be processed.
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	// ErrMalformedPayload indicates the webhook body could not be parsed.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

const signatureScheme = "v1"

type webhookBody struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// VerifyWebhook authenticates the signature header ("t=<unix>,v1=<hex>") over
// "<t>.<payload>" with HMAC-SHA256 and parses the event. Timestamps outside
// the configured tolerance are rejected to limit replay.
func (c *StripeClient) VerifyWebhook(payload []byte, signatureHeader string) (*port.WebhookEvent, error) {
	if c.webhookSecret == "" {
		return nil, fmt.Errorf("webhook secret is not configured")
	}

	timestamp, signatures, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, err
	}

	if delta := c.now().Sub(time.Unix(timestamp, 0)); delta > c.webhookTolerance || delta < -c.webhookTolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	verified := false
	for _, signature := range signatures {
		decoded, decodeErr := hex.DecodeString(signature)
		if decodeErr != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, ErrInvalidSignature
	}

	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if body.Type == "" || body.Data.Object.ID == "" {
		return nil, ErrMalformedPayload
	}

	return &port.WebhookEvent{
		ID:        body.ID,
		Type:      body.Type,
		IntentID:  body.Data.Object.ID,
		BookingID: body.Data.Object.Metadata["booking_id"],
	}, nil
}

func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	var (
		timestamp  int64
		signatures []string
		sawT       bool
	)

	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "t":
			value, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
			}
			timestamp = value
			sawT = true
		case signatureScheme:
			signatures = append(signatures, parts[1])
		}
	}

	if !sawT || len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: incomplete signature header", ErrInvalidSignature)
	}

	return timestamp, signatures, nil
}

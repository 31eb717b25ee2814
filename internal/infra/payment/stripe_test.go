package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/securticket/securticket/internal/core/port"
	"github.com/securticket/securticket/internal/infra/config"
)

func newTestClient(t *testing.T, baseURL string) *StripeClient {
	t.Helper()
	client, err := NewStripeClient(config.PaymentSettings{
		BaseURL:          baseURL,
		SecretKey:        "sk_test_123",
		WebhookSecret:    "whsec_test",
		WebhookTolerance: 5 * time.Minute,
	}, zaptest.NewLogger(t), nil)
	if err != nil {
		t.Fatalf("NewStripeClient returned error: %v", err)
	}
	return client
}

func signPayload(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestCreateIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_intents" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk_test_123" {
			t.Fatalf("missing bearer auth, got %q", r.Header.Get("Authorization"))
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("amount") != "4500" {
			t.Fatalf("expected amount 4500, got %s", r.PostForm.Get("amount"))
		}
		if r.PostForm.Get("metadata[booking_id]") != "bk-1" {
			t.Fatalf("expected booking metadata, got %v", r.PostForm)
		}

		json.NewEncoder(w).Encode(map[string]string{
			"id":            "pi_123",
			"client_secret": "pi_123_secret",
			"status":        "requires_payment_method",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	intent, err := client.CreateIntent(context.Background(), 4500, "usd", map[string]string{"booking_id": "bk-1"})
	if err != nil {
		t.Fatalf("CreateIntent returned error: %v", err)
	}
	if intent.ID != "pi_123" || intent.ClientSecret != "pi_123_secret" {
		t.Fatalf("unexpected intent %+v", intent)
	}
}

func TestCreateIntentProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	if _, err := client.CreateIntent(context.Background(), 100, "usd", nil); err == nil {
		t.Fatal("expected error for provider failure")
	}
}

func TestRetrieveIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents/pi_9" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "pi_9", "status": "succeeded"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	intent, err := client.RetrieveIntent(context.Background(), "pi_9")
	if err != nil {
		t.Fatalf("RetrieveIntent returned error: %v", err)
	}
	if intent.Status != IntentStatusSucceeded {
		t.Fatalf("expected succeeded status, got %s", intent.Status)
	}
}

func webhookEventJSON(eventType, intentID, bookingID string) []byte {
	payload, _ := json.Marshal(map[string]any{
		"id":   "evt_1",
		"type": eventType,
		"data": map[string]any{
			"object": map[string]any{
				"id":       intentID,
				"metadata": map[string]string{"booking_id": bookingID},
			},
		},
	})
	return payload
}

func TestVerifyWebhookValidSignature(t *testing.T) {
	client := newTestClient(t, "http://unused")
	payload := webhookEventJSON(port.WebhookPaymentSucceeded, "pi_1", "bk-7")

	now := time.Now()
	client.WithClock(func() time.Time { return now })
	header := signPayload("whsec_test", now.Unix(), payload)

	event, err := client.VerifyWebhook(payload, header)
	if err != nil {
		t.Fatalf("VerifyWebhook returned error: %v", err)
	}
	if event.Type != port.WebhookPaymentSucceeded {
		t.Fatalf("unexpected type %s", event.Type)
	}
	if event.IntentID != "pi_1" || event.BookingID != "bk-7" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestVerifyWebhookBadSignature(t *testing.T) {
	client := newTestClient(t, "http://unused")
	payload := webhookEventJSON(port.WebhookPaymentFailed, "pi_1", "bk-7")

	now := time.Now()
	client.WithClock(func() time.Time { return now })
	header := signPayload("wrong-secret", now.Unix(), payload)

	if _, err := client.VerifyWebhook(payload, header); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyWebhookStaleTimestamp(t *testing.T) {
	client := newTestClient(t, "http://unused")
	payload := webhookEventJSON(port.WebhookPaymentSucceeded, "pi_1", "bk-7")

	now := time.Now()
	client.WithClock(func() time.Time { return now })
	stale := now.Add(-time.Hour).Unix()
	header := signPayload("whsec_test", stale, payload)

	if _, err := client.VerifyWebhook(payload, header); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for stale timestamp, got %v", err)
	}
}

func TestVerifyWebhookMalformedPayload(t *testing.T) {
	client := newTestClient(t, "http://unused")
	payload := []byte(`{"type":"payment_intent.succeeded"`)

	now := time.Now()
	client.WithClock(func() time.Time { return now })
	header := signPayload("whsec_test", now.Unix(), payload)

	if _, err := client.VerifyWebhook(payload, header); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestVerifyWebhookMissingHeader(t *testing.T) {
	client := newTestClient(t, "http://unused")

	if _, err := client.VerifyWebhook([]byte(`{}`), ""); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

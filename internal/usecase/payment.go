package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/core/port"
	"github.com/securticket/securticket/internal/repository"
)

var (
	// ErrBookingNotPayable indicates the booking left the pending state and
	// can no longer take a payment intent.
	ErrBookingNotPayable = errors.New("booking is not payable")
	// ErrNoPaymentIntent indicates the booking has no payment intent attached.
	ErrNoPaymentIntent = errors.New("booking has no payment intent")
)

// PaymentService drives the payment intent lifecycle and consumes provider
// webhooks.
type PaymentService struct {
	bookings port.BookingRepository
	provider port.PaymentProvider
	verifier port.WebhookVerifier
	audit    *AuditRecorder
	logger   *zap.Logger
}

// NewPaymentService constructs a PaymentService instance.
func NewPaymentService(
	bookings port.BookingRepository,
	provider port.PaymentProvider,
	verifier port.WebhookVerifier,
	audit *AuditRecorder,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		bookings: bookings,
		provider: provider,
		verifier: verifier,
		audit:    audit,
		logger:   logger,
	}
}

// CreateIntent opens a payment intent for the actor's pending booking. The
// charged amount is the booking's frozen total, never a recomputation from the
// catalog. The booking id travels in the intent metadata so the webhook can
// route the settlement back.
func (s *PaymentService) CreateIntent(ctx context.Context, actor domain.Account, bookingID string, meta RequestMeta) (*port.PaymentIntent, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.AccountID != actor.ID {
		return nil, ErrForbidden
	}
	if booking.Status != domain.BookingStatusPending {
		return nil, ErrBookingNotPayable
	}

	intent, err := s.provider.CreateIntent(ctx, booking.TotalPriceMinor, booking.Currency, map[string]string{
		"booking_id":        booking.ID,
		"booking_reference": booking.Reference,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	if err := s.bookings.SetPaymentIntent(ctx, booking.ID, intent.ID); err != nil {
		return nil, fmt.Errorf("attach payment intent: %w", err)
	}

	s.audit.Record(ctx, domain.AuditPaymentIntentCreated, &actor.ID, meta, map[string]any{
		"booking_id":        booking.ID,
		"payment_intent_id": intent.ID,
		"amount_minor":      booking.TotalPriceMinor,
		"currency":          booking.Currency,
	})

	return intent, nil
}

// HandleWebhook verifies and applies a provider webhook. A successful payment
// confirms the pending booking carrying the intent; a failed payment leaves it
// pending so the customer can retry. Events for unknown intents are absorbed
// after logging so the provider stops redelivering them.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string, meta RequestMeta) error {
	event, err := s.verifier.VerifyWebhook(payload, signatureHeader)
	if err != nil {
		return err
	}

	switch event.Type {
	case port.WebhookPaymentSucceeded:
		return s.applyPaymentSucceeded(ctx, event, meta)
	case port.WebhookPaymentFailed:
		s.logger.Info("payment failed, booking stays pending",
			zap.String("payment_intent_id", event.IntentID),
			zap.String("booking_id", event.BookingID))
		s.audit.Record(ctx, domain.AuditPaymentFailed, nil, meta, map[string]any{
			"payment_intent_id": event.IntentID,
			"booking_id":        event.BookingID,
		})
		return nil
	default:
		s.logger.Debug("ignoring webhook event type", zap.String("type", event.Type))
		return nil
	}
}

func (s *PaymentService) applyPaymentSucceeded(ctx context.Context, event *port.WebhookEvent, meta RequestMeta) error {
	booking, err := s.bookings.ConfirmByPaymentIntent(ctx, event.IntentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("webhook references unknown payment intent",
				zap.String("payment_intent_id", event.IntentID))
			return nil
		}
		return fmt.Errorf("confirm booking: %w", err)
	}

	if booking.Status != domain.BookingStatusConfirmed {
		s.logger.Warn("payment succeeded for non-pending booking",
			zap.String("booking_id", booking.ID),
			zap.String("status", string(booking.Status)))
		return nil
	}

	s.audit.Record(ctx, domain.AuditPaymentSucceeded, &booking.AccountID, meta, map[string]any{
		"booking_id":        booking.ID,
		"payment_intent_id": event.IntentID,
		"amount_minor":      booking.TotalPriceMinor,
	})

	return nil
}

// Status returns the provider-side state of the booking's payment intent.
func (s *PaymentService) Status(ctx context.Context, actor domain.Account, bookingID string) (*port.PaymentIntent, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.AccountID != actor.ID && !actor.Role.Can(domain.CapabilityViewAllBookings) {
		return nil, ErrForbidden
	}
	if booking.PaymentIntentID == nil {
		return nil, ErrNoPaymentIntent
	}

	intent, err := s.provider.RetrieveIntent(ctx, *booking.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent: %w", err)
	}
	return intent, nil
}

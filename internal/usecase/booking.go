package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/core/port"
	"github.com/securticket/securticket/internal/infra/config"
	"github.com/securticket/securticket/internal/repository"
)

var (
	// ErrInvalidSeatCount indicates a non-positive seat request.
	ErrInvalidSeatCount = errors.New("seat count must be positive")
	// ErrSoldOut indicates the event lacks the requested seats.
	ErrSoldOut = errors.New("not enough seats available")
	// ErrAlreadyCancelled indicates the booking is already in its terminal state.
	ErrAlreadyCancelled = errors.New("booking already cancelled")
)

const referenceAttempts = 5

// BookingService manages the booking lifecycle. Creation and cancellation
// ride the repository's transactional paths so booking rows and seat counters
// move together.
type BookingService struct {
	cfg      config.BookingSettings
	bookings port.BookingRepository
	events   port.EventRepository
	audit    *AuditRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewBookingService constructs a BookingService instance.
func NewBookingService(
	cfg config.BookingSettings,
	bookings port.BookingRepository,
	events port.EventRepository,
	audit *AuditRecorder,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		cfg:      cfg,
		bookings: bookings,
		events:   events,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// Create books seats on an event for the actor. The total price is computed
// from the event's current price and frozen on the booking; later catalog
// price changes never touch existing bookings.
func (s *BookingService) Create(ctx context.Context, actor domain.Account, eventID string, seats int, meta RequestMeta) (*domain.Booking, error) {
	if seats <= 0 {
		return nil, ErrInvalidSeatCount
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	booking := domain.Booking{
		AccountID:       actor.ID,
		EventID:         event.ID,
		SeatsBooked:     seats,
		TotalPriceMinor: event.PriceMinor * int64(seats),
		Currency:        event.Currency,
		Status:          domain.BookingStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// Reference collisions are rare at 8 hex chars but possible; retry with a
	// fresh identity instead of surfacing the conflict.
	var available int
	for attempt := 0; ; attempt++ {
		booking.ID = uuid.NewString()
		booking.Reference = s.newReference()

		available, err = s.bookings.CreateWithReservation(ctx, booking)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrInsufficientSeats) {
			return nil, ErrSoldOut
		}
		if errors.Is(err, repository.ErrDuplicate) && attempt < referenceAttempts-1 {
			continue
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.audit.Record(ctx, domain.AuditBookingCreated, &actor.ID, meta, map[string]any{
		"booking_id":        booking.ID,
		"booking_reference": booking.Reference,
		"event_id":          event.ID,
		"seats":             seats,
		"available_seats":   available,
	})

	return &booking, nil
}

// Cancel releases the booking's seats and marks it cancelled. The owner may
// cancel their own booking; cancelling others requires bookings:cancel_any.
// Cancelling a confirmed booking is permitted and logged: refund handling
// happens out of band.
func (s *BookingService) Cancel(ctx context.Context, actor domain.Account, bookingID string, meta RequestMeta) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.AccountID != actor.ID && !actor.Role.Can(domain.CapabilityCancelAnyBooking) {
		return nil, ErrForbidden
	}

	statusBefore := booking.Status
	if statusBefore == domain.BookingStatusConfirmed {
		s.logger.Warn("cancelling confirmed booking",
			zap.String("booking_id", booking.ID),
			zap.String("account_id", actor.ID))
	}

	result, err := s.bookings.CancelWithRelease(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyCancelled) {
			return nil, ErrAlreadyCancelled
		}
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	if result.Clamped {
		s.logger.Error("seat release clamped at capacity",
			zap.String("booking_id", booking.ID),
			zap.String("event_id", booking.EventID),
			zap.Int("seats_released", result.SeatsReleased))
	}

	s.audit.Record(ctx, domain.AuditBookingCancelled, &actor.ID, meta, map[string]any{
		"booking_id":      booking.ID,
		"event_id":        booking.EventID,
		"seats_released":  result.SeatsReleased,
		"status_before":   string(statusBefore),
		"available_seats": result.AvailableSeats,
	})

	cancelled := result.Booking
	return &cancelled, nil
}

// Get returns a booking visible to the actor: their own, or any booking for
// holders of bookings:view_all.
func (s *BookingService) Get(ctx context.Context, actor domain.Account, bookingID string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.AccountID != actor.ID && !actor.Role.Can(domain.CapabilityViewAllBookings) {
		return nil, ErrForbidden
	}
	return booking, nil
}

// ListForActor returns the actor's bookings, newest first.
func (s *BookingService) ListForActor(ctx context.Context, actor domain.Account) ([]domain.Booking, error) {
	return s.bookings.ListByAccount(ctx, actor.ID)
}

// ListAll returns every booking. Requires bookings:view_all.
func (s *BookingService) ListAll(ctx context.Context, actor domain.Account) ([]domain.Booking, error) {
	if !actor.Role.Can(domain.CapabilityViewAllBookings) {
		return nil, ErrForbidden
	}
	return s.bookings.List(ctx)
}

// newReference derives a short uppercase booking reference from a fresh UUID.
func (s *BookingService) newReference() string {
	length := s.cfg.ReferenceLength
	if length <= 0 {
		length = 8
	}
	compact := strings.ReplaceAll(uuid.NewString(), "-", "")
	if length > len(compact) {
		length = len(compact)
	}
	return strings.ToUpper(compact[:length])
}

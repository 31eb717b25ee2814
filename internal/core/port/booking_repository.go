package port

import (
	"context"

	"github.com/securticket/securticket/internal/core/domain"
)

// CancelResult reports the outcome of a cancellation.
type CancelResult struct {
	Booking        domain.Booking
	SeatsReleased  int
	AvailableSeats int
	// Clamped is set when the release hit the total_seats cap.
	Clamped bool
}

// BookingRepository persists bookings.
//
// CreateWithReservation and CancelWithRelease couple the booking row change
// with the matching seat-counter change in one transaction, so a crash between
// the two cannot leave seats decremented without a booking (or vice versa).
type BookingRepository interface {
	// CreateWithReservation reserves booking.SeatsBooked on the event and
	// inserts the booking row as one atomic unit. It fails with
	// repository.ErrInsufficientSeats when capacity is short and
	// repository.ErrDuplicate on a booking reference collision; in both cases
	// nothing is persisted. Returns the post-reservation availability.
	CreateWithReservation(ctx context.Context, booking domain.Booking) (int, error)

	// CancelWithRelease flips the booking to cancelled (only when not already
	// cancelled) and releases its seats back to the event as one atomic unit.
	// Fails with repository.ErrAlreadyCancelled when the status flip matches
	// no row.
	CancelWithRelease(ctx context.Context, id string) (CancelResult, error)

	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Booking, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.Booking, error)
	List(ctx context.Context) ([]domain.Booking, error)

	SetPaymentIntent(ctx context.Context, id string, intentID string) error

	// ConfirmByPaymentIntent marks the booking carrying the intent as
	// confirmed and returns it. No seat-counter interaction: seats were
	// reserved at creation.
	ConfirmByPaymentIntent(ctx context.Context, intentID string) (*domain.Booking, error)
}

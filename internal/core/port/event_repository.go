package port

import (
	"context"
	"time"

	"github.com/securticket/securticket/internal/core/domain"
)

// EventFilter narrows catalog listings.
type EventFilter struct {
	Category *domain.EventCategory
	After    *time.Time
}

// ReleaseResult reports the seat counter state after a release.
type ReleaseResult struct {
	AvailableSeats int
	// Clamped is set when the increment would have exceeded total_seats and
	// was capped; it indicates a caller bug upstream.
	Clamped bool
}

// EventRepository persists catalog events and owns the seat counters.
//
// ReserveSeats must be a single conditional update ("decrement where
// available_seats >= count") so two concurrent reservations can never both
// succeed past capacity.
type EventRepository interface {
	Create(ctx context.Context, event domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	Update(ctx context.Context, event domain.Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter EventFilter) ([]domain.Event, error)

	// ReserveSeats atomically decrements available_seats by count, failing
	// with repository.ErrInsufficientSeats when capacity is short. Returns the
	// post-decrement availability.
	ReserveSeats(ctx context.Context, id string, count int) (int, error)

	// ReleaseSeats atomically increments available_seats by count, clamped so
	// it never exceeds total_seats.
	ReleaseSeats(ctx context.Context, id string, count int) (ReleaseResult, error)

	// Resize sets a new total capacity while preserving the sold seat count:
	// available = newTotal - (oldTotal - oldAvailable). The returned value may
	// be negative when capacity shrinks below the sold count.
	Resize(ctx context.Context, id string, newTotal int) (int, error)
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/core/port"
	"github.com/securticket/securticket/internal/repository"
)

const (
	cancelBookingSQL = `
UPDATE securticket.bookings
SET status = 'cancelled', updated_at = $2
WHERE id = $1 AND status <> 'cancelled'
RETURNING id, account_id, event_id, seats_booked, total_price_minor, currency, status, reference, payment_intent_id, created_at, updated_at`

	confirmByIntentSQL = `
UPDATE securticket.bookings
SET status = 'confirmed', updated_at = $2
WHERE payment_intent_id = $1 AND status = 'pending'
RETURNING id, account_id, event_id, seats_booked, total_price_minor, currency, status, reference, payment_intent_id, created_at, updated_at`
)

// BookingRepository implements port.BookingRepository using PostgreSQL.
// Lifecycle operations that touch the seat ledger run in a transaction on the
// pool; the repository therefore requires Begin and cannot run inside a
// caller-supplied transaction.
type BookingRepository struct {
	pool    pgPool
	events  *EventRepository
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewBookingRepository wires a PostgreSQL-backed booking repository.
func NewBookingRepository(pool pgPool) *BookingRepository {
	return &BookingRepository{
		pool:    pool,
		events:  NewEventRepository(pool),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     time.Now,
	}
}

// CreateWithReservation reserves seats and inserts the booking row in one
// transaction. On any failure the reservation rolls back with the insert.
func (r *BookingRepository) CreateWithReservation(ctx context.Context, booking domain.Booking) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin create booking tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	available, err := r.events.WithTx(tx).ReserveSeats(ctx, booking.EventID, booking.SeatsBooked)
	if err != nil {
		return 0, err
	}

	stmt, args, err := r.builder.Insert("securticket.bookings").
		Columns(
			"id",
			"account_id",
			"event_id",
			"seats_booked",
			"total_price_minor",
			"currency",
			"status",
			"reference",
			"payment_intent_id",
			"created_at",
			"updated_at",
		).
		Values(
			booking.ID,
			booking.AccountID,
			booking.EventID,
			booking.SeatsBooked,
			booking.TotalPriceMinor,
			booking.Currency,
			booking.Status,
			booking.Reference,
			booking.PaymentIntentID,
			booking.CreatedAt,
			booking.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert booking sql: %w", err)
	}

	if _, err := tx.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrDuplicate
		}
		return 0, fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit create booking tx: %w", err)
	}

	return available, nil
}

// CancelWithRelease flips the booking to cancelled and returns its seats to
// the event in one transaction. Cancelled is terminal: the conditional flip
// matching no row on an existing booking means it was already cancelled.
func (r *BookingRepository) CancelWithRelease(ctx context.Context, id string) (port.CancelResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return port.CancelResult{}, fmt.Errorf("begin cancel booking tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, cancelBookingSQL, id, r.now().UTC())
	booking, err := scanBooking(row)
	if err != nil {
		if err == repository.ErrNotFound {
			return port.CancelResult{}, r.classifyCancelMiss(ctx, id)
		}
		return port.CancelResult{}, err
	}

	released, err := r.events.WithTx(tx).ReleaseSeats(ctx, booking.EventID, booking.SeatsBooked)
	if err != nil {
		return port.CancelResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return port.CancelResult{}, fmt.Errorf("commit cancel booking tx: %w", err)
	}

	return port.CancelResult{
		Booking:        *booking,
		SeatsReleased:  booking.SeatsBooked,
		AvailableSeats: released.AvailableSeats,
		Clamped:        released.Clamped,
	}, nil
}

// GetByID retrieves a booking by identifier.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	stmt, args, err := r.builder.
		Select(bookingColumnList()...).
		From("securticket.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select booking sql: %w", err)
	}

	return scanBooking(r.pool.QueryRow(ctx, stmt, args...))
}

// GetByPaymentIntent retrieves the booking carrying the payment intent.
func (r *BookingRepository) GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Booking, error) {
	stmt, args, err := r.builder.
		Select(bookingColumnList()...).
		From("securticket.bookings").
		Where(squirrel.Eq{"payment_intent_id": intentID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select booking by intent sql: %w", err)
	}

	return scanBooking(r.pool.QueryRow(ctx, stmt, args...))
}

// ListByAccount returns an account's bookings, newest first.
func (r *BookingRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Booking, error) {
	return r.list(ctx, squirrel.Eq{"account_id": accountID})
}

// List returns all bookings, newest first.
func (r *BookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	return r.list(ctx, nil)
}

// SetPaymentIntent attaches a payment intent identifier to the booking.
func (r *BookingRepository) SetPaymentIntent(ctx context.Context, id string, intentID string) error {
	stmt, args, err := r.builder.Update("securticket.bookings").
		Set("payment_intent_id", intentID).
		Set("updated_at", r.now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set payment intent sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set payment intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ConfirmByPaymentIntent flips the pending booking carrying the intent to
// confirmed. A booking that already left pending is returned unchanged so the
// caller can log the state instead of double-applying the transition.
func (r *BookingRepository) ConfirmByPaymentIntent(ctx context.Context, intentID string) (*domain.Booking, error) {
	row := r.pool.QueryRow(ctx, confirmByIntentSQL, intentID, r.now().UTC())
	booking, err := scanBooking(row)
	if err == nil {
		return booking, nil
	}
	if err != repository.ErrNotFound {
		return nil, err
	}

	return r.GetByPaymentIntent(ctx, intentID)
}

func (r *BookingRepository) list(ctx context.Context, where any) ([]domain.Booking, error) {
	query := r.builder.
		Select(bookingColumnList()...).
		From("securticket.bookings").
		OrderBy("created_at DESC")
	if where != nil {
		query = query.Where(where)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list bookings sql: %w", err)
	}

	rows, err := r.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}

// classifyCancelMiss distinguishes a missing booking from one already
// cancelled after the conditional flip matched no row.
func (r *BookingRepository) classifyCancelMiss(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return repository.ErrAlreadyCancelled
}

func bookingColumnList() []string {
	return []string{
		"id",
		"account_id",
		"event_id",
		"seats_booked",
		"total_price_minor",
		"currency",
		"status",
		"reference",
		"payment_intent_id",
		"created_at",
		"updated_at",
	}
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		booking domain.Booking
		intent  sql.NullString
	)

	if err := row.Scan(
		&booking.ID,
		&booking.AccountID,
		&booking.EventID,
		&booking.SeatsBooked,
		&booking.TotalPriceMinor,
		&booking.Currency,
		&booking.Status,
		&booking.Reference,
		&intent,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan booking: %w", err)
	}

	if intent.Valid {
		val := intent.String
		booking.PaymentIntentID = &val
	}

	return &booking, nil
}

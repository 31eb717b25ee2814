package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/core/port"
	"github.com/securticket/securticket/internal/repository"
)

// Seat counter mutations are single statements over the event row. The guard
// in the WHERE clause (reserve) and the LEAST clamp (release) keep the
// 0 <= available <= total invariant without application-level locking.
const (
	reserveSeatsSQL = `
UPDATE securticket.events
SET available_seats = available_seats - $2, updated_at = now()
WHERE id = $1 AND available_seats >= $2
RETURNING available_seats`

	releaseSeatsSQL = `
WITH current AS (
    SELECT available_seats FROM securticket.events WHERE id = $1 FOR UPDATE
)
UPDATE securticket.events e
SET available_seats = LEAST(current.available_seats + $2, e.total_seats), updated_at = now()
FROM current
WHERE e.id = $1
RETURNING e.available_seats, current.available_seats + $2 > e.total_seats`

	resizeSeatsSQL = `
UPDATE securticket.events
SET total_seats = $2,
    available_seats = $2 - (total_seats - available_seats),
    updated_at = now()
WHERE id = $1
RETURNING available_seats`
)

// EventRepository implements port.EventRepository using PostgreSQL.
type EventRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewEventRepository wires a PostgreSQL-backed event repository.
func NewEventRepository(exec pgExecutor) *EventRepository {
	repo := &EventRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *EventRepository) WithTx(tx pgx.Tx) *EventRepository {
	if tx == nil {
		return r
	}
	return &EventRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new event row.
func (r *EventRepository) Create(ctx context.Context, event domain.Event) error {
	stmt, args, err := r.builder.Insert("securticket.events").
		Columns(
			"id",
			"title",
			"description",
			"category",
			"venue",
			"starts_at",
			"total_seats",
			"available_seats",
			"price_minor",
			"currency",
			"created_by",
			"created_at",
			"updated_at",
		).
		Values(
			event.ID,
			event.Title,
			event.Description,
			event.Category,
			event.Venue,
			event.StartsAt,
			event.TotalSeats,
			event.AvailableSeats,
			event.PriceMinor,
			event.Currency,
			event.CreatedBy,
			event.CreatedAt,
			event.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert event sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

// GetByID retrieves an event by identifier.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	stmt, args, err := r.builder.
		Select(eventColumnList()...).
		From("securticket.events").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select event sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	event, err := scanEvent(row)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// Update modifies the descriptive fields of an event. Seat counters are owned
// by the ledger operations and are never written here.
func (r *EventRepository) Update(ctx context.Context, event domain.Event) error {
	stmt, args, err := r.builder.Update("securticket.events").
		Set("title", event.Title).
		Set("description", event.Description).
		Set("category", event.Category).
		Set("venue", event.Venue).
		Set("starts_at", event.StartsAt).
		Set("price_minor", event.PriceMinor).
		Set("currency", event.Currency).
		Set("updated_at", event.UpdatedAt).
		Where(squirrel.Eq{"id": event.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update event sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an event row.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("securticket.events").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete event sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// List returns catalog events matching the filter, soonest first.
func (r *EventRepository) List(ctx context.Context, filter port.EventFilter) ([]domain.Event, error) {
	query := r.builder.
		Select(eventColumnList()...).
		From("securticket.events").
		OrderBy("starts_at ASC")

	if filter.Category != nil {
		query = query.Where(squirrel.Eq{"category": *filter.Category})
	}
	if filter.After != nil {
		query = query.Where(squirrel.GtOrEq{"starts_at": *filter.After})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list events sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// ReserveSeats decrements availability, guarded so it cannot go negative.
func (r *EventRepository) ReserveSeats(ctx context.Context, id string, count int) (int, error) {
	var available int
	if err := r.exec.QueryRow(ctx, reserveSeatsSQL, id, count).Scan(&available); err != nil {
		if err == pgx.ErrNoRows {
			return 0, r.classifyReserveMiss(ctx, id)
		}
		return 0, fmt.Errorf("reserve seats: %w", err)
	}
	return available, nil
}

// ReleaseSeats increments availability, clamped at total_seats. The result
// reports whether clamping was applied.
func (r *EventRepository) ReleaseSeats(ctx context.Context, id string, count int) (port.ReleaseResult, error) {
	var result port.ReleaseResult
	if err := r.exec.QueryRow(ctx, releaseSeatsSQL, id, count).Scan(&result.AvailableSeats, &result.Clamped); err != nil {
		if err == pgx.ErrNoRows {
			return port.ReleaseResult{}, repository.ErrNotFound
		}
		return port.ReleaseResult{}, fmt.Errorf("release seats: %w", err)
	}
	return result, nil
}

// Resize changes the total capacity, preserving the sold seat count. The
// returned availability is negative when the new capacity is below sales.
func (r *EventRepository) Resize(ctx context.Context, id string, newTotal int) (int, error) {
	var available int
	if err := r.exec.QueryRow(ctx, resizeSeatsSQL, id, newTotal).Scan(&available); err != nil {
		if err == pgx.ErrNoRows {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("resize event: %w", err)
	}
	return available, nil
}

// classifyReserveMiss distinguishes a missing event from insufficient capacity
// after the conditional decrement matched no row.
func (r *EventRepository) classifyReserveMiss(ctx context.Context, id string) error {
	stmt, args, err := r.builder.
		Select("1").
		From("securticket.events").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build event existence sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if err == pgx.ErrNoRows {
			return repository.ErrNotFound
		}
		return fmt.Errorf("check event existence: %w", err)
	}
	return repository.ErrInsufficientSeats
}

func eventColumnList() []string {
	return []string{
		"id",
		"title",
		"description",
		"category",
		"venue",
		"starts_at",
		"total_seats",
		"available_seats",
		"price_minor",
		"currency",
		"created_by",
		"created_at",
		"updated_at",
	}
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var event domain.Event
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Category,
		&event.Venue,
		&event.StartsAt,
		&event.TotalSeats,
		&event.AvailableSeats,
		&event.PriceMinor,
		&event.Currency,
		&event.CreatedBy,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &event, nil
}

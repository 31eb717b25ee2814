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
)

var (
	// ErrInvalidCategory indicates the category is outside the closed set.
	ErrInvalidCategory = errors.New("invalid event category")
	// ErrInvalidCapacity indicates a non-positive seat capacity.
	ErrInvalidCapacity = errors.New("capacity must be positive")
	// ErrInvalidEventInput indicates a malformed create/update payload.
	ErrInvalidEventInput = errors.New("invalid event input")
)

// EventInput carries the fields accepted when creating or updating an event.
type EventInput struct {
	Title       string
	Description string
	Category    domain.EventCategory
	Venue       string
	StartsAt    time.Time
	TotalSeats  int
	PriceMinor  int64
	Currency    string
}

// ResizeResult reports the seat counters after a capacity change.
type ResizeResult struct {
	TotalSeats     int
	AvailableSeats int
	// Oversold is set when the new capacity is below the seats already sold,
	// leaving availability negative until bookings are cancelled.
	Oversold bool
}

// CatalogService manages the event catalog. Mutations require the
// events:manage capability.
type CatalogService struct {
	events port.EventRepository
	audit  *AuditRecorder
	logger *zap.Logger
	now    func() time.Time
}

// NewCatalogService constructs a CatalogService instance.
func NewCatalogService(events port.EventRepository, audit *AuditRecorder, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		events: events,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// CreateEvent adds an event to the catalog with full availability.
func (s *CatalogService) CreateEvent(ctx context.Context, actor domain.Account, input EventInput, meta RequestMeta) (*domain.Event, error) {
	if !actor.Role.Can(domain.CapabilityManageEvents) {
		return nil, ErrForbidden
	}
	if err := validateEventInput(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	event := domain.Event{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		Category:       input.Category,
		Venue:          strings.TrimSpace(input.Venue),
		StartsAt:       input.StartsAt,
		TotalSeats:     input.TotalSeats,
		AvailableSeats: input.TotalSeats,
		PriceMinor:     input.PriceMinor,
		Currency:       strings.ToLower(input.Currency),
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEventCreated, &actor.ID, meta, map[string]any{
		"event_id": event.ID,
		"title":    event.Title,
	})

	return &event, nil
}

// UpdateEvent modifies the descriptive fields of an event. Capacity changes go
// through ResizeEvent; seat counters are never written here.
func (s *CatalogService) UpdateEvent(ctx context.Context, actor domain.Account, id string, input EventInput, meta RequestMeta) (*domain.Event, error) {
	if !actor.Role.Can(domain.CapabilityManageEvents) {
		return nil, ErrForbidden
	}
	if err := validateEventInput(input); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	event.Title = strings.TrimSpace(input.Title)
	event.Description = input.Description
	event.Category = input.Category
	event.Venue = strings.TrimSpace(input.Venue)
	event.StartsAt = input.StartsAt
	event.PriceMinor = input.PriceMinor
	event.Currency = strings.ToLower(input.Currency)
	event.UpdatedAt = s.now().UTC()

	if err := s.events.Update(ctx, *event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEventUpdated, &actor.ID, meta, map[string]any{
		"event_id": event.ID,
	})

	return event, nil
}

// DeleteEvent removes an event from the catalog.
func (s *CatalogService) DeleteEvent(ctx context.Context, actor domain.Account, id string, meta RequestMeta) error {
	if !actor.Role.Can(domain.CapabilityManageEvents) {
		return ErrForbidden
	}

	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, domain.AuditEventDeleted, &actor.ID, meta, map[string]any{
		"event_id": id,
	})

	return nil
}

// ResizeEvent changes an event's total capacity, preserving the sold seat
// count. Shrinking below sales is permitted; the oversold state is reported
// and logged, not silently corrected.
func (s *CatalogService) ResizeEvent(ctx context.Context, actor domain.Account, id string, newTotal int, meta RequestMeta) (ResizeResult, error) {
	if !actor.Role.Can(domain.CapabilityManageEvents) {
		return ResizeResult{}, ErrForbidden
	}
	if newTotal <= 0 {
		return ResizeResult{}, ErrInvalidCapacity
	}

	available, err := s.events.Resize(ctx, id, newTotal)
	if err != nil {
		return ResizeResult{}, err
	}

	result := ResizeResult{
		TotalSeats:     newTotal,
		AvailableSeats: available,
		Oversold:       available < 0,
	}
	if result.Oversold {
		s.logger.Warn("event capacity shrunk below sold seats",
			zap.String("event_id", id),
			zap.Int("total_seats", newTotal),
			zap.Int("available_seats", available))
	}

	s.audit.Record(ctx, domain.AuditEventResized, &actor.ID, meta, map[string]any{
		"event_id":        id,
		"total_seats":     newTotal,
		"available_seats": available,
		"oversold":        result.Oversold,
	})

	return result, nil
}

// GetEvent retrieves one catalog event.
func (s *CatalogService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return s.events.GetByID(ctx, id)
}

// ListEvents returns catalog events matching the filter.
func (s *CatalogService) ListEvents(ctx context.Context, filter port.EventFilter) ([]domain.Event, error) {
	if filter.Category != nil && !filter.Category.Valid() {
		return nil, ErrInvalidCategory
	}
	return s.events.List(ctx, filter)
}

func validateEventInput(input EventInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEventInput)
	}
	if !input.Category.Valid() {
		return ErrInvalidCategory
	}
	if input.TotalSeats <= 0 {
		return ErrInvalidCapacity
	}
	if input.PriceMinor < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidEventInput)
	}
	return nil
}

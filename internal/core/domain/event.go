package domain

import "time"

// EventCategory enumerates the catalog categories.
type EventCategory string

const (
	CategoryMovie   EventCategory = "movie"
	CategoryConcert EventCategory = "concert"
	CategorySports  EventCategory = "sports"
	CategoryTheater EventCategory = "theater"
)

// Valid reports whether the category belongs to the closed enumeration.
func (c EventCategory) Valid() bool {
	switch c {
	case CategoryMovie, CategoryConcert, CategorySports, CategoryTheater:
		return true
	}
	return false
}

// Event mirrors the persisted representation in the events table.
// AvailableSeats is mutated only through the seat inventory ledger; the
// invariant 0 <= AvailableSeats <= TotalSeats holds except transiently after a
// capacity shrink below the sold count, which is reported rather than corrected.
type Event struct {
	ID             string
	Title          string
	Description    string
	Category       EventCategory
	Venue          string
	StartsAt       time.Time
	TotalSeats     int
	AvailableSeats int
	PriceMinor     int64
	Currency       string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SeatsBooked derives the sold seat count from the capacity counters.
func (e *Event) SeatsBooked() int {
	return e.TotalSeats - e.AvailableSeats
}

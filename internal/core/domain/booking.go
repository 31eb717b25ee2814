package domain

import "time"

// BookingStatus enumerates booking lifecycle states.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking mirrors the persisted representation in the bookings table.
// TotalPriceMinor is frozen at creation time (event price x seats) and never
// recomputed. Reference is the short public identifier, distinct from ID.
type Booking struct {
	ID              string
	AccountID       string
	EventID         string
	SeatsBooked     int
	TotalPriceMinor int64
	Currency        string
	Status          BookingStatus
	Reference       string
	PaymentIntentID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

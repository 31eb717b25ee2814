package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Accounts *AccountRepository
	Events   *EventRepository
	Bookings *BookingRepository
	Audit    *AuditRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Accounts: NewAccountRepository(pool),
		Events:   NewEventRepository(pool),
		Bookings: NewBookingRepository(pool),
		Audit:    NewAuditRepository(pool),
	}
}

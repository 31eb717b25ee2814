package domain

import "time"

// Role is the closed set of account roles. Authorization decisions go through
// Can rather than comparing the raw string at call sites.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Valid reports whether the role belongs to the closed enumeration.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

// Capability names an action an account may or may not perform.
type Capability string

const (
	CapabilityManageEvents     Capability = "events:manage"
	CapabilityViewAuditLog     Capability = "audit:view"
	CapabilityCancelAnyBooking Capability = "bookings:cancel_any"
	CapabilityViewAllBookings  Capability = "bookings:view_all"
)

// Can reports whether the role grants the capability.
func (r Role) Can(c Capability) bool {
	if r != RoleAdmin {
		return false
	}
	switch c {
	case CapabilityManageEvents, CapabilityViewAuditLog, CapabilityCancelAnyBooking, CapabilityViewAllBookings:
		return true
	}
	return false
}

// Account mirrors the persisted representation in the accounts table.
// FailedAttempts and LockedUntil are mutated only by the lockout policy engine.
type Account struct {
	ID                 string
	Username           string
	Email              string
	Phone              *string
	FirstName          string
	LastName           string
	PasswordHash       string
	Role               Role
	FailedAttempts     int
	LockedUntil        *time.Time
	CreatedAt          time.Time
	LastLogin          *time.Time
	LastPasswordChange time.Time
}

// LockRemaining returns how long the account stays locked relative to now.
// A lock whose deadline has passed is treated as unset.
func (a *Account) LockRemaining(now time.Time) (time.Duration, bool) {
	if a.LockedUntil == nil {
		return 0, false
	}
	remaining := a.LockedUntil.Sub(now)
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

// PasswordHistoryEntry tracks historical password hashes for reuse prevention.
// Entries are append-only; retention is enforced at query time.
type PasswordHistoryEntry struct {
	ID           string
	AccountID    string
	PasswordHash string
	SetAt        time.Time
}

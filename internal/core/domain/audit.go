package domain

import "time"

// Audit action labels for security and business events.
const (
	AuditLoginSuccess         = "login_success"
	AuditLoginFailed          = "login_failed"
	AuditLoginAttemptLocked   = "login_attempt_locked"
	AuditLoginUnknownUsername = "login_attempt_unknown_username"
	AuditAccountLocked        = "account_locked"
	AuditAccountRegistered    = "account_registered"
	AuditPasswordChanged      = "password_changed"
	AuditEventCreated         = "event_created"
	AuditEventUpdated         = "event_updated"
	AuditEventDeleted         = "event_deleted"
	AuditEventResized         = "event_resized"
	AuditBookingCreated       = "booking_created"
	AuditBookingCancelled     = "booking_cancelled"
	AuditPaymentIntentCreated = "payment_intent_created"
	AuditPaymentSucceeded     = "payment_succeeded"
	AuditPaymentFailed        = "payment_failed"
)

// AuditEntry is an append-only, immutable record of a security-relevant action.
// AccountID is nil when the actor is unknown (e.g. login with an unknown
// username) or when the entry originates from a provider webhook.
type AuditEntry struct {
	ID        string
	AccountID *string
	Action    string
	SourceIP  string
	UserAgent string
	Metadata  map[string]any
	CreatedAt time.Time
}

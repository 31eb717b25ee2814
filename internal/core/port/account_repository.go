package port

import (
	"context"
	"time"

	"github.com/securticket/securticket/internal/core/domain"
)

// FailedAttemptResult reports the account row after an atomic failure increment.
type FailedAttemptResult struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// AccountRepository persists accounts and their password history.
//
// RecordLoginFailure and RecordLoginSuccess must be single conditional
// read-modify-write statements against the account row so concurrent login
// attempts cannot interleave between read and write.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)

	// RecordLoginSuccess resets failed attempts, clears any lock, and stamps
	// the last login in one statement.
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error

	// RecordLoginFailure increments failed_attempts and, when the new count
	// reaches threshold, sets locked_until to lockUntil — all in one statement.
	// It returns the resulting counter state.
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (FailedAttemptResult, error)

	// ClearLock resets an expired lock (lazy expiry) before a fresh attempt.
	ClearLock(ctx context.Context, id string) error

	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error
	AddPasswordHistory(ctx context.Context, entry domain.PasswordHistoryEntry) error
	// ListPasswordHistory returns up to limit most recent entries, newest first.
	ListPasswordHistory(ctx context.Context, accountID string, limit int) ([]domain.PasswordHistoryEntry, error)
}

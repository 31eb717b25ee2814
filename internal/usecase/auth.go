package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/core/port"
	"github.com/securticket/securticket/internal/infra/config"
	"github.com/securticket/securticket/internal/infra/security"
	"github.com/securticket/securticket/internal/repository"
)

// ErrInvalidCredentials indicates the username or password is incorrect. The
// same error covers unknown usernames so responses never reveal whether an
// account exists.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AccountLockedError indicates the account is locked out after repeated
// failures. Remaining is how long the lock still holds.
type AccountLockedError struct {
	Remaining time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %s", e.Remaining.Round(time.Second))
}

// LoginResult carries the issued token and the authenticated account.
type LoginResult struct {
	Token    string
	TokenTTL time.Duration
	Account  domain.Account
}

// AuthService coordinates login and the lockout policy.
type AuthService struct {
	cfg      config.SecuritySettings
	accounts port.AccountRepository
	tokens   *security.TokenManager
	audit    *AuditRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg config.SecuritySettings,
	accounts port.AccountRepository,
	tokens *security.TokenManager,
	audit *AuditRecorder,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		cfg:      cfg,
		accounts: accounts,
		tokens:   tokens,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login validates credentials against the lockout state machine and issues an
// access token on success.
//
// Order matters: the lock gate runs before password verification, so a locked
// account rejects even the correct password, and a failed attempt against a
// locked account does not advance the counter.
func (s *AuthService) Login(ctx context.Context, username, password string, meta RequestMeta) (LoginResult, error) {
	if username == "" {
		return LoginResult{}, fmt.Errorf("username is required")
	}
	if password == "" {
		return LoginResult{}, fmt.Errorf("password is required")
	}

	now := s.now().UTC()

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.audit.Record(ctx, domain.AuditLoginUnknownUsername, nil, meta, map[string]any{
				"username": username,
			})
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("lookup account: %w", err)
	}

	if remaining, locked := account.LockRemaining(now); locked {
		s.audit.Record(ctx, domain.AuditLoginAttemptLocked, &account.ID, meta, map[string]any{
			"remaining_seconds": int(remaining.Seconds()),
		})
		return LoginResult{}, &AccountLockedError{Remaining: remaining}
	}

	// Lazy expiry: a lock whose deadline passed is cleared on the next
	// attempt rather than by a background job.
	if account.LockedUntil != nil {
		if err := s.accounts.ClearLock(ctx, account.ID); err != nil {
			return LoginResult{}, fmt.Errorf("clear expired lock: %w", err)
		}
		account.FailedAttempts = 0
		account.LockedUntil = nil
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return LoginResult{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return LoginResult{}, s.handleFailedAttempt(ctx, account, now, meta)
	}

	if err := s.accounts.RecordLoginSuccess(ctx, account.ID, now); err != nil {
		return LoginResult{}, fmt.Errorf("record login success: %w", err)
	}
	account.FailedAttempts = 0
	account.LockedUntil = nil
	account.LastLogin = &now

	token, err := s.tokens.Issue(*account)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	s.audit.Record(ctx, domain.AuditLoginSuccess, &account.ID, meta, nil)

	return LoginResult{
		Token:    token,
		TokenTTL: s.tokens.TTL(),
		Account:  *account,
	}, nil
}

func (s *AuthService) handleFailedAttempt(ctx context.Context, account *domain.Account, now time.Time, meta RequestMeta) error {
	result, err := s.accounts.RecordLoginFailure(ctx, account.ID, s.cfg.LockThreshold, now.Add(s.cfg.LockDuration))
	if err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}

	if result.LockedUntil != nil {
		s.logger.Warn("account locked after repeated failures",
			zap.String("account_id", account.ID),
			zap.Int("failed_attempts", result.FailedAttempts),
			zap.Time("locked_until", *result.LockedUntil))
		s.audit.Record(ctx, domain.AuditAccountLocked, &account.ID, meta, map[string]any{
			"failed_attempts": result.FailedAttempts,
			"locked_until":    result.LockedUntil.UTC().Format(time.RFC3339),
		})
		return &AccountLockedError{Remaining: result.LockedUntil.Sub(now)}
	}

	s.audit.Record(ctx, domain.AuditLoginFailed, &account.ID, meta, map[string]any{
		"failed_attempts": result.FailedAttempts,
	})

	return ErrInvalidCredentials
}

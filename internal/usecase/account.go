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
	"github.com/securticket/securticket/internal/infra/config"
	"github.com/securticket/securticket/internal/infra/security"
	"github.com/securticket/securticket/internal/repository"
)

var (
	// ErrUsernameTaken indicates the username or email is already registered.
	ErrUsernameTaken = errors.New("username or email already taken")
	// ErrWrongOldPassword indicates the supplied current password is incorrect.
	ErrWrongOldPassword = errors.New("old password is incorrect")
	// ErrPasswordReused indicates the new password matches one of the recently
	// used passwords.
	ErrPasswordReused = errors.New("password was used recently")
)

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Username  string
	Email     string
	Phone     string
	FirstName string
	LastName  string
	Password  string
}

// AccountService manages registration and password lifecycle.
type AccountService struct {
	cfg       config.SecuritySettings
	accounts  port.AccountRepository
	validator *security.PasswordValidator
	audit     *AuditRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewAccountService constructs an AccountService instance.
func NewAccountService(
	cfg config.SecuritySettings,
	accounts port.AccountRepository,
	validator *security.PasswordValidator,
	audit *AuditRecorder,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		cfg:       cfg,
		accounts:  accounts,
		validator: validator,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates a customer account with a hashed password.
func (s *AccountService) Register(ctx context.Context, input RegisterInput, meta RequestMeta) (*domain.Account, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	if err := s.validator.Validate(input.Password); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:                 uuid.NewString(),
		Username:           username,
		Email:              email,
		FirstName:          strings.TrimSpace(input.FirstName),
		LastName:           strings.TrimSpace(input.LastName),
		PasswordHash:       hash,
		Role:               domain.RoleCustomer,
		CreatedAt:          now,
		LastPasswordChange: now,
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		account.Phone = &phone
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.audit.Record(ctx, domain.AuditAccountRegistered, &account.ID, meta, map[string]any{
		"username": account.Username,
	})

	account.PasswordHash = ""
	return &account, nil
}

// ChangePassword verifies the old password and replaces it, rejecting reuse of
// the current password or any of the retained history entries.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string, meta RequestMeta) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}

	ok, err := security.VerifyPassword(oldPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify old password: %w", err)
	}
	if !ok {
		return ErrWrongOldPassword
	}

	if err := s.validator.Validate(newPassword); err != nil {
		return err
	}

	reused, err := s.isReused(ctx, account, newPassword)
	if err != nil {
		return err
	}
	if reused {
		return ErrPasswordReused
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()

	// The outgoing hash joins history before the swap so the reuse window
	// always covers the password being retired.
	if err := s.accounts.AddPasswordHistory(ctx, domain.PasswordHistoryEntry{
		ID:           uuid.NewString(),
		AccountID:    account.ID,
		PasswordHash: account.PasswordHash,
		SetAt:        now,
	}); err != nil {
		return fmt.Errorf("append password history: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, hash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.audit.Record(ctx, domain.AuditPasswordChanged, &account.ID, meta, nil)

	return nil
}

// isReused hash-compares the candidate against the current password and the
// retained history. The live hash counts toward the window, so only the
// depth-1 most recently retired hashes are consulted: with depth 5 the fifth
// change ages the oldest password out and it becomes acceptable again.
// Comparison goes through the password hasher: history stores hashes, never
// plaintext.
func (s *AccountService) isReused(ctx context.Context, account *domain.Account, candidate string) (bool, error) {
	match, err := security.VerifyPassword(candidate, account.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("compare against current password: %w", err)
	}
	if match {
		return true, nil
	}

	retired := s.cfg.PasswordHistoryDepth - 1
	if retired <= 0 {
		return false, nil
	}

	history, err := s.accounts.ListPasswordHistory(ctx, account.ID, retired)
	if err != nil {
		return false, fmt.Errorf("list password history: %w", err)
	}
	for _, entry := range history {
		match, err := security.VerifyPassword(candidate, entry.PasswordHash)
		if err != nil {
			return false, fmt.Errorf("compare against password history: %w", err)
		}
		if match {
			return true, nil
		}
	}

	return false, nil
}

// PasswordStrength scores a candidate password for interactive feedback.
func (s *AccountService) PasswordStrength(password string, userInputs ...string) security.StrengthReport {
	return security.AssessStrength(password, userInputs...)
}

// GetProfile returns the account without its password hash.
func (s *AccountService) GetProfile(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sanitized := *account
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

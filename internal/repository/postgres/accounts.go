package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/core/port"
	"github.com/securticket/securticket/internal/repository"
)

// Single-statement increment: the lock decision rides on the same row version
// as the counter bump, so two concurrent failures can never both observe
// attempts below the threshold and skip the lock.
const recordLoginFailureSQL = `
UPDATE securticket.accounts
SET failed_attempts = failed_attempts + 1,
    locked_until = CASE WHEN failed_attempts + 1 >= $2 THEN $3 ELSE locked_until END
WHERE id = $1
RETURNING failed_attempts, locked_until`

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	var phoneValue any
	if account.Phone != nil && *account.Phone != "" {
		phoneValue = *account.Phone
	}

	stmt, args, err := r.builder.Insert("securticket.accounts").
		Columns(
			"id",
			"username",
			"email",
			"phone",
			"first_name",
			"last_name",
			"password_hash",
			"role",
			"failed_attempts",
			"locked_until",
			"created_at",
			"last_login",
			"last_password_change",
		).
		Values(
			account.ID,
			account.Username,
			account.Email,
			phoneValue,
			account.FirstName,
			account.LastName,
			account.PasswordHash,
			account.Role,
			account.FailedAttempts,
			account.LockedUntil,
			account.CreatedAt,
			account.LastLogin,
			account.LastPasswordChange,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumnList()...).
		From("securticket.accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByUsername retrieves an account by its unique username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumnList()...).
		From("securticket.accounts").
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by username sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// RecordLoginSuccess resets the failure counter, clears any lock, and stamps
// the login time in one statement.
func (r *AccountRepository) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("securticket.accounts").
		Set("failed_attempts", 0).
		Set("locked_until", nil).
		Set("last_login", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record login success sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("record login success: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RecordLoginFailure increments the failure counter and, when the threshold is
// reached, sets the lock deadline atomically. The returned state reflects the
// row after the update.
func (r *AccountRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (port.FailedAttemptResult, error) {
	var (
		result      port.FailedAttemptResult
		lockedUntil *time.Time
	)

	row := r.exec.QueryRow(ctx, recordLoginFailureSQL, id, threshold, lockUntil)
	if err := row.Scan(&result.FailedAttempts, &lockedUntil); err != nil {
		if err == pgx.ErrNoRows {
			return port.FailedAttemptResult{}, repository.ErrNotFound
		}
		return port.FailedAttemptResult{}, fmt.Errorf("record login failure: %w", err)
	}

	result.LockedUntil = lockedUntil
	return result, nil
}

// ClearLock zeroes the failure counter and removes the lock deadline.
func (r *AccountRepository) ClearLock(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("securticket.accounts").
		Set("failed_attempts", 0).
		Set("locked_until", nil).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear lock sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("clear lock: %w", err)
	}

	return nil
}

// UpdatePassword replaces the stored hash and stamps the change time.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update("securticket.accounts").
		Set("password_hash", passwordHash).
		Set("last_password_change", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// AddPasswordHistory appends a retired hash to the account's history.
func (r *AccountRepository) AddPasswordHistory(ctx context.Context, entry domain.PasswordHistoryEntry) error {
	stmt, args, err := r.builder.Insert("securticket.password_history").
		Columns("id", "account_id", "password_hash", "created_at").
		Values(entry.ID, entry.AccountID, entry.PasswordHash, entry.SetAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert password history sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert password history: %w", err)
	}

	return nil
}

// ListPasswordHistory returns the most recent retired hashes, newest first.
func (r *AccountRepository) ListPasswordHistory(ctx context.Context, accountID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	stmt, args, err := r.builder.
		Select("id", "account_id", "password_hash", "created_at").
		From("securticket.password_history").
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select password history sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select password history: %w", err)
	}
	defer rows.Close()

	var entries []domain.PasswordHistoryEntry
	for rows.Next() {
		var entry domain.PasswordHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.PasswordHash, &entry.SetAt); err != nil {
			return nil, fmt.Errorf("scan password history: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate password history: %w", err)
	}

	return entries, nil
}

func accountColumnList() []string {
	return []string{
		"id",
		"username",
		"email",
		"phone",
		"first_name",
		"last_name",
		"password_hash",
		"role",
		"failed_attempts",
		"locked_until",
		"created_at",
		"last_login",
		"last_password_change",
	}
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account     domain.Account
		phone       sql.NullString
		lockedUntil *time.Time
		lastLogin   *time.Time
	)

	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&phone,
		&account.FirstName,
		&account.LastName,
		&account.PasswordHash,
		&account.Role,
		&account.FailedAttempts,
		&lockedUntil,
		&account.CreatedAt,
		&lastLogin,
		&account.LastPasswordChange,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	if phone.Valid {
		val := phone.String
		account.Phone = &val
	}
	account.LockedUntil = lockedUntil
	account.LastLogin = lastLogin

	return &account, nil
}

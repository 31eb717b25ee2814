package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/core/port"
	"github.com/securticket/securticket/internal/repository"
)

// AuditRepository implements port.AuditRepository using PostgreSQL. The table
// is append-only; there are no update or delete paths.
type AuditRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository wires a PostgreSQL-backed audit repository.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	repo := &AuditRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Record appends an audit entry.
func (r *AuditRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	var metadata []byte
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		metadata = encoded
	}

	var accountValue any
	if entry.AccountID != nil && *entry.AccountID != "" {
		accountValue = *entry.AccountID
	}

	stmt, args, err := r.builder.Insert("securticket.audit_log").
		Columns("id", "account_id", "action", "source_ip", "user_agent", "metadata", "created_at").
		Values(entry.ID, accountValue, entry.Action, entry.SourceIP, entry.UserAgent, metadata, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// List returns audit entries matching the filter, newest first.
func (r *AuditRepository) List(ctx context.Context, filter port.AuditFilter) ([]domain.AuditEntry, error) {
	query := r.builder.
		Select("id", "account_id", "action", "source_ip", "user_agent", "metadata", "created_at").
		From("securticket.audit_log").
		OrderBy("created_at DESC")

	if filter.AccountID != nil {
		query = query.Where(squirrel.Eq{"account_id": *filter.AccountID})
	}
	if filter.Action != nil {
		query = query.Where(squirrel.Eq{"action": *filter.Action})
	}
	if filter.Since != nil {
		query = query.Where(squirrel.GtOrEq{"created_at": *filter.Since})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list audit entries sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}

func scanAuditEntry(row pgx.Row) (*domain.AuditEntry, error) {
	var (
		entry    domain.AuditEntry
		account  sql.NullString
		metadata []byte
	)

	if err := row.Scan(
		&entry.ID,
		&account,
		&entry.Action,
		&entry.SourceIP,
		&entry.UserAgent,
		&metadata,
		&entry.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}

	if account.Valid {
		val := account.String
		entry.AccountID = &val
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("decode audit metadata: %w", err)
		}
	}

	return &entry, nil
}

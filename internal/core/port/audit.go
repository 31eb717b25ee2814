package port

import (
	"context"
	"time"

	"github.com/securticket/securticket/internal/core/domain"
)

// AuditSink appends security and business events. Implementations are
// append-only; entries are never updated or deleted.
type AuditSink interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}

// AuditFilter narrows audit log queries.
type AuditFilter struct {
	AccountID *string
	Action    *string
	Since     *time.Time
	Limit     int
}

// AuditRepository is a durable audit sink that also supports querying.
type AuditRepository interface {
	AuditSink
	List(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error)
}

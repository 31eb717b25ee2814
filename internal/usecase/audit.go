package usecase

import (
	"context"
	"errors"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/core/port"
)

// ErrForbidden indicates the actor lacks the capability for the operation.
var ErrForbidden = errors.New("forbidden")

// RequestMeta carries the client attribution recorded with audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// AuditRecorder fans audit entries out to the durable store and the stream
// mirror. Both writes are best-effort: a failing audit backend must never roll
// back or fail the primary operation, so errors are logged and absorbed.
type AuditRecorder struct {
	store  port.AuditSink
	stream port.AuditSink
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditRecorder constructs an AuditRecorder. The stream sink is optional.
func NewAuditRecorder(store port.AuditSink, stream port.AuditSink, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{
		store:  store,
		stream: stream,
		logger: logger,
		now:    time.Now,
	}
}

// Record appends an audit entry for the given action. accountID may be nil
// when the actor is unknown.
func (r *AuditRecorder) Record(ctx context.Context, action string, accountID *string, meta RequestMeta, metadata map[string]any) {
	entry := domain.AuditEntry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Action:    action,
		SourceIP:  meta.IP,
		UserAgent: meta.UserAgent,
		Metadata:  metadata,
		CreatedAt: r.now().UTC(),
	}

	if r.store != nil {
		if err := r.store.Record(ctx, entry); err != nil {
			r.logger.Warn("audit store write failed",
				zap.String("action", action),
				zap.Error(err))
		}
	}
	if r.stream != nil {
		if err := r.stream.Record(ctx, entry); err != nil {
			r.logger.Warn("audit stream write failed",
				zap.String("action", action),
				zap.Error(err))
		}
	}
}

// AuditService exposes the audit trail to operators.
type AuditService struct {
	audit port.AuditRepository
}

// NewAuditService constructs an AuditService instance.
func NewAuditService(audit port.AuditRepository) *AuditService {
	return &AuditService{audit: audit}
}

// List returns audit entries matching the filter. Requires the audit:view
// capability.
func (s *AuditService) List(ctx context.Context, actor domain.Account, filter port.AuditFilter) ([]domain.AuditEntry, error) {
	if !actor.Role.Can(domain.CapabilityViewAuditLog) {
		return nil, ErrForbidden
	}
	return s.audit.List(ctx, filter)
}

package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/core/port"
)

// StubPublisher logs audit entries instead of streaming them to Kafka. Used in
// development environments where no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly audit stream.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// Record implements port.AuditSink by logging the entry.
func (p *StubPublisher) Record(_ context.Context, entry domain.AuditEntry) error {
	ts := entry.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	accountID := ""
	if entry.AccountID != nil {
		accountID = *entry.AccountID
	}

	p.logger.Info("stub audit entry published",
		zap.String("action", entry.Action),
		zap.String("account_id", accountID),
		zap.Time("timestamp", ts.UTC()),
		zap.Any("metadata", entry.Metadata),
	)
	return nil
}

var _ port.AuditSink = (*StubPublisher)(nil)

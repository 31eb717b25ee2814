package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/securticket/securticket/internal/core/domain"
	"github.com/securticket/securticket/internal/core/port"
	"github.com/securticket/securticket/internal/infra/config"
)

const (
	auditTopic    = "audit.activity"
	schemaVersion = "1.0"
)

// AuditPublisher streams audit entries to Kafka. It mirrors the durable
// Postgres sink; loss of a streamed entry is tolerated.
type AuditPublisher struct {
	producer *Producer
	appCfg   config.AppSettings
	logger   *zap.Logger
}

// NewAuditPublisher constructs a Kafka-backed audit stream.
func NewAuditPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *AuditPublisher {
	return &AuditPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type auditEnvelope struct {
	EventID   string            `json:"event_id"`
	Action    string            `json:"action"`
	AccountID *string           `json:"account_id,omitempty"`
	SourceIP  string            `json:"source_ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
	Origin    map[string]string `json:"origin"`
}

// Record implements port.AuditSink by publishing the entry asynchronously.
func (p *AuditPublisher) Record(_ context.Context, entry domain.AuditEntry) error {
	ts := entry.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}

	envelope := auditEnvelope{
		EventID:   id,
		Action:    entry.Action,
		AccountID: entry.AccountID,
		SourceIP:  entry.SourceIP,
		UserAgent: entry.UserAgent,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Metadata:  entry.Metadata,
		Origin: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal audit envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(auditTopic),
		Key:   sarama.StringEncoder(envelope.Action),
		Value: sarama.ByteEncoder(payload),
	}

	select {
	case p.producer.Input() <- message:
	default:
		p.logger.Warn("kafka input buffer full, dropping audit entry",
			zap.String("action", entry.Action),
		)
	}

	return nil
}

var _ port.AuditSink = (*AuditPublisher)(nil)

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/logger"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events keyed by action, so one action's events stay ordered.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) *KafkaPublisher {
	l := logger.Or(log).With("component", "audit-kafka")
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			l.Error(fmt.Sprintf(msg, args...))
		}),
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e models.AuditEvent) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Key: []byte(e.Action), Value: b, Time: e.At}); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// LogPublisher is used when no brokers are configured.
type LogPublisher struct {
	Log *slog.Logger
}

func (p LogPublisher) Publish(_ context.Context, e models.AuditEvent) error {
	logger.Or(p.Log).Info("audit",
		"event_id", e.ID,
		"action", e.Action,
		"result", e.Result,
		"principal", e.Principal,
		"reference", e.Reference,
		"message", e.Message,
		"at", e.At,
	)
	return nil
}

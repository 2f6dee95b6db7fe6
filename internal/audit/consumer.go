package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/logger"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	"github.com/segmentio/kafka-go"
)

// Sink is where consumed audit events end up.
type Sink interface {
	Save(ctx context.Context, e models.AuditEvent) error
}

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

func NewKafkaReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
}

type Consumer struct {
	r          MessageReader
	sink       Sink
	log        *slog.Logger
	maxBackoff time.Duration
}

func NewConsumer(r MessageReader, sink Sink, log *slog.Logger) *Consumer {
	return &Consumer{r: r, sink: sink, log: logger.Or(log).With("component", "audit-consumer"), maxBackoff: 30 * time.Second}
}

// Run consumes until ctx is cancelled. A message is committed only after the sink accepted it;
// undecodable messages are logged and committed so they do not block the partition.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var ev models.AuditEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.log.Error("undecodable audit message", "err", err, "partition", m.Partition, "offset", m.Offset)
		} else if err := c.save(ctx, ev); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := c.r.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// save retries with capped exponential backoff until the sink accepts or ctx ends.
func (c *Consumer) save(ctx context.Context, ev models.AuditEvent) error {
	backoff := 100 * time.Millisecond
	for {
		err := c.sink.Save(ctx, ev)
		if err == nil {
			c.log.Debug("audit stored", "event_id", ev.ID, "action", ev.Action, "result", ev.Result)
			return nil
		}
		c.log.Error("audit sink failed", "err", err, "event_id", ev.ID, "retry_in", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

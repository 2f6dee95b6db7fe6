package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/baharkarakas/wallet-transfer/internal/logger"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Handler interface {
	Handle(ctx context.Context, ev models.NotificationEvent) error
}

type Consumer struct {
	ch       *amqp.Channel
	exchange string
	queue    string
	h        Handler
	log      *slog.Logger
}

// NewConsumer declares the exchange and a durable queue bound to notification.#.
func NewConsumer(conn *amqp.Connection, exchange, queue string, h Handler, log *slog.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("qos: %w", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		_ = ch.Close()
		return nil, err
	}
	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(q.Name, "notification.#", exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("bind queue %s: %w", queue, err)
	}
	return &Consumer{
		ch:       ch,
		exchange: exchange,
		queue:    q.Name,
		h:        h,
		log:      logger.Or(log).With("component", "notification-consumer", "queue", q.Name),
	}, nil
}

// Run consumes with manual acks until ctx ends or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume(
		c.queue,
		"wallet-notifications", // consumer tag
		false,                  // auto-ack
		false,                  // exclusive
		false,                  // no-local
		false,                  // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	closed := c.ch.NotifyClose(make(chan *amqp.Error, 1))

	c.log.Info("notification consumer started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-closed:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var ev models.NotificationEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		c.log.Error("undecodable notification", "err", err)
		if err := d.Nack(false, false); err != nil {
			c.log.Error("nack failed", "err", err)
		}
		return
	}

	err := c.h.Handle(ctx, ev)
	switch {
	case err == nil:
		if err := d.Ack(false); err != nil {
			c.log.Error("ack failed", "err", err, "event_id", ev.EventID)
		}
	case errors.Is(err, ErrPermanent):
		c.log.Error("notification dropped", "err", err, "event_id", ev.EventID)
		if err := d.Nack(false, false); err != nil {
			c.log.Error("nack failed", "err", err, "event_id", ev.EventID)
		}
	default:
		c.log.Warn("notification will be redelivered", "err", err, "event_id", ev.EventID)
		if err := d.Nack(false, true); err != nil {
			c.log.Error("nack failed", "err", err, "event_id", ev.EventID)
		}
	}
}

func (c *Consumer) Close() error { return c.ch.Close() }

package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/logger"
	"github.com/baharkarakas/wallet-transfer/internal/metrics"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	"github.com/oklog/ulid/v2"
)

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, ev models.NotificationEvent) error
}

type Submitter interface {
	TrySubmit(f func()) bool
}

// Notifier emits domain events after the fact. Delivery is fire-and-forget.
type Notifier struct {
	pub  EventPublisher
	pool Submitter
	log  *slog.Logger
	now  func() time.Time
}

func NewNotifier(pub EventPublisher, pool Submitter, log *slog.Logger) *Notifier {
	return &Notifier{pub: pub, pool: pool, log: logger.Or(log).With("component", "notifier"), now: time.Now}
}

// TransferCompleted tells the destination wallet's owner that money arrived.
func (n *Notifier) TransferCompleted(t models.Transfer, receiverID, currency string) {
	ev := models.NotificationEvent{
		EventID:    ulid.Make().String(),
		Type:       models.NotificationTransferCompleted,
		ReceiverID: receiverID,
		Data: map[string]any{
			"transferId":   t.ID,
			"amount":       t.Amount.StringFixed(models.AmountScale),
			"currency":     currency,
			"fromWalletId": t.SourceWalletID,
			"toWalletId":   t.DestWalletID,
		},
		OccurredAt: n.now().UTC(),
	}
	ok := n.pool.TrySubmit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.pub.Publish(ctx, RoutingTransferCompleted, ev); err != nil {
			metrics.Notifications.WithLabelValues("publish_failed").Inc()
			n.log.Error("notification publish failed", "err", err, "event_id", ev.EventID, "transfer_id", t.ID)
			return
		}
		metrics.Notifications.WithLabelValues("published").Inc()
	})
	if !ok {
		metrics.Notifications.WithLabelValues("publish_failed").Inc()
		n.log.Warn("notification dropped, worker queue unavailable", "event_id", ev.EventID, "transfer_id", t.ID)
	}
}

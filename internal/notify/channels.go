package notify

import (
	"context"
	"log/slog"

	"github.com/baharkarakas/wallet-transfer/internal/logger"
	"github.com/baharkarakas/wallet-transfer/internal/models"
)

const ChannelPush = "PUSH"

type Channel interface {
	Name() string
	Send(ctx context.Context, receiverID, title, body string, ev models.NotificationEvent) error
}

// PushChannel stands in for the push gateway and logs what would be sent.
type PushChannel struct {
	Log *slog.Logger
}

func (PushChannel) Name() string { return ChannelPush }

func (c PushChannel) Send(_ context.Context, receiverID, title, body string, ev models.NotificationEvent) error {
	logger.Or(c.Log).Info("push", "to", receiverID, "title", title, "body", body, "event_id", ev.EventID, "type", ev.Type)
	return nil
}

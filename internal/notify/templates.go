package notify

import (
	"fmt"

	"github.com/baharkarakas/wallet-transfer/internal/models"
)

type Template interface {
	Supports(eventType string) bool
	Title(ev models.NotificationEvent) string
	Body(ev models.NotificationEvent) string
	Channel() string
}

type TransferCompletedTemplate struct{}

func (TransferCompletedTemplate) Supports(t string) bool {
	return t == models.NotificationTransferCompleted
}

func (TransferCompletedTemplate) Title(models.NotificationEvent) string { return "Money received" }

func (TransferCompletedTemplate) Body(ev models.NotificationEvent) string {
	currency := models.DefaultCurrency
	if c, ok := ev.Data["currency"].(string); ok && c != "" {
		currency = c
	}
	return fmt.Sprintf("%v %s arrived from wallet %v.", ev.Data["amount"], currency, ev.Data["fromWalletId"])
}

func (TransferCompletedTemplate) Channel() string { return ChannelPush }

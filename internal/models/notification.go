package models

import "time"

const NotificationTransferCompleted = "TRANSFER_COMPLETED"

// NotificationEvent is what the notification consumer receives. EventID drives consumer-side dedup.
type NotificationEvent struct {
	EventID    string         `json:"event_id"`
	Type       string         `json:"type"`
	ReceiverID string         `json:"receiver_id"`
	Data       map[string]any `json:"data"`
	OccurredAt time.Time      `json:"occurred_at"`
}

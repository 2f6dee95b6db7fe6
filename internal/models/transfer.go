package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is shared by transfers, deposits and payouts.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusPaid       Status = "PAID"
	StatusFailed     Status = "FAILED"
)

// transferFlow covers transfers and deposits.
var transferFlow = map[Status][]Status{
	StatusPending: {StatusCompleted, StatusFailed},
}

var payoutFlow = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusPaid, StatusFailed},
}

func canMove(flow map[Status][]Status, from, to Status) bool {
	for _, s := range flow[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionFunc tells the repositories which status moves a record type allows.
type TransitionFunc func(from, to Status) bool

// CanTransition reports whether a transfer or deposit may move from -> to.
func CanTransition(from, to Status) bool { return canMove(transferFlow, from, to) }

// CanPayoutTransition is the payout variant, which has a PROCESSING stage.
func CanPayoutTransition(from, to Status) bool { return canMove(payoutFlow, from, to) }

type Transfer struct {
	ID             string          `json:"id"`
	SourceWalletID string          `json:"source_wallet_id"`
	DestWalletID   string          `json:"dest_wallet_id"`
	Amount         decimal.Decimal `json:"amount"`
	Memo           string          `json:"memo,omitempty"`
	Status         Status          `json:"status"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
	Principal      string          `json:"principal"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

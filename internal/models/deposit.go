package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deposit is confirmed by the payment gateway webhook. PgTrxID is its idempotency key.
type Deposit struct {
	ID             string          `json:"id"`
	WalletID       string          `json:"wallet_id"`
	PgTrxID        string          `json:"pg_trx_id"`
	VirtualAccount string          `json:"virtual_account"`
	Amount         decimal.Decimal `json:"amount"`
	Status         Status          `json:"status"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Payout struct {
	ID             string          `json:"id"`
	WalletID       string          `json:"wallet_id"`
	BankCode       string          `json:"bank_code"`
	AccountNo      string          `json:"account_no"`
	Amount         decimal.Decimal `json:"amount"`
	Status         Status          `json:"status"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

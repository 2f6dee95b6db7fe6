package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WalletStatus string

const (
	WalletActive WalletStatus = "ACTIVE"
	WalletClosed WalletStatus = "CLOSED"
)

const DefaultCurrency = "KRW"

// AmountScale is the number of fractional digits a stored amount may carry.
const AmountScale = 2

type Wallet struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Status    WalletStatus    `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MaxAmount is the exclusive upper bound of a stored amount or balance (numeric(20,2)).
var MaxAmount = decimal.New(1, 18)

// ValidAmount reports whether a is positive and fits the stored precision and scale.
func ValidAmount(a decimal.Decimal) bool {
	return a.IsPositive() && a.LessThan(MaxAmount) && a.Equal(a.Truncate(AmountScale))
}

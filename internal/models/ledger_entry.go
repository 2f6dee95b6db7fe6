package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	Debit  Direction = "DEBIT"
	Credit Direction = "CREDIT"
)

type RefType string

const (
	RefTransfer RefType = "TRANSFER"
	RefDeposit  RefType = "DEPOSIT"
	RefPayout   RefType = "PAYOUT"
)

// Ref points a ledger entry at the record that caused it.
type Ref struct {
	Type RefType
	ID   string
}

// LedgerEntry is append-only. BalanceAfter is the wallet balance right after this entry.
type LedgerEntry struct {
	ID           string          `json:"id"`
	WalletID     string          `json:"wallet_id"`
	Direction    Direction       `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	RefType      RefType         `json:"ref_type"`
	RefID        string          `json:"ref_id"`
	CreatedAt    time.Time       `json:"created_at"`
}

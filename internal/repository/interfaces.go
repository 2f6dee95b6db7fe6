package repository

import (
	"context"

	"github.com/baharkarakas/wallet-transfer/internal/models"
	"github.com/shopspring/decimal"
)

// TxRunner runs fn inside one atomic unit carried through ctx.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Wallets interface {
	Create(ctx context.Context, w models.Wallet) (models.Wallet, error)
	Get(ctx context.Context, id string) (models.Wallet, error)
	// LockForUpdate takes the wallet's exclusive row lock for the rest of the tx in ctx.
	LockForUpdate(ctx context.Context, id string) (models.Wallet, error)
	// ApplyDelta adds delta to the balance and returns the new balance. A result below zero
	// fails with apperr.ErrInsufficientFunds and changes nothing.
	ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error)
}

type LedgerEntries interface {
	Append(ctx context.Context, e models.LedgerEntry) (models.LedgerEntry, error)
	ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.LedgerEntry, error)
	ListByRef(ctx context.Context, ref models.Ref) ([]models.LedgerEntry, error)
}

type Transfers interface {
	// Create fails with apperr.ErrDuplicateRequest when a non-failed transfer holds the key.
	Create(ctx context.Context, t models.Transfer) (models.Transfer, error)
	Get(ctx context.Context, id string) (models.Transfer, error)
	ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.Transfer, error)
	// UpdateStatus moves from -> to; it fails with apperr.ErrInvalidState when the row is not in from.
	UpdateStatus(ctx context.Context, id string, from, to models.Status, reason string) error
}

type Deposits interface {
	Create(ctx context.Context, d models.Deposit) (models.Deposit, error)
	Get(ctx context.Context, id string) (models.Deposit, error)
	UpdateStatus(ctx context.Context, id string, from, to models.Status, reason string) error
}

type Payouts interface {
	Create(ctx context.Context, p models.Payout) (models.Payout, error)
	Get(ctx context.Context, id string) (models.Payout, error)
	// LockForUpdate takes the payout's row lock for the rest of the tx in ctx.
	LockForUpdate(ctx context.Context, id string) (models.Payout, error)
	UpdateStatus(ctx context.Context, id string, from, to models.Status, reason string) error
}

type AuditLogs interface {
	Create(ctx context.Context, e models.AuditEvent) error
}

// Repositories is one storage driver's full set.
type Repositories struct {
	Tx            TxRunner
	Wallets       Wallets
	LedgerEntries LedgerEntries
	Transfers     Transfers
	Deposits      Deposits
	Payouts       Payouts
	AuditLogs     AuditLogs
}

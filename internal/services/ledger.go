package services

import (
	"context"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	repo "github.com/baharkarakas/wallet-transfer/internal/repository"
	"github.com/shopspring/decimal"
)

// Ledger is the only writer of balances. Every balance change appends exactly one entry.
type Ledger struct {
	wallets repo.Wallets
	entries repo.LedgerEntries
}

func NewLedger(w repo.Wallets, e repo.LedgerEntries) *Ledger {
	return &Ledger{wallets: w, entries: e}
}

// Debit must run inside the caller's tx. It fails with ErrInsufficientFunds and writes nothing
// when the balance would go negative.
func (l *Ledger) Debit(ctx context.Context, walletID string, amount decimal.Decimal, ref models.Ref) (models.LedgerEntry, error) {
	return l.apply(ctx, walletID, models.Debit, amount, ref)
}

func (l *Ledger) Credit(ctx context.Context, walletID string, amount decimal.Decimal, ref models.Ref) (models.LedgerEntry, error) {
	return l.apply(ctx, walletID, models.Credit, amount, ref)
}

func (l *Ledger) apply(ctx context.Context, walletID string, dir models.Direction, amount decimal.Decimal, ref models.Ref) (models.LedgerEntry, error) {
	if !models.ValidAmount(amount) {
		return models.LedgerEntry{}, apperr.New(apperr.KindBadRequest, "invalid amount %s", amount)
	}
	// re-entrant within one tx; fails outside of one
	if _, err := l.wallets.LockForUpdate(ctx, walletID); err != nil {
		return models.LedgerEntry{}, err
	}
	delta := amount
	if dir == models.Debit {
		delta = amount.Neg()
	}
	balance, err := l.wallets.ApplyDelta(ctx, walletID, delta)
	if err != nil {
		return models.LedgerEntry{}, err
	}
	return l.entries.Append(ctx, models.LedgerEntry{
		WalletID:     walletID,
		Direction:    dir,
		Amount:       amount,
		BalanceAfter: balance,
		RefType:      ref.Type,
		RefID:        ref.ID,
	})
}

// Entries lists a wallet's history, newest first.
func (l *Ledger) Entries(ctx context.Context, walletID string, limit, offset int) ([]models.LedgerEntry, error) {
	if _, err := l.wallets.Get(ctx, walletID); err != nil {
		return nil, err
	}
	return l.entries.ListByWallet(ctx, walletID, limit, offset)
}

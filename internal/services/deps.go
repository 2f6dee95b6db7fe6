package services

import (
	"log/slog"
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/guard"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	repo "github.com/baharkarakas/wallet-transfer/internal/repository"
)

// Policy holds the guard settings applied to money movements.
type Policy struct {
	IdempotencyTTL    time.Duration
	TransferRateLimit int
	PayoutRateLimit   int
	RateWindow        time.Duration
}

// TransferNotifier is told about completed transfers; *notify.Notifier satisfies it.
type TransferNotifier interface {
	TransferCompleted(t models.Transfer, receiverID, currency string)
}

// Deps wires the services. Notifier may be nil.
type Deps struct {
	Tx        repo.TxRunner
	Wallets   repo.Wallets
	Entries   repo.LedgerEntries
	Transfers repo.Transfers
	Deposits  repo.Deposits
	Payouts   repo.Payouts

	Limiter  *guard.RateLimiter
	Idem     *guard.Claimer
	Audit    Auditor
	Notifier TransferNotifier
	Policy   Policy
	Log      *slog.Logger
}

package services

import (
	"context"
	"log/slog"

	"github.com/baharkarakas/wallet-transfer/internal/guard"
	"github.com/baharkarakas/wallet-transfer/internal/logger"
	"github.com/baharkarakas/wallet-transfer/internal/metrics"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	repo "github.com/baharkarakas/wallet-transfer/internal/repository"
	"github.com/baharkarakas/wallet-transfer/internal/validate"
	"github.com/shopspring/decimal"
)

// DepositRequest is what the payment gateway confirms. PgTrxID is unique per deposit.
type DepositRequest struct {
	WalletID       string          `json:"wallet_id"`
	PgTrxID        string          `json:"pg_trx_id"`
	VirtualAccount string          `json:"virtual_account"`
	Amount         decimal.Decimal `json:"amount"`
}

func (r DepositRequest) Validate() error {
	return validate.Check(
		validate.Required("wallet_id", r.WalletID),
		validate.Required("pg_trx_id", r.PgTrxID),
		validate.MaxLen("pg_trx_id", r.PgTrxID, maxIdempotencyKeyLen),
		validate.Amount("amount", r.Amount),
	)
}

type DepositService struct {
	tx       repo.TxRunner
	deposits repo.Deposits
	ledger   *Ledger
	gate     *Gate
	idem     *guard.Claimer
	audit    Auditor
	policy   Policy
	log      *slog.Logger
}

func NewDepositService(d Deps) *DepositService {
	return &DepositService{
		tx:       d.Tx,
		deposits: d.Deposits,
		ledger:   NewLedger(d.Wallets, d.Entries),
		gate:     NewGate(d.Wallets),
		idem:     d.Idem,
		audit:    d.Audit,
		policy:   d.Policy,
		log:      logger.Or(d.Log).With("component", "deposits"),
	}
}

// Confirm credits the wallet once per PgTrxID. Gateway retries of a confirmed deposit fail
// with ErrDuplicateRequest.
func (s *DepositService) Confirm(ctx context.Context, principal string, req DepositRequest) (models.Deposit, error) {
	if err := req.Validate(); err != nil {
		return models.Deposit{}, err
	}
	op := Chain(
		func(ctx context.Context) (models.Deposit, error) { return s.execute(ctx, req) },
		Idempotent[models.Deposit](s.idem, "deposit:"+req.PgTrxID, s.policy.IdempotencyTTL, s.log),
		Audited(s.audit, models.ActionDepositConfirm, principal, func(d models.Deposit) string { return d.ID }, req.PgTrxID),
	)
	return op(ctx)
}

func (s *DepositService) execute(ctx context.Context, req DepositRequest) (models.Deposit, error) {
	d, err := s.deposits.Create(ctx, models.Deposit{
		WalletID:       req.WalletID,
		PgTrxID:        req.PgTrxID,
		VirtualAccount: req.VirtualAccount,
		Amount:         req.Amount,
		Status:         models.StatusPending,
	})
	if err != nil {
		return models.Deposit{}, err
	}

	err = runAtomic(ctx, s.tx, s.log, func(ctx context.Context) error {
		if _, err := s.gate.AcquireExclusive(ctx, d.WalletID); err != nil {
			return err
		}
		if _, err := s.ledger.Credit(ctx, d.WalletID, d.Amount, models.Ref{Type: models.RefDeposit, ID: d.ID}); err != nil {
			return err
		}
		return s.deposits.UpdateStatus(ctx, d.ID, models.StatusPending, models.StatusCompleted, "")
	})
	if err != nil {
		d.Status, d.FailureReason = models.StatusFailed, err.Error()
		if uerr := s.deposits.UpdateStatus(context.WithoutCancel(ctx), d.ID, models.StatusPending, models.StatusFailed, err.Error()); uerr != nil {
			s.log.Error("mark deposit failed", "err", uerr, "deposit_id", d.ID)
		}
		metrics.MovementsTotal.WithLabelValues("deposit", string(models.StatusFailed)).Inc()
		return d, err
	}
	d.Status = models.StatusCompleted
	metrics.MovementsTotal.WithLabelValues("deposit", string(models.StatusCompleted)).Inc()
	s.log.Info("deposit confirmed", "deposit_id", d.ID, "wallet_id", d.WalletID, "pg_trx_id", d.PgTrxID, "amount", d.Amount.String())
	return d, nil
}

func (s *DepositService) Get(ctx context.Context, id string) (models.Deposit, error) {
	return s.deposits.Get(ctx, id)
}

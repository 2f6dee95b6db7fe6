package services

import (
	"context"
	"log/slog"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/guard"
	"github.com/baharkarakas/wallet-transfer/internal/logger"
	"github.com/baharkarakas/wallet-transfer/internal/metrics"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	repo "github.com/baharkarakas/wallet-transfer/internal/repository"
	"github.com/baharkarakas/wallet-transfer/internal/validate"
	"github.com/shopspring/decimal"
)

const maxIdempotencyKeyLen = 128

type TransferRequest struct {
	SourceWalletID string          `json:"source_wallet_id"`
	DestWalletID   string          `json:"dest_wallet_id"`
	Amount         decimal.Decimal `json:"amount"`
	Memo           string          `json:"memo,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
}

func (r TransferRequest) Validate() error {
	return validate.Check(
		validate.Required("source_wallet_id", r.SourceWalletID),
		validate.Required("dest_wallet_id", r.DestWalletID),
		validate.Different("dest_wallet_id", r.SourceWalletID, r.DestWalletID),
		validate.Amount("amount", r.Amount),
		validate.Required("idempotency_key", r.IdempotencyKey),
		validate.MaxLen("idempotency_key", r.IdempotencyKey, maxIdempotencyKeyLen),
	)
}

type TransferResult struct {
	TransferID string        `json:"transfer_id"`
	Status     models.Status `json:"status"`
}

type TransferService struct {
	tx        repo.TxRunner
	wallets   repo.Wallets
	transfers repo.Transfers
	ledger    *Ledger
	gate      *Gate
	limiter   *guard.RateLimiter
	idem      *guard.Claimer
	audit     Auditor
	notifier  TransferNotifier
	policy    Policy
	log       *slog.Logger
}

func NewTransferService(d Deps) *TransferService {
	return &TransferService{
		tx:        d.Tx,
		wallets:   d.Wallets,
		transfers: d.Transfers,
		ledger:    NewLedger(d.Wallets, d.Entries),
		gate:      NewGate(d.Wallets),
		limiter:   d.Limiter,
		idem:      d.Idem,
		audit:     d.Audit,
		notifier:  d.Notifier,
		policy:    d.Policy,
		log:       logger.Or(d.Log).With("component", "transfers"),
	}
}

// Create moves req.Amount from source to destination at most once per idempotency key.
// Rate limit and duplicate rejections leave no record and no audit event. Every other
// outcome is audited, and a record that got as far as PENDING ends COMPLETED or FAILED.
func (s *TransferService) Create(ctx context.Context, principal string, req TransferRequest) (TransferResult, error) {
	if err := req.Validate(); err != nil {
		return TransferResult{}, err
	}
	op := Chain(
		func(ctx context.Context) (TransferResult, error) { return s.execute(ctx, principal, req) },
		RateLimited[TransferResult](s.limiter, "transfer:"+req.SourceWalletID, s.policy.TransferRateLimit, s.policy.RateWindow),
		Idempotent[TransferResult](s.idem, "transfer:"+req.IdempotencyKey, s.policy.IdempotencyTTL, s.log),
		Audited(s.audit, models.ActionTransferCreate, principal, func(r TransferResult) string { return r.TransferID }, req.IdempotencyKey),
	)
	return op(ctx)
}

func (s *TransferService) execute(ctx context.Context, principal string, req TransferRequest) (TransferResult, error) {
	t, err := s.transfers.Create(ctx, models.Transfer{
		SourceWalletID: req.SourceWalletID,
		DestWalletID:   req.DestWalletID,
		Amount:         req.Amount,
		Memo:           req.Memo,
		Status:         models.StatusPending,
		IdempotencyKey: req.IdempotencyKey,
		Principal:      principal,
	})
	if err != nil {
		return TransferResult{}, err
	}
	res := TransferResult{TransferID: t.ID, Status: models.StatusPending}

	var dest models.Wallet
	err = runAtomic(ctx, s.tx, s.log, func(ctx context.Context) error {
		h, err := s.gate.AcquireExclusive(ctx, t.SourceWalletID, t.DestWalletID)
		if err != nil {
			return err
		}
		src := h.Wallet(t.SourceWalletID)
		dest = h.Wallet(t.DestWalletID)
		if src.Currency != dest.Currency {
			return apperr.New(apperr.KindBadRequest, "currency mismatch: %s -> %s", src.Currency, dest.Currency)
		}
		ref := models.Ref{Type: models.RefTransfer, ID: t.ID}
		if _, err := s.ledger.Debit(ctx, t.SourceWalletID, t.Amount, ref); err != nil {
			return err
		}
		if _, err := s.ledger.Credit(ctx, t.DestWalletID, t.Amount, ref); err != nil {
			return err
		}
		return s.transfers.UpdateStatus(ctx, t.ID, models.StatusPending, models.StatusCompleted, "")
	})
	if err != nil {
		res.Status = models.StatusFailed
		s.fail(ctx, t.ID, err)
		metrics.MovementsTotal.WithLabelValues("transfer", string(models.StatusFailed)).Inc()
		return res, err
	}

	res.Status = models.StatusCompleted
	t.Status = models.StatusCompleted
	metrics.MovementsTotal.WithLabelValues("transfer", string(models.StatusCompleted)).Inc()
	s.log.Info("transfer completed", "transfer_id", t.ID, "from", t.SourceWalletID, "to", t.DestWalletID, "amount", t.Amount.String())
	if s.notifier != nil {
		s.notifier.TransferCompleted(t, dest.UserID, dest.Currency)
	}
	return res, nil
}

// fail runs after the mutation tx rolled back, so the FAILED mark survives.
func (s *TransferService) fail(ctx context.Context, id string, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := s.transfers.UpdateStatus(ctx, id, models.StatusPending, models.StatusFailed, cause.Error()); err != nil {
		s.log.Error("mark transfer failed", "err", err, "transfer_id", id)
		return
	}
	s.log.Warn("transfer failed", "transfer_id", id, "kind", apperr.KindOf(cause), "err", cause)
}

func (s *TransferService) Get(ctx context.Context, id string) (models.Transfer, error) {
	return s.transfers.Get(ctx, id)
}

func (s *TransferService) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.Transfer, error) {
	if _, err := s.wallets.Get(ctx, walletID); err != nil {
		return nil, err
	}
	return s.transfers.ListByWallet(ctx, walletID, limit, offset)
}

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

type PayoutRequest struct {
	WalletID       string          `json:"wallet_id"`
	BankCode       string          `json:"bank_code"`
	AccountNo      string          `json:"account_no"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key"`
}

func (r PayoutRequest) Validate() error {
	return validate.Check(
		validate.Required("wallet_id", r.WalletID),
		validate.Required("bank_code", r.BankCode),
		validate.Required("account_no", r.AccountNo),
		validate.Amount("amount", r.Amount),
		validate.Required("idempotency_key", r.IdempotencyKey),
		validate.MaxLen("idempotency_key", r.IdempotencyKey, maxIdempotencyKeyLen),
	)
}

// SettleRequest is the bank rail's answer for a PROCESSING payout.
type SettleRequest struct {
	Succeeded bool   `json:"succeeded"`
	Reason    string `json:"reason,omitempty"`
}

// PayoutService holds funds on request and either releases them to the bank (PAID) or
// refunds them (FAILED) on settlement.
type PayoutService struct {
	tx      repo.TxRunner
	payouts repo.Payouts
	ledger  *Ledger
	gate    *Gate
	limiter *guard.RateLimiter
	idem    *guard.Claimer
	audit   Auditor
	policy  Policy
	log     *slog.Logger
}

func NewPayoutService(d Deps) *PayoutService {
	return &PayoutService{
		tx:      d.Tx,
		payouts: d.Payouts,
		ledger:  NewLedger(d.Wallets, d.Entries),
		gate:    NewGate(d.Wallets),
		limiter: d.Limiter,
		idem:    d.Idem,
		audit:   d.Audit,
		policy:  d.Policy,
		log:     logger.Or(d.Log).With("component", "payouts"),
	}
}

func (s *PayoutService) Request(ctx context.Context, principal string, req PayoutRequest) (models.Payout, error) {
	if err := req.Validate(); err != nil {
		return models.Payout{}, err
	}
	op := Chain(
		func(ctx context.Context) (models.Payout, error) { return s.request(ctx, req) },
		RateLimited[models.Payout](s.limiter, "payout:"+req.WalletID, s.policy.PayoutRateLimit, s.policy.RateWindow),
		Idempotent[models.Payout](s.idem, "payout:"+req.IdempotencyKey, s.policy.IdempotencyTTL, s.log),
		Audited(s.audit, models.ActionPayoutRequest, principal, func(p models.Payout) string { return p.ID }, req.IdempotencyKey),
	)
	return op(ctx)
}

func (s *PayoutService) request(ctx context.Context, req PayoutRequest) (models.Payout, error) {
	p, err := s.payouts.Create(ctx, models.Payout{
		WalletID:       req.WalletID,
		BankCode:       req.BankCode,
		AccountNo:      req.AccountNo,
		Amount:         req.Amount,
		Status:         models.StatusPending,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return models.Payout{}, err
	}

	err = runAtomic(ctx, s.tx, s.log, func(ctx context.Context) error {
		if _, err := s.gate.AcquireExclusive(ctx, p.WalletID); err != nil {
			return err
		}
		if _, err := s.ledger.Debit(ctx, p.WalletID, p.Amount, models.Ref{Type: models.RefPayout, ID: p.ID}); err != nil {
			return err
		}
		return s.payouts.UpdateStatus(ctx, p.ID, models.StatusPending, models.StatusProcessing, "")
	})
	if err != nil {
		p.Status, p.FailureReason = models.StatusFailed, err.Error()
		if uerr := s.payouts.UpdateStatus(context.WithoutCancel(ctx), p.ID, models.StatusPending, models.StatusFailed, err.Error()); uerr != nil {
			s.log.Error("mark payout failed", "err", uerr, "payout_id", p.ID)
		}
		metrics.MovementsTotal.WithLabelValues("payout", string(models.StatusFailed)).Inc()
		return p, err
	}
	p.Status = models.StatusProcessing
	metrics.MovementsTotal.WithLabelValues("payout", string(models.StatusProcessing)).Inc()
	s.log.Info("payout requested", "payout_id", p.ID, "wallet_id", p.WalletID, "amount", p.Amount.String())
	return p, nil
}

// Settle closes a PROCESSING payout. A failed payout refunds the held amount in the same tx.
// Settling anything else is ErrInvalidState.
func (s *PayoutService) Settle(ctx context.Context, principal, payoutID string, req SettleRequest) (models.Payout, error) {
	if err := validate.Check(validate.Required("payout_id", payoutID)); err != nil {
		return models.Payout{}, err
	}
	op := Chain(
		func(ctx context.Context) (models.Payout, error) { return s.settle(ctx, payoutID, req) },
		Audited(s.audit, models.ActionPayoutSettle, principal, func(p models.Payout) string { return p.ID }, payoutID),
	)
	return op(ctx)
}

func (s *PayoutService) settle(ctx context.Context, payoutID string, req SettleRequest) (models.Payout, error) {
	var out models.Payout
	err := runAtomic(ctx, s.tx, s.log, func(ctx context.Context) error {
		p, err := s.payouts.LockForUpdate(ctx, payoutID)
		if err != nil {
			return err
		}
		if p.Status != models.StatusProcessing {
			return apperr.New(apperr.KindInvalidState, "payout %s is %s", p.ID, p.Status)
		}
		to, reason := models.StatusPaid, ""
		if !req.Succeeded {
			to, reason = models.StatusFailed, req.Reason
			if reason == "" {
				reason = "rejected by bank"
			}
			// refunds bypass the gate so a wallet closed meanwhile still gets its money back
			if _, err := s.ledger.Credit(ctx, p.WalletID, p.Amount, models.Ref{Type: models.RefPayout, ID: p.ID}); err != nil {
				return err
			}
		}
		if err := s.payouts.UpdateStatus(ctx, p.ID, models.StatusProcessing, to, reason); err != nil {
			return err
		}
		p.Status, p.FailureReason = to, reason
		out = p
		return nil
	})
	if err != nil {
		return models.Payout{ID: payoutID}, err
	}
	metrics.MovementsTotal.WithLabelValues("payout", string(out.Status)).Inc()
	s.log.Info("payout settled", "payout_id", out.ID, "status", out.Status)
	return out, nil
}

func (s *PayoutService) Get(ctx context.Context, id string) (models.Payout, error) {
	return s.payouts.Get(ctx, id)
}

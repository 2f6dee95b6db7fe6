// Package handlers adapts HTTP requests to the wallet services.
package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/middleware"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	"github.com/baharkarakas/wallet-transfer/internal/services"
	"github.com/baharkarakas/wallet-transfer/internal/validate"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type WalletService interface {
	Open(ctx context.Context, userID, currency string) (models.Wallet, error)
	Get(ctx context.Context, id string) (models.Wallet, error)
	Entries(ctx context.Context, id string, limit, offset int) ([]models.LedgerEntry, error)
}

type TransferService interface {
	Create(ctx context.Context, principal string, req services.TransferRequest) (services.TransferResult, error)
	Get(ctx context.Context, id string) (models.Transfer, error)
	ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.Transfer, error)
}

type PayoutService interface {
	Request(ctx context.Context, principal string, req services.PayoutRequest) (models.Payout, error)
	Settle(ctx context.Context, principal, payoutID string, req services.SettleRequest) (models.Payout, error)
	Get(ctx context.Context, id string) (models.Payout, error)
}

type DepositService interface {
	Confirm(ctx context.Context, principal string, req services.DepositRequest) (models.Deposit, error)
}

func principal(r *http.Request) (string, error) {
	p, ok := middleware.Principal(r.Context())
	if !ok {
		return "", apperr.New(apperr.KindUnauthorized, "no principal")
	}
	return p, nil
}

// page reads limit and offset. limit defaults to 50 and is capped at 200.
func page(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	limit, lerr := queryInt(q, "limit", defaultLimit)
	offset, oerr := queryInt(q, "offset", 0)
	if err := validate.Check(
		lerr, oerr,
		validate.MinInt("limit", int64(limit), 1),
		validate.MinInt("offset", int64(offset), 0),
	); err != nil {
		return 0, 0, err
	}
	return min(limit, maxLimit), offset, nil
}

func queryInt(q url.Values, key string, def int) (int, *validate.ErrField) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, &validate.ErrField{Field: key, Msg: "must be an integer"}
	}
	return n, nil
}

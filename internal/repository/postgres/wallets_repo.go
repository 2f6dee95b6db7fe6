package postgres

import (
	"context"
	"errors"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/db"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type walletsRepo struct{ pool *pgxpool.Pool }

const walletCols = `id, user_id, currency, balance, status, created_at, updated_at`

func scanWallet(row pgx.Row) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Currency, &w.Balance, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func (r *walletsRepo) Create(ctx context.Context, w models.Wallet) (models.Wallet, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Currency == "" {
		w.Currency = models.DefaultCurrency
	}
	if w.Status == "" {
		w.Status = models.WalletActive
	}
	out, err := scanWallet(db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO wallets(id, user_id, currency, balance, status)
		 VALUES($1,$2,$3,$4,$5)
		 RETURNING `+walletCols,
		w.ID, w.UserID, w.Currency, w.Balance, w.Status,
	))
	return out, db.Classify(err, "create wallet")
}

func (r *walletsRepo) Get(ctx context.Context, id string) (models.Wallet, error) {
	w, err := scanWallet(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+walletCols+` FROM wallets WHERE id=$1`, id))
	return w, db.Classify(err, "wallet "+id)
}

func (r *walletsRepo) LockForUpdate(ctx context.Context, id string) (models.Wallet, error) {
	if !db.InTx(ctx) {
		return models.Wallet{}, apperr.New(apperr.KindInternal, "lock wallet %s outside transaction", id)
	}
	w, err := scanWallet(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+walletCols+` FROM wallets WHERE id=$1 FOR UPDATE`, id))
	return w, db.Classify(err, "lock wallet "+id)
}

func (r *walletsRepo) ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	q := db.Conn(ctx, r.pool)
	var bal decimal.Decimal
	err := q.QueryRow(ctx,
		`UPDATE wallets
		    SET balance = balance + $2,
		        updated_at = now()
		  WHERE id = $1 AND balance + $2 >= 0
		  RETURNING balance`,
		id, delta,
	).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id=$1)`, id).Scan(&exists); err != nil {
			return decimal.Zero, db.Classify(err, "wallet "+id)
		}
		if !exists {
			return decimal.Zero, apperr.New(apperr.KindNotFound, "wallet %s not found", id)
		}
		return decimal.Zero, apperr.New(apperr.KindInsufficientFunds, "wallet %s: insufficient funds", id)
	}
	return bal, db.Classify(err, "update balance "+id)
}

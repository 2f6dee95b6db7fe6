package postgres

import (
	"context"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/db"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type payoutsRepo struct{ pool *pgxpool.Pool }

const payoutCols = `id, wallet_id, bank_code, account_no, amount, status, failure_reason, idempotency_key, created_at, updated_at`

func scanPayout(row pgx.Row) (models.Payout, error) {
	var p models.Payout
	err := row.Scan(&p.ID, &p.WalletID, &p.BankCode, &p.AccountNo, &p.Amount, &p.Status,
		&p.FailureReason, &p.IdempotencyKey, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *payoutsRepo) Create(ctx context.Context, p models.Payout) (models.Payout, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	out, err := scanPayout(db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO payouts(id, wallet_id, bank_code, account_no, amount, status, idempotency_key)
		 VALUES($1,$2,$3,$4,$5,$6,$7)
		 RETURNING `+payoutCols,
		p.ID, p.WalletID, p.BankCode, p.AccountNo, p.Amount, p.Status, p.IdempotencyKey,
	))
	return out, db.Classify(err, "create payout")
}

func (r *payoutsRepo) Get(ctx context.Context, id string) (models.Payout, error) {
	p, err := scanPayout(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+payoutCols+` FROM payouts WHERE id=$1`, id))
	return p, db.Classify(err, "payout "+id)
}

func (r *payoutsRepo) LockForUpdate(ctx context.Context, id string) (models.Payout, error) {
	if !db.InTx(ctx) {
		return models.Payout{}, apperr.New(apperr.KindInternal, "lock payout %s outside transaction", id)
	}
	p, err := scanPayout(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+payoutCols+` FROM payouts WHERE id=$1 FOR UPDATE`, id))
	return p, db.Classify(err, "lock payout "+id)
}

func (r *payoutsRepo) UpdateStatus(ctx context.Context, id string, from, to models.Status, reason string) error {
	return updateStatus(ctx, db.Conn(ctx, r.pool), "payouts", id, from, to, reason, models.CanPayoutTransition)
}

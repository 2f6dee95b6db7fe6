package postgres

import (
	"context"

	"github.com/baharkarakas/wallet-transfer/internal/db"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type depositsRepo struct{ pool *pgxpool.Pool }

const depositCols = `id, wallet_id, pg_trx_id, virtual_account, amount, status, failure_reason, created_at, updated_at`

func scanDeposit(row pgx.Row) (models.Deposit, error) {
	var d models.Deposit
	err := row.Scan(&d.ID, &d.WalletID, &d.PgTrxID, &d.VirtualAccount, &d.Amount, &d.Status,
		&d.FailureReason, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (r *depositsRepo) Create(ctx context.Context, d models.Deposit) (models.Deposit, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	out, err := scanDeposit(db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO deposits(id, wallet_id, pg_trx_id, virtual_account, amount, status)
		 VALUES($1,$2,$3,$4,$5,$6)
		 RETURNING `+depositCols,
		d.ID, d.WalletID, d.PgTrxID, d.VirtualAccount, d.Amount, d.Status,
	))
	return out, db.Classify(err, "create deposit")
}

func (r *depositsRepo) Get(ctx context.Context, id string) (models.Deposit, error) {
	d, err := scanDeposit(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+depositCols+` FROM deposits WHERE id=$1`, id))
	return d, db.Classify(err, "deposit "+id)
}

func (r *depositsRepo) UpdateStatus(ctx context.Context, id string, from, to models.Status, reason string) error {
	return updateStatus(ctx, db.Conn(ctx, r.pool), "deposits", id, from, to, reason, models.CanTransition)
}

package postgres

import (
	"context"

	"github.com/baharkarakas/wallet-transfer/internal/db"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type transfersRepo struct{ pool *pgxpool.Pool }

const transferCols = `id, source_wallet_id, dest_wallet_id, amount, memo, status, failure_reason,
  idempotency_key, principal, created_at, updated_at`

func scanTransfer(row pgx.Row) (models.Transfer, error) {
	var t models.Transfer
	err := row.Scan(&t.ID, &t.SourceWalletID, &t.DestWalletID, &t.Amount, &t.Memo, &t.Status,
		&t.FailureReason, &t.IdempotencyKey, &t.Principal, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *transfersRepo) Create(ctx context.Context, t models.Transfer) (models.Transfer, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	// the partial unique index on idempotency_key turns a live duplicate into 23505
	out, err := scanTransfer(db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO transfers (
		   id, source_wallet_id, dest_wallet_id, amount, memo, status, idempotency_key, principal
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING `+transferCols,
		t.ID, t.SourceWalletID, t.DestWalletID, t.Amount, t.Memo, t.Status, t.IdempotencyKey, t.Principal,
	))
	return out, db.Classify(err, "create transfer")
}

func (r *transfersRepo) Get(ctx context.Context, id string) (models.Transfer, error) {
	t, err := scanTransfer(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+transferCols+` FROM transfers WHERE id=$1`, id))
	return t, db.Classify(err, "transfer "+id)
}

func (r *transfersRepo) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.Transfer, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+transferCols+`
		   FROM transfers
		  WHERE source_wallet_id=$1 OR dest_wallet_id=$1
		  ORDER BY created_at DESC
		  LIMIT NULLIF($2::int, 0) OFFSET $3`,
		walletID, limit, offset,
	)
	if err != nil {
		return nil, db.Classify(err, "list transfers")
	}
	defer rows.Close()

	var out []models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transfersRepo) UpdateStatus(ctx context.Context, id string, from, to models.Status, reason string) error {
	return updateStatus(ctx, db.Conn(ctx, r.pool), "transfers", id, from, to, reason, models.CanTransition)
}

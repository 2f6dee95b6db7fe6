package postgres

import (
	"context"

	"github.com/baharkarakas/wallet-transfer/internal/db"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ledgerRepo struct{ pool *pgxpool.Pool }

const entryCols = `id, wallet_id, direction, amount, balance_after, ref_type, ref_id, created_at`

func (r *ledgerRepo) Append(ctx context.Context, e models.LedgerEntry) (models.LedgerEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO ledger_entries(id, wallet_id, direction, amount, balance_after, ref_type, ref_id)
		 VALUES($1,$2,$3,$4,$5,$6,$7)
		 RETURNING created_at`,
		e.ID, e.WalletID, e.Direction, e.Amount, e.BalanceAfter, e.RefType, e.RefID,
	).Scan(&e.CreatedAt)
	return e, db.Classify(err, "append ledger entry")
}

func (r *ledgerRepo) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.LedgerEntry, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+entryCols+`
		   FROM ledger_entries
		  WHERE wallet_id=$1
		  ORDER BY created_at DESC, id
		  LIMIT NULLIF($2::int, 0) OFFSET $3`,
		walletID, limit, offset,
	)
	if err != nil {
		return nil, db.Classify(err, "list ledger entries")
	}
	return collectEntries(rows)
}

func (r *ledgerRepo) ListByRef(ctx context.Context, ref models.Ref) ([]models.LedgerEntry, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+entryCols+`
		   FROM ledger_entries
		  WHERE ref_type=$1 AND ref_id=$2
		  ORDER BY created_at, id`,
		ref.Type, ref.ID,
	)
	if err != nil {
		return nil, db.Classify(err, "list ledger entries")
	}
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]models.LedgerEntry, error) {
	defer rows.Close()
	var out []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.WalletID, &e.Direction, &e.Amount, &e.BalanceAfter, &e.RefType, &e.RefID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

package postgres

import (
	"context"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/db"
	"github.com/baharkarakas/wallet-transfer/internal/models"
)

// updateStatus is a compare-and-set on status; table is one of our own constants, never input.
// Moves outside allowed are refused before touching the row.
func updateStatus(ctx context.Context, q db.Querier, table, id string, from, to models.Status, reason string, allowed models.TransitionFunc) error {
	if !allowed(from, to) {
		return apperr.New(apperr.KindInvalidState, "%s %s: %s -> %s not allowed", table, id, from, to)
	}
	tag, err := q.Exec(ctx,
		`UPDATE `+table+`
		    SET status=$3, failure_reason=$4, updated_at=now()
		  WHERE id=$1 AND status=$2`,
		id, from, to, reason,
	)
	if err != nil {
		return db.Classify(err, "update "+table+" status")
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var cur models.Status
	if err := q.QueryRow(ctx, `SELECT status FROM `+table+` WHERE id=$1`, id).Scan(&cur); err != nil {
		return db.Classify(err, table+" "+id)
	}
	return apperr.New(apperr.KindInvalidState, "%s %s is %s, not %s", table, id, cur, from)
}

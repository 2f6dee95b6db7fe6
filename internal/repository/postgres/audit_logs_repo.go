package postgres

import (
	"context"

	"github.com/baharkarakas/wallet-transfer/internal/db"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type auditLogsRepo struct{ pool *pgxpool.Pool }

// Create is idempotent on event id, so a redelivered event is stored once.
func (r *auditLogsRepo) Create(ctx context.Context, e models.AuditEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO audit_logs(id, action, result, principal, reference, message, at)
		 VALUES($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Action, e.Result, e.Principal, e.Reference, e.Message, e.At,
	)
	return db.Classify(err, "insert audit log")
}

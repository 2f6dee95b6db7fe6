package postgres

import (
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/db"
	repo "github.com/baharkarakas/wallet-transfer/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositories(pool *pgxpool.Pool, lockTimeout time.Duration) repo.Repositories {
	return repo.Repositories{
		Tx:            db.NewTxManager(pool, lockTimeout),
		Wallets:       &walletsRepo{pool},
		LedgerEntries: &ledgerRepo{pool},
		Transfers:     &transfersRepo{pool},
		Deposits:      &depositsRepo{pool},
		Payouts:       &payoutsRepo{pool},
		AuditLogs:     &auditLogsRepo{pool},
	}
}

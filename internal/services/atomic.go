package services

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	repo "github.com/baharkarakas/wallet-transfer/internal/repository"
)

// runAtomic runs fn as one tx. A panic inside fn surfaces as an Internal error once the tx
// has rolled back, so the caller's failure path (FAILED mark, audit, claim release) still runs.
func runAtomic(ctx context.Context, tx repo.TxRunner, log *slog.Logger, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic in atomic unit", "panic", rec, "stack", string(debug.Stack()))
			err = apperr.New(apperr.KindInternal, "unexpected fault: %v", rec)
		}
	}()
	return tx.WithTx(ctx, fn)
}

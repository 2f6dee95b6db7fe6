// Package audit publishes the outcome of every guarded operation and stores it on the consumer side.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/logger"
	"github.com/baharkarakas/wallet-transfer/internal/metrics"
	"github.com/baharkarakas/wallet-transfer/internal/models"
	"github.com/google/uuid"
)

type Publisher interface {
	Publish(ctx context.Context, e models.AuditEvent) error
}

// Submitter runs f off the caller's goroutine; *worker.Pool satisfies it.
type Submitter interface {
	TrySubmit(f func()) bool
}

// Emitter never blocks and never fails the caller. Publish errors are logged and counted only.
type Emitter struct {
	pub     Publisher
	pool    Submitter
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewEmitter(pub Publisher, pool Submitter, log *slog.Logger) *Emitter {
	return &Emitter{
		pub:     pub,
		pool:    pool,
		log:     logger.Or(log).With("component", "audit"),
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

func (e *Emitter) RecordSuccess(action, principal, reference string) {
	e.emit(models.AuditEvent{
		Action:    action,
		Result:    models.AuditSuccess,
		Principal: principal,
		Reference: reference,
		Message:   "ok",
	})
}

func (e *Emitter) RecordFailure(action, principal, reference, message string) {
	e.emit(models.AuditEvent{
		Action:    action,
		Result:    models.AuditFail,
		Principal: principal,
		Reference: reference,
		Message:   message,
	})
}

func (e *Emitter) emit(ev models.AuditEvent) {
	ev.ID = uuid.NewString()
	ev.At = e.now().UTC()
	metrics.AuditEvents.WithLabelValues(string(ev.Result)).Inc()

	ok := e.pool.TrySubmit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		if err := e.pub.Publish(ctx, ev); err != nil {
			metrics.AuditPublishFailures.Inc()
			e.log.Error("audit publish failed", "err", err, "event_id", ev.ID, "action", ev.Action, "result", ev.Result)
		}
	})
	if !ok {
		metrics.AuditPublishFailures.Inc()
		e.log.Warn("audit event dropped, worker queue unavailable", "event_id", ev.ID, "action", ev.Action, "result", ev.Result)
	}
}

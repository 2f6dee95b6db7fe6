package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/guard"
	"github.com/baharkarakas/wallet-transfer/internal/metrics"
)

// Op is one guarded operation.
type Op[T any] func(ctx context.Context) (T, error)

type Decorator[T any] func(next Op[T]) Op[T]

// Chain wraps body so that decorators[0] runs first.
func Chain[T any](body Op[T], decorators ...Decorator[T]) Op[T] {
	op := body
	for i := len(decorators) - 1; i >= 0; i-- {
		op = decorators[i](op)
	}
	return op
}

// RateLimited rejects before next runs once key exceeds limit per window.
func RateLimited[T any](l *guard.RateLimiter, key string, limit int, window time.Duration) Decorator[T] {
	return func(next Op[T]) Op[T] {
		return func(ctx context.Context) (T, error) {
			if err := l.Check(ctx, key, limit, window); err != nil {
				var zero T
				if errors.Is(err, apperr.ErrRateLimitExceeded) {
					metrics.GuardRejections.WithLabelValues("rate_limited").Inc()
				}
				return zero, err
			}
			return next(ctx)
		}
	}
}

// Idempotent lets one caller per key through. The claim is dropped when next fails or
// panics so the key can be retried, and kept until ttl when it succeeds.
func Idempotent[T any](c *guard.Claimer, key string, ttl time.Duration, log *slog.Logger) Decorator[T] {
	return func(next Op[T]) Op[T] {
		return func(ctx context.Context) (out T, err error) {
			claim, err := c.Claim(ctx, key, ttl)
			if err != nil {
				if errors.Is(err, apperr.ErrDuplicateRequest) {
					metrics.GuardRejections.WithLabelValues("duplicate_request").Inc()
				}
				return out, err
			}
			release := func() {
				if rerr := c.Release(context.WithoutCancel(ctx), claim); rerr != nil {
					log.Error("idempotency release failed", "err", rerr, "key", key)
				}
			}
			defer func() {
				if rec := recover(); rec != nil {
					release()
					panic(rec)
				}
			}()
			out, err = next(ctx)
			if err != nil {
				release()
			}
			return out, err
		}
	}
}

// Auditor records outcomes; *audit.Emitter satisfies it.
type Auditor interface {
	RecordSuccess(action, principal, reference string)
	RecordFailure(action, principal, reference, message string)
}

// Audited emits one event per call that reaches it, a panicking one included. Guard
// rejections raised further in are not audited, the same as the ones raised outside.
func Audited[T any](a Auditor, action, principal string, ref func(T) string, fallbackRef string) Decorator[T] {
	return func(next Op[T]) Op[T] {
		return func(ctx context.Context) (T, error) {
			defer func() {
				if rec := recover(); rec != nil {
					a.RecordFailure(action, principal, fallbackRef, fmt.Sprintf("unexpected fault: %v", rec))
					panic(rec)
				}
			}()
			out, err := next(ctx)
			reference := ref(out)
			if reference == "" {
				reference = fallbackRef
			}
			switch {
			case err == nil:
				a.RecordSuccess(action, principal, reference)
			case apperr.IsGuard(err):
			default:
				a.RecordFailure(action, principal, reference, err.Error())
			}
			return out, err
		}
	}
}

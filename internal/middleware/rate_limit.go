package middleware

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/api/httpx"
	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/guard"
	"github.com/baharkarakas/wallet-transfer/internal/metrics"
)

// RateLimit allows rps requests per client IP per second, counted in the shared store so
// all replicas see the same budget. When the store is down requests pass.
func RateLimit(l *guard.RateLimiter, rps int) func(http.Handler) http.Handler {
	if rps <= 0 || l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := l.Check(r.Context(), "ip:"+clientIP(r), rps, time.Second)
			switch {
			case err == nil:
			case errors.Is(err, apperr.ErrRateLimitExceeded):
				metrics.GuardRejections.WithLabelValues("rate_limited").Inc()
				httpx.WriteError(w, http.StatusTooManyRequests, string(apperr.KindRateLimitExceeded), "too many requests", nil)
				return
			default:
				slog.WarnContext(r.Context(), "ingress rate limit skipped", "err", err)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
)

// RateLimiter is a fixed window counter. Windows do not slide: a caller can spend a full limit
// at the end of one window and again at the start of the next. That burst is accepted in
// exchange for one INCR per request.
type RateLimiter struct {
	kv  KV
	now func() time.Time
}

func NewRateLimiter(kv KV) *RateLimiter {
	return &RateLimiter{kv: kv, now: time.Now}
}

// WithClock swaps the time source; used by tests.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	return l
}

// WindowKey is ratelimit:<key>:<window start, unix seconds>.
func WindowKey(key string, at time.Time, window time.Duration) string {
	return fmt.Sprintf("ratelimit:%s:%d", key, at.Truncate(window).Unix())
}

// Check counts one call against key. A limit <= 0 disables the check.
func (l *RateLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) error {
	if limit <= 0 || window <= 0 {
		return nil
	}
	k := WindowKey(key, l.now(), window)
	n, err := l.kv.Incr(ctx, k).Result()
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "rate limit")
	}
	if n == 1 {
		if err := l.kv.Expire(ctx, k, window).Err(); err != nil {
			return apperr.Wrap(apperr.KindStoreUnavailable, err, "rate limit expire")
		}
	}
	if n > int64(limit) {
		return apperr.New(apperr.KindRateLimitExceeded, "rate limit exceeded for %s", key)
	}
	return nil
}

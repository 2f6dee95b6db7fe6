// Package guardtest provides an in-memory stand-in for the Redis commands used by guard.
package guardtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type entry struct {
	val     string
	expires time.Time // zero means no expiry
}

// KV implements guard.KV with TTLs evaluated against Now.
type KV struct {
	mu   sync.Mutex
	data map[string]entry
	Now  func() time.Time
	// Err, when set, is returned by every command.
	Err error
}

func NewKV() *KV {
	return &KV{data: map[string]entry{}, Now: time.Now}
}

func (k *KV) get(key string) (entry, bool) {
	e, ok := k.data[key]
	if ok && !e.expires.IsZero() && !k.Now().Before(e.expires) {
		delete(k.data, key)
		return entry{}, false
	}
	return e, ok
}

func (k *KV) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.Err != nil {
		return redis.NewBoolResult(false, k.Err)
	}
	if _, ok := k.get(key); ok {
		return redis.NewBoolResult(false, nil)
	}
	e := entry{val: fmt.Sprint(value)}
	if expiration > 0 {
		e.expires = k.Now().Add(expiration)
	}
	k.data[key] = e
	return redis.NewBoolResult(true, nil)
}

func (k *KV) Incr(_ context.Context, key string) *redis.IntCmd {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.Err != nil {
		return redis.NewIntResult(0, k.Err)
	}
	e, _ := k.get(key)
	var n int64
	if e.val != "" {
		fmt.Sscan(e.val, &n)
	}
	n++
	e.val = fmt.Sprint(n)
	k.data[key] = e
	return redis.NewIntResult(n, nil)
}

func (k *KV) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.Err != nil {
		return redis.NewBoolResult(false, k.Err)
	}
	e, ok := k.get(key)
	if !ok {
		return redis.NewBoolResult(false, nil)
	}
	e.expires = k.Now().Add(expiration)
	k.data[key] = e
	return redis.NewBoolResult(true, nil)
}

func (k *KV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.Err != nil {
		return redis.NewIntResult(0, k.Err)
	}
	var n int64
	for _, key := range keys {
		if _, ok := k.get(key); ok {
			delete(k.data, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// Eval understands one script shape: compare KEYS[1] with ARGV[1] and delete on match.
func (k *KV) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.Err != nil {
		return redis.NewCmdResult(nil, k.Err)
	}
	if len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, fmt.Errorf("guardtest: unsupported script call"))
	}
	e, ok := k.get(keys[0])
	if !ok || e.val != fmt.Sprint(args[0]) {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(k.data, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}

// Has reports whether key is live.
func (k *KV) Has(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.get(key)
	return ok
}

// TTL returns the remaining lifetime of key, or 0.
func (k *KV) TTL(key string) time.Duration {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.get(key)
	if !ok || e.expires.IsZero() {
		return 0
	}
	return e.expires.Sub(k.Now())
}

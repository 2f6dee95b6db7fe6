package guard

import (
	"context"
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/google/uuid"
)

// compare-and-delete: only the holder of the token may drop the key
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// Claim is proof of a granted key. The token keeps a late Release from deleting a claim
// that expired and was taken by someone else.
type Claim struct {
	Key   string
	Token string
}

// Claimer grants a key at most once until it expires or is released.
type Claimer struct {
	kv     KV
	prefix string
}

// NewIdempotency stores claims under idem:<key>.
func NewIdempotency(kv KV) *Claimer { return NewClaimer(kv, "idem:") }

func NewClaimer(kv KV, prefix string) *Claimer {
	return &Claimer{kv: kv, prefix: prefix}
}

// Claim runs SET NX with ttl. A key already held fails with apperr.ErrDuplicateRequest.
func (c *Claimer) Claim(ctx context.Context, key string, ttl time.Duration) (Claim, error) {
	cl := Claim{Key: c.prefix + key, Token: uuid.NewString()}
	ok, err := c.kv.SetNX(ctx, cl.Key, cl.Token, ttl).Result()
	if err != nil {
		return Claim{}, apperr.Wrap(apperr.KindStoreUnavailable, err, "idempotency claim")
	}
	if !ok {
		return Claim{}, apperr.New(apperr.KindDuplicateRequest, "request %q already in progress or completed", key)
	}
	return cl, nil
}

// Release drops the claim early so the same key can be retried right away.
func (c *Claimer) Release(ctx context.Context, cl Claim) error {
	if cl.Key == "" {
		return nil
	}
	if err := c.kv.Eval(ctx, releaseScript, []string{cl.Key}, cl.Token).Err(); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "idempotency release")
	}
	return nil
}

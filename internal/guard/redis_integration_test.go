package guard_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestGuardsAgainstRedis runs the claim and limiter against a real redis:7 container.
func TestGuardsAgainstRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb, err := guard.NewRedis(ctx, guard.RedisOptions{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, err)
	defer rdb.Close()

	ids := guard.NewIdempotency(rdb)
	c, err := ids.Claim(ctx, "it-k1", time.Minute)
	require.NoError(t, err)
	_, err = ids.Claim(ctx, "it-k1", time.Minute)
	assert.ErrorIs(t, err, apperr.ErrDuplicateRequest)

	ttl, err := rdb.TTL(ctx, "idem:it-k1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	require.NoError(t, ids.Release(ctx, c))
	n, err := rdb.Exists(ctx, "idem:it-k1").Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	limiter := guard.NewRateLimiter(rdb)
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Check(ctx, "it-transfer:w1", 3, time.Hour))
	}
	assert.ErrorIs(t, limiter.Check(ctx, "it-transfer:w1", 3, time.Hour), apperr.ErrRateLimitExceeded)
}

package cache_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis spins up a Redis container and returns a connected RedisCache + cleanup.
func setupRedis(t *testing.T) *cache.RedisCache {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisURL := "redis://" + host + ":" + port.Port()
	rc, err := cache.NewRedisCache(redisURL)
	require.NoError(t, err)

	return rc
}

func integration(t *testing.T) (*cache.RedisCache, context.Context) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	return setupRedis(t), context.Background()
}

func TestRedisCache(t *testing.T) {
	rc, ctx := integration(t)
	customerID := uuid.New()
	runKey := cache.PredictionRunKey(customerID)

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, rc.Ping(ctx))
	})

	t.Run("missing key", func(t *testing.T) {
		val, found, err := rc.Get(ctx, cache.PredictionRunKey(uuid.New()))
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, val)
	})

	t.Run("set then get", func(t *testing.T) {
		run := []byte(`{"customer_id":"` + customerID.String() + `","days_ahead":7}`)
		require.NoError(t, rc.Set(ctx, runKey, run, time.Minute))

		val, found, err := rc.Get(ctx, runKey)
		require.NoError(t, err)
		assert.True(t, found)
		assert.JSONEq(t, string(run), string(val))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, rc.Delete(ctx, runKey))
		_, found, err := rc.Get(ctx, runKey)
		require.NoError(t, err)
		assert.False(t, found)

		assert.NoError(t, rc.Delete(ctx, runKey), "deleting twice is not an error")
	})
}

func TestSet_TTLExpiry(t *testing.T) {
	rc, ctx := integration(t)
	key := cache.SummaryKey(nil, "sla", "short-lived")

	require.NoError(t, rc.Set(ctx, key, []byte("{}"), time.Second))
	_, found, err := rc.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)

	time.Sleep(1500 * time.Millisecond)

	_, found, err = rc.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}

// --- DeletePrefix ---

func TestDeletePrefix(t *testing.T) {
	rc, ctx := integration(t)
	customerID := uuid.New()
	other := uuid.New()

	for i := 0; i < 150; i++ {
		key := cache.SummaryKey(&customerID, "jobs", fmt.Sprintf("h%d", i))
		require.NoError(t, rc.Set(ctx, key, []byte("{}"), time.Minute))
	}
	keep := cache.SummaryKey(&other, "jobs", "h0")
	require.NoError(t, rc.Set(ctx, keep, []byte("{}"), time.Minute))

	n, err := rc.DeletePrefix(ctx, cache.SummaryPrefix(&customerID))
	require.NoError(t, err)
	assert.Equal(t, 150, n)

	_, found, err := rc.Get(ctx, cache.SummaryKey(&customerID, "jobs", "h7"))
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = rc.Get(ctx, keep)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestDeletePrefix_AllSummaries(t *testing.T) {
	rc, ctx := integration(t)
	a, b := uuid.New(), uuid.New()

	for _, key := range []string{
		cache.SummaryKey(&a, "jobs", "x"),
		cache.SummaryKey(&b, "sla", "y"),
		cache.SummaryKey(nil, "volumetrics", "z"),
	} {
		require.NoError(t, rc.Set(ctx, key, []byte("{}"), time.Minute))
	}
	run := cache.PredictionRunKey(a)
	require.NoError(t, rc.Set(ctx, run, []byte("{}"), time.Minute))

	n, err := rc.DeletePrefix(ctx, cache.AllSummariesPrefix())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, found, err := rc.Get(ctx, run)
	require.NoError(t, err)
	assert.True(t, found, "prediction runs are not summaries")
}

// --- IncrWithExpiry ---

func TestIncrWithExpiry_CountsWithinWindow(t *testing.T) {
	rc, ctx := integration(t)
	key := cache.RateLimitKey("bp_" + uuid.NewString()[:5])

	for want := int64(1); want <= 3; want++ {
		got, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestIncrWithExpiry_WindowResets(t *testing.T) {
	rc, ctx := integration(t)
	key := cache.RateLimitKey("bp_" + uuid.NewString()[:5])

	_, err := rc.IncrWithExpiry(ctx, key, time.Second)
	require.NoError(t, err)

	time.Sleep(1500 * time.Millisecond)

	got, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

// --- Cache Key Builders ---

func TestSummaryKey(t *testing.T) {
	customerID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	assert.Equal(t, "summary:11111111-1111-1111-1111-111111111111:jobs:abc123",
		cache.SummaryKey(&customerID, "jobs", "abc123"))
	assert.Equal(t, "summary:all:sla:abc123", cache.SummaryKey(nil, "sla", "abc123"))
}

func TestSummaryPrefix(t *testing.T) {
	customerID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	prefix := cache.SummaryPrefix(&customerID)
	assert.Equal(t, "summary:11111111-1111-1111-1111-111111111111:", prefix)
	assert.True(t, strings.HasPrefix(cache.SummaryKey(&customerID, "failures", "x"), prefix))
	assert.False(t, strings.HasPrefix(cache.SummaryKey(nil, "failures", "x"), prefix))
}

func TestAllSummariesPrefix(t *testing.T) {
	customerID := uuid.New()
	all := cache.AllSummariesPrefix()
	assert.True(t, strings.HasPrefix(cache.SummaryKey(&customerID, "jobs", "x"), all))
	assert.True(t, strings.HasPrefix(cache.SummaryKey(nil, "jobs", "x"), all))
	assert.False(t, strings.HasPrefix(cache.PredictionRunKey(customerID), all))
}

func TestPredictionRunKey(t *testing.T) {
	customerID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	assert.Equal(t, "predict:last:22222222-2222-2222-2222-222222222222", cache.PredictionRunKey(customerID))
}

func TestRateLimitKey(t *testing.T) {
	key := cache.RateLimitKey("bp_abcd1234")
	assert.Equal(t, "ratelimit:bp_abcd1234", key)
}

func TestKeyBuilders_NonColliding(t *testing.T) {
	customerID := uuid.New()

	keys := map[string]bool{
		cache.SummaryKey(&customerID, "jobs", "hash1"): true,
		cache.SummaryKey(nil, "jobs", "hash1"):         true,
		cache.PredictionRunKey(customerID):             true,
		cache.RateLimitKey("bp_prefix"):                true,
	}
	assert.Len(t, keys, 4, "all keys should be unique")
}

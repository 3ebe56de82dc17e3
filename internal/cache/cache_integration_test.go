//go:build integration

package cache

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"niena/internal/config"
	"niena/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: NIENA_TEST_REDIS_ADDR=localhost:6379 go test -tags integration ./internal/cache/
func setupCache(t *testing.T) (*JobCache, *Locker) {
	t.Helper()
	addr := os.Getenv("NIENA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("NIENA_TEST_REDIS_ADDR not set")
	}
	client, err := NewClient(context.Background(), config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewJobCache(client, time.Minute, time.Minute), NewLocker(client)
}

func TestMatchCacheRoundTripAndInvalidation(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()
	user := uuid.NewString()

	_, hit, err := c.GetMatches(ctx, user, 10)
	require.NoError(t, err)
	assert.False(t, hit)

	matches := []domain.JobMatch{{Job: domain.Job{ID: "j1", Title: "Go"}, Similarity: 0.9}}
	require.NoError(t, c.SetMatches(ctx, user, 10, matches))

	got, hit, err := c.GetMatches(ctx, user, 10)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "j1", got[0].Job.ID)

	require.NoError(t, c.InvalidateMatches(ctx, user))
	_, hit, err = c.GetMatches(ctx, user, 10)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestBumpVersionRetiresSearches(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()
	q := uuid.NewString()

	require.NoError(t, c.SetSearch(ctx, q, 10, 0, []domain.Job{{ID: "j1"}}))
	_, hit, err := c.GetSearch(ctx, q, 10, 0)
	require.NoError(t, err)
	assert.True(t, hit)

	_, err = c.BumpJobsVersion(ctx)
	require.NoError(t, err)
	_, hit, err = c.GetSearch(ctx, q, 10, 0)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestLockerIsExclusive(t *testing.T) {
	_, l := setupCache(t)
	ctx := context.Background()
	name := "test-" + uuid.NewString()

	var inner atomic.Bool
	ran, err := l.TryRun(ctx, name, 10*time.Second, func(ctx context.Context) error {
		acquired, err := l.TryRun(ctx, name, 10*time.Second, func(context.Context) error { return nil })
		inner.Store(acquired)
		return err
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, inner.Load())
}

//go:build integration

package guard

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisLocker_ExclusiveAndReleased(t *testing.T) {
	client := redisClient(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	l := NewRedisLocker(client, 5*time.Second, logger)
	gameID := uuid.New()

	unlock, err := l.Lock(context.Background(), gameID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, gameID)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	exists, err := client.Exists(context.Background(), l.key(gameID)).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	unlock2, err := l.Lock(context.Background(), gameID)
	require.NoError(t, err)
	unlock2()
}

func TestRedisLocker_ExpiredLeaseNotStolen(t *testing.T) {
	client := redisClient(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	l := NewRedisLocker(client, 50*time.Millisecond, logger)
	gameID := uuid.New()

	unlock, err := l.Lock(context.Background(), gameID)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	other, err := l.Lock(context.Background(), gameID)
	require.NoError(t, err)

	unlock() // stale token, must not delete the new holder's key
	exists, err := client.Exists(context.Background(), l.key(gameID)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
	other()
}

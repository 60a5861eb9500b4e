package guard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// RedisLocker is a GameLocker shared by every instance pointing at the same
// redis. The lock is a SET NX PX lease; work that outlives ttl loses it.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	prefix string
	logger *slog.Logger
}

// NewRedisLocker creates a redis-backed game lock with the given lease.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		retry:  25 * time.Millisecond,
		prefix: "lottery:lock:game:",
		logger: logger,
	}
}

var _ GameLocker = (*RedisLocker)(nil)

func (l *RedisLocker) key(gameID uuid.UUID) string {
	return l.prefix + gameID.String()
}

func (l *RedisLocker) Lock(ctx context.Context, gameID uuid.UUID) (func(), error) {
	key := l.key(gameID)
	token := uuid.New().String()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire game lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must not be skipped because the caller's ctx ended.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			n, err := releaseScript.Run(rctx, l.client, []string{key}, token).Int64()
			if err != nil {
				l.logger.Error("release game lock failed", "game_id", gameID, "error", err)
			} else if n == 0 {
				l.logger.Warn("game lock expired before release", "game_id", gameID, "ttl", l.ttl)
			}
		})
	}, nil
}

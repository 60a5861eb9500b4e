package guard

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result := rl.Check(ctx, "player-1")
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	ctx := context.Background()

	rl.Check(ctx, "player-1")
	rl.Check(ctx, "player-1")
	result := rl.Check(ctx, "player-1")

	assert.False(t, result.Allowed)
	assert.Equal(t, "rate_limiter", result.Guard)
}

func TestRateLimiter_SeparateKeys(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	ctx := context.Background()

	r1 := rl.Check(ctx, "player-a")
	r2 := rl.Check(ctx, "player-b")

	assert.True(t, r1.Allowed)
	assert.True(t, r2.Allowed)
}

func TestRateLimiter_SweepDropsIdleKeys(t *testing.T) {
	rl := NewRateLimiter(5, 10*time.Millisecond)
	rl.Check(context.Background(), "player-a")
	require.Equal(t, 1, rl.Len())

	time.Sleep(20 * time.Millisecond)
	rl.Sweep()
	assert.Equal(t, 0, rl.Len())
}

func TestRateLimiter_SweeperPrunesInBackground(t *testing.T) {
	rl := NewRateLimiter(5, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl.Check(ctx, "buyer-a")
	rl.Check(ctx, "buyer-b")
	require.Equal(t, 2, rl.Len())

	require.NoError(t, rl.StartSweeper(ctx, 20*time.Millisecond, slog.New(slog.NewJSONHandler(io.Discard, nil))))
	assert.Eventually(t, func() bool { return rl.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestCircuitBreaker_ClosedByDefault(t *testing.T) {
	cb := NewCircuitBreaker(3, 5*time.Second)
	ctx := context.Background()

	result := cb.Check(ctx, "game-a")
	assert.True(t, result.Allowed)
	assert.Equal(t, CircuitClosed, cb.State("game-a"))
}

func TestCircuitBreaker_OpensOnThreshold(t *testing.T) {
	cb := NewCircuitBreaker(2, 5*time.Second)
	ctx := context.Background()

	cb.Check(ctx, "game-a")
	cb.RecordFailure("game-a")
	cb.RecordFailure("game-a")

	result := cb.Check(ctx, "game-a")
	assert.False(t, result.Allowed)
	assert.Equal(t, "circuit_breaker", result.Guard)
	assert.Equal(t, "open", cb.State("game-a").String())
}

func TestCircuitBreaker_FailureWithoutCheckCounts(t *testing.T) {
	cb := NewCircuitBreaker(1, 5*time.Second)

	cb.RecordFailure("game-b")
	assert.False(t, cb.Check(context.Background(), "game-b").Allowed)
}

func TestCircuitBreaker_ForgetResets(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Hour)
	ctx := context.Background()

	cb.RecordFailure("game-a")
	require.False(t, cb.Check(ctx, "game-a").Allowed)

	cb.Forget("game-a")
	assert.True(t, cb.Check(ctx, "game-a").Allowed)
	assert.True(t, cb.Check(ctx, "game-a").Allowed, "a fresh circuit starts closed")
}

func TestCircuitBreaker_HalfOpenTrial(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	ctx := context.Background()

	cb.RecordFailure("game-a")
	require.False(t, cb.Check(ctx, "game-a").Allowed)

	time.Sleep(20 * time.Millisecond)
	require.True(t, cb.Check(ctx, "game-a").Allowed)
	assert.Equal(t, CircuitHalfOpen, cb.State("game-a"))
	assert.False(t, cb.Check(ctx, "game-a").Allowed, "only one trial while half-open")

	cb.RecordFailure("game-a")
	assert.Equal(t, CircuitOpen, cb.State("game-a"), "a failed trial reopens")

	cb.Forget("game-a")
	assert.Equal(t, CircuitClosed, cb.State("game-a"))
}

func TestKeyedMutex_SerialisesSameGame(t *testing.T) {
	km := NewKeyedMutex()
	gameID := uuid.New()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(context.Background(), gameID)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, km.Len(), "idle games are dropped")
}

func TestKeyedMutex_OtherGamesIndependent(t *testing.T) {
	km := NewKeyedMutex()
	unlockA, err := km.Lock(context.Background(), uuid.New())
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := km.Lock(ctx, uuid.New())
	require.NoError(t, err)
	unlockB()
}

func TestKeyedMutex_ContextCancelWhileWaiting(t *testing.T) {
	km := NewKeyedMutex()
	gameID := uuid.New()

	unlock, err := km.Lock(context.Background(), gameID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = km.Lock(ctx, gameID)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op
	assert.Equal(t, 0, km.Len())

	unlock2, err := km.Lock(context.Background(), gameID)
	require.NoError(t, err)
	unlock2()
}

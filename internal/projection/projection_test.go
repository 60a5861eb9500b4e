package projection

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_SetAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	err := store.Set(ctx, "k1", []byte("hello"), 0)
	require.NoError(t, err)

	val, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), val)
}

func TestInMemoryStore_KeyNotFound(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_ = store.Set(ctx, "k1", []byte("data"), 0)
	_ = store.Delete(ctx, "k1")

	_, err := store.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestInMemoryStore_TTLExpiry(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_ = store.Set(ctx, "k1", []byte("data"), 1*time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, err := store.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestBalanceProjection_RoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	err := UpdateBalance(ctx, store, BalanceProjection{UserID: "abc-123", Balance: 100})
	require.NoError(t, err)

	got, err := GetBalance(ctx, store, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Balance)
	assert.NotEmpty(t, got.UpdatedAt)
}

func TestBalanceProjection_Invalidate(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_ = UpdateBalance(ctx, store, BalanceProjection{UserID: "abc-123", Balance: 100})
	_ = InvalidateBalance(ctx, store, "abc-123")

	_, err := GetBalance(ctx, store, "abc-123")
	assert.Error(t, err)
}

func newBalances() *Balances {
	return NewBalances(NewInMemoryStore(), slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestBalances_ApplyEntryKeepsNewest(t *testing.T) {
	b := newBalances()
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	b.ApplyEntry(ctx, &domain.LedgerEntry{UserID: userID, BalanceAfter: 80, CreatedAt: now})
	b.ApplyEntry(ctx, &domain.LedgerEntry{UserID: userID, BalanceAfter: 50, CreatedAt: now.Add(-time.Second)})

	bal, ok := b.Lookup(ctx, userID)
	require.True(t, ok)
	assert.Equal(t, int64(80), bal, "an older entry must not overwrite a newer one")

	b.ApplyEntry(ctx, &domain.LedgerEntry{UserID: userID, BalanceAfter: 100, CreatedAt: now.Add(time.Second)})
	bal, _ = b.Lookup(ctx, userID)
	assert.Equal(t, int64(100), bal)
}

func TestBalances_ApplyEvent(t *testing.T) {
	b := newBalances()
	ctx := context.Background()
	entry := &domain.LedgerEntry{ID: uuid.New(), UserID: uuid.New(), Delta: 50, BalanceAfter: 150, CreatedAt: time.Now()}
	draft := domain.NewEntryPostedEvent(entry)

	require.NoError(t, b.ApplyEvent(ctx, string(draft.EventType), draft.Payload))
	bal, ok := b.Lookup(ctx, entry.UserID)
	require.True(t, ok)
	assert.Equal(t, int64(150), bal)

	assert.NoError(t, b.ApplyEvent(ctx, string(domain.EventGameCancelled), json.RawMessage(`{}`)), "other events ignored")
	assert.Error(t, b.ApplyEvent(ctx, string(domain.EventEntryPosted), json.RawMessage(`{`)))
	assert.Error(t, b.ApplyEvent(ctx, string(domain.EventEntryPosted), json.RawMessage(`{}`)))
}

func TestBalances_PrimeAndForget(t *testing.T) {
	b := newBalances()
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), Balance: 42, UpdatedAt: time.Now()}

	_, ok := b.Lookup(ctx, user.ID)
	assert.False(t, ok)

	b.Prime(ctx, user)
	bal, ok := b.Lookup(ctx, user.ID)
	require.True(t, ok)
	assert.Equal(t, int64(42), bal)

	b.Forget(ctx, user.ID)
	_, ok = b.Lookup(ctx, user.ID)
	assert.False(t, ok)
}

func TestBalances_PrimeNeverReplacesAppliedEntry(t *testing.T) {
	b := newBalances()
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	// A purchase commits between the store read and Prime.
	b.ApplyEntry(ctx, &domain.LedgerEntry{UserID: userID, BalanceAfter: 50, CreatedAt: now})
	b.Prime(ctx, &domain.User{ID: userID, Balance: 100, UpdatedAt: now.Add(-time.Second)})

	bal, ok := b.Lookup(ctx, userID)
	require.True(t, ok)
	assert.Equal(t, int64(50), bal)

	// A later entry still replaces the primed value.
	b.Forget(ctx, userID)
	b.Prime(ctx, &domain.User{ID: userID, Balance: 50, UpdatedAt: now})
	b.ApplyEntry(ctx, &domain.LedgerEntry{UserID: userID, BalanceAfter: 20, CreatedAt: now.Add(time.Second)})
	bal, _ = b.Lookup(ctx, userID)
	assert.Equal(t, int64(20), bal)
}

func TestInMemoryStore_SetIfAbsent(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	wrote, err := s.SetIfAbsent(ctx, "k", []byte("a"), 0)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = s.SetIfAbsent(ctx, "k", []byte("b"), 0)
	require.NoError(t, err)
	assert.False(t, wrote)
	got, _ := s.Get(ctx, "k")
	assert.Equal(t, []byte("a"), got)

	require.NoError(t, s.Set(ctx, "short", []byte("old"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	wrote, err = s.SetIfAbsent(ctx, "short", []byte("new"), 0)
	require.NoError(t, err)
	assert.True(t, wrote, "expired keys count as absent")
}

package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/google/uuid"
)

// BalanceProjection represents a cached user balance.
type BalanceProjection struct {
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	AsOf      time.Time `json:"as_of"` // created_at of the newest entry applied
	UpdatedAt string    `json:"updated_at"`
}

const balanceTTL = 5 * time.Minute

func balanceKey(userID string) string {
	return fmt.Sprintf("projection:balance:%s", userID)
}

// UpdateBalance caches a user's balance projection.
func UpdateBalance(ctx context.Context, store Store, p BalanceProjection) error {
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return SetJSON(ctx, store, balanceKey(p.UserID), p, balanceTTL)
}

// GetBalance retrieves a cached user balance projection.
func GetBalance(ctx context.Context, store Store, userID string) (*BalanceProjection, error) {
	var p BalanceProjection
	if err := GetJSON(ctx, store, balanceKey(userID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// InvalidateBalance removes a user's cached balance.
func InvalidateBalance(ctx context.Context, store Store, userID string) error {
	return store.Delete(ctx, balanceKey(userID))
}

// Balances maintains balance projections from posted ledger entries. It is a
// best-effort cache: errors are logged, never returned to the ledger, and
// the TTL bounds how long a missed update can be served.
type Balances struct {
	store  Store
	logger *slog.Logger
}

// NewBalances creates a balance projector over store.
func NewBalances(store Store, logger *slog.Logger) *Balances {
	return &Balances{store: store, logger: logger}
}

// ApplyEntry records entry.BalanceAfter unless a newer entry was already applied.
func (b *Balances) ApplyEntry(ctx context.Context, entry *domain.LedgerEntry) {
	userID := entry.UserID.String()
	current, err := GetBalance(ctx, b.store, userID)
	if err == nil && current.AsOf.After(entry.CreatedAt) {
		return
	}
	if err != nil && !errors.Is(err, ErrMiss) {
		b.logger.Warn("balance projection read failed", "user_id", userID, "error", err)
	}

	p := BalanceProjection{UserID: userID, Balance: entry.BalanceAfter, AsOf: entry.CreatedAt}
	if err := UpdateBalance(ctx, b.store, p); err != nil {
		b.logger.Warn("balance projection write failed", "user_id", userID, "error", err)
	}
}

// ApplyEvent feeds a wallet entry-posted outbox payload into the projection.
// Other event types are ignored.
func (b *Balances) ApplyEvent(ctx context.Context, eventType string, payload json.RawMessage) error {
	if domain.EventType(eventType) != domain.EventEntryPosted {
		return nil
	}
	var entry domain.LedgerEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return fmt.Errorf("decode entry payload: %w", err)
	}
	if entry.UserID == uuid.Nil {
		return fmt.Errorf("entry payload has no user_id")
	}
	b.ApplyEntry(ctx, &entry)
	return nil
}

// Lookup returns the cached balance, or false on a miss or store error.
func (b *Balances) Lookup(ctx context.Context, userID uuid.UUID) (int64, bool) {
	p, err := GetBalance(ctx, b.store, userID.String())
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			b.logger.Warn("balance projection lookup failed", "user_id", userID, "error", err)
		}
		return 0, false
	}
	return p.Balance, true
}

// Prime caches a balance read from the ledger store. It only fills a miss:
// an entry applied after the store read must not be replaced by the older
// snapshot.
func (b *Balances) Prime(ctx context.Context, user *domain.User) {
	p := BalanceProjection{
		UserID:    user.ID.String(),
		Balance:   user.Balance,
		AsOf:      user.UpdatedAt,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(p)
	if err != nil {
		b.logger.Warn("balance projection prime failed", "user_id", user.ID, "error", err)
		return
	}
	if _, err := b.store.SetIfAbsent(ctx, balanceKey(p.UserID), data, balanceTTL); err != nil {
		b.logger.Warn("balance projection prime failed", "user_id", user.ID, "error", err)
	}
}

// Forget drops a user's cached balance.
func (b *Balances) Forget(ctx context.Context, userID uuid.UUID) {
	if err := InvalidateBalance(ctx, b.store, userID.String()); err != nil {
		b.logger.Warn("balance projection invalidate failed", "user_id", userID, "error", err)
	}
}

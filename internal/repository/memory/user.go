package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/repository"
	"github.com/google/uuid"
)

// UserRepository is an in-memory User Ledger. WithinTx serialises all ledger
// units of work and stages their writes until fn returns nil.
type UserRepository struct {
	mu      sync.Mutex
	users   map[uuid.UUID]domain.User
	entries []domain.LedgerEntry
	keys    map[domain.IdempotencyKey]int // index into entries
	outbox  *OutboxRepository
}

// NewUserRepository creates an empty in-memory user store. Wallet events are
// written to outbox; it may be nil when events are not needed.
func NewUserRepository(outbox *OutboxRepository) *UserRepository {
	return &UserRepository{
		users:  make(map[uuid.UUID]domain.User),
		keys:   make(map[domain.IdempotencyKey]int),
		outbox: outbox,
	}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return domain.ErrConflict(fmt.Sprintf("user %s already exists", user.ID))
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, id)
	return nil
}

func (r *UserRepository) ListEntries(_ context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.LedgerEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].UserID == userID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *UserRepository) WithinTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &ledgerTx{repo: r, users: make(map[uuid.UUID]domain.User)}
	if err := fn(tx); err != nil {
		return err
	}

	for id, u := range tx.users {
		r.users[id] = u
	}
	for _, e := range tx.entries {
		r.keys[domain.IdempotencyKey{UserID: e.UserID, Key: e.IdempotencyKey}] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	if r.outbox != nil {
		for _, d := range tx.events {
			_ = r.outbox.Insert(ctx, d)
		}
	}
	return nil
}

// Entries returns every ledger entry in posting order.
func (r *UserRepository) Entries() []domain.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.LedgerEntry(nil), r.entries...)
}

// ledgerTx stages writes; it is only used while repo.mu is held.
type ledgerTx struct {
	repo    *UserRepository
	users   map[uuid.UUID]domain.User
	entries []domain.LedgerEntry
	events  []domain.OutboxDraft
}

func (t *ledgerTx) user(id uuid.UUID) (domain.User, bool) {
	if u, ok := t.users[id]; ok {
		return u, true
	}
	u, ok := t.repo.users[id]
	return u, ok
}

func (t *ledgerTx) LockUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := t.user(id)
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (t *ledgerTx) FindEntry(_ context.Context, key domain.IdempotencyKey) (*domain.LedgerEntry, error) {
	for i := range t.entries {
		if t.entries[i].UserID == key.UserID && t.entries[i].IdempotencyKey == key.Key {
			e := t.entries[i]
			return &e, nil
		}
	}
	if idx, ok := t.repo.keys[key]; ok {
		e := t.repo.entries[idx]
		return &e, nil
	}
	return nil, nil
}

func (t *ledgerTx) UpdateBalance(_ context.Context, id uuid.UUID, delta int64) (*domain.User, error) {
	u, ok := t.user(id)
	if !ok {
		return nil, nil
	}
	u.Balance += delta
	u.UpdatedAt = time.Now()
	t.users[id] = u
	return &u, nil
}

func (t *ledgerTx) InsertEntry(ctx context.Context, params domain.PostLedgerEntryParams, balanceAfter int64) (*domain.LedgerEntry, error) {
	existing, _ := t.FindEntry(ctx, domain.IdempotencyKey{UserID: params.UserID, Key: params.IdempotencyKey})
	if existing != nil {
		return nil, domain.ErrConflict(fmt.Sprintf("ledger entry %s already posted", params.IdempotencyKey))
	}
	meta := params.Metadata
	if meta == nil {
		meta = json.RawMessage(`{}`)
	}
	e := domain.LedgerEntry{
		ID:             uuid.New(),
		UserID:         params.UserID,
		Type:           params.Type,
		Delta:          params.Delta,
		BalanceAfter:   balanceAfter,
		IdempotencyKey: params.IdempotencyKey,
		GameID:         params.GameID,
		Metadata:       meta,
		CreatedAt:      time.Now(),
	}
	t.entries = append(t.entries, e)
	return &e, nil
}

func (t *ledgerTx) InsertOutbox(_ context.Context, draft domain.OutboxDraft) error {
	t.events = append(t.events, draft)
	return nil
}

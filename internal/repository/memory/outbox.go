package memory

import (
	"context"
	"sync"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/repository"
)

// OutboxRepository is an in-memory event outbox.
type OutboxRepository struct {
	mu     sync.Mutex
	seq    int64
	events []domain.OutboxRow
}

// NewOutboxRepository creates an empty in-memory outbox.
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

var _ repository.OutboxRepository = (*OutboxRepository)(nil)

func (r *OutboxRepository) Insert(_ context.Context, draft domain.OutboxDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.events = append(r.events, domain.OutboxRow{SeqID: r.seq, OutboxDraft: draft})
	return nil
}

func (r *OutboxRepository) FetchUnpublished(_ context.Context, limit int) ([]domain.OutboxRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > len(r.events) {
		limit = len(r.events)
	}
	return append([]domain.OutboxRow(nil), r.events[:limit]...), nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	done := make(map[int64]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	kept := r.events[:0]
	for _, e := range r.events {
		if !done[e.SeqID] {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}

// EventsOfType returns pending events with the given type.
func (r *OutboxRepository) EventsOfType(t domain.EventType) []domain.OutboxRow {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.OutboxRow
	for _, e := range r.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

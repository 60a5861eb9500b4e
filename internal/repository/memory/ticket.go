package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/repository"
	"github.com/google/uuid"
)

// TicketRepository is an in-memory Ticket Store keyed by game, then number.
type TicketRepository struct {
	mu      sync.RWMutex
	tickets map[uuid.UUID]map[int64]domain.Ticket
}

// NewTicketRepository creates an empty in-memory ticket store.
func NewTicketRepository() *TicketRepository {
	return &TicketRepository{tickets: make(map[uuid.UUID]map[int64]domain.Ticket)}
}

var _ repository.TicketRepository = (*TicketRepository)(nil)

func (r *TicketRepository) Insert(_ context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byNumber, ok := r.tickets[t.GameID]
	if !ok {
		byNumber = make(map[int64]domain.Ticket)
		r.tickets[t.GameID] = byNumber
	}
	if _, taken := byNumber[t.Number]; taken {
		return domain.ErrTicketTaken(t.GameID.String(), t.Number)
	}
	byNumber[t.Number] = *t
	return nil
}

func (r *TicketRepository) Find(_ context.Context, gameID uuid.UUID, number int64) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tickets[gameID][number]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *TicketRepository) FindByGameID(_ context.Context, gameID uuid.UUID) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Ticket, 0, len(r.tickets[gameID]))
	for _, t := range r.tickets[gameID] {
		out = append(out, t)
	}
	sortedByNumber(out)
	return out, nil
}

func (r *TicketRepository) DeleteAllByGameID(_ context.Context, gameID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.tickets[gameID]))
	delete(r.tickets, gameID)
	return n, nil
}

func sortedByNumber(tickets []domain.Ticket) {
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].Number < tickets[j].Number })
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/repository"
	"github.com/google/uuid"
)

// PrizeRepository is an in-memory Prize Store.
type PrizeRepository struct {
	mu     sync.RWMutex
	prizes map[uuid.UUID]domain.Prize
}

// NewPrizeRepository creates an empty in-memory prize store.
func NewPrizeRepository() *PrizeRepository {
	return &PrizeRepository{prizes: make(map[uuid.UUID]domain.Prize)}
}

var _ repository.PrizeRepository = (*PrizeRepository)(nil)

func (r *PrizeRepository) Insert(_ context.Context, p *domain.Prize) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.prizes[p.ID]; ok {
		return domain.ErrConflict(fmt.Sprintf("prize %s already exists", p.ID))
	}
	r.prizes[p.ID] = *p
	return nil
}

func (r *PrizeRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Prize, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.prizes[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *PrizeRepository) FindByGameID(_ context.Context, gameID uuid.UUID) ([]domain.Prize, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Prize, 0)
	for _, p := range r.prizes {
		if p.GameID == gameID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AwardedAt.Equal(out[j].AwardedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].AwardedAt.Before(out[j].AwardedAt)
	})
	return out, nil
}

func (r *PrizeRepository) DeleteAllByGameID(_ context.Context, gameID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, p := range r.prizes {
		if p.GameID == gameID {
			delete(r.prizes, id)
			n++
		}
	}
	return n, nil
}

func (r *PrizeRepository) UpdateStatus(_ context.Context, id uuid.UUID, next, expected domain.PrizeStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.prizes[id]
	if !ok || p.Status != expected {
		return false, nil
	}
	p.Status = next
	r.prizes[id] = p
	return true, nil
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/repository"
	"github.com/google/uuid"
)

// GameRepository is an in-memory Game Store.
type GameRepository struct {
	mu    sync.RWMutex
	games map[uuid.UUID]domain.Game
}

// NewGameRepository creates an empty in-memory game store.
func NewGameRepository() *GameRepository {
	return &GameRepository{games: make(map[uuid.UUID]domain.Game)}
}

var _ repository.GameRepository = (*GameRepository)(nil)

func (r *GameRepository) Create(_ context.Context, g *domain.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.games[g.ID]; ok {
		return domain.ErrConflict(fmt.Sprintf("game %s already exists", g.ID))
	}
	r.games[g.ID] = *g
	return nil
}

func (r *GameRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.games[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (r *GameRepository) SetStatus(_ context.Context, id uuid.UUID, status, expected domain.GameStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok || g.Status != expected {
		return false, nil
	}
	g.Status = status
	g.UpdatedAt = time.Now()
	r.games[id] = g
	return true, nil
}

func (r *GameRepository) ListByStatus(_ context.Context, status domain.GameStatus) ([]domain.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Game
	for _, g := range r.games {
		if g.Status == status {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

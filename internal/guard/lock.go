package guard

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// GameLocker serialises work on one game. Lock blocks until the game is
// free or ctx is done; the returned func releases the lock and is safe to
// call more than once.
type GameLocker interface {
	Lock(ctx context.Context, gameID uuid.UUID) (unlock func(), err error)
}

// KeyedMutex is an in-process GameLocker. Entries are dropped once no
// caller holds or waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*slot
}

type slot struct {
	ch   chan struct{} // buffered(1); a value in the buffer means held
	refs int
}

// NewKeyedMutex creates an empty in-process game lock.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[uuid.UUID]*slot)}
}

var _ GameLocker = (*KeyedMutex)(nil)

func (k *KeyedMutex) Lock(ctx context.Context, gameID uuid.UUID) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[gameID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[gameID] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(gameID, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			k.release(gameID, s)
		})
	}, nil
}

func (k *KeyedMutex) release(gameID uuid.UUID, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, gameID)
	}
}

// Len returns the number of games currently held or awaited.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}

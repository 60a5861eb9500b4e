package cancellation

import (
	"bytes"
	"sort"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/google/uuid"
)

// Adjustment is one user's netted balance correction for a cancelled game.
type Adjustment struct {
	UserID   uuid.UUID `json:"user_id"`
	Delta    int64     `json:"delta"`    // Refunds - Reversed
	Refunds  int64     `json:"refunds"`  // sum of ticket prices paid
	Reversed int64     `json:"reversed"` // sum of point prizes credited
	Replayed bool      `json:"replayed"` // already applied by an earlier run
}

// Net folds tickets and prizes into one adjustment per owner, ordered by
// user ID. Physical prizes contribute nothing; an owner whose refunds and
// reversals cancel out still gets a zero adjustment.
func Net(tickets []domain.Ticket, prizes []domain.Prize) []Adjustment {
	byUser := make(map[uuid.UUID]*Adjustment)
	get := func(id uuid.UUID) *Adjustment {
		a, ok := byUser[id]
		if !ok {
			a = &Adjustment{UserID: id}
			byUser[id] = a
		}
		return a
	}

	for _, t := range tickets {
		get(t.OwnerID).Refunds += t.PricePaid
	}
	for i := range prizes {
		if amount := prizes[i].LedgerAmount(); amount != 0 {
			get(prizes[i].OwnerID).Reversed += amount
		}
	}

	out := make([]Adjustment, 0, len(byUser))
	for _, a := range byUser {
		a.Delta = a.Refunds - a.Reversed
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].UserID[:], out[j].UserID[:]) < 0
	})
	return out
}

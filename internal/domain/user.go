package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a player account as seen by the ledger. Balance is integer points.
type User struct {
	ID        uuid.UUID `json:"id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

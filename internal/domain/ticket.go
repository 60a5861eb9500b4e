package domain

import (
	"time"

	"github.com/google/uuid"
)

// Ticket is a sold ticket. (GameID, Number) is unique.
type Ticket struct {
	GameID      uuid.UUID `json:"game_id"`
	Number      int64     `json:"number"`
	OwnerID     uuid.UUID `json:"owner_id"`
	PricePaid   int64     `json:"price_paid"`
	PurchasedAt time.Time `json:"purchased_at"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus tracks the lifecycle of a game.
type GameStatus string

const (
	GameActive     GameStatus = "active"
	GameClosed     GameStatus = "closed"
	GameCancelling GameStatus = "cancelling"
	GameCancelled  GameStatus = "cancelled"
)

// Game represents a lottery game. Tickets and prizes reference it by ID.
type Game struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	TicketPrice int64      `json:"ticket_price"`
	Status      GameStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Cancellable reports whether a cancellation may start from this status.
func (s GameStatus) Cancellable() bool {
	return s == GameActive || s == GameClosed
}

// AcceptsPurchases reports whether tickets may still be sold.
func (s GameStatus) AcceptsPurchases() bool {
	return s == GameActive
}

// AcceptsAwards reports whether prizes may still be awarded.
func (s GameStatus) AcceptsAwards() bool {
	return s == GameActive || s == GameClosed
}

// Valid reports whether s is a known status.
func (s GameStatus) Valid() bool {
	switch s {
	case GameActive, GameClosed, GameCancelling, GameCancelled:
		return true
	}
	return false
}

package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

func newDraft(agg AggregateType, aggID string, evt EventType, payload interface{}) OutboxDraft {
	data, _ := json.Marshal(payload)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: agg,
		AggregateID:   aggID,
		EventType:     evt,
		PartitionKey:  aggID,
		Headers:       json.RawMessage(`{}`),
		Payload:       data,
		OccurredAt:    time.Now(),
	}
}

// NewEntryPostedEvent creates the standard wallet event for a ledger entry.
func NewEntryPostedEvent(entry *LedgerEntry) OutboxDraft {
	return newDraft(AggregateWallet, entry.UserID.String(), EventEntryPosted, entry)
}

// NewTicketPurchasedEvent is emitted once a ticket is stored and paid for.
func NewTicketPurchasedEvent(t *Ticket) OutboxDraft {
	return newDraft(AggregateGame, t.GameID.String(), EventTicketPurchased, t)
}

// NewPrizeAwardedEvent is emitted once a prize is recorded (and credited, for points).
func NewPrizeAwardedEvent(p *Prize) OutboxDraft {
	return newDraft(AggregateGame, p.GameID.String(), EventPrizeAwarded, p)
}

// NewGameCancelledEvent summarises a completed cancellation.
func NewGameCancelledEvent(gameID uuid.UUID, ticketsDeleted, prizesDeleted int64, netRefunded int64, skipped []uuid.UUID) OutboxDraft {
	return newDraft(AggregateGame, gameID.String(), EventGameCancelled, map[string]interface{}{
		"game_id":         gameID.String(),
		"tickets_deleted": ticketsDeleted,
		"prizes_deleted":  prizesDeleted,
		"net_refunded":    netRefunded,
		"skipped_users":   skipped,
	})
}

// NewRefundSkippedEvent flags a compensation that could not be applied because
// the user no longer exists. The amount is written off; operators decide on escrow.
func NewRefundSkippedEvent(gameID, userID uuid.UUID, delta int64) OutboxDraft {
	return newDraft(AggregateGame, gameID.String(), EventRefundSkipped, map[string]interface{}{
		"game_id": gameID.String(),
		"user_id": userID.String(),
		"delta":   delta,
	})
}

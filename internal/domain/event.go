package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventEntryPosted     EventType = "lottery.wallet.entry.posted"
	EventTicketPurchased EventType = "lottery.ticket.purchased"
	EventPrizeAwarded    EventType = "lottery.prize.awarded"
	EventGameCancelled   EventType = "lottery.game.cancelled"
	EventRefundSkipped   EventType = "lottery.cancellation.refund_skipped"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateWallet AggregateType = "wallet"
	AggregateGame   AggregateType = "game"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// OutboxRow is an OutboxDraft as stored, with its sequence ID.
type OutboxRow struct {
	SeqID int64
	OutboxDraft
}

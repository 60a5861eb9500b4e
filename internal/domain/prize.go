package domain

import (
	"time"

	"github.com/google/uuid"
)

// PrizeType distinguishes ledger-affecting prizes from goods.
type PrizeType string

const (
	PrizePoints   PrizeType = "points"
	PrizePhysical PrizeType = "physical"
)

// Valid reports whether t is a known prize type.
func (t PrizeType) Valid() bool {
	return t == PrizePoints || t == PrizePhysical
}

// PrizeStatus tracks fulfilment. Point prizes are settled at creation;
// physical prizes move pending_shipment -> shipment_notified -> shipped.
type PrizeStatus string

const (
	PrizeSettled          PrizeStatus = "settled"
	PrizePendingShipment  PrizeStatus = "pending_shipment"
	PrizeShipmentNotified PrizeStatus = "shipment_notified"
	PrizeShipped          PrizeStatus = "shipped"
)

var shipmentOrder = map[PrizeStatus]int{
	PrizePendingShipment:  1,
	PrizeShipmentNotified: 2,
	PrizeShipped:          3,
}

// Prize is awarded against a ticket. The (GameID, TicketNumber) pair is a
// lookup reference only; the prize store owns the record.
type Prize struct {
	ID           uuid.UUID   `json:"id"`
	GameID       uuid.UUID   `json:"game_id"`
	TicketNumber int64       `json:"ticket_number"`
	OwnerID      uuid.UUID   `json:"owner_id"`
	Type         PrizeType   `json:"type"`
	Content      string      `json:"content"`
	Amount       int64       `json:"amount"`
	Status       PrizeStatus `json:"status"`
	AwardedAt    time.Time   `json:"awarded_at"`
}

// InitialPrizeStatus returns the status a freshly awarded prize starts in.
func InitialPrizeStatus(t PrizeType) PrizeStatus {
	if t == PrizePoints {
		return PrizeSettled
	}
	return PrizePendingShipment
}

// CanAdvanceTo reports whether the prize may move to next. Only physical
// prizes have a shipment lifecycle and it only moves forward.
func (p *Prize) CanAdvanceTo(next PrizeStatus) bool {
	if p.Type != PrizePhysical {
		return false
	}
	cur, ok := shipmentOrder[p.Status]
	if !ok {
		return false
	}
	nxt, ok := shipmentOrder[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// LedgerAmount is the balance credit this prize granted at award time.
func (p *Prize) LedgerAmount() int64 {
	if p.Type != PrizePoints {
		return 0
	}
	return p.Amount
}

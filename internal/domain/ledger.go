package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntryType enumerates all ledger entry types.
type EntryType string

const (
	EntryInitialGrant         EntryType = "initial_grant"
	EntryTicketPurchase       EntryType = "ticket_purchase"
	EntryPurchaseCompensation EntryType = "purchase_compensation"
	EntryPrizeCredit          EntryType = "prize_credit"
	EntryPrizeCreditReversal  EntryType = "prize_credit_reversal"
	EntryGameCancel           EntryType = "game_cancel_compensation"
)

// LedgerEntry is an append-only record of one balance mutation.
type LedgerEntry struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	Type           EntryType       `json:"type"`
	Delta          int64           `json:"delta"`
	BalanceAfter   int64           `json:"balance_after"`
	IdempotencyKey string          `json:"idempotency_key"`
	GameID         *uuid.UUID      `json:"game_id,omitempty"`
	Metadata       json.RawMessage `json:"metadata"`
	CreatedAt      time.Time       `json:"created_at"`
}

// IdempotencyKey is the composite key used for deduplication. Keys are
// scoped per user: the same Key string may be used for several users.
type IdempotencyKey struct {
	UserID uuid.UUID
	Key    string
}

// PostLedgerEntryParams is the input to the atomic PostLedgerEntry operation.
type PostLedgerEntryParams struct {
	UserID         uuid.UUID
	Type           EntryType
	Delta          int64
	IdempotencyKey string
	GameID         *uuid.UUID
	Metadata       json.RawMessage
}

// CommandResult is the return value from all ledger commands.
type CommandResult struct {
	Entry      *LedgerEntry
	User       *User
	Events     []OutboxDraft
	Idempotent bool // true if this was a duplicate that returned the existing entry
}

// PurchaseDebitParams holds the input for ExecutePurchaseDebit.
type PurchaseDebitParams struct {
	UserID       uuid.UUID
	GameID       uuid.UUID
	TicketNumber int64
	Price        int64
}

// PrizeCreditParams holds the input for ExecutePrizeCredit and ExecutePrizeReversal.
type PrizeCreditParams struct {
	UserID       uuid.UUID
	GameID       uuid.UUID
	PrizeID      uuid.UUID
	TicketNumber int64
	Amount       int64
}

// CancelCompensationParams holds the input for ExecuteCancelCompensation.
// Delta is the netted amount for one user: refunds minus prize reversals.
type CancelCompensationParams struct {
	UserID   uuid.UUID
	GameID   uuid.UUID
	Delta    int64
	Refunds  int64
	Reversed int64
}

// Idempotency key builders. Each names the business fact the entry records,
// so a retry of the same fact always maps to the same key.

func PurchaseKey(gameID uuid.UUID, number int64) string {
	return fmt.Sprintf("purchase:%s:%d", gameID, number)
}

func PurchaseRevertKey(gameID uuid.UUID, number int64) string {
	return fmt.Sprintf("purchase-revert:%s:%d", gameID, number)
}

func PrizeKey(prizeID uuid.UUID) string {
	return fmt.Sprintf("prize:%s", prizeID)
}

func PrizeRevertKey(prizeID uuid.UUID) string {
	return fmt.Sprintf("prize-revert:%s", prizeID)
}

func GameCancelKey(gameID uuid.UUID) string {
	return fmt.Sprintf("game-cancel:%s", gameID)
}

func InitialGrantKey(userID uuid.UUID) string {
	return fmt.Sprintf("initial-grant:%s", userID)
}

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Validator Tests ---

func TestValidatePositiveAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		wantErr bool
	}{
		{"positive", 100, false},
		{"one point", 1, false},
		{"large amount", 999_999_999, false},
		{"zero", 0, true},
		{"negative", -100, true},
		{"min int64", -9223372036854775808, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositiveAmount(tt.amount)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "amount must be positive")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateTicketPrice(t *testing.T) {
	require.NoError(t, ValidateTicketPrice(0))
	require.NoError(t, ValidateTicketPrice(50))
	err := ValidateTicketPrice(-1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative")
}

func TestValidateTicketNumber(t *testing.T) {
	require.NoError(t, ValidateTicketNumber(1))
	require.Error(t, ValidateTicketNumber(0))
	require.Error(t, ValidateTicketNumber(-7))
}

func TestValidatePrizeContent(t *testing.T) {
	tests := []struct {
		name       string
		prizeType  PrizeType
		content    string
		wantAmount int64
		wantErr    string
	}{
		{"points", PrizePoints, "30", 30, ""},
		{"points with spaces", PrizePoints, " 125 ", 125, ""},
		{"points empty", PrizePoints, "", 0, "content is required"},
		{"points not a number", PrizePoints, "thirty", 0, "is not an integer"},
		{"points fractional", PrizePoints, "12.5", 0, "is not an integer"},
		{"points zero", PrizePoints, "0", 0, "amount must be positive"},
		{"points negative", PrizePoints, "-5", 0, "amount must be positive"},
		{"physical", PrizePhysical, "Mountain bike", 0, ""},
		{"physical empty", PrizePhysical, "  ", 0, "content is required"},
		{"unknown type", PrizeType("voucher"), "x", 0, "unknown prize type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := ValidatePrizeContent(tt.prizeType, tt.content)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, amount)
		})
	}
}

// --- Game status Tests ---

func TestGameStatusTransitions(t *testing.T) {
	tests := []struct {
		status      GameStatus
		cancellable bool
		purchases   bool
		awards      bool
	}{
		{GameActive, true, true, true},
		{GameClosed, true, false, true},
		{GameCancelling, false, false, false},
		{GameCancelled, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.status.Valid())
			assert.Equal(t, tt.cancellable, tt.status.Cancellable())
			assert.Equal(t, tt.purchases, tt.status.AcceptsPurchases())
			assert.Equal(t, tt.awards, tt.status.AcceptsAwards())
		})
	}

	assert.False(t, GameStatus("archived").Valid())
}

// --- Prize Tests ---

func TestPrize_CanAdvanceTo(t *testing.T) {
	physical := &Prize{Type: PrizePhysical, Status: PrizePendingShipment}
	assert.True(t, physical.CanAdvanceTo(PrizeShipmentNotified))
	assert.True(t, physical.CanAdvanceTo(PrizeShipped))
	assert.False(t, physical.CanAdvanceTo(PrizePendingShipment))
	assert.False(t, physical.CanAdvanceTo(PrizeSettled))

	shipped := &Prize{Type: PrizePhysical, Status: PrizeShipped}
	assert.False(t, shipped.CanAdvanceTo(PrizeShipmentNotified))

	points := &Prize{Type: PrizePoints, Status: PrizeSettled}
	assert.False(t, points.CanAdvanceTo(PrizeShipped))
}

func TestPrize_LedgerAmount(t *testing.T) {
	assert.Equal(t, int64(30), (&Prize{Type: PrizePoints, Amount: 30}).LedgerAmount())
	assert.Equal(t, int64(0), (&Prize{Type: PrizePhysical, Amount: 30}).LedgerAmount())
}

func TestInitialPrizeStatus(t *testing.T) {
	assert.Equal(t, PrizeSettled, InitialPrizeStatus(PrizePoints))
	assert.Equal(t, PrizePendingShipment, InitialPrizeStatus(PrizePhysical))
}

// --- AppError Tests ---

func TestAppError_Error(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := ErrGameNotFound("abc-123")
		assert.Equal(t, "GAME_NOT_FOUND: game abc-123 not found", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := ErrStoreUnavailable("tickets", cause)
		assert.Contains(t, err.Error(), "STORE_UNAVAILABLE")
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := ErrInternal("wrapped", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("cancel: %w", ErrUserNotFound("u1"))
	assert.True(t, IsCode(err, CodeUserNotFound))
	assert.False(t, IsCode(err, CodeGameNotFound))
	assert.False(t, IsCode(errors.New("plain"), CodeUserNotFound))
	assert.False(t, IsCode(nil, CodeUserNotFound))
}

func TestErrorFactories(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"ErrGameNotFound", ErrGameNotFound("g"), "GAME_NOT_FOUND", 404},
		{"ErrTicketNotFound", ErrTicketNotFound("g", 1), "TICKET_NOT_FOUND", 404},
		{"ErrUserNotFound", ErrUserNotFound("u"), "USER_NOT_FOUND", 404},
		{"ErrPrizeNotFound", ErrPrizeNotFound("p"), "PRIZE_NOT_FOUND", 404},
		{"ErrGameNotOpen", ErrGameNotOpen("g", GameCancelled), "GAME_NOT_OPEN", 409},
		{"ErrTicketTaken", ErrTicketTaken("g", 3), "TICKET_TAKEN", 409},
		{"ErrStoreUnavailable", ErrStoreUnavailable("games", nil), "STORE_UNAVAILABLE", 503},
		{"ErrConflict", ErrConflict("already exists"), "CONFLICT", 409},
		{"ErrValidation", ErrValidation("bad input"), "VALIDATION_ERROR", 400},
		{"ErrUnauthorized", ErrUnauthorized("no token"), "UNAUTHORIZED", 401},
		{"ErrInsufficientBalance", ErrInsufficientBalance(), "INSUFFICIENT_BALANCE", 400},
		{"ErrInternal", ErrInternal("oops", nil), "INTERNAL_ERROR", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.Status)
		})
	}
}

// --- Key and Event Tests ---

func TestIdempotencyKeys(t *testing.T) {
	gameID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	prizeID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	assert.Equal(t, "purchase:11111111-1111-1111-1111-111111111111:7", PurchaseKey(gameID, 7))
	assert.Equal(t, "purchase-revert:11111111-1111-1111-1111-111111111111:7", PurchaseRevertKey(gameID, 7))
	assert.Equal(t, "prize:22222222-2222-2222-2222-222222222222", PrizeKey(prizeID))
	assert.Equal(t, "prize-revert:22222222-2222-2222-2222-222222222222", PrizeRevertKey(prizeID))
	assert.Equal(t, "game-cancel:11111111-1111-1111-1111-111111111111", GameCancelKey(gameID))
	assert.NotEqual(t, PurchaseKey(gameID, 1), PurchaseKey(gameID, 2))
}

func TestNewEntryPostedEvent(t *testing.T) {
	userID := uuid.New()
	entry := &LedgerEntry{ID: uuid.New(), UserID: userID, Type: EntryTicketPurchase, Delta: -50}

	event := NewEntryPostedEvent(entry)
	assert.NotEqual(t, uuid.Nil, event.EventID)
	assert.Equal(t, AggregateWallet, event.AggregateType)
	assert.Equal(t, userID.String(), event.AggregateID)
	assert.Equal(t, userID.String(), event.PartitionKey)
	assert.Equal(t, EventEntryPosted, event.EventType)

	var payload LedgerEntry
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, int64(-50), payload.Delta)
}

func TestNewGameCancelledEvent(t *testing.T) {
	gameID := uuid.New()
	skipped := uuid.New()
	event := NewGameCancelledEvent(gameID, 3, 1, 120, []uuid.UUID{skipped})

	assert.Equal(t, AggregateGame, event.AggregateType)
	assert.Equal(t, EventGameCancelled, event.EventType)
	assert.Equal(t, gameID.String(), event.AggregateID)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, float64(3), payload["tickets_deleted"])
	assert.Equal(t, float64(120), payload["net_refunded"])
	assert.Len(t, payload["skipped_users"], 1)
}

func TestNewRefundSkippedEvent(t *testing.T) {
	gameID, userID := uuid.New(), uuid.New()
	event := NewRefundSkippedEvent(gameID, userID, 40)
	assert.Equal(t, EventRefundSkipped, event.EventType)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, userID.String(), payload["user_id"])
	assert.Equal(t, float64(40), payload["delta"])
}

package ledger

import (
	"context"
	"fmt"

	"github.com/attaboy/lottery/internal/domain"
)

// ExecutePurchaseDebit takes the ticket price from the buyer.
// Pattern: Lock → Idempotency → balance check → PostLedgerEntry
func (e *Engine) ExecutePurchaseDebit(ctx context.Context, params domain.PurchaseDebitParams) (*domain.CommandResult, error) {
	if err := domain.ValidateTicketPrice(params.Price); err != nil {
		return nil, err
	}

	gameID := params.GameID
	res, err := e.apply(ctx, domain.PostLedgerEntryParams{
		UserID:         params.UserID,
		Type:           domain.EntryTicketPurchase,
		Delta:          -params.Price,
		IdempotencyKey: domain.PurchaseKey(params.GameID, params.TicketNumber),
		GameID:         &gameID,
		Metadata:       mergeMeta(nil, map[string]interface{}{"ticket_number": params.TicketNumber}),
	}, func(user *domain.User) error {
		if user.Balance < params.Price {
			return domain.ErrInsufficientBalance()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("purchase debit: %w", err)
	}
	return res, nil
}

// ExecutePurchaseCompensation returns the ticket price when the ticket
// record could not be stored after the debit.
func (e *Engine) ExecutePurchaseCompensation(ctx context.Context, params domain.PurchaseDebitParams) (*domain.CommandResult, error) {
	if err := domain.ValidateTicketPrice(params.Price); err != nil {
		return nil, err
	}

	gameID := params.GameID
	res, err := e.apply(ctx, domain.PostLedgerEntryParams{
		UserID:         params.UserID,
		Type:           domain.EntryPurchaseCompensation,
		Delta:          params.Price,
		IdempotencyKey: domain.PurchaseRevertKey(params.GameID, params.TicketNumber),
		GameID:         &gameID,
		Metadata:       mergeMeta(nil, map[string]interface{}{"ticket_number": params.TicketNumber}),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("purchase compensation: %w", err)
	}
	return res, nil
}

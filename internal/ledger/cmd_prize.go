package ledger

import (
	"context"
	"fmt"

	"github.com/attaboy/lottery/internal/domain"
)

// ExecutePrizeCredit grants the points of a prize to the ticket owner.
func (e *Engine) ExecutePrizeCredit(ctx context.Context, params domain.PrizeCreditParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, err
	}

	res, err := e.apply(ctx, prizeEntry(params, domain.EntryPrizeCredit, params.Amount, domain.PrizeKey(params.PrizeID)), nil)
	if err != nil {
		return nil, fmt.Errorf("prize credit: %w", err)
	}
	return res, nil
}

// ExecutePrizeReversal takes back a prize credit whose prize record was
// never stored. The balance may go negative.
func (e *Engine) ExecutePrizeReversal(ctx context.Context, params domain.PrizeCreditParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, err
	}

	res, err := e.apply(ctx, prizeEntry(params, domain.EntryPrizeCreditReversal, -params.Amount, domain.PrizeRevertKey(params.PrizeID)), nil)
	if err != nil {
		return nil, fmt.Errorf("prize reversal: %w", err)
	}
	return res, nil
}

func prizeEntry(params domain.PrizeCreditParams, typ domain.EntryType, delta int64, key string) domain.PostLedgerEntryParams {
	gameID := params.GameID
	return domain.PostLedgerEntryParams{
		UserID:         params.UserID,
		Type:           typ,
		Delta:          delta,
		IdempotencyKey: key,
		GameID:         &gameID,
		Metadata: mergeMeta(nil, map[string]interface{}{
			"prize_id":      params.PrizeID.String(),
			"ticket_number": params.TicketNumber,
		}),
	}
}

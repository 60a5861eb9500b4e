package ledger

import (
	"context"
	"fmt"

	"github.com/attaboy/lottery/internal/domain"
)

// ExecuteCancelCompensation applies one user's netted adjustment for a
// cancelled game. The key is the same for every retry of the cancellation,
// so the adjustment lands at most once per user and game.
//
// A zero delta is still posted: it marks the user as settled, so a retry
// that recomputes against a partly deleted game cannot post a second,
// different adjustment for them.
func (e *Engine) ExecuteCancelCompensation(ctx context.Context, params domain.CancelCompensationParams) (*domain.CommandResult, error) {
	if params.Refunds < 0 || params.Reversed < 0 {
		return nil, domain.ErrValidation("cancel compensation parts must not be negative")
	}

	gameID := params.GameID
	res, err := e.apply(ctx, domain.PostLedgerEntryParams{
		UserID:         params.UserID,
		Type:           domain.EntryGameCancel,
		Delta:          params.Delta,
		IdempotencyKey: domain.GameCancelKey(params.GameID),
		GameID:         &gameID,
		Metadata: mergeMeta(nil, map[string]interface{}{
			"refunds":  params.Refunds,
			"reversed": params.Reversed,
		}),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("cancel compensation: %w", err)
	}
	return res, nil
}

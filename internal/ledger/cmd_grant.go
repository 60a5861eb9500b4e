package ledger

import (
	"context"
	"fmt"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/google/uuid"
)

// ExecuteInitialGrant seeds a new user's balance. A zero grant is a no-op.
func (e *Engine) ExecuteInitialGrant(ctx context.Context, userID uuid.UUID, amount int64) (*domain.CommandResult, error) {
	if amount < 0 {
		return nil, domain.ErrValidation(fmt.Sprintf("initial grant must not be negative, got %d", amount))
	}
	if amount == 0 {
		user, err := e.FindUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, domain.ErrUserNotFound(userID.String())
		}
		return &domain.CommandResult{User: user}, nil
	}

	res, err := e.apply(ctx, domain.PostLedgerEntryParams{
		UserID:         userID,
		Type:           domain.EntryInitialGrant,
		Delta:          amount,
		IdempotencyKey: domain.InitialGrantKey(userID),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("initial grant: %w", err)
	}
	return res, nil
}

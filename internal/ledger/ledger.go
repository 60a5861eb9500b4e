package ledger

import (
	"context"
	"fmt"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/repository"
	"github.com/google/uuid"
)

// Engine provides the foundational ledger operations:
//   1. LockUserForUpdate: exclusive lock on the user row
//   2. FindExistingEntry: idempotency check on (user, key)
//   3. PostLedgerEntry: balance update + append-only entry + outbox event
//
// Every command runs those three steps inside one repository unit of work.
type Engine struct {
	users     repository.UserRepository
	observers []EntryObserver
}

// EntryObserver is told about every newly committed entry. It runs after
// the unit of work, so a failing observer cannot undo the entry.
type EntryObserver func(ctx context.Context, entry *domain.LedgerEntry)

// NewEngine creates a ledger engine over the given user store.
func NewEngine(users repository.UserRepository) *Engine {
	return &Engine{users: users}
}

// Observe registers fn for committed entries. Call during wiring only.
func (e *Engine) Observe(fn EntryObserver) {
	e.observers = append(e.observers, fn)
}

// FindUser returns a user, or nil if absent.
func (e *Engine) FindUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// LockUserForUpdate acquires the user lock and returns the user.
// Must be called within a unit of work.
func (e *Engine) LockUserForUpdate(ctx context.Context, tx repository.LedgerTx, userID uuid.UUID) (*domain.User, error) {
	user, err := tx.LockUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound(userID.String())
	}
	return user, nil
}

// FindExistingEntry checks if an entry with the same idempotency key exists.
// Returns nil if no duplicate found.
func (e *Engine) FindExistingEntry(ctx context.Context, tx repository.LedgerTx, key domain.IdempotencyKey) (*domain.LedgerEntry, error) {
	existing, err := tx.FindEntry(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("find existing entry: %w", err)
	}
	return existing, nil
}

// LookupEntry returns the entry a user already has under key, or nil.
// It runs its own unit of work and takes no lock on the user.
func (e *Engine) LookupEntry(ctx context.Context, userID uuid.UUID, key string) (*domain.LedgerEntry, error) {
	var found *domain.LedgerEntry
	err := e.users.WithinTx(ctx, func(tx repository.LedgerTx) error {
		var err error
		found, err = e.FindExistingEntry(ctx, tx, domain.IdempotencyKey{UserID: userID, Key: key})
		return err
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// PostLedgerEntry atomically updates the user balance and inserts a ledger entry.
// This is the core write primitive; every command delegates to it.
//
// Steps:
//  1. Add the delta to the balance (integer arithmetic in the store)
//  2. Insert the entry with the post-update balance snapshot
//  3. Insert the outbox event
//
// All 3 steps run within the caller's unit of work.
func (e *Engine) PostLedgerEntry(ctx context.Context, tx repository.LedgerTx, params domain.PostLedgerEntryParams) (*domain.LedgerEntry, *domain.User, error) {
	updated, err := tx.UpdateBalance(ctx, params.UserID, params.Delta)
	if err != nil {
		return nil, nil, fmt.Errorf("update balance: %w", err)
	}
	if updated == nil {
		return nil, nil, domain.ErrUserNotFound(params.UserID.String())
	}

	entry, err := tx.InsertEntry(ctx, params, updated.Balance)
	if err != nil {
		return nil, nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := tx.InsertOutbox(ctx, domain.NewEntryPostedEvent(entry)); err != nil {
		return nil, nil, fmt.Errorf("insert outbox event: %w", err)
	}

	return entry, updated, nil
}

// ApplyDelta posts params as one unit of work: lock, idempotency check,
// optional precondition on the locked user, then PostLedgerEntry.
// A repeated key returns the stored entry with Idempotent set and leaves the
// balance untouched, even if params.Delta differs from the stored delta.
func (e *Engine) ApplyDelta(ctx context.Context, params domain.PostLedgerEntryParams) (*domain.CommandResult, error) {
	return e.apply(ctx, params, nil)
}

func (e *Engine) apply(ctx context.Context, params domain.PostLedgerEntryParams, check func(*domain.User) error) (*domain.CommandResult, error) {
	if params.IdempotencyKey == "" {
		return nil, domain.ErrValidation("idempotency key is required")
	}

	var result *domain.CommandResult
	err := e.users.WithinTx(ctx, func(tx repository.LedgerTx) error {
		// Lock
		user, err := e.LockUserForUpdate(ctx, tx, params.UserID)
		if err != nil {
			return err
		}

		// Idempotency check
		existing, err := e.FindExistingEntry(ctx, tx, domain.IdempotencyKey{UserID: params.UserID, Key: params.IdempotencyKey})
		if err != nil {
			return err
		}
		if existing != nil {
			result = &domain.CommandResult{Entry: existing, User: user, Idempotent: true}
			return nil
		}

		if check != nil {
			if err := check(user); err != nil {
				return err
			}
		}

		entry, updated, err := e.PostLedgerEntry(ctx, tx, params)
		if err != nil {
			return err
		}
		result = &domain.CommandResult{
			Entry:  entry,
			User:   updated,
			Events: []domain.OutboxDraft{domain.NewEntryPostedEvent(entry)},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Idempotent {
		for _, fn := range e.observers {
			fn(ctx, result.Entry)
		}
	}
	return result, nil
}

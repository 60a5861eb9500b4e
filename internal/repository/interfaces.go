package repository

import (
	"context"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// LedgerTx is the unit of work a single ledger command runs in. Every method
// observes the writes made earlier in the same unit; nothing is visible to
// other callers until the enclosing WithinTx returns nil.
type LedgerTx interface {
	// LockUser acquires an exclusive lock on the user and returns it, or nil if absent.
	LockUser(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// FindEntry checks the idempotency index for an entry already posted under key.
	FindEntry(ctx context.Context, key domain.IdempotencyKey) (*domain.LedgerEntry, error)

	// UpdateBalance adds delta to the user's balance and returns the updated user.
	UpdateBalance(ctx context.Context, id uuid.UUID, delta int64) (*domain.User, error)

	// InsertEntry appends a ledger entry with the post-update balance snapshot.
	InsertEntry(ctx context.Context, params domain.PostLedgerEntryParams, balanceAfter int64) (*domain.LedgerEntry, error)

	// InsertOutbox writes an outbox event in the same unit of work.
	InsertOutbox(ctx context.Context, draft domain.OutboxDraft) error
}

// UserRepository is the User Ledger store: it owns balances and their audit trail.
type UserRepository interface {
	// FindByID returns a user, or nil if absent.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// Create inserts a new user with a zero balance.
	Create(ctx context.Context, user *domain.User) error

	// Delete removes a user. Ledger entries are kept for audit.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListEntries returns a user's ledger entries, newest first.
	ListEntries(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error)

	// WithinTx runs fn in one unit of work, committing only if fn returns nil.
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// TicketRepository owns ticket records for all games.
type TicketRepository interface {
	// Insert stores a ticket. Returns ErrTicketTaken if the number is already sold.
	Insert(ctx context.Context, ticket *domain.Ticket) error

	// Find returns a ticket, or nil if absent.
	Find(ctx context.Context, gameID uuid.UUID, number int64) (*domain.Ticket, error)

	// FindByGameID returns all tickets of a game ordered by number.
	FindByGameID(ctx context.Context, gameID uuid.UUID) ([]domain.Ticket, error)

	// DeleteAllByGameID removes all tickets of a game and returns how many were removed.
	DeleteAllByGameID(ctx context.Context, gameID uuid.UUID) (int64, error)
}

// PrizeRepository owns prize records for all games.
type PrizeRepository interface {
	// Insert stores a prize.
	Insert(ctx context.Context, prize *domain.Prize) error

	// FindByID returns a prize, or nil if absent.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Prize, error)

	// FindByGameID returns all prizes of a game ordered by award time.
	FindByGameID(ctx context.Context, gameID uuid.UUID) ([]domain.Prize, error)

	// DeleteAllByGameID removes all prizes of a game and returns how many were removed.
	DeleteAllByGameID(ctx context.Context, gameID uuid.UUID) (int64, error)

	// UpdateStatus moves a prize to next only if its current status is expected.
	UpdateStatus(ctx context.Context, id uuid.UUID, next, expected domain.PrizeStatus) (bool, error)
}

// GameRepository owns game lifecycle state.
type GameRepository interface {
	// Create inserts a new game.
	Create(ctx context.Context, game *domain.Game) error

	// FindByID returns a game, or nil if absent.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Game, error)

	// SetStatus is a compare-and-set: it writes status only if the stored
	// status equals expected, and reports whether the write happened.
	SetStatus(ctx context.Context, id uuid.UUID, status, expected domain.GameStatus) (bool, error)

	// ListByStatus returns games in the given status, oldest first.
	ListByStatus(ctx context.Context, status domain.GameStatus) ([]domain.Game, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event.
	Insert(ctx context.Context, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events for the outbox poller, oldest first.
	FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxRow, error)

	// MarkPublished removes published events.
	MarkPublished(ctx context.Context, ids []int64) error
}

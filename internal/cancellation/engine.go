// Package cancellation cancels a game across the game, ticket, prize and
// user ledger stores without a shared transaction.
//
// The run is a saga with one commit point. The game is first moved to
// cancelling, which stops purchases and awards. Every ticket owner and point
// prize winner then gets one netted ledger entry under the per-game key
// game-cancel:{gameID}. Tickets and prizes are deleted after that, and the
// final compare-and-set to cancelled commits the run. Any failure before the
// commit leaves the game in cancelling; running CancelGame again resumes it
// without applying an adjustment twice.
package cancellation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/guard"
	"github.com/attaboy/lottery/internal/metrics"
	"github.com/attaboy/lottery/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxStatusRetries bounds re-reads after a lost compare-and-set on the game.
const maxStatusRetries = 3

// Ledger is the part of the user ledger the engine needs.
type Ledger interface {
	ExecuteCancelCompensation(ctx context.Context, params domain.CancelCompensationParams) (*domain.CommandResult, error)
}

// Result describes a CancelGame run.
type Result struct {
	GameID           uuid.UUID    `json:"game_id"`
	AlreadyCancelled bool         `json:"already_cancelled"`
	Resumed          bool         `json:"resumed"`
	TicketsDeleted   int64        `json:"tickets_deleted"`
	PrizesDeleted    int64        `json:"prizes_deleted"`
	Adjustments      []Adjustment `json:"adjustments"`
	SkippedUsers     []uuid.UUID  `json:"skipped_users"`
}

// NetRefunded is the sum of applied adjustment deltas in this run.
func (r *Result) NetRefunded() int64 {
	var sum int64
	for _, a := range r.Adjustments {
		if !a.Replayed {
			sum += a.Delta
		}
	}
	return sum
}

// Engine orchestrates game cancellation. It holds no per-game state.
type Engine struct {
	games   repository.GameRepository
	tickets repository.TicketRepository
	prizes  repository.PrizeRepository
	outbox  repository.OutboxRepository
	ledger  Ledger
	locker  guard.GameLocker
	logger  *slog.Logger
	timeout time.Duration
}

// NewEngine creates a cancellation engine. timeout bounds one run; zero
// means the caller's context alone decides.
func NewEngine(
	games repository.GameRepository,
	tickets repository.TicketRepository,
	prizes repository.PrizeRepository,
	outbox repository.OutboxRepository,
	ledger Ledger,
	locker guard.GameLocker,
	logger *slog.Logger,
	timeout time.Duration,
) *Engine {
	return &Engine{
		games:   games,
		tickets: tickets,
		prizes:  prizes,
		outbox:  outbox,
		ledger:  ledger,
		locker:  locker,
		logger:  logger,
		timeout: timeout,
	}
}

// CancelGame refunds every ticket, reverses every point prize, deletes the
// game's tickets and prizes and marks the game cancelled.
//
// A game that is already cancelled yields a Result with AlreadyCancelled set
// and no side effects. An error leaves the game retriable: partial progress
// is kept and the next call picks up from it.
func (e *Engine) CancelGame(ctx context.Context, gameID uuid.UUID) (*Result, error) {
	started := time.Now()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	log := e.logger.With("game_id", gameID)

	res, err := e.cancelLocked(ctx, gameID, log)
	switch {
	case err == nil && res.AlreadyCancelled:
		metrics.RecordCancellation(metrics.ResultAlreadyCancelled, started)
	case err == nil:
		metrics.RecordCancellation(metrics.ResultCancelled, started)
		log.Info("game cancelled",
			"tickets_deleted", res.TicketsDeleted,
			"prizes_deleted", res.PrizesDeleted,
			"adjustments", len(res.Adjustments),
			"skipped_users", len(res.SkippedUsers),
			"resumed", res.Resumed,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	case domain.IsCode(err, domain.CodeGameNotFound):
		metrics.RecordCancellation(metrics.ResultNotFound, started)
	default:
		metrics.RecordCancellation(metrics.ResultError, started)
		log.Error("game cancellation failed, game left retriable", "error", err)
	}
	return res, err
}

func (e *Engine) cancelLocked(ctx context.Context, gameID uuid.UUID, log *slog.Logger) (*Result, error) {
	unlock, err := e.locker.Lock(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("lock game %s: %w", gameID, err)
	}
	defer unlock()

	res := &Result{GameID: gameID}

	// 1. Claim the game.
	resumed, done, err := e.markCancelling(ctx, gameID, log)
	if err != nil {
		return nil, err
	}
	if done {
		res.AlreadyCancelled = true
		return res, nil
	}
	res.Resumed = resumed

	// 2-3. Read what has to be undone.
	tickets, prizes, err := e.load(ctx, gameID)
	if err != nil {
		return nil, err
	}

	// 4. One netted entry per owner.
	if err := e.compensate(ctx, gameID, Net(tickets, prizes), res, log); err != nil {
		return nil, err
	}

	// 5-6. Remove records; balances are already corrected.
	res.TicketsDeleted, err = e.tickets.DeleteAllByGameID(ctx, gameID)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("ticket", err)
	}
	res.PrizesDeleted, err = e.prizes.DeleteAllByGameID(ctx, gameID)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("prize", err)
	}

	// 7. Commit.
	ok, err := e.games.SetStatus(ctx, gameID, domain.GameCancelled, domain.GameCancelling)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("game", err)
	}
	if !ok {
		game, err := e.games.FindByID(ctx, gameID)
		if err != nil {
			return nil, domain.ErrStoreUnavailable("game", err)
		}
		if game != nil && game.Status == domain.GameCancelled {
			log.Warn("another run committed the cancellation first")
			return &Result{GameID: gameID, AlreadyCancelled: true}, nil
		}
		return nil, domain.ErrConflict(fmt.Sprintf("game %s left cancelling unexpectedly", gameID))
	}

	// 8. Announce. The commit has happened, so a lost event is logged, not returned.
	event := domain.NewGameCancelledEvent(gameID, res.TicketsDeleted, res.PrizesDeleted, res.NetRefunded(), res.SkippedUsers)
	if err := e.outbox.Insert(ctx, event); err != nil {
		log.Error("game cancelled event not recorded", "error", err)
	}

	return res, nil
}

// markCancelling moves an active or closed game to cancelling. It reports
// resumed for a game already in cancelling and done for one already cancelled.
func (e *Engine) markCancelling(ctx context.Context, gameID uuid.UUID, log *slog.Logger) (resumed, done bool, err error) {
	for attempt := 0; attempt < maxStatusRetries; attempt++ {
		game, err := e.games.FindByID(ctx, gameID)
		if err != nil {
			return false, false, domain.ErrStoreUnavailable("game", err)
		}
		if game == nil {
			return false, false, domain.ErrGameNotFound(gameID.String())
		}

		switch {
		case game.Status == domain.GameCancelled:
			return false, true, nil
		case game.Status == domain.GameCancelling:
			log.Info("resuming interrupted cancellation")
			return true, false, nil
		case game.Status.Cancellable():
			ok, err := e.games.SetStatus(ctx, gameID, domain.GameCancelling, game.Status)
			if err != nil {
				return false, false, domain.ErrStoreUnavailable("game", err)
			}
			if ok {
				return false, false, nil
			}
			// Status moved underneath us (e.g. closed concurrently); re-read.
		default:
			return false, false, domain.ErrValidation(fmt.Sprintf("game %s has unknown status %q", gameID, game.Status))
		}
	}
	return false, false, domain.ErrConflict(fmt.Sprintf("game %s status keeps changing", gameID))
}

func (e *Engine) load(ctx context.Context, gameID uuid.UUID) ([]domain.Ticket, []domain.Prize, error) {
	var tickets []domain.Ticket
	var prizes []domain.Prize

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tickets, err = e.tickets.FindByGameID(gctx, gameID)
		if err != nil {
			return domain.ErrStoreUnavailable("ticket", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		prizes, err = e.prizes.FindByGameID(gctx, gameID)
		if err != nil {
			return domain.ErrStoreUnavailable("prize", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return tickets, prizes, nil
}

func (e *Engine) compensate(ctx context.Context, gameID uuid.UUID, adjustments []Adjustment, res *Result, log *slog.Logger) error {
	for _, adj := range adjustments {
		if err := ctx.Err(); err != nil {
			return err
		}

		cr, err := e.ledger.ExecuteCancelCompensation(ctx, domain.CancelCompensationParams{
			UserID:   adj.UserID,
			GameID:   gameID,
			Delta:    adj.Delta,
			Refunds:  adj.Refunds,
			Reversed: adj.Reversed,
		})
		if domain.IsCode(err, domain.CodeUserNotFound) {
			log.Warn("refund skipped for missing user; amount written off",
				"user_id", adj.UserID, "delta", adj.Delta)
			metrics.RecordRefundSkipped()
			if err := e.outbox.Insert(ctx, domain.NewRefundSkippedEvent(gameID, adj.UserID, adj.Delta)); err != nil {
				return domain.ErrStoreUnavailable("outbox", err)
			}
			res.SkippedUsers = append(res.SkippedUsers, adj.UserID)
			continue
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return domain.ErrStoreUnavailable("user ledger", fmt.Errorf("adjust user %s: %w", adj.UserID, err))
		}

		if cr.Idempotent {
			adj.Replayed = true
			if cr.Entry != nil && cr.Entry.Delta != adj.Delta {
				log.Warn("recomputed adjustment differs from applied one; keeping applied",
					"user_id", adj.UserID, "applied", cr.Entry.Delta, "recomputed", adj.Delta)
				adj.Delta = cr.Entry.Delta
			}
			metrics.RecordAdjustment("replayed", adj.Delta)
		} else {
			metrics.RecordAdjustment("applied", adj.Delta)
		}
		res.Adjustments = append(res.Adjustments, adj)
	}
	return nil
}

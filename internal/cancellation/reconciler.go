package cancellation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/guard"
	"github.com/attaboy/lottery/internal/metrics"
	"github.com/attaboy/lottery/internal/repository"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// Canceller is satisfied by *Engine.
type Canceller interface {
	CancelGame(ctx context.Context, gameID uuid.UUID) (*Result, error)
}

// ReconcileReport summarises one reconciler pass.
type ReconcileReport struct {
	Visited   int
	Completed int
	Failed    int
	Deferred  int // circuit open, not attempted this pass
}

// Reconciler finishes cancellations that were interrupted and left games in
// cancelling. Games that keep failing are backed off per game.
type Reconciler struct {
	games    repository.GameRepository
	engine   Canceller
	breaker  *guard.CircuitBreaker
	logger   *slog.Logger
	interval time.Duration
}

// NewReconciler creates a reconciler that runs every interval once started.
func NewReconciler(games repository.GameRepository, engine Canceller, breaker *guard.CircuitBreaker, logger *slog.Logger, interval time.Duration) *Reconciler {
	if breaker == nil {
		breaker = guard.NewCircuitBreaker(3, 10*time.Minute)
	}
	return &Reconciler{
		games:    games,
		engine:   engine,
		breaker:  breaker,
		logger:   logger,
		interval: interval,
	}
}

// Start schedules RunOnce every interval until ctx is done. Passes never overlap.
func (r *Reconciler) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("reconcile pass failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule reconcile job: %w", err)
	}

	sched.Start()
	r.logger.Info("cancellation reconciler started", "interval", r.interval)

	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			r.logger.Error("reconciler shutdown failed", "error", err)
		}
		r.logger.Info("cancellation reconciler stopped")
	}()
	return nil
}

// RunOnce resumes every game currently in cancelling.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	games, err := r.games.ListByStatus(ctx, domain.GameCancelling)
	if err != nil {
		return report, domain.ErrStoreUnavailable("game", err)
	}

	for _, g := range games {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Visited++
		key := g.ID.String()

		if check := r.breaker.Check(ctx, key); !check.Allowed {
			report.Deferred++
			metrics.RecordReconcile("deferred")
			r.logger.Debug("reconcile deferred", "game_id", g.ID, "reason", check.Reason)
			continue
		}

		res, err := r.engine.CancelGame(ctx, g.ID)
		if err != nil {
			report.Failed++
			r.breaker.RecordFailure(key)
			metrics.RecordReconcile("error")
			r.logger.Warn("reconcile attempt failed", "game_id", g.ID, "error", err,
				"circuit", r.breaker.State(key).String())
			continue
		}

		report.Completed++
		r.breaker.Forget(key)
		metrics.RecordReconcile("completed")
		r.logger.Info("reconciled interrupted cancellation", "game_id", g.ID,
			"already_cancelled", res.AlreadyCancelled, "skipped_users", len(res.SkippedUsers))
	}

	if report.Visited > 0 {
		r.logger.Info("reconcile pass complete",
			"visited", report.Visited, "completed", report.Completed,
			"failed", report.Failed, "deferred", report.Deferred)
	}
	return report, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/guard"
	"github.com/attaboy/lottery/internal/ledger"
	"github.com/attaboy/lottery/internal/metrics"
	"github.com/attaboy/lottery/internal/repository"
	"github.com/google/uuid"
)

// GameService handles game lifecycle and ticket sales.
type GameService struct {
	games   repository.GameRepository
	tickets repository.TicketRepository
	outbox  repository.OutboxRepository
	engine  *ledger.Engine
	locker  guard.GameLocker
	limiter *guard.RateLimiter
	logger  *slog.Logger
}

// NewGameService creates a GameService.
func NewGameService(
	games repository.GameRepository,
	tickets repository.TicketRepository,
	outbox repository.OutboxRepository,
	engine *ledger.Engine,
	locker guard.GameLocker,
	logger *slog.Logger,
) *GameService {
	return &GameService{
		games:   games,
		tickets: tickets,
		outbox:  outbox,
		engine:  engine,
		locker:  locker,
		logger:  logger,
	}
}

// WithRateLimit caps purchases per buyer. A nil limiter disables the cap.
func (s *GameService) WithRateLimit(rl *guard.RateLimiter) *GameService {
	s.limiter = rl
	return s
}

// CreateGame opens a new active game.
func (s *GameService) CreateGame(ctx context.Context, name string, ticketPrice int64) (*domain.Game, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrValidation("game name is required")
	}
	if err := domain.ValidateTicketPrice(ticketPrice); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	now := time.Now().UTC()
	game := &domain.Game{
		ID:          uuid.New(),
		Name:        name,
		TicketPrice: ticketPrice,
		Status:      domain.GameActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.games.Create(ctx, game); err != nil {
		return nil, domain.ErrStoreUnavailable("game", err)
	}

	s.logger.Info("game created", "game_id", game.ID, "ticket_price", ticketPrice)
	return game, nil
}

// GetGame returns a game or GameNotFound.
func (s *GameService) GetGame(ctx context.Context, gameID uuid.UUID) (*domain.Game, error) {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("game", err)
	}
	if game == nil {
		return nil, domain.ErrGameNotFound(gameID.String())
	}
	return game, nil
}

// CloseGame stops ticket sales. Prizes may still be awarded and the game
// may still be cancelled.
func (s *GameService) CloseGame(ctx context.Context, gameID uuid.UUID) (*domain.Game, error) {
	unlock, err := s.locker.Lock(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("lock game %s: %w", gameID, err)
	}
	defer unlock()

	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status == domain.GameClosed {
		return game, nil
	}
	if game.Status != domain.GameActive {
		return nil, domain.ErrGameNotOpen(gameID.String(), game.Status)
	}

	ok, err := s.games.SetStatus(ctx, gameID, domain.GameClosed, domain.GameActive)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("game", err)
	}
	if !ok {
		return nil, domain.ErrConflict(fmt.Sprintf("game %s changed status while closing", gameID))
	}

	s.logger.Info("game closed", "game_id", gameID)
	return s.GetGame(ctx, gameID)
}

// PurchaseTicket sells ticket number to buyerID at the game's price.
//
// The price is debited first and the ticket stored second. If the store
// rejects the ticket the debit is compensated under its own key, so the
// buyer is never charged for a ticket that does not exist.
func (s *GameService) PurchaseTicket(ctx context.Context, gameID uuid.UUID, number int64, buyerID uuid.UUID) (ticket *domain.Ticket, err error) {
	started := time.Now()
	defer func() {
		result := "success"
		if err != nil {
			result = "fail"
		}
		metrics.RecordPurchase(result, started)
	}()

	if err := domain.ValidateTicketNumber(number); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if s.limiter != nil {
		if check := s.limiter.Check(ctx, buyerID.String()); !check.Allowed {
			return nil, &domain.AppError{Code: "RATE_LIMITED", Message: check.Reason, Status: 429}
		}
	}

	unlock, err := s.locker.Lock(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("lock game %s: %w", gameID, err)
	}
	defer unlock()

	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !game.Status.AcceptsPurchases() {
		return nil, domain.ErrGameNotOpen(gameID.String(), game.Status)
	}

	existing, err := s.tickets.Find(ctx, gameID, number)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("ticket", err)
	}
	if existing != nil {
		return nil, domain.ErrTicketTaken(gameID.String(), number)
	}

	params := domain.PurchaseDebitParams{UserID: buyerID, GameID: gameID, TicketNumber: number, Price: game.TicketPrice}
	debit, err := s.engine.ExecutePurchaseDebit(ctx, params)
	if err != nil {
		return nil, err
	}
	if debit.Idempotent {
		// An earlier attempt took the price but never stored the ticket.
		// Finish it unless that debit was already paid back.
		revert, err := s.engine.LookupEntry(ctx, buyerID, domain.PurchaseRevertKey(gameID, number))
		if err != nil {
			return nil, domain.ErrStoreUnavailable("user ledger", err)
		}
		if revert != nil {
			return nil, domain.ErrConflict(fmt.Sprintf("an earlier purchase of ticket %d was reverted; pick another number", number))
		}
		s.logger.Warn("resuming interrupted purchase", "game_id", gameID, "ticket_number", number, "user_id", buyerID)
	}

	ticket = &domain.Ticket{
		GameID:      gameID,
		Number:      number,
		OwnerID:     buyerID,
		PricePaid:   game.TicketPrice,
		PurchasedAt: time.Now().UTC(),
	}
	if err := s.tickets.Insert(ctx, ticket); err != nil {
		_, cerr := s.engine.ExecutePurchaseCompensation(ctx, params)
		metrics.RecordCompensation("purchase", cerr)
		if cerr != nil {
			s.logger.Error("purchase compensation failed; buyer charged without ticket",
				"game_id", gameID, "ticket_number", number, "user_id", buyerID, "error", cerr)
		}
		if domain.IsCode(err, domain.CodeTicketTaken) {
			return nil, err
		}
		return nil, domain.ErrStoreUnavailable("ticket", err)
	}

	if err := s.outbox.Insert(ctx, domain.NewTicketPurchasedEvent(ticket)); err != nil {
		s.logger.Error("ticket purchased event not recorded", "game_id", gameID, "error", err)
	}

	s.logger.Info("ticket purchased",
		"game_id", gameID,
		"ticket_number", number,
		"user_id", buyerID,
		"price", game.TicketPrice,
		"balance_after", debit.Entry.BalanceAfter,
	)
	return ticket, nil
}

// ListTickets returns the tickets sold for a game.
func (s *GameService) ListTickets(ctx context.Context, gameID uuid.UUID) ([]domain.Ticket, error) {
	if _, err := s.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.FindByGameID(ctx, gameID)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("ticket", err)
	}
	return tickets, nil
}

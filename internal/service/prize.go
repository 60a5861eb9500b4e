package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/guard"
	"github.com/attaboy/lottery/internal/ledger"
	"github.com/attaboy/lottery/internal/metrics"
	"github.com/attaboy/lottery/internal/repository"
	"github.com/google/uuid"
)

// PrizeService awards prizes against sold tickets and tracks shipment of
// physical prizes.
type PrizeService struct {
	games   repository.GameRepository
	tickets repository.TicketRepository
	prizes  repository.PrizeRepository
	outbox  repository.OutboxRepository
	engine  *ledger.Engine
	locker  guard.GameLocker
	logger  *slog.Logger
}

// NewPrizeService creates a PrizeService.
func NewPrizeService(
	games repository.GameRepository,
	tickets repository.TicketRepository,
	prizes repository.PrizeRepository,
	outbox repository.OutboxRepository,
	engine *ledger.Engine,
	locker guard.GameLocker,
	logger *slog.Logger,
) *PrizeService {
	return &PrizeService{
		games:   games,
		tickets: tickets,
		prizes:  prizes,
		outbox:  outbox,
		engine:  engine,
		locker:  locker,
		logger:  logger,
	}
}

// AwardPrize grants a prize to the owner of ticket number in gameID.
//
// Points prizes credit the owner before the prize is stored. If storing
// fails the credit is reversed, so a credit never outlives its prize record
// and a prize record never exists without its credit.
func (s *PrizeService) AwardPrize(ctx context.Context, gameID uuid.UUID, number int64, prizeType domain.PrizeType, content string) (prize *domain.Prize, err error) {
	defer func() {
		result := "success"
		if err != nil {
			result = "fail"
		}
		metrics.RecordAward(string(prizeType), result)
	}()

	if !prizeType.Valid() {
		return nil, domain.ErrValidation(fmt.Sprintf("unknown prize type %q", prizeType))
	}

	unlock, err := s.locker.Lock(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("lock game %s: %w", gameID, err)
	}
	defer unlock()

	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("game", err)
	}
	if game == nil {
		return nil, domain.ErrGameNotFound(gameID.String())
	}
	if !game.Status.AcceptsAwards() {
		return nil, domain.ErrGameNotOpen(gameID.String(), game.Status)
	}

	ticket, err := s.tickets.Find(ctx, gameID, number)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("ticket", err)
	}
	if ticket == nil {
		return nil, domain.ErrTicketNotFound(gameID.String(), number)
	}

	amount, err := domain.ValidatePrizeContent(prizeType, content)
	if err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	prize = &domain.Prize{
		ID:           uuid.New(),
		GameID:       gameID,
		TicketNumber: number,
		OwnerID:      ticket.OwnerID,
		Type:         prizeType,
		Content:      content,
		Amount:       amount,
		Status:       domain.InitialPrizeStatus(prizeType),
		AwardedAt:    time.Now().UTC(),
	}

	if prizeType == domain.PrizePhysical {
		if err := s.prizes.Insert(ctx, prize); err != nil {
			return nil, domain.ErrStoreUnavailable("prize", err)
		}
		s.announce(ctx, prize)
		return prize, nil
	}

	params := domain.PrizeCreditParams{
		UserID:       ticket.OwnerID,
		GameID:       gameID,
		PrizeID:      prize.ID,
		TicketNumber: number,
		Amount:       amount,
	}
	if _, err := s.engine.ExecutePrizeCredit(ctx, params); err != nil {
		return nil, err
	}

	if err := s.prizes.Insert(ctx, prize); err != nil {
		_, rerr := s.engine.ExecutePrizeReversal(ctx, params)
		metrics.RecordCompensation("prize", rerr)
		if rerr != nil {
			s.logger.Error("prize credit reversal failed; credit has no prize record",
				"game_id", gameID, "prize_id", prize.ID, "user_id", ticket.OwnerID, "error", rerr)
		}
		return nil, domain.ErrStoreUnavailable("prize", err)
	}

	s.announce(ctx, prize)
	return prize, nil
}

func (s *PrizeService) announce(ctx context.Context, prize *domain.Prize) {
	if err := s.outbox.Insert(ctx, domain.NewPrizeAwardedEvent(prize)); err != nil {
		s.logger.Error("prize awarded event not recorded", "prize_id", prize.ID, "error", err)
	}
	s.logger.Info("prize awarded",
		"game_id", prize.GameID,
		"prize_id", prize.ID,
		"ticket_number", prize.TicketNumber,
		"user_id", prize.OwnerID,
		"type", prize.Type,
		"amount", prize.Amount,
	)
}

// AdvanceShipment moves a physical prize forward in its shipment lifecycle.
func (s *PrizeService) AdvanceShipment(ctx context.Context, prizeID uuid.UUID, next domain.PrizeStatus) (*domain.Prize, error) {
	prize, err := s.prizes.FindByID(ctx, prizeID)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("prize", err)
	}
	if prize == nil {
		return nil, domain.ErrPrizeNotFound(prizeID.String())
	}
	if !prize.CanAdvanceTo(next) {
		return nil, domain.ErrConflict(fmt.Sprintf("prize %s cannot move from %s to %s", prizeID, prize.Status, next))
	}

	ok, err := s.prizes.UpdateStatus(ctx, prizeID, next, prize.Status)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("prize", err)
	}
	if !ok {
		return nil, domain.ErrConflict(fmt.Sprintf("prize %s changed status concurrently", prizeID))
	}

	s.logger.Info("prize shipment advanced", "prize_id", prizeID, "from", prize.Status, "to", next)
	prize.Status = next
	return prize, nil
}

// ListPrizes returns the prizes awarded in a game.
func (s *PrizeService) ListPrizes(ctx context.Context, gameID uuid.UUID) ([]domain.Prize, error) {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("game", err)
	}
	if game == nil {
		return nil, domain.ErrGameNotFound(gameID.String())
	}
	prizes, err := s.prizes.FindByGameID(ctx, gameID)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("prize", err)
	}
	return prizes, nil
}

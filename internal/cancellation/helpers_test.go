package cancellation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/guard"
	"github.com/attaboy/lottery/internal/ledger"
	"github.com/attaboy/lottery/internal/repository"
	"github.com/attaboy/lottery/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected store failure")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type env struct {
	games   *memory.GameRepository
	tickets *memory.TicketRepository
	prizes  *memory.PrizeRepository
	users   *memory.UserRepository
	outbox  *memory.OutboxRepository
	ledger  *ledger.Engine
	locker  *guard.KeyedMutex
}

func newEnv(t *testing.T) *env {
	t.Helper()
	outbox := memory.NewOutboxRepository()
	users := memory.NewUserRepository(outbox)
	return &env{
		games:   memory.NewGameRepository(),
		tickets: memory.NewTicketRepository(),
		prizes:  memory.NewPrizeRepository(),
		users:   users,
		outbox:  outbox,
		ledger:  ledger.NewEngine(users),
		locker:  guard.NewKeyedMutex(),
	}
}

// engine builds an Engine over the env stores; overrides replace single collaborators.
func (e *env) engine(opts ...func(*Engine)) *Engine {
	eng := NewEngine(e.games, e.tickets, e.prizes, e.outbox, e.ledger, e.locker, discardLogger(), 0)
	for _, o := range opts {
		o(eng)
	}
	return eng
}

func withTickets(r repository.TicketRepository) func(*Engine) {
	return func(e *Engine) { e.tickets = r }
}

func withPrizes(r repository.PrizeRepository) func(*Engine) {
	return func(e *Engine) { e.prizes = r }
}

func withLedger(l Ledger) func(*Engine) {
	return func(e *Engine) { e.ledger = l }
}

func (e *env) game(t *testing.T, price int64, status domain.GameStatus) uuid.UUID {
	t.Helper()
	now := time.Now()
	g := &domain.Game{ID: uuid.New(), Name: "weekly draw", TicketPrice: price, Status: status, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, e.games.Create(context.Background(), g))
	return g.ID
}

func (e *env) user(t *testing.T, balance int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, e.users.Create(context.Background(), &domain.User{ID: id, CreatedAt: time.Now(), UpdatedAt: time.Now()}))
	_, err := e.ledger.ExecuteInitialGrant(context.Background(), id, balance)
	require.NoError(t, err)
	return id
}

func (e *env) buy(t *testing.T, gameID uuid.UUID, number int64, owner uuid.UUID, price int64) {
	t.Helper()
	ctx := context.Background()
	_, err := e.ledger.ExecutePurchaseDebit(ctx, domain.PurchaseDebitParams{UserID: owner, GameID: gameID, TicketNumber: number, Price: price})
	require.NoError(t, err)
	require.NoError(t, e.tickets.Insert(ctx, &domain.Ticket{GameID: gameID, Number: number, OwnerID: owner, PricePaid: price, PurchasedAt: time.Now()}))
}

func (e *env) awardPoints(t *testing.T, gameID uuid.UUID, number, amount int64) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	ticket, err := e.tickets.Find(ctx, gameID, number)
	require.NoError(t, err)
	require.NotNil(t, ticket)

	p := &domain.Prize{
		ID: uuid.New(), GameID: gameID, TicketNumber: number, OwnerID: ticket.OwnerID,
		Type: domain.PrizePoints, Amount: amount, Status: domain.PrizeSettled, AwardedAt: time.Now(),
	}
	_, err = e.ledger.ExecutePrizeCredit(ctx, domain.PrizeCreditParams{
		UserID: ticket.OwnerID, GameID: gameID, PrizeID: p.ID, TicketNumber: number, Amount: amount,
	})
	require.NoError(t, err)
	require.NoError(t, e.prizes.Insert(ctx, p))
	return p.ID
}

func (e *env) awardPhysical(t *testing.T, gameID uuid.UUID, number int64, content string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	ticket, err := e.tickets.Find(ctx, gameID, number)
	require.NoError(t, err)
	require.NotNil(t, ticket)

	p := &domain.Prize{
		ID: uuid.New(), GameID: gameID, TicketNumber: number, OwnerID: ticket.OwnerID,
		Type: domain.PrizePhysical, Content: content, Status: domain.PrizePendingShipment, AwardedAt: time.Now(),
	}
	require.NoError(t, e.prizes.Insert(ctx, p))
	return p.ID
}

func (e *env) balance(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	u, err := e.users.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u.Balance
}

func (e *env) status(t *testing.T, gameID uuid.UUID) domain.GameStatus {
	t.Helper()
	g, err := e.games.FindByID(context.Background(), gameID)
	require.NoError(t, err)
	require.NotNil(t, g)
	return g.Status
}

func (e *env) remaining(t *testing.T, gameID uuid.UUID) (tickets, prizes int) {
	t.Helper()
	ts, err := e.tickets.FindByGameID(context.Background(), gameID)
	require.NoError(t, err)
	ps, err := e.prizes.FindByGameID(context.Background(), gameID)
	require.NoError(t, err)
	return len(ts), len(ps)
}

// flakyTickets fails DeleteAllByGameID while failures remain.
type flakyTickets struct {
	repository.TicketRepository
	failures int32
}

func (f *flakyTickets) DeleteAllByGameID(ctx context.Context, gameID uuid.UUID) (int64, error) {
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return 0, errInjected
	}
	return f.TicketRepository.DeleteAllByGameID(ctx, gameID)
}

// flakyPrizes fails DeleteAllByGameID while failures remain.
type flakyPrizes struct {
	repository.PrizeRepository
	failures int32
}

func (f *flakyPrizes) DeleteAllByGameID(ctx context.Context, gameID uuid.UUID) (int64, error) {
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return 0, errInjected
	}
	return f.PrizeRepository.DeleteAllByGameID(ctx, gameID)
}

// flakyLedger fails compensations for one user while failures remain and
// counts every call.
type flakyLedger struct {
	Ledger
	mu       sync.Mutex
	failFor  uuid.UUID
	failures int
	calls    int
}

func (f *flakyLedger) ExecuteCancelCompensation(ctx context.Context, p domain.CancelCompensationParams) (*domain.CommandResult, error) {
	f.mu.Lock()
	f.calls++
	fail := p.UserID == f.failFor && f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return f.Ledger.ExecuteCancelCompensation(ctx, p)
}

func newSeparateLocker() *guard.KeyedMutex {
	return guard.NewKeyedMutex()
}

package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/attaboy/lottery/internal/auth"
	"github.com/attaboy/lottery/internal/cancellation"
	"github.com/attaboy/lottery/internal/guard"
	"github.com/attaboy/lottery/internal/handler"
	"github.com/attaboy/lottery/internal/ledger"
	"github.com/attaboy/lottery/internal/metrics"
	"github.com/attaboy/lottery/internal/projection"
	"github.com/attaboy/lottery/internal/repository"
	"github.com/attaboy/lottery/internal/repository/memory"
	"github.com/attaboy/lottery/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Stores are the four independently owned stores plus the event outbox.
type Stores struct {
	Games   repository.GameRepository
	Tickets repository.TicketRepository
	Prizes  repository.PrizeRepository
	Users   repository.UserRepository
	Outbox  repository.OutboxRepository
}

// MemoryStores returns in-memory stores sharing one outbox.
func MemoryStores() Stores {
	outbox := memory.NewOutboxRepository()
	return Stores{
		Games:   memory.NewGameRepository(),
		Tickets: memory.NewTicketRepository(),
		Prizes:  memory.NewPrizeRepository(),
		Users:   memory.NewUserRepository(outbox),
		Outbox:  outbox,
	}
}

// Options tune Assemble. Zero values pick in-process defaults.
type Options struct {
	Locker            guard.GameLocker
	BalanceStore      projection.Store
	InitialGrant      int64
	CancelTimeout     time.Duration
	ReconcileInterval time.Duration
	PurchaseLimit     *guard.RateLimiter
}

// Components is the assembled application core.
type Components struct {
	Ledger       *ledger.Engine
	Balances     *projection.Balances
	Games        *service.GameService
	Prizes       *service.PrizeService
	Users        *service.UserService
	Cancellation *cancellation.Engine
	Reconciler   *cancellation.Reconciler
}

// Assemble wires services, the cancellation engine and its reconciler over stores.
func Assemble(stores Stores, opts Options, logger *slog.Logger) *Components {
	locker := opts.Locker
	if locker == nil {
		locker = guard.NewKeyedMutex()
	}
	store := opts.BalanceStore
	if store == nil {
		store = projection.NewInMemoryStore()
	}
	interval := opts.ReconcileInterval
	if interval <= 0 {
		interval = time.Minute
	}

	engine := ledger.NewEngine(stores.Users)
	balances := projection.NewBalances(store, logger)
	engine.Observe(balances.ApplyEntry)

	canceller := cancellation.NewEngine(
		stores.Games, stores.Tickets, stores.Prizes, stores.Outbox,
		engine, locker, logger, opts.CancelTimeout,
	)

	games := service.NewGameService(stores.Games, stores.Tickets, stores.Outbox, engine, locker, logger)
	if opts.PurchaseLimit != nil {
		games.WithRateLimit(opts.PurchaseLimit)
	}

	return &Components{
		Ledger:       engine,
		Balances:     balances,
		Games:        games,
		Prizes:       service.NewPrizeService(stores.Games, stores.Tickets, stores.Prizes, stores.Outbox, engine, locker, logger),
		Users:        service.NewUserService(stores.Users, engine, balances, opts.InitialGrant, logger),
		Cancellation: canceller,
		Reconciler:   cancellation.NewReconciler(stores.Games, canceller, nil, logger, interval),
	}
}

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Core        *Components
	JWTMgr      *auth.JWTManager
	Logger      *slog.Logger
	Health      map[string]handler.HealthCheck
	CORSOrigins string
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	jwtMgr := deps.JWTMgr
	logger := deps.Logger
	origins := deps.CORSOrigins
	if origins == "" {
		origins = "*"
	}

	// Handlers
	gameHandler := handler.NewGameHandler(deps.Core.Games, deps.Core.Cancellation)
	prizeHandler := handler.NewPrizeHandler(deps.Core.Prizes)
	userHandler := handler.NewUserHandler(deps.Core.Users, jwtMgr)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(chimw.RealIP)
	r.Use(handler.RequestLogger(logger))
	r.Use(metrics.HTTPMetrics)
	r.Use(handler.CORSWithOrigins(origins))

	// Health and metrics (no auth)
	r.Get("/health", handler.HealthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(handler.JSONContentType)

		// Player-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthenticatePlayer(jwtMgr))

			r.Get("/users/me", userHandler.GetMe)
			r.Get("/users/me/entries", userHandler.GetMyEntries)
			r.Get("/games/{id}", gameHandler.GetGame)
			r.Post("/games/{id}/tickets", gameHandler.PurchaseTicket)
		})

		// Admin-authenticated routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.AuthenticateAdmin(jwtMgr))

			r.Route("/games", func(r chi.Router) {
				r.Get("/{id}", gameHandler.GetGame)
				r.Get("/{id}/tickets", gameHandler.ListTickets)
				r.Get("/{id}/prizes", prizeHandler.ListPrizes)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequireRole(auth.WriteRoles()...))
					r.Post("/", gameHandler.CreateGame)
					r.Post("/{id}/close", gameHandler.CloseGame)
					r.Post("/{id}/prizes", prizeHandler.AwardPrize)
					r.Post("/{id}/cancel", gameHandler.CancelGame)
				})
			})

			r.With(auth.RequireRole(auth.WriteRoles()...)).
				Patch("/prizes/{id}/status", prizeHandler.AdvanceShipment)

			r.Route("/users", func(r chi.Router) {
				r.Get("/{id}", userHandler.GetUser)
				r.Group(func(r chi.Router) {
					r.Use(auth.RequireRole(auth.WriteRoles()...))
					r.Post("/", userHandler.CreateUser)
					r.Delete("/{id}", userHandler.DeleteUser)
				})
			})
		})
	})

	return r
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/ledger"
	"github.com/attaboy/lottery/internal/projection"
	"github.com/attaboy/lottery/internal/repository"
	"github.com/google/uuid"
)

// UserService seeds users and serves balances and ledger history.
type UserService struct {
	users        repository.UserRepository
	engine       *ledger.Engine
	balances     *projection.Balances
	defaultGrant int64
	logger       *slog.Logger
}

// NewUserService creates a UserService. balances may be nil, in which case
// every read goes to the user store.
func NewUserService(users repository.UserRepository, engine *ledger.Engine, balances *projection.Balances, defaultGrant int64, logger *slog.Logger) *UserService {
	return &UserService{
		users:        users,
		engine:       engine,
		balances:     balances,
		defaultGrant: defaultGrant,
		logger:       logger,
	}
}

// CreateUser creates a user funded with grant points, or the configured
// default grant when grant is nil. A user whose grant fails is removed
// again, so a failed call leaves nothing behind and can simply be retried.
func (s *UserService) CreateUser(ctx context.Context, grant *int64) (*domain.User, error) {
	amount := s.defaultGrant
	if grant != nil {
		amount = *grant
	}
	if amount < 0 {
		return nil, domain.ErrValidation("initial grant must not be negative")
	}

	now := time.Now().UTC()
	user := &domain.User{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, domain.ErrStoreUnavailable("user ledger", err)
	}

	res, err := s.engine.ExecuteInitialGrant(ctx, user.ID, amount)
	if err != nil {
		if delErr := s.users.Delete(context.WithoutCancel(ctx), user.ID); delErr != nil {
			s.logger.Error("unfunded user left behind", "user_id", user.ID, "error", delErr)
		}
		return nil, fmt.Errorf("grant user %s: %w", user.ID, err)
	}

	s.logger.Info("user created", "user_id", user.ID, "initial_grant", amount)
	return res.User, nil
}

// GetUser returns a user read from the user store.
func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.engine.FindUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("user ledger", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound(userID.String())
	}
	return user, nil
}

// Balance returns a user's balance, served from the projection when it has one.
func (s *UserService) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.balances != nil {
		if bal, ok := s.balances.Lookup(ctx, userID); ok {
			return bal, nil
		}
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if s.balances != nil {
		s.balances.Prime(ctx, user)
	}
	return user.Balance, nil
}

// Entries returns a user's newest ledger entries.
func (s *UserService) Entries(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	entries, err := s.users.ListEntries(ctx, userID, limit)
	if err != nil {
		return nil, domain.ErrStoreUnavailable("user ledger", err)
	}
	return entries, nil
}

// DeleteUser removes a user. Later compensations for the user are skipped
// and reported instead of applied.
func (s *UserService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return domain.ErrStoreUnavailable("user ledger", err)
	}
	if s.balances != nil {
		s.balances.Forget(ctx, userID)
	}
	s.logger.Info("user deleted", "user_id", userID)
	return nil
}

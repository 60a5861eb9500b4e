package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/infra"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const gameColumns = `id, name, ticket_price, status, created_at, updated_at`

type gameRepo struct {
	db DBTX
}

// NewGameRepository returns a pgx-backed GameRepository.
func NewGameRepository(db DBTX) GameRepository {
	return &gameRepo{db: db}
}

func (r *gameRepo) Create(ctx context.Context, g *domain.Game) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO games (`+gameColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.Name, infra.Int64ToNumeric(g.TicketPrice), string(g.Status), g.CreatedAt, g.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict(fmt.Sprintf("game %s already exists", g.ID))
		}
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (r *gameRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Game, error) {
	row := r.db.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return g, err
}

// SetStatus relies on the WHERE clause for compare-and-set; row-level locking
// in postgres makes concurrent callers observe exactly one winner.
func (r *gameRepo) SetStatus(ctx context.Context, id uuid.UUID, status, expected domain.GameStatus) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE games SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`,
		string(status), id, string(expected))
	if err != nil {
		return false, fmt.Errorf("set game status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *gameRepo) ListByStatus(ctx context.Context, status domain.GameStatus) ([]domain.Game, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+gameColumns+` FROM games WHERE status = $1 ORDER BY updated_at ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var games []domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

func scanGame(row pgx.Row) (*domain.Game, error) {
	var g domain.Game
	var priceNum pgtype.Numeric
	var status string
	if err := row.Scan(&g.ID, &g.Name, &priceNum, &status, &g.CreatedAt, &g.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan game: %w", err)
	}
	g.Status = domain.GameStatus(status)
	var err error
	if g.TicketPrice, err = infra.NumericToInt64(priceNum); err != nil {
		return nil, fmt.Errorf("convert ticket_price: %w", err)
	}
	return &g, nil
}

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

const prizeColumns = `id, game_id, ticket_number, owner_id, type, content, amount, status, awarded_at`

type prizeRepo struct {
	db DBTX
}

// NewPrizeRepository returns a pgx-backed PrizeRepository.
func NewPrizeRepository(db DBTX) PrizeRepository {
	return &prizeRepo{db: db}
}

func (r *prizeRepo) Insert(ctx context.Context, p *domain.Prize) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO prizes (`+prizeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.GameID, p.TicketNumber, p.OwnerID, string(p.Type), p.Content,
		infra.Int64ToNumeric(p.Amount), string(p.Status), p.AwardedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict(fmt.Sprintf("prize %s already exists", p.ID))
		}
		return fmt.Errorf("insert prize: %w", err)
	}
	return nil
}

func (r *prizeRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Prize, error) {
	row := r.db.QueryRow(ctx, `SELECT `+prizeColumns+` FROM prizes WHERE id = $1`, id)
	p, err := scanPrize(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *prizeRepo) FindByGameID(ctx context.Context, gameID uuid.UUID) ([]domain.Prize, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+prizeColumns+` FROM prizes WHERE game_id = $1 ORDER BY awarded_at ASC, id ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query prizes: %w", err)
	}
	defer rows.Close()

	var prizes []domain.Prize
	for rows.Next() {
		p, err := scanPrize(rows)
		if err != nil {
			return nil, err
		}
		prizes = append(prizes, *p)
	}
	return prizes, rows.Err()
}

func (r *prizeRepo) DeleteAllByGameID(ctx context.Context, gameID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM prizes WHERE game_id = $1`, gameID)
	if err != nil {
		return 0, fmt.Errorf("delete prizes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *prizeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, next, expected domain.PrizeStatus) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE prizes SET status = $1 WHERE id = $2 AND status = $3`,
		string(next), id, string(expected))
	if err != nil {
		return false, fmt.Errorf("update prize status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanPrize(row pgx.Row) (*domain.Prize, error) {
	var p domain.Prize
	var amountNum pgtype.Numeric
	var prizeType, status string
	err := row.Scan(&p.ID, &p.GameID, &p.TicketNumber, &p.OwnerID, &prizeType, &p.Content,
		&amountNum, &status, &p.AwardedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan prize: %w", err)
	}
	p.Type = domain.PrizeType(prizeType)
	p.Status = domain.PrizeStatus(status)
	if p.Amount, err = infra.NumericToInt64(amountNum); err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}
	return &p, nil
}

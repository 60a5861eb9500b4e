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

const ticketColumns = `game_id, number, owner_id, price_paid, purchased_at`

type ticketRepo struct {
	db DBTX
}

// NewTicketRepository returns a pgx-backed TicketRepository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepo{db: db}
}

func (r *ticketRepo) Insert(ctx context.Context, t *domain.Ticket) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO tickets (game_id, number, owner_id, price_paid, purchased_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.GameID, t.Number, t.OwnerID, infra.Int64ToNumeric(t.PricePaid), t.PurchasedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrTicketTaken(t.GameID.String(), t.Number)
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *ticketRepo) Find(ctx context.Context, gameID uuid.UUID, number int64) (*domain.Ticket, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+ticketColumns+` FROM tickets WHERE game_id = $1 AND number = $2`,
		gameID, number)
	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (r *ticketRepo) FindByGameID(ctx context.Context, gameID uuid.UUID) ([]domain.Ticket, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+ticketColumns+` FROM tickets WHERE game_id = $1 ORDER BY number ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func (r *ticketRepo) DeleteAllByGameID(ctx context.Context, gameID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE game_id = $1`, gameID)
	if err != nil {
		return 0, fmt.Errorf("delete tickets: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	var priceNum pgtype.Numeric
	if err := row.Scan(&t.GameID, &t.Number, &t.OwnerID, &priceNum, &t.PurchasedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan ticket: %w", err)
	}
	var err error
	if t.PricePaid, err = infra.NumericToInt64(priceNum); err != nil {
		return nil, fmt.Errorf("convert price_paid: %w", err)
	}
	return &t, nil
}

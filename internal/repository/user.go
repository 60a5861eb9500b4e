package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/infra"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, balance, created_at, updated_at`

const entryColumns = `id, user_id, type, delta, balance_after, idempotency_key, game_id, metadata, created_at`

type userRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a pgx-backed UserRepository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4)`,
		user.ID,
		infra.Int64ToNumeric(user.Balance),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict(fmt.Sprintf("user %s already exists", user.ID))
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *userRepo) ListEntries(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (r *userRepo) WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&ledgerTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ledgerTx runs ledger statements on one pgx transaction.
type ledgerTx struct {
	tx pgx.Tx
}

func (t *ledgerTx) LockUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	return scanUser(row)
}

func (t *ledgerTx) FindEntry(ctx context.Context, key domain.IdempotencyKey) (*domain.LedgerEntry, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE user_id = $1 AND idempotency_key = $2`,
		key.UserID, key.Key)
	return scanEntry(row)
}

// UpdateBalance uses server-side arithmetic so concurrent writers cannot lose updates.
func (t *ledgerTx) UpdateBalance(ctx context.Context, id uuid.UUID, delta int64) (*domain.User, error) {
	row := t.tx.QueryRow(ctx, `
		UPDATE users SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING `+userColumns,
		infra.Int64ToNumeric(delta), id)
	return scanUser(row)
}

func (t *ledgerTx) InsertEntry(ctx context.Context, params domain.PostLedgerEntryParams, balanceAfter int64) (*domain.LedgerEntry, error) {
	meta := params.Metadata
	if meta == nil {
		meta = json.RawMessage(`{}`)
	}
	row := t.tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (user_id, type, delta, balance_after, idempotency_key, game_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+entryColumns,
		params.UserID,
		string(params.Type),
		infra.Int64ToNumeric(params.Delta),
		infra.Int64ToNumeric(balanceAfter),
		params.IdempotencyKey,
		params.GameID,
		meta,
	)
	entry, err := scanEntry(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict(fmt.Sprintf("ledger entry %s already posted", params.IdempotencyKey))
		}
		return nil, err
	}
	return entry, nil
}

func (t *ledgerTx) InsertOutbox(ctx context.Context, draft domain.OutboxDraft) error {
	return insertOutbox(ctx, t.tx, draft)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var balNum pgtype.Numeric
	err := row.Scan(&u.ID, &balNum, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.Balance, err = infra.NumericToInt64(balNum)
	if err != nil {
		return nil, fmt.Errorf("convert balance: %w", err)
	}
	return &u, nil
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var deltaNum, afterNum pgtype.Numeric
	var entryType string
	err := row.Scan(&e.ID, &e.UserID, &entryType, &deltaNum, &afterNum,
		&e.IdempotencyKey, &e.GameID, &e.Metadata, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	e.Type = domain.EntryType(entryType)

	if e.Delta, err = infra.NumericToInt64(deltaNum); err != nil {
		return nil, fmt.Errorf("convert delta: %w", err)
	}
	if e.BalanceAfter, err = infra.NumericToInt64(afterNum); err != nil {
		return nil, fmt.Errorf("convert balance_after: %w", err)
	}
	return &e, nil
}

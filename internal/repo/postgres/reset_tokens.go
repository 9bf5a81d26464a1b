package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/clubstack/memberhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrResetTokenNotFound = errors.New("reset token not found")

type ResetTokenRow struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type ResetTokensRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewResetTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *ResetTokensRepo {
	return &ResetTokensRepo{pool: pool, prom: prom}
}

func (r *ResetTokensRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *ResetTokensRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}

// Replace deletes any outstanding tokens for the row's user and inserts the
// new one in a single transaction, keeping at most one usable token per user.
func (r *ResetTokensRepo) Replace(ctx context.Context, row ResetTokenRow) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

	if err != nil {
		return
	}

	defer func() { _ = tx.Rollback(ctx) }()

	err = r.observe("reset_tokens.delete_for_user", func() error {
		_, e := tx.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, row.UserID)
		return e
	})

	if err != nil {
		return
	}

	err = r.observe("reset_tokens.insert", func() error {
		_, e := tx.Exec(ctx,
			`INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.CreatedAt,
		)
		return e
	})

	if err != nil {
		return
	}

	return tx.Commit(ctx)
}

func (r *ResetTokensRepo) GetByHash(ctx context.Context, tokenHash string) (ResetTokenRow, error) {
	var row ResetTokenRow

	err := r.observe("reset_tokens.get_by_hash", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, user_id, token_hash, expires_at, created_at
			 FROM password_reset_tokens
			 WHERE token_hash = $1`,
			tokenHash,
		).Scan(&row.ID, &row.UserID, &row.TokenHash, &row.ExpiresAt, &row.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResetTokenRow{}, ErrResetTokenNotFound
		}

		return ResetTokenRow{}, err
	}

	return row, nil
}

// Delete removes a token outside any transaction (expiry cleanup).
func (r *ResetTokensRepo) Delete(ctx context.Context, id string) error {
	return r.observe("reset_tokens.delete", func() error {
		_, err := r.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE id = $1`, id)
		return err
	})
}

// DeleteTx consumes a token inside the caller's transaction.
func (r *ResetTokensRepo) DeleteTx(ctx context.Context, tx pgx.Tx, id string) error {
	return r.observe("reset_tokens.delete_tx", func() error {
		_, err := tx.Exec(ctx, `DELETE FROM password_reset_tokens WHERE id = $1`, id)
		return err
	})
}

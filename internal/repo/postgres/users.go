package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/clubstack/memberhub/internal/domain/user"
	"github.com/clubstack/memberhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Create inserts a user with the given role. Uniqueness of username and
// email is enforced by the store; a violation surfaces as ErrUserExists.
func (r *UsersRepo) Create(ctx context.Context, username, email, passwordHash string, role user.Role) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO users (id, username, email, password_hash, role_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, (SELECT id FROM roles WHERE name = $5), $6, $7)`,
			u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt,
		)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrUserExists
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	return r.getBy(ctx, "users.get_by_username", `u.username = $1`, username)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getBy(ctx, "users.get_by_email", `u.email = $1`, email)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getBy(ctx, "users.get_by_id", `u.id = $1`, id)
}

func (r *UsersRepo) getBy(ctx context.Context, op, cond string, arg any) (user.User, error) {
	var u user.User
	var roleName string

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT u.id, u.username, u.email, u.password_hash, r.name, u.created_at, u.updated_at
			 FROM users u
			 JOIN roles r ON r.id = u.role_id
			 WHERE `+cond,
			arg,
		).Scan(
			&u.ID,
			&u.Username,
			&u.Email,
			&u.PasswordHash,
			&roleName,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	role, err := user.ParseRole(roleName)

	if err != nil {
		return user.User{}, err
	}

	u.Role = role
	return u, nil
}

// UpdatePasswordTx overwrites a user's password hash inside the caller's
// transaction (the reset flow pairs it with the token delete).
func (r *UsersRepo) UpdatePasswordTx(ctx context.Context, tx pgx.Tx, userID, passwordHash string) error {
	return r.observe("users.update_password", func() error {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
			userID, passwordHash,
		)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}

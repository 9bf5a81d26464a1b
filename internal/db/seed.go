package db

import (
	"context"
	"errors"
	"time"

	"github.com/clubstack/memberhub/internal/config"
	"github.com/clubstack/memberhub/internal/domain/user"
	"github.com/clubstack/memberhub/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureRoles inserts the closed role set if it is not there yet.
func EnsureRoles(ctx context.Context, pool *pgxpool.Pool) error {
	for _, role := range []user.Role{user.RoleAdmin, user.RoleUser} {
		_, err := pool.Exec(ctx,
			`INSERT INTO roles (id, name) VALUES ($1, $2)
			 ON CONFLICT (name) DO NOTHING`,
			uuid.NewString(), string(role),
		)

		if err != nil {
			return err
		}
	}

	return nil
}

// EnsureAdminUser bootstraps an administrator account from config. A missing
// admin config is not an error; the instance simply starts without one.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminUsername == "" || cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	// check if the user exists

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE username = $1`, cfg.AdminUsername).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, role_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, (SELECT id FROM roles WHERE name = $5), $6, $7)`,
		uuid.NewString(), cfg.AdminUsername, cfg.AdminEmail, hash, string(user.RoleAdmin), now, now,
	)

	return err
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/timeledger/internal/db"
	"github.com/geocoder89/timeledger/internal/domain/user"
	"github.com/geocoder89/timeledger/internal/observability"
	"github.com/jackc/pgx/v5"
)

type UsersRepo struct {
	observer
}

func NewUsersRepo(prom *observability.Prom) *UsersRepo {
	return &UsersRepo{observer{prom: prom}}
}

// Create relies on users_username_uniq rather than a prior existence check,
// so two concurrent registrations cannot both succeed.
func (r *UsersRepo) Create(ctx context.Context, q db.Querier, username, passwordHash string) (user.User, error) {
	u := user.User{Username: username, PasswordHash: passwordHash}

	err := r.observe("users.create", func() error {
		return q.QueryRow(ctx,
			`INSERT INTO users (username, password_hash)
			VALUES ($1, $2)
			RETURNING id, created_at`,
			username, passwordHash,
		).Scan(&u.ID, &u.CreatedAt)
	})

	if err != nil {
		if IsUniqueViolation(err) && isConstraint(err, "users_username_uniq") {
			return user.User{}, user.ErrDuplicateUsername
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) GetByUsername(ctx context.Context, q db.Querier, username string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_username", func() error {
		return q.QueryRow(
			ctx,
			`SELECT id, username, password_hash, created_at
			FROM users
			WHERE username = $1`,
			username,
		).Scan(
			&u.ID,
			&u.Username,
			&u.PasswordHash,
			&u.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/geocoder89/timeledger/internal/domain/user"
	"github.com/geocoder89/timeledger/internal/observability"
	"github.com/geocoder89/timeledger/internal/security"
	"github.com/jackc/pgx/v5"
)

type CredentialStore struct {
	base
	users UserStore
}

func NewCredentialStore(tx TxRunner, users UserStore, log *slog.Logger, prom *observability.Prom) *CredentialStore {
	return &CredentialStore{base: newBase(tx, log, prom), users: users}
}

// Register validates input, hashes the password and stores the user. A taken
// username is reported by the store's unique constraint as
// user.ErrDuplicateUsername.
func (s *CredentialStore) Register(ctx context.Context, username, password string) (u user.User, err error) {
	const op = "credentials.register"

	username, err = user.NormalizeUsername(username)
	if err != nil {
		return user.User{}, s.finish(ctx, op, err)
	}

	if err = user.ValidatePassword(password); err != nil {
		return user.User{}, s.finish(ctx, op, err)
	}

	// hash before taking a connection; bcrypt is the slow part
	hash, err := security.HashPassword(password)
	if err != nil {
		return user.User{}, s.finish(ctx, op, err)
	}

	err = s.tx.WithTx(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		var e error
		u, e = s.users.Create(ctx, tx, username, hash)
		return e
	})

	if err != nil {
		return user.User{}, s.finish(ctx, op, err)
	}

	return u, s.finish(ctx, op, nil)
}

// Verify checks a username/password pair. An unknown username and a wrong
// password both yield user.ErrInvalidCredentials and cost one bcrypt compare.
func (s *CredentialStore) Verify(ctx context.Context, username, password string) (user.User, error) {
	const op = "credentials.verify"

	username = strings.TrimSpace(username)

	// such a name can never have been stored, and the store rejects NUL bytes
	if strings.ContainsRune(username, 0) {
		security.BurnCompare(password)
		return user.User{}, s.finish(ctx, op, user.ErrInvalidCredentials)
	}

	var found user.User

	err := s.tx.WithTx(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		var e error
		found, e = s.users.GetByUsername(ctx, tx, username)
		return e
	})

	if errors.Is(err, user.ErrNotFound) {
		security.BurnCompare(password)
		return user.User{}, s.finish(ctx, op, user.ErrInvalidCredentials)
	}

	if err != nil {
		return user.User{}, s.finish(ctx, op, err)
	}

	if security.CheckPassword(found.PasswordHash, password) != nil {
		return user.User{}, s.finish(ctx, op, user.ErrInvalidCredentials)
	}

	found.PasswordHash = ""

	return found, s.finish(ctx, op, nil)
}

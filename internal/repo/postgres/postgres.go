package postgres

import (
	"errors"

	"github.com/geocoder89/timeledger/internal/observability"
	"github.com/jackc/pgx/v5/pgconn"
)

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

func isConstraint(err error, name string) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.ConstraintName == name
}

type observer struct {
	prom *observability.Prom
}

func (o observer) observe(op string, fn func() error) error {
	if o.prom != nil {
		return o.prom.ObserveDB(op, fn)
	}
	return fn()
}

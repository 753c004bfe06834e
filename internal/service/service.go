// Package service holds the core operations of the ledger: credentials,
// categories and time entries. Every operation runs inside one transaction
// obtained from the coordinator and returns either a domain error (see the
// domain packages) or db.ErrTransactionFailure.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/timeledger/internal/db"
	"github.com/geocoder89/timeledger/internal/domain/category"
	"github.com/geocoder89/timeledger/internal/domain/entry"
	"github.com/geocoder89/timeledger/internal/domain/user"
	"github.com/geocoder89/timeledger/internal/domain/validation"
	"github.com/geocoder89/timeledger/internal/observability"
)

type TxRunner interface {
	WithTx(ctx context.Context, name string, fn db.TxFunc) error
}

type UserStore interface {
	Create(ctx context.Context, q db.Querier, username, passwordHash string) (user.User, error)
	GetByUsername(ctx context.Context, q db.Querier, username string) (user.User, error)
}

type CategoryStore interface {
	GetByName(ctx context.Context, q db.Querier, name string) (category.Category, error)
	InsertIfAbsent(ctx context.Context, q db.Querier, name string) (category.Category, bool, error)
	List(ctx context.Context, q db.Querier) ([]category.Category, error)
}

type EntryStore interface {
	Insert(ctx context.Context, q db.Querier, userID, categoryID int64, iv entry.Interval) (int64, error)
	LockOwned(ctx context.Context, q db.Querier, entryID int64, username string) (int64, error)
	Update(ctx context.Context, q db.Querier, entryID, categoryID int64, iv entry.Interval) error
	ListByUser(ctx context.Context, q db.Querier, userID int64) ([]entry.Entry, error)
}

var domainErrors = []error{
	user.ErrNotFound,
	user.ErrDuplicateUsername,
	user.ErrInvalidCredentials,
	category.ErrNotFound,
	entry.ErrNotFoundOrForbidden,
}

// expected reports whether err is an outcome the caller caused, as opposed to
// a store failure.
func expected(err error) bool {
	if _, ok := validation.As(err); ok {
		return true
	}

	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

type base struct {
	tx   TxRunner
	log  *slog.Logger
	prom *observability.Prom
}

func newBase(tx TxRunner, log *slog.Logger, prom *observability.Prom) base {
	if log == nil {
		log = slog.Default()
	}

	return base{tx: tx, log: log, prom: prom}
}

// finish records the outcome of op. Domain errors pass through untouched;
// anything else is logged here, once, and replaced by the opaque failure.
func (b base) finish(ctx context.Context, op string, err error) error {
	switch {
	case err == nil:
		b.record(op, "ok")
		return nil
	case expected(err):
		b.record(op, "rejected")
		b.log.DebugContext(ctx, "operation rejected", "op", op, "reason", err.Error())
		return err
	default:
		b.record(op, "failed")
		b.log.ErrorContext(ctx, "operation failed", "op", op, "err", err)
		return db.ErrTransactionFailure
	}
}

func (b base) record(op, result string) {
	if b.prom != nil {
		b.prom.ObserveOp(op, result)
	}
}

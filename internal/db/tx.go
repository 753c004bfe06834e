package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrTransactionFailure is the single opaque failure surfaced when the store
// could not begin or commit a unit of work.
var ErrTransactionFailure = errors.New("transaction failure")

const DefaultAcquireTimeout = 2 * time.Second

// Querier is satisfied by pgx.Tx and *pgxpool.Pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type TxFunc func(ctx context.Context, tx pgx.Tx) error

// TxError wraps a begin/commit failure. It matches ErrTransactionFailure with
// errors.Is and keeps the driver error for server-side logs.
type TxError struct {
	Stage string
	Err   error
}

func (e *TxError) Error() string {
	return e.Stage + " transaction: " + e.Err.Error()
}

func (e *TxError) Unwrap() error {
	return e.Err
}

func (e *TxError) Is(target error) bool {
	return target == ErrTransactionFailure
}

type Coordinator struct {
	pool           TxBeginner
	acquireTimeout time.Duration
	tracer         trace.Tracer
}

func NewCoordinator(pool TxBeginner, acquireTimeout time.Duration) *Coordinator {
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}

	return &Coordinator{
		pool:           pool,
		acquireTimeout: acquireTimeout,
		tracer:         otel.Tracer("github.com/geocoder89/timeledger/internal/db"),
	}
}

// WithTx runs fn inside one transaction. It commits when fn returns nil and
// rolls back when fn returns an error or panics; the connection goes back to
// the pool on every path. fn's own error is returned unchanged.
//
// Waiting for a pooled connection is bounded by the acquire timeout so an
// exhausted pool fails fast instead of hanging.
func (c *Coordinator) WithTx(ctx context.Context, name string, fn TxFunc) (err error) {
	ctx, span := c.tracer.Start(ctx, "tx "+name)
	defer span.End()

	beginCtx, cancel := context.WithTimeout(ctx, c.acquireTimeout)
	tx, err := c.pool.BeginTx(beginCtx, pgx.TxOptions{})
	cancel()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return &TxError{Stage: "begin", Err: err}
	}

	defer func() {
		// rollback must run even if the request context is already done
		rbCtx := context.WithoutCancel(ctx)

		if p := recover(); p != nil {
			_ = tx.Rollback(rbCtx)
			panic(p)
		}

		if err != nil {
			_ = tx.Rollback(rbCtx)
			span.SetStatus(codes.Error, "rolled back")
			return
		}

		if cerr := tx.Commit(ctx); cerr != nil {
			span.RecordError(cerr)
			span.SetStatus(codes.Error, "commit failed")
			err = &TxError{Stage: "commit", Err: cerr}
		}
	}()

	return fn(ctx, tx)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/timeledger/internal/db"
	"github.com/geocoder89/timeledger/internal/domain/category"
	"github.com/geocoder89/timeledger/internal/observability"
	"github.com/jackc/pgx/v5"
)

type CategoryRegistry struct {
	base
	categories CategoryStore
}

func NewCategoryRegistry(tx TxRunner, categories CategoryStore, log *slog.Logger, prom *observability.Prom) *CategoryRegistry {
	return &CategoryRegistry{
		base:       newBase(tx, log, prom),
		categories: categories,
	}
}

// GetOrCreate returns the category called name, creating it if needed.
// created is true only for the call whose insert actually stored the row;
// concurrent callers racing on the same new name all get the same id.
func (r *CategoryRegistry) GetOrCreate(ctx context.Context, name string) (c category.Category, created bool, err error) {
	const op = "categories.get_or_create"

	name, err = category.NormalizeName(name)
	if err != nil {
		return category.Category{}, false, r.finish(ctx, op, err)
	}

	err = r.tx.WithTx(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		var e error

		c, e = r.categories.GetByName(ctx, tx, name)
		if e == nil {
			return nil
		}
		if !errors.Is(e, category.ErrNotFound) {
			return e
		}

		c, created, e = r.categories.InsertIfAbsent(ctx, tx, name)
		if e != nil || created {
			return e
		}

		// lost the race; the winner has committed by now
		c, e = r.categories.GetByName(ctx, tx, name)
		if errors.Is(e, category.ErrNotFound) {
			return fmt.Errorf("category %q missing after insert conflict", name)
		}
		return e
	})

	if err != nil {
		return category.Category{}, false, r.finish(ctx, op, err)
	}

	return c, created, r.finish(ctx, op, nil)
}

func (r *CategoryRegistry) Get(ctx context.Context, name string) (c category.Category, err error) {
	const op = "categories.get"

	name, err = category.NormalizeName(name)
	if err != nil {
		return category.Category{}, r.finish(ctx, op, err)
	}

	err = r.tx.WithTx(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		var e error
		c, e = r.categories.GetByName(ctx, tx, name)
		return e
	})

	if err != nil {
		return category.Category{}, r.finish(ctx, op, err)
	}

	return c, r.finish(ctx, op, nil)
}

// List returns every category ordered by name.
func (r *CategoryRegistry) List(ctx context.Context) ([]category.Category, error) {
	const op = "categories.list"

	var out []category.Category

	err := r.tx.WithTx(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		var e error
		out, e = r.categories.List(ctx, tx)
		return e
	})

	if err != nil {
		return nil, r.finish(ctx, op, err)
	}

	return out, r.finish(ctx, op, nil)
}

// lookup resolves an already-normalized name inside the caller's transaction.
func (r *CategoryRegistry) lookup(ctx context.Context, q db.Querier, name string) (category.Category, error) {
	return r.categories.GetByName(ctx, q, name)
}

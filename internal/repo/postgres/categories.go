package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/timeledger/internal/db"
	"github.com/geocoder89/timeledger/internal/domain/category"
	"github.com/geocoder89/timeledger/internal/observability"
	"github.com/jackc/pgx/v5"
)

type CategoriesRepo struct {
	observer
}

func NewCategoriesRepo(prom *observability.Prom) *CategoriesRepo {
	return &CategoriesRepo{observer{prom: prom}}
}

func (r *CategoriesRepo) GetByName(ctx context.Context, q db.Querier, name string) (category.Category, error) {
	var c category.Category

	err := r.observe("categories.get_by_name", func() error {
		return q.QueryRow(ctx,
			`SELECT id, name, created_at FROM categories WHERE name = $1`,
			name,
		).Scan(&c.ID, &c.Name, &c.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return category.Category{}, category.ErrNotFound
		}
		return category.Category{}, fmt.Errorf("select category: %w", err)
	}

	return c, nil
}

// InsertIfAbsent inserts name unless a row already holds it. When a concurrent
// transaction wins the race the statement waits for it and inserts nothing;
// inserted is then false and the caller re-reads. Using ON CONFLICT keeps the
// surrounding transaction usable, which a raised unique violation would not.
func (r *CategoriesRepo) InsertIfAbsent(ctx context.Context, q db.Querier, name string) (c category.Category, inserted bool, err error) {
	err = r.observe("categories.insert_if_absent", func() error {
		return q.QueryRow(ctx,
			`INSERT INTO categories (name)
			VALUES ($1)
			ON CONFLICT (name) DO NOTHING
			RETURNING id, name, created_at`,
			name,
		).Scan(&c.ID, &c.Name, &c.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return category.Category{}, false, nil
		}
		return category.Category{}, false, fmt.Errorf("insert category: %w", err)
	}

	return c, true, nil
}

func (r *CategoriesRepo) List(ctx context.Context, q db.Querier) ([]category.Category, error) {
	var rows pgx.Rows

	err := r.observe("categories.list", func() error {
		var qerr error
		rows, qerr = q.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name ASC, id ASC`)
		return qerr
	})

	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	defer rows.Close()

	out := make([]category.Category, 0)

	for rows.Next() {
		var c category.Category

		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	return out, nil
}

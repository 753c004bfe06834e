package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/timeledger/internal/db"
	"github.com/geocoder89/timeledger/internal/domain/entry"
	"github.com/geocoder89/timeledger/internal/observability"
	"github.com/jackc/pgx/v5"
)

type EntriesRepo struct {
	observer
}

func NewEntriesRepo(prom *observability.Prom) *EntriesRepo {
	return &EntriesRepo{observer{prom: prom}}
}

func (r *EntriesRepo) Insert(ctx context.Context, q db.Querier, userID, categoryID int64, iv entry.Interval) (int64, error) {
	var id int64

	err := r.observe("entries.insert", func() error {
		return q.QueryRow(ctx,
			`INSERT INTO time_entries (user_id, category_id, start_time, end_time)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			userID, categoryID, iv.Start, iv.End,
		).Scan(&id)
	})

	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}

	return id, nil
}

// LockOwned locks the entry row only if it belongs to username. Missing and
// foreign entries both come back as entry.ErrNotFoundOrForbidden.
func (r *EntriesRepo) LockOwned(ctx context.Context, q db.Querier, entryID int64, username string) (userID int64, err error) {
	err = r.observe("entries.lock_owned", func() error {
		return q.QueryRow(ctx,
			`SELECT te.user_id
			FROM time_entries te
			JOIN users u ON u.id = te.user_id
			WHERE te.id = $1 AND u.username = $2
			FOR UPDATE OF te`,
			entryID, username,
		).Scan(&userID)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, entry.ErrNotFoundOrForbidden
		}
		return 0, fmt.Errorf("select owned entry: %w", err)
	}

	return userID, nil
}

func (r *EntriesRepo) Update(ctx context.Context, q db.Querier, entryID, categoryID int64, iv entry.Interval) error {
	err := r.observe("entries.update", func() error {
		tag, e := q.Exec(ctx,
			`UPDATE time_entries
			SET category_id = $2,
				start_time = $3,
				end_time = $4,
				updated_at = NOW()
			WHERE id = $1`,
			entryID, categoryID, iv.Start, iv.End,
		)
		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})

	if err != nil {
		// the row is locked by LockOwned, so a miss here is not expected
		return fmt.Errorf("update entry: %w", err)
	}

	return nil
}

// ListByUser returns the user's entries ordered by start time, ties by id.
func (r *EntriesRepo) ListByUser(ctx context.Context, q db.Querier, userID int64) ([]entry.Entry, error) {
	var rows pgx.Rows

	err := r.observe("entries.list_by_user", func() error {
		var qerr error
		rows, qerr = q.Query(ctx,
			`SELECT te.id, te.user_id, te.category_id, c.name, te.start_time, te.end_time
			FROM time_entries te
			JOIN categories c ON c.id = te.category_id
			WHERE te.user_id = $1
			ORDER BY te.start_time ASC, te.id ASC`,
			userID,
		)
		return qerr
	})

	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	defer rows.Close()

	out := make([]entry.Entry, 0)

	for rows.Next() {
		var e entry.Entry

		if err := rows.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Category, &e.StartTime, &e.EndTime); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		e.StartTime = e.StartTime.UTC()
		e.EndTime = e.EndTime.UTC()
		out = append(out, e.WithDuration())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	return out, nil
}

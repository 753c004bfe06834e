package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/geocoder89/timeledger/internal/domain/category"
	"github.com/geocoder89/timeledger/internal/domain/entry"
	"github.com/geocoder89/timeledger/internal/observability"
	"github.com/jackc/pgx/v5"
)

type Ledger struct {
	base
	users      UserStore
	categories *CategoryRegistry
	entries    EntryStore
}

func NewLedger(tx TxRunner, users UserStore, categories *CategoryRegistry, entries EntryStore, log *slog.Logger, prom *observability.Prom) *Ledger {
	return &Ledger{
		base:       newBase(tx, log, prom),
		users:      users,
		categories: categories,
		entries:    entries,
	}
}

// CreateEntry records an interval for username under an existing category.
// Input is validated before any store access.
func (l *Ledger) CreateEntry(ctx context.Context, username, categoryName, startRaw, endRaw string) (e entry.Entry, err error) {
	const op = "entries.create"

	name, iv, err := parseEntryInput(categoryName, startRaw, endRaw)
	if err != nil {
		return entry.Entry{}, l.finish(ctx, op, err)
	}

	username = strings.TrimSpace(username)

	err = l.tx.WithTx(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		u, e2 := l.users.GetByUsername(ctx, tx, username)
		if e2 != nil {
			return e2
		}

		c, e2 := l.categories.lookup(ctx, tx, name)
		if e2 != nil {
			return e2
		}

		id, e2 := l.entries.Insert(ctx, tx, u.ID, c.ID, iv)
		if e2 != nil {
			return e2
		}

		e = entry.Entry{
			ID:         id,
			UserID:     u.ID,
			Username:   u.Username,
			CategoryID: c.ID,
			Category:   c.Name,
			StartTime:  iv.Start,
			EndTime:    iv.End,
		}.WithDuration()

		return nil
	})

	if err != nil {
		return entry.Entry{}, l.finish(ctx, op, err)
	}

	return e, l.finish(ctx, op, nil)
}

// UpdateEntry replaces category and interval of an entry owned by caller.
// A missing entry and one owned by someone else are indistinguishable.
func (l *Ledger) UpdateEntry(ctx context.Context, entryID int64, caller, categoryName, startRaw, endRaw string) (e entry.Entry, err error) {
	const op = "entries.update"

	name, iv, err := parseEntryInput(categoryName, startRaw, endRaw)
	if err != nil {
		return entry.Entry{}, l.finish(ctx, op, err)
	}

	caller = strings.TrimSpace(caller)

	err = l.tx.WithTx(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		ownerID, e2 := l.entries.LockOwned(ctx, tx, entryID, caller)
		if e2 != nil {
			return e2
		}

		c, e2 := l.categories.lookup(ctx, tx, name)
		if e2 != nil {
			return e2
		}

		if e2 = l.entries.Update(ctx, tx, entryID, c.ID, iv); e2 != nil {
			return e2
		}

		e = entry.Entry{
			ID:         entryID,
			UserID:     ownerID,
			Username:   caller,
			CategoryID: c.ID,
			Category:   c.Name,
			StartTime:  iv.Start,
			EndTime:    iv.End,
		}.WithDuration()

		return nil
	})

	if err != nil {
		return entry.Entry{}, l.finish(ctx, op, err)
	}

	return e, l.finish(ctx, op, nil)
}

// ListEntriesForUser returns the user's entries ordered by start time.
// A user with no entries gets an empty, non-nil slice.
func (l *Ledger) ListEntriesForUser(ctx context.Context, username string) ([]entry.Entry, error) {
	const op = "entries.list"

	username = strings.TrimSpace(username)

	var out []entry.Entry

	err := l.tx.WithTx(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		u, e := l.users.GetByUsername(ctx, tx, username)
		if e != nil {
			return e
		}

		out, e = l.entries.ListByUser(ctx, tx, u.ID)
		if e != nil {
			return e
		}

		for i := range out {
			out[i].Username = u.Username
		}

		return nil
	})

	if err != nil {
		return nil, l.finish(ctx, op, err)
	}

	if out == nil {
		out = []entry.Entry{}
	}

	return out, l.finish(ctx, op, nil)
}

func parseEntryInput(categoryName, startRaw, endRaw string) (string, entry.Interval, error) {
	name, err := category.NormalizeName(categoryName)
	if err != nil {
		return "", entry.Interval{}, err
	}

	iv, err := entry.ParseInterval(startRaw, endRaw)
	if err != nil {
		return "", entry.Interval{}, err
	}

	return name, iv, nil
}

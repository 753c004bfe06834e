package entry

import (
	"errors"
	"time"
)

// ErrNotFoundOrForbidden is returned when an entry does not exist or is owned
// by someone else. Callers must not be able to tell the two apart.
var ErrNotFoundOrForbidden = errors.New("entry not found or access denied")

type Entry struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"userId"`
	Username        string    `json:"username"`
	CategoryID      int64     `json:"categoryId"`
	Category        string    `json:"category"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationSeconds int64     `json:"durationSeconds"`
}

// Timestamps stay as text until ParseInterval so naive values can be rejected
// instead of silently decoded.
type CreateEntryRequest struct {
	Category  string `json:"category" binding:"required,notblank"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
}

type UpdateEntryRequest struct {
	Category  string `json:"category" binding:"required,notblank"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
}

// Interval is a validated, UTC-normalised [start, end) pair.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) DurationSeconds() int64 {
	return DurationSeconds(i.Start, i.End)
}

func DurationSeconds(start, end time.Time) int64 {
	return int64(end.Sub(start) / time.Second)
}

// WithDuration fills the derived duration from the stored times.
func (e Entry) WithDuration() Entry {
	e.DurationSeconds = DurationSeconds(e.StartTime, e.EndTime)
	return e
}

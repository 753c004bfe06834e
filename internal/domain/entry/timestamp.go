package entry

import (
	"strings"
	"time"

	"github.com/geocoder89/timeledger/internal/domain/validation"
)

const (
	msgTimezoneRequired = "timezone information required (ISO 8601 with offset)"
	msgBadFormat        = "datetime must be ISO 8601 format with timezone"
	msgOrdering         = "end_time must be after start_time"
)

var zonedLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05-0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
	// hour-only offsets
	"2006-01-02T15:04:05Z07",
	"2006-01-02 15:04:05Z07",
	"2006-01-02T15:04Z07",
	// basic format
	"20060102T150405Z0700",
	"20060102T150405Z07",
}

// layouts that parse but carry no offset; matching one of these means the
// caller forgot the zone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102T150405",
}

// ParseTimestamp parses ISO-8601 text that carries an explicit offset or a
// UTC designator and returns the instant in UTC, truncated to the storage
// precision (microseconds).
func ParseTimestamp(field, raw string) (time.Time, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))

	if s == "" {
		return time.Time{}, validation.New(field, "is required")
	}

	for _, layout := range zonedLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC().Truncate(time.Microsecond), nil
		}
	}

	for _, layout := range naiveLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return time.Time{}, validation.New(field, msgTimezoneRequired)
		}
	}

	return time.Time{}, validation.New(field, msgBadFormat)
}

// ParseInterval parses both ends and requires end to be strictly after start.
func ParseInterval(startRaw, endRaw string) (Interval, error) {
	start, err := ParseTimestamp("startTime", startRaw)
	if err != nil {
		return Interval{}, err
	}

	end, err := ParseTimestamp("endTime", endRaw)
	if err != nil {
		return Interval{}, err
	}

	if !end.After(start) {
		return Interval{}, validation.New("endTime", msgOrdering)
	}

	return Interval{Start: start, End: end}, nil
}

package entry

import (
	"testing"
	"time"

	"github.com/geocoder89/timeledger/internal/domain/validation"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp_Accepted(t *testing.T) {
	want := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	cases := []string{
		"2024-01-01T09:00:00Z",
		"2024-01-01t09:00:00z",
		"2024-01-01T09:00:00+00:00",
		"2024-01-01T11:00:00+02:00",
		"2024-01-01 04:00:00-05:00",
		"2024-01-01T11:00:00+0200",
		"2024-01-01T09:00Z",
		"2024-01-01T14:00:00+05",
		"2024-01-01 04:00:00-05",
		"20240101T090000Z",
		"20240101T140000+0500",
		"20240101T140000+05",
		"  2024-01-01T09:00:00Z  ",
	}

	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := ParseTimestamp("startTime", in)
			require.NoError(t, err)
			require.True(t, got.Equal(want), "got %s", got)
			require.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_FractionalSecondsTruncatedToMicros(t *testing.T) {
	got, err := ParseTimestamp("startTime", "2024-01-01T09:00:00.123456789Z")
	require.NoError(t, err)
	require.Equal(t, 123456000, got.Nanosecond())
}

func TestParseTimestamp_RejectsNaive(t *testing.T) {
	for _, in := range []string{
		"2024-01-01T09:00:00",
		"2024-01-01 09:00:00",
		"2024-01-01T09:00:00.5",
		"2024-01-01",
		"20240101T090000",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseTimestamp("startTime", in)
			v, ok := validation.As(err)
			require.True(t, ok)
			require.Equal(t, "startTime", v.Field)
			require.Contains(t, v.Message, "timezone information required")
		})
	}
}

func TestParseTimestamp_RejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "yesterday", "01/02/2024 09:00 +00:00", "2024-13-01T09:00:00Z"} {
		_, err := ParseTimestamp("endTime", in)
		_, ok := validation.As(err)
		require.True(t, ok, "input %q", in)
	}
}

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("2024-01-01T09:00:00Z", "2024-01-01T10:30:00Z")
	require.NoError(t, err)
	require.Equal(t, int64(5400), iv.DurationSeconds())

	// offsets are compared as instants, not wall clock
	iv, err = ParseInterval("2024-01-01T10:00:00+01:00", "2024-01-01T09:30:00Z")
	require.NoError(t, err)
	require.Equal(t, int64(1800), iv.DurationSeconds())
}

func TestParseInterval_Ordering(t *testing.T) {
	for _, tc := range []struct{ start, end string }{
		{"2024-01-01T10:00:00Z", "2024-01-01T09:00:00Z"},
		{"2024-01-01T10:00:00Z", "2024-01-01T10:00:00Z"},
		{"2024-01-01T10:00:00Z", "2024-01-01T12:00:00+02:00"},
	} {
		_, err := ParseInterval(tc.start, tc.end)
		v, ok := validation.As(err)
		require.True(t, ok)
		require.Equal(t, "end_time must be after start_time", v.Message)
	}
}

func TestParseInterval_NaiveEndRejected(t *testing.T) {
	_, err := ParseInterval("2024-01-01T09:00:00Z", "2024-01-01T10:00:00")
	v, ok := validation.As(err)
	require.True(t, ok)
	require.Equal(t, "endTime", v.Field)
}

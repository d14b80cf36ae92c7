// ABOUTME: Tests for human duration and clock time parsing
// ABOUTME: Table-driven over unit spellings and malformed input

package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"90s", 90 * time.Second},
		{"10min", 10 * time.Minute},
		{"10", 10 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"1h30", 90 * time.Minute},
		{"1 h 30", 90 * time.Minute},
		{"2 days 4 hours", 52 * time.Hour},
		{"3j", 72 * time.Hour},
		{"1 sem", 7 * 24 * time.Hour},
		{"1mois", 30 * 24 * time.Hour},
		{"1an", 365 * 24 * time.Hour},
		{"1.5h", 90 * time.Minute},
		{"5m30", 5*time.Minute + 30*time.Second},
		{"  2H  ", 2 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "10 parsecs", "0", "1d5", "h"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDuration(in)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseClock(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	at, err := ParseClock("18:45", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 18, 45, 0, 0, time.UTC), at)

	at, err = ParseClock("9h05", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 5, 0, 0, time.UTC), at, "past times roll to tomorrow")

	at, err = ParseClock("14:00", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC), at)

	for _, bad := range []string{"25:00", "12:60", "noon", "12:", ":30", "1h"} {
		_, err := ParseClock(bad, now)
		assert.ErrorIs(t, err, ErrInvalid, bad)
	}
}

func TestParseWhen(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	at, err := ParseWhen("15:30", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC), at)

	at, err = ParseWhen("1h30", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(90*time.Minute), at)

	at, err = ParseWhen("2h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(2*time.Hour), at)

	_, err = ParseWhen("whenever", now)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0s", Format(0))
	assert.Equal(t, "1m 30s", Format(90*time.Second))
	assert.Equal(t, "1d 2h 5m", Format(26*time.Hour+5*time.Minute))
}

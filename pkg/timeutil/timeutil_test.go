package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfDay_UsesIST(t *testing.T) {
	// 20:00 UTC is already the next day in India.
	utc := time.Date(2026, 1, 10, 20, 0, 0, 0, time.UTC)
	got := StartOfDay(utc)
	assert.Equal(t, Date(2026, 1, 11), got)
}

func TestDaysUntil(t *testing.T) {
	from := time.Date(2026, 1, 10, 23, 0, 0, 0, IST)
	to := time.Date(2026, 1, 12, 1, 0, 0, 0, IST)
	assert.Equal(t, 2, DaysUntil(from, to))
	assert.Equal(t, -2, DaysUntil(to, from))
	assert.Equal(t, 2, DaysBetween(to, from))
	assert.Equal(t, 0, DaysUntil(from, from.Add(30*time.Minute)))
}

func TestDayIndex(t *testing.T) {
	start := Date(2026, 1, 1)
	assert.Equal(t, 0, DayIndex(start, start))
	assert.Equal(t, 9, DayIndex(start, Date(2026, 1, 10)))
	assert.Equal(t, 0, DayIndex(start, Date(2025, 12, 25)))
	assert.Equal(t, 0, DayIndex(time.Time{}, Date(2026, 1, 10)))
}

func TestParseAndFormatDate(t *testing.T) {
	d, err := ParseDate("2026-04-05")
	require.NoError(t, err)
	assert.Equal(t, "2026-04-05", FormatDateStr(d))

	_, err = ParseDate("05/04/2026")
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "35s", FormatDuration(35*time.Second))
	assert.Equal(t, "40m", FormatDuration(40*time.Minute))
	assert.Equal(t, "2h", FormatDuration(2*time.Hour))
	assert.Equal(t, "1h 25m", FormatDuration(85*time.Minute))
	assert.Equal(t, "2h 30m", FormatHours(2.5))
}

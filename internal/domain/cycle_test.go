package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestProgressFirstDay(t *testing.T) {
	start := date("2025-03-01")
	p := Progress(&start, 40, date("2025-03-01"))

	assert.Equal(t, 1, p.CurrentDay)
	assert.Equal(t, 40, p.TotalDays)
	assert.Equal(t, 2.5, p.ProgressPercentage)
	assert.Equal(t, 39, p.DaysRemaining)
	assert.False(t, p.IsCompleted)
	assert.Equal(t, "2025-03-01", p.StartDate)
	assert.Equal(t, "2025-04-09", p.ExpectedCompletionDate)
}

func TestProgressMidCycle(t *testing.T) {
	start := date("2025-03-01")
	p := Progress(&start, 40, date("2025-03-10"))

	assert.Equal(t, 10, p.CurrentDay)
	assert.Equal(t, 25.0, p.ProgressPercentage)
	assert.Equal(t, 30, p.DaysRemaining)
	assert.False(t, p.IsCompleted)
}

func TestProgressLastDayCompletes(t *testing.T) {
	start := date("2025-03-01")
	p := Progress(&start, 40, date("2025-04-09"))

	assert.Equal(t, 40, p.CurrentDay)
	assert.Equal(t, 100.0, p.ProgressPercentage)
	assert.Equal(t, 0, p.DaysRemaining)
	assert.True(t, p.IsCompleted)
}

func TestProgressClampsPastCycleEnd(t *testing.T) {
	start := date("2025-01-01")
	p := Progress(&start, 40, date("2025-06-01"))

	assert.Equal(t, 40, p.CurrentDay)
	assert.Equal(t, 100.0, p.ProgressPercentage)
	assert.Equal(t, 0, p.DaysRemaining)
	assert.True(t, p.IsCompleted)
}

func TestProgressNilStart(t *testing.T) {
	p := Progress(nil, 40, date("2025-03-01"))

	assert.Equal(t, 0, p.CurrentDay)
	assert.Equal(t, 40, p.TotalDays)
	assert.Equal(t, 0.0, p.ProgressPercentage)
	assert.Equal(t, 40, p.DaysRemaining)
	assert.False(t, p.IsCompleted)
	assert.Empty(t, p.StartDate)
}

func TestProgressDefaultsCycleDays(t *testing.T) {
	start := date("2025-03-01")
	p := Progress(&start, 0, date("2025-03-01"))

	assert.Equal(t, DefaultCycleDays, p.TotalDays)
}

func TestProgressPercentageRounding(t *testing.T) {
	start := date("2025-03-01")
	// Day 7 of 30: 23.333... rounds to 23.33.
	p := Progress(&start, 30, date("2025-03-07"))

	assert.Equal(t, 23.33, p.ProgressPercentage)
}

func TestProgressIgnoresWallClock(t *testing.T) {
	start := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	today := time.Date(2025, 3, 2, 0, 1, 0, 0, time.UTC)
	p := Progress(&start, 40, today)

	assert.Equal(t, 2, p.CurrentDay)
}

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, date("2025-03-01"), parsed)

	_, err = ParseDate("01/03/2025")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestDateOnly(t *testing.T) {
	ts := time.Date(2025, 3, 1, 18, 30, 45, 123, time.FixedZone("PKT", 5*3600))
	got := DateOnly(ts)

	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)
}

package domain

import (
	"math"
	"time"
)

// DefaultCycleDays is the standard cycle length for a level.
const DefaultCycleDays = 40

// CycleProgress describes where a Saalik stands inside their current level
// cycle.
type CycleProgress struct {
	CurrentDay             int     `json:"current_day"`
	TotalDays              int     `json:"total_days"`
	ProgressPercentage     float64 `json:"progress_percentage"`
	DaysRemaining          int     `json:"days_remaining"`
	IsCompleted            bool    `json:"is_completed"`
	StartDate              string  `json:"start_date,omitempty"`
	ExpectedCompletionDate string  `json:"expected_completion_date,omitempty"`
}

// Progress computes cycle progress for a start date and cycle length, as of
// today. The start day counts as day 1. A nil start date means the disciple
// has not begun the cycle yet.
func Progress(start *time.Time, cycleDays int, today time.Time) CycleProgress {
	if cycleDays <= 0 {
		cycleDays = DefaultCycleDays
	}
	if start == nil {
		return CycleProgress{
			CurrentDay:    0,
			TotalDays:     cycleDays,
			DaysRemaining: cycleDays,
		}
	}

	startDay := DateOnly(*start)
	daysElapsed := int(DateOnly(today).Sub(startDay).Hours()/24) + 1

	currentDay := daysElapsed
	if currentDay > cycleDays {
		currentDay = cycleDays
	}

	daysRemaining := cycleDays - daysElapsed
	if daysRemaining < 0 {
		daysRemaining = 0
	}

	pct := float64(currentDay) / float64(cycleDays) * 100
	pct = math.Round(pct*100) / 100

	return CycleProgress{
		CurrentDay:             currentDay,
		TotalDays:              cycleDays,
		ProgressPercentage:     pct,
		DaysRemaining:          daysRemaining,
		IsCompleted:            daysElapsed >= cycleDays,
		StartDate:              startDay.Format(DateLayout),
		ExpectedCompletionDate: startDay.AddDate(0, 0, cycleDays-1).Format(DateLayout),
	}
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// DateOnly truncates t to midnight UTC so calendar arithmetic is stable
// regardless of the wall-clock component.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, E(KindValidation, "invalid date format, use YYYY-MM-DD")
	}
	return t, nil
}

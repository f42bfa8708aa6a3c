package calculator

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the layout of calendar dates (YYYY-MM-DD).
	DateLayout = "2006-01-02"
	// MonthLayout is the layout of calendar months (YYYY-MM).
	MonthLayout = "2006-01"
	// TimeLayout is the layout of optional expense times (HH:MM).
	TimeLayout = "15:04"
)

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseMonth parses a YYYY-MM month.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	return t, nil
}

// ParseClock parses an HH:MM time of day.
func ParseClock(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	return t, nil
}

// MonthBounds returns the first and last calendar date of a YYYY-MM month.
func MonthBounds(month string) (from, to string, err error) {
	start, err := ParseMonth(month)
	if err != nil {
		return "", "", err
	}
	end := start.AddDate(0, 1, -1)
	return start.Format(DateLayout), end.Format(DateLayout), nil
}

// MonthOf returns the YYYY-MM month a YYYY-MM-DD date falls in.
func MonthOf(date string) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.Format(MonthLayout), nil
}

// Today returns the current local date formatted as YYYY-MM-DD.
func Today() string {
	return time.Now().Format(DateLayout)
}

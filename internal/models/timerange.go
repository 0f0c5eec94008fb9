package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Operating window for all bookable time.
const (
	DayStart = "08:00"
	DayEnd   = "18:00"
)

// TimeRange is a half-open [Start, End) interval with minute precision,
// expressed as "HH:MM" strings.
type TimeRange struct {
	Start string `json:"start_time" db:"start_time" validate:"required"`
	End   string `json:"end_time" db:"end_time" validate:"required"`
}

// MinuteOf converts "HH:MM" into minutes since midnight. Malformed input
// yields -1 so it can never overlap a valid range.
func MinuteOf(t string) int {
	var hh, mm int
	if _, err := fmt.Sscanf(t, "%d:%d", &hh, &mm); err != nil {
		return -1
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return -1
	}
	return hh*60 + mm
}

// TimeOf renders minutes since midnight as "HH:MM".
func TimeOf(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Overlaps reports whether two half-open ranges intersect. Touching ranges
// (one ends exactly where the other starts) do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	s1, e1 := MinuteOf(r.Start), MinuteOf(r.End)
	s2, e2 := MinuteOf(other.Start), MinuteOf(other.End)
	return max(s1, s2) < min(e1, e2)
}

// DurationMinutes returns the length of the range.
func (r TimeRange) DurationMinutes() int {
	return MinuteOf(r.End) - MinuteOf(r.Start)
}

// Valid reports whether the range is well-formed and inside the operating
// window.
func (r TimeRange) Valid() bool {
	s, e := MinuteOf(r.Start), MinuteOf(r.End)
	return s >= 0 && e >= 0 && s < e && s >= MinuteOf(DayStart) && e <= MinuteOf(DayEnd)
}

// WeekdayOf returns the English weekday name ("Monday"...) for a DateLayout
// date string.
func WeekdayOf(date string) (string, error) {
	parsed, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	return parsed.Weekday().String(), nil
}

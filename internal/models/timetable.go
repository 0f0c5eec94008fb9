package models

import "time"

// Weekday names accepted on timetables.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// IsTeachingDay reports whether the given weekday carries lectures.
func IsTeachingDay(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// Timetable is the weekly lecture plan for one student group.
type Timetable struct {
	ID        string    `db:"id" json:"id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Slots []LectureSlot `db:"-" json:"slots"`
}

// LectureSlot is one scheduled teaching session inside a timetable.
type LectureSlot struct {
	ID          string `db:"id" json:"id"`
	TimetableID string `db:"timetable_id" json:"timetable_id"`
	Day         string `db:"day" json:"day"`
	StartTime   string `db:"start_time" json:"start_time"`
	EndTime     string `db:"end_time" json:"end_time"`
	ModuleCode  string `db:"module_code" json:"module_code"`
	LecturerID  string `db:"lecturer_id" json:"lecturer_id"`
	VenueID     string `db:"venue_id" json:"venue_id"`
}

// Range returns the slot's time range.
func (s LectureSlot) Range() TimeRange {
	return TimeRange{Start: s.StartTime, End: s.EndTime}
}

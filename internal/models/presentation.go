package models

import "time"

// Presentation is a bookable event occupying one venue for a set of
// examiners and students within one date/time range.
type Presentation struct {
	ID              string    `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Department      string    `db:"department" json:"department"`
	VenueID         string    `db:"venue_id" json:"venue_id"`
	Date            string    `db:"date" json:"date"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	NumExaminers    int       `db:"num_examiners" json:"num_examiners"`
	TimeRange       `json:"time_range"`
	StudentIDs      []string  `db:"-" json:"student_ids"`
	ExaminerIDs     []string  `db:"-" json:"examiner_ids"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// PresentationFilter describes query params for listing presentations.
type PresentationFilter struct {
	Date       string
	Department string
	VenueID    string
	Page       int
	PageSize   int
}

// BookingResult reports the outcome of a booking attempt. An occupied slot
// is an expected business outcome, not an error.
type BookingResult struct {
	Scheduled    bool          `json:"scheduled"`
	Reason       string        `json:"reason,omitempty"`
	Presentation *Presentation `json:"presentation,omitempty"`
}

// SlotSuggestion is the outcome of the smart slot search.
type SlotSuggestion struct {
	Date        string    `json:"date"`
	TimeRange   TimeRange `json:"time_range"`
	VenueID     string    `json:"venue_id"`
	ExaminerIDs []string  `json:"examiner_ids"`
	Department  string    `json:"department"`
}

// FreeWindow is a gap in a day's bookings large enough for a requested
// duration.
type FreeWindow struct {
	TimeSlot  string `json:"time_slot"`
	Available bool   `json:"available"`
}

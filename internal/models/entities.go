package models

import "time"

// Student is a presentation participant. Lookup contract only; roster
// management lives outside this service.
type Student struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	Department string    `db:"department" json:"department"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Examiner doubles as a lecturer on weekly timetables.
type Examiner struct {
	ID         string    `db:"id" json:"id"`
	ExaminerID string    `db:"examiner_id" json:"examiner_id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	Department string    `db:"department" json:"department"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Venue is a bookable room.
type Venue struct {
	ID        string    `db:"id" json:"id"`
	VenueID   string    `db:"venue_id" json:"venue_id"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StudentGroup maps a timetable group to its enrolled students.
type StudentGroup struct {
	ID         string    `db:"id" json:"id"`
	GroupID    string    `db:"group_id" json:"group_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	StudentIDs []string  `db:"-" json:"student_ids"`
}

// Pagination carries list metadata on the response envelope.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

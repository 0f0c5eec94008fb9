package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// DisplacedLecture is one relocated teaching session inside a
// RescheduledLecture record.
type DisplacedLecture struct {
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	ModuleCode string `json:"module_code"`
	VenueID    string `json:"venue_id"`
	GroupID    string `json:"group_id"`
}

// RescheduledLecture records the displacement of a lecturer's lectures off
// one date. Exactly one record may exist per (lecturer_id, original_date);
// the table carries a matching uniqueness constraint.
type RescheduledLecture struct {
	ID              string         `db:"id" json:"id"`
	LecturerID      string         `db:"lecturer_id" json:"lecturer_id"`
	OriginalDate    string         `db:"original_date" json:"original_date"`
	RescheduledDate string         `db:"rescheduled_date" json:"rescheduled_date"`
	Lectures        types.JSONText `db:"lectures" json:"lectures"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// DecodeLectures unmarshals the embedded lecture list.
func (r *RescheduledLecture) DecodeLectures() ([]DisplacedLecture, error) {
	var lectures []DisplacedLecture
	if len(r.Lectures) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(r.Lectures, &lectures); err != nil {
		return nil, err
	}
	return lectures, nil
}

// EncodeLectures marshals a lecture list into the storage representation.
func EncodeLectures(lectures []DisplacedLecture) (types.JSONText, error) {
	raw, err := json.Marshal(lectures)
	if err != nil {
		return nil, err
	}
	return types.JSONText(raw), nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unisched/presentation-api/internal/models"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
)

// RescheduledLectureRepository manages displacement records. The table
// carries UNIQUE (lecturer_id, original_date) so a lecturer's lectures are
// displaced off a date at most once.
type RescheduledLectureRepository struct {
	db *sqlx.DB
}

// NewRescheduledLectureRepository constructs a RescheduledLectureRepository.
func NewRescheduledLectureRepository(db *sqlx.DB) *RescheduledLectureRepository {
	return &RescheduledLectureRepository{db: db}
}

func (r *RescheduledLectureRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a displacement record. A duplicate (lecturer, date) pair
// maps to ErrAlreadyRescheduled.
func (r *RescheduledLectureRepository) Create(ctx context.Context, exec sqlx.ExtContext, rec *models.RescheduledLecture) error {
	target := r.exec(exec)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO rescheduled_lectures (id, lecturer_id, original_date, rescheduled_date, lectures, created_at)
        VALUES (:id, :lecturer_id, :original_date, :rescheduled_date, :lectures, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, rec); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return appErrors.ErrAlreadyRescheduled
		}
		return fmt.Errorf("create rescheduled lecture record: %w", err)
	}
	return nil
}

// FindByLecturerAndDate looks up the displacement record for one lecturer
// and original date. This is the idempotency check before a displacement.
func (r *RescheduledLectureRepository) FindByLecturerAndDate(ctx context.Context, exec sqlx.ExtContext, lecturerID, originalDate string) (*models.RescheduledLecture, error) {
	target := r.exec(exec)
	const query = `SELECT id, lecturer_id, original_date, rescheduled_date, lectures, created_at
        FROM rescheduled_lectures WHERE lecturer_id = $1 AND original_date = $2`
	var rec models.RescheduledLecture
	if err := sqlx.GetContext(ctx, target, &rec, query, lecturerID, originalDate); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find rescheduled lecture record: %w", err)
	}
	return &rec, nil
}

// ListByLecturer returns a lecturer's displacement history, newest first.
func (r *RescheduledLectureRepository) ListByLecturer(ctx context.Context, lecturerID string) ([]models.RescheduledLecture, error) {
	const query = `SELECT id, lecturer_id, original_date, rescheduled_date, lectures, created_at
        FROM rescheduled_lectures WHERE lecturer_id = $1 ORDER BY created_at DESC`
	var records []models.RescheduledLecture
	if err := r.db.SelectContext(ctx, &records, query, lecturerID); err != nil {
		return nil, fmt.Errorf("list rescheduled lecture records: %w", err)
	}
	return records, nil
}

// ListByDate returns displacement records whose lectures landed on a date.
func (r *RescheduledLectureRepository) ListByDate(ctx context.Context, exec sqlx.ExtContext, date string) ([]models.RescheduledLecture, error) {
	target := r.exec(exec)
	const query = `SELECT id, lecturer_id, original_date, rescheduled_date, lectures, created_at
        FROM rescheduled_lectures WHERE rescheduled_date = $1`
	var records []models.RescheduledLecture
	if err := sqlx.SelectContext(ctx, target, &records, query, date); err != nil {
		return nil, fmt.Errorf("list rescheduled lectures by date: %w", err)
	}
	return records, nil
}

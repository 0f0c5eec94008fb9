package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unisched/presentation-api/internal/models"
)

// ExaminerRepository manages examiner records.
type ExaminerRepository struct {
	db *sqlx.DB
}

// NewExaminerRepository constructs an ExaminerRepository.
func NewExaminerRepository(db *sqlx.DB) *ExaminerRepository {
	return &ExaminerRepository{db: db}
}

// Create inserts an examiner.
func (r *ExaminerRepository) Create(ctx context.Context, e *models.Examiner) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO examiners (id, examiner_id, name, email, department, created_at)
        VALUES (:id, :examiner_id, :name, :email, :department, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("create examiner: %w", err)
	}
	return nil
}

// FindByID fetches one examiner.
func (r *ExaminerRepository) FindByID(ctx context.Context, id string) (*models.Examiner, error) {
	const query = `SELECT id, examiner_id, name, email, department, created_at FROM examiners WHERE id = $1`
	var e models.Examiner
	if err := r.db.GetContext(ctx, &e, query, id); err != nil {
		return nil, err
	}
	return &e, nil
}

// FindByIDs fetches examiners in bulk.
func (r *ExaminerRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Examiner, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, examiner_id, name, email, department, created_at FROM examiners WHERE id = ANY($1)`
	var examiners []models.Examiner
	if err := r.db.SelectContext(ctx, &examiners, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find examiners: %w", err)
	}
	return examiners, nil
}

// ListByDepartment returns a department's examiners ordered by name. The
// suggestion search draws replacement panels from this pool.
func (r *ExaminerRepository) ListByDepartment(ctx context.Context, department string) ([]models.Examiner, error) {
	const query = `SELECT id, examiner_id, name, email, department, created_at FROM examiners WHERE department = $1 ORDER BY name ASC`
	var examiners []models.Examiner
	if err := r.db.SelectContext(ctx, &examiners, query, department); err != nil {
		return nil, fmt.Errorf("list department examiners: %w", err)
	}
	return examiners, nil
}

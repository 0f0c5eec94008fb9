package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unisched/presentation-api/internal/models"
)

// PresentationRepository manages persistence for presentations and their
// participant join tables.
type PresentationRepository struct {
	db *sqlx.DB
}

// NewPresentationRepository constructs a PresentationRepository.
func NewPresentationRepository(db *sqlx.DB) *PresentationRepository {
	return &PresentationRepository{db: db}
}

func (r *PresentationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// RunSerializable executes fn inside a transaction at SERIALIZABLE
// isolation. Booking runs its availability check and insert through one
// such transaction so two concurrent requests cannot both see the slot as
// free.
func (r *PresentationRepository) RunSerializable(ctx context.Context, fn func(exec sqlx.ExtContext) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin serializable tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking tx: %w", err)
	}
	return nil
}

// Create inserts a presentation and its participant rows.
func (r *PresentationRepository) Create(ctx context.Context, exec sqlx.ExtContext, p *models.Presentation) error {
	target := r.exec(exec)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	const query = `INSERT INTO presentations (id, title, department, venue_id, date, duration_minutes, num_examiners, start_time, end_time, created_at, updated_at)
        VALUES (:id, :title, :department, :venue_id, :date, :duration_minutes, :num_examiners, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, p); err != nil {
		return fmt.Errorf("create presentation: %w", err)
	}
	return r.replaceParticipants(ctx, target, p)
}

// Update rewrites a presentation's schedulable fields and participant rows.
func (r *PresentationRepository) Update(ctx context.Context, exec sqlx.ExtContext, p *models.Presentation) error {
	target := r.exec(exec)
	p.UpdatedAt = time.Now().UTC()

	const query = `UPDATE presentations SET title = :title, department = :department, venue_id = :venue_id, date = :date,
        duration_minutes = :duration_minutes, num_examiners = :num_examiners, start_time = :start_time, end_time = :end_time,
        updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, target, query, p)
	if err != nil {
		return fmt.Errorf("update presentation: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return r.replaceParticipants(ctx, target, p)
}

func (r *PresentationRepository) replaceParticipants(ctx context.Context, target sqlx.ExtContext, p *models.Presentation) error {
	if _, err := target.ExecContext(ctx, `DELETE FROM presentation_examiners WHERE presentation_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear presentation examiners: %w", err)
	}
	if _, err := target.ExecContext(ctx, `DELETE FROM presentation_students WHERE presentation_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear presentation students: %w", err)
	}
	for _, examinerID := range p.ExaminerIDs {
		if _, err := target.ExecContext(ctx, `INSERT INTO presentation_examiners (presentation_id, examiner_id) VALUES ($1, $2)`, p.ID, examinerID); err != nil {
			return fmt.Errorf("add presentation examiner: %w", err)
		}
	}
	for _, studentID := range p.StudentIDs {
		if _, err := target.ExecContext(ctx, `INSERT INTO presentation_students (presentation_id, student_id) VALUES ($1, $2)`, p.ID, studentID); err != nil {
			return fmt.Errorf("add presentation student: %w", err)
		}
	}
	return nil
}

// Delete removes a presentation; participant rows cascade.
func (r *PresentationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM presentations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete presentation: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID fetches one presentation with its participants.
func (r *PresentationRepository) FindByID(ctx context.Context, id string) (*models.Presentation, error) {
	const query = `SELECT id, title, department, venue_id, date, duration_minutes, num_examiners, start_time, end_time, created_at, updated_at
        FROM presentations WHERE id = $1`
	var p models.Presentation
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, err
	}
	if err := r.loadParticipants(ctx, r.db, []*models.Presentation{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns presentations matching the filter plus a total count.
func (r *PresentationRepository) List(ctx context.Context, filter models.PresentationFilter) ([]models.Presentation, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.VenueID != "" {
		conditions = append(conditions, fmt.Sprintf("venue_id = $%d", len(args)+1))
		args = append(args, filter.VenueID)
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, title, department, venue_id, date, duration_minutes, num_examiners, start_time, end_time, created_at, updated_at
        FROM presentations WHERE %s ORDER BY date ASC, start_time ASC LIMIT %d OFFSET %d`, where, size, offset)

	var presentations []models.Presentation
	if err := r.db.SelectContext(ctx, &presentations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list presentations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM presentations WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count presentations: %w", err)
	}

	if err := r.loadParticipantsSlice(ctx, r.db, presentations); err != nil {
		return nil, 0, err
	}
	return presentations, total, nil
}

// ListByDateForResources returns presentations on a date that touch any of
// the given venue, examiners, or students. This is the conflict set the
// availability check runs against.
func (r *PresentationRepository) ListByDateForResources(ctx context.Context, exec sqlx.ExtContext, date, venueID string, examinerIDs, studentIDs []string) ([]models.Presentation, error) {
	target := r.exec(exec)
	const query = `SELECT DISTINCT p.id, p.title, p.department, p.venue_id, p.date, p.duration_minutes, p.num_examiners, p.start_time, p.end_time, p.created_at, p.updated_at
        FROM presentations p
        LEFT JOIN presentation_examiners pe ON pe.presentation_id = p.id
        LEFT JOIN presentation_students ps ON ps.presentation_id = p.id
        WHERE p.date = $1 AND (p.venue_id = $2 OR pe.examiner_id = ANY($3) OR ps.student_id = ANY($4))
        ORDER BY p.start_time ASC`
	var presentations []models.Presentation
	if err := sqlx.SelectContext(ctx, target, &presentations, query, date, venueID, pq.Array(examinerIDs), pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list presentations for resources: %w", err)
	}
	if err := r.loadParticipantsSlice(ctx, target, presentations); err != nil {
		return nil, err
	}
	return presentations, nil
}

// ListByDate returns every presentation on a date with participants loaded.
func (r *PresentationRepository) ListByDate(ctx context.Context, date string) ([]models.Presentation, error) {
	const query = `SELECT id, title, department, venue_id, date, duration_minutes, num_examiners, start_time, end_time, created_at, updated_at
        FROM presentations WHERE date = $1 ORDER BY start_time ASC`
	var presentations []models.Presentation
	if err := r.db.SelectContext(ctx, &presentations, query, date); err != nil {
		return nil, fmt.Errorf("list presentations by date: %w", err)
	}
	if err := r.loadParticipantsSlice(ctx, r.db, presentations); err != nil {
		return nil, err
	}
	return presentations, nil
}

// ListForExaminer returns presentations an examiner sits on, upcoming first.
func (r *PresentationRepository) ListForExaminer(ctx context.Context, examinerID string) ([]models.Presentation, error) {
	const query = `SELECT p.id, p.title, p.department, p.venue_id, p.date, p.duration_minutes, p.num_examiners, p.start_time, p.end_time, p.created_at, p.updated_at
        FROM presentations p
        JOIN presentation_examiners pe ON pe.presentation_id = p.id
        WHERE pe.examiner_id = $1 ORDER BY p.date ASC, p.start_time ASC`
	var presentations []models.Presentation
	if err := r.db.SelectContext(ctx, &presentations, query, examinerID); err != nil {
		return nil, fmt.Errorf("list presentations for examiner: %w", err)
	}
	if err := r.loadParticipantsSlice(ctx, r.db, presentations); err != nil {
		return nil, err
	}
	return presentations, nil
}

// ListForStudent returns presentations a student appears in.
func (r *PresentationRepository) ListForStudent(ctx context.Context, studentID string) ([]models.Presentation, error) {
	const query = `SELECT p.id, p.title, p.department, p.venue_id, p.date, p.duration_minutes, p.num_examiners, p.start_time, p.end_time, p.created_at, p.updated_at
        FROM presentations p
        JOIN presentation_students ps ON ps.presentation_id = p.id
        WHERE ps.student_id = $1 ORDER BY p.date ASC, p.start_time ASC`
	var presentations []models.Presentation
	if err := r.db.SelectContext(ctx, &presentations, query, studentID); err != nil {
		return nil, fmt.Errorf("list presentations for student: %w", err)
	}
	if err := r.loadParticipantsSlice(ctx, r.db, presentations); err != nil {
		return nil, err
	}
	return presentations, nil
}

// CountByDateRange returns booking counts per date over [from, to].
// Dates with no bookings are absent from the map.
func (r *PresentationRepository) CountByDateRange(ctx context.Context, from, to string) (map[string]int, error) {
	const query = `SELECT date, COUNT(*) AS total FROM presentations WHERE date >= $1 AND date <= $2 GROUP BY date`
	rows, err := r.db.QueryxContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("count presentations by date: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var date string
		var total int
		if err := rows.Scan(&date, &total); err != nil {
			return nil, fmt.Errorf("scan date count: %w", err)
		}
		counts[date] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate date counts: %w", err)
	}
	return counts, nil
}

func (r *PresentationRepository) loadParticipantsSlice(ctx context.Context, target sqlx.ExtContext, presentations []models.Presentation) error {
	refs := make([]*models.Presentation, len(presentations))
	for i := range presentations {
		refs[i] = &presentations[i]
	}
	return r.loadParticipants(ctx, target, refs)
}

func (r *PresentationRepository) loadParticipants(ctx context.Context, target sqlx.ExtContext, presentations []*models.Presentation) error {
	if len(presentations) == 0 {
		return nil
	}
	ids := make([]string, 0, len(presentations))
	byID := make(map[string]*models.Presentation, len(presentations))
	for _, p := range presentations {
		ids = append(ids, p.ID)
		byID[p.ID] = p
		p.ExaminerIDs = nil
		p.StudentIDs = nil
	}

	type joinRow struct {
		PresentationID string `db:"presentation_id"`
		MemberID       string `db:"member_id"`
	}

	var examiners []joinRow
	if err := sqlx.SelectContext(ctx, target, &examiners,
		`SELECT presentation_id, examiner_id AS member_id FROM presentation_examiners WHERE presentation_id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("load presentation examiners: %w", err)
	}
	for _, row := range examiners {
		if p, ok := byID[row.PresentationID]; ok {
			p.ExaminerIDs = append(p.ExaminerIDs, row.MemberID)
		}
	}

	var students []joinRow
	if err := sqlx.SelectContext(ctx, target, &students,
		`SELECT presentation_id, student_id AS member_id FROM presentation_students WHERE presentation_id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("load presentation students: %w", err)
	}
	for _, row := range students {
		if p, ok := byID[row.PresentationID]; ok {
			p.StudentIDs = append(p.StudentIDs, row.MemberID)
		}
	}
	return nil
}

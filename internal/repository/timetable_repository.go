package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unisched/presentation-api/internal/models"
)

// TimetableRepository manages weekly timetables and their lecture slots.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// RunTx executes fn inside a transaction. Displacement moves several slots
// and writes its record atomically through this.
func (r *TimetableRepository) RunTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Create inserts a timetable and its slots.
func (r *TimetableRepository) Create(ctx context.Context, t *models.Timetable) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	const query = `INSERT INTO timetables (id, group_id, created_at, updated_at)
        VALUES (:id, :group_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}
	return r.insertSlots(ctx, r.db, t.ID, t.Slots)
}

// ReplaceSlots rewrites the slot set of a timetable.
func (r *TimetableRepository) ReplaceSlots(ctx context.Context, exec sqlx.ExtContext, timetableID string, slots []models.LectureSlot) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM lecture_slots WHERE timetable_id = $1`, timetableID); err != nil {
		return fmt.Errorf("clear lecture slots: %w", err)
	}
	if err := r.insertSlots(ctx, target, timetableID, slots); err != nil {
		return err
	}
	if _, err := target.ExecContext(ctx, `UPDATE timetables SET updated_at = $2 WHERE id = $1`, timetableID, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch timetable: %w", err)
	}
	return nil
}

func (r *TimetableRepository) insertSlots(ctx context.Context, target sqlx.ExtContext, timetableID string, slots []models.LectureSlot) error {
	const query = `INSERT INTO lecture_slots (id, timetable_id, day, start_time, end_time, module_code, lecturer_id, venue_id)
        VALUES (:id, :timetable_id, :day, :start_time, :end_time, :module_code, :lecturer_id, :venue_id)`
	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.TimetableID = timetableID
		if _, err := sqlx.NamedExecContext(ctx, target, query, slot); err != nil {
			return fmt.Errorf("insert lecture slot: %w", err)
		}
	}
	return nil
}

// Delete removes a timetable; slots cascade.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID fetches a timetable with slots ordered by day and start time.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	var t models.Timetable
	if err := r.db.GetContext(ctx, &t, `SELECT id, group_id, created_at, updated_at FROM timetables WHERE id = $1`, id); err != nil {
		return nil, err
	}
	slots, err := r.slotsFor(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Slots = slots
	return &t, nil
}

// FindByGroupID fetches the timetable of one student group.
func (r *TimetableRepository) FindByGroupID(ctx context.Context, groupID string) (*models.Timetable, error) {
	var t models.Timetable
	if err := r.db.GetContext(ctx, &t, `SELECT id, group_id, created_at, updated_at FROM timetables WHERE group_id = $1`, groupID); err != nil {
		return nil, err
	}
	slots, err := r.slotsFor(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Slots = slots
	return &t, nil
}

// List returns all timetables with their slots.
func (r *TimetableRepository) List(ctx context.Context) ([]models.Timetable, error) {
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, `SELECT id, group_id, created_at, updated_at FROM timetables ORDER BY group_id ASC`); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	for i := range timetables {
		slots, err := r.slotsFor(ctx, timetables[i].ID)
		if err != nil {
			return nil, err
		}
		timetables[i].Slots = slots
	}
	return timetables, nil
}

func (r *TimetableRepository) slotsFor(ctx context.Context, timetableID string) ([]models.LectureSlot, error) {
	const query = `SELECT id, timetable_id, day, start_time, end_time, module_code, lecturer_id, venue_id
        FROM lecture_slots WHERE timetable_id = $1 ORDER BY day ASC, start_time ASC`
	var slots []models.LectureSlot
	if err := r.db.SelectContext(ctx, &slots, query, timetableID); err != nil {
		return nil, fmt.Errorf("list lecture slots: %w", err)
	}
	return slots, nil
}

// ListSlotsByLecturerAndDay returns a lecturer's teaching sessions on one
// weekday across all timetables, with the owning group attached.
func (r *TimetableRepository) ListSlotsByLecturerAndDay(ctx context.Context, exec sqlx.ExtContext, lecturerID, day string) ([]models.LectureSlot, error) {
	target := r.exec(exec)
	const query = `SELECT ls.id, ls.timetable_id, ls.day, ls.start_time, ls.end_time, ls.module_code, ls.lecturer_id, ls.venue_id
        FROM lecture_slots ls WHERE ls.lecturer_id = $1 AND ls.day = $2 ORDER BY ls.start_time ASC`
	var slots []models.LectureSlot
	if err := sqlx.SelectContext(ctx, target, &slots, query, lecturerID, day); err != nil {
		return nil, fmt.Errorf("list lecturer slots: %w", err)
	}
	return slots, nil
}

// ListSlotsByDay returns every teaching session on one weekday.
func (r *TimetableRepository) ListSlotsByDay(ctx context.Context, exec sqlx.ExtContext, day string) ([]models.LectureSlot, error) {
	target := r.exec(exec)
	const query = `SELECT id, timetable_id, day, start_time, end_time, module_code, lecturer_id, venue_id
        FROM lecture_slots WHERE day = $1 ORDER BY start_time ASC`
	var slots []models.LectureSlot
	if err := sqlx.SelectContext(ctx, target, &slots, query, day); err != nil {
		return nil, fmt.Errorf("list day slots: %w", err)
	}
	return slots, nil
}

// MoveSlot relocates one lecture slot to a new day and time range.
func (r *TimetableRepository) MoveSlot(ctx context.Context, exec sqlx.ExtContext, slotID, day, start, end string) error {
	target := r.exec(exec)
	res, err := target.ExecContext(ctx,
		`UPDATE lecture_slots SET day = $2, start_time = $3, end_time = $4 WHERE id = $1`, slotID, day, start, end)
	if err != nil {
		return fmt.Errorf("move lecture slot: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GroupIDForTimetable resolves the group that owns a timetable.
func (r *TimetableRepository) GroupIDForTimetable(ctx context.Context, exec sqlx.ExtContext, timetableID string) (string, error) {
	target := r.exec(exec)
	var groupID string
	if err := sqlx.GetContext(ctx, target, &groupID, `SELECT group_id FROM timetables WHERE id = $1`, timetableID); err != nil {
		return "", fmt.Errorf("resolve timetable group: %w", err)
	}
	return groupID, nil
}

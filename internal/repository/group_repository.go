package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unisched/presentation-api/internal/models"
)

// GroupRepository manages student group membership.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create inserts a group and its member rows.
func (r *GroupRepository) Create(ctx context.Context, g *models.StudentGroup) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_groups (id, group_id, created_at) VALUES (:id, :group_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, g); err != nil {
		return fmt.Errorf("create student group: %w", err)
	}
	for _, studentID := range g.StudentIDs {
		if _, err := r.db.ExecContext(ctx, `INSERT INTO group_members (group_id, student_id) VALUES ($1, $2)`, g.ID, studentID); err != nil {
			return fmt.Errorf("add group member: %w", err)
		}
	}
	return nil
}

// FindByGroupID fetches a group with its member student ids.
func (r *GroupRepository) FindByGroupID(ctx context.Context, groupID string) (*models.StudentGroup, error) {
	const query = `SELECT id, group_id, created_at FROM student_groups WHERE group_id = $1`
	var g models.StudentGroup
	if err := r.db.GetContext(ctx, &g, query, groupID); err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &g.StudentIDs, `SELECT student_id FROM group_members WHERE group_id = $1`, g.ID); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return &g, nil
}

// ListGroupIDsForStudent returns the group identifiers a student belongs to.
func (r *GroupRepository) ListGroupIDsForStudent(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT sg.group_id FROM student_groups sg JOIN group_members gm ON gm.group_id = sg.id WHERE gm.student_id = $1`
	var groupIDs []string
	if err := r.db.SelectContext(ctx, &groupIDs, query, studentID); err != nil {
		return nil, fmt.Errorf("list student groups: %w", err)
	}
	return groupIDs, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unisched/presentation-api/internal/models"
)

// RescheduleRequestRepository manages persistence for reschedule requests.
type RescheduleRequestRepository struct {
	db *sqlx.DB
}

// NewRescheduleRequestRepository constructs a RescheduleRequestRepository.
func NewRescheduleRequestRepository(db *sqlx.DB) *RescheduleRequestRepository {
	return &RescheduleRequestRepository{db: db}
}

// Create inserts a pending reschedule request.
func (r *RescheduleRequestRepository) Create(ctx context.Context, req *models.RescheduleRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.RequestStatusPending
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	const query = `INSERT INTO reschedule_requests (id, presentation_id, requested_by_id, requested_by_role, requestor_email,
        requested_date, requested_start, requested_end, requested_venue, reason, status, created_at, updated_at)
        VALUES (:id, :presentation_id, :requested_by_id, :requested_by_role, :requestor_email,
        :requested_date, :requested_start, :requested_end, :requested_venue, :reason, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create reschedule request: %w", err)
	}
	return nil
}

// FindByID fetches one request.
func (r *RescheduleRequestRepository) FindByID(ctx context.Context, id string) (*models.RescheduleRequest, error) {
	const query = `SELECT id, presentation_id, requested_by_id, requested_by_role, requestor_email,
        requested_date, requested_start, requested_end, requested_venue, reason, status, created_at, updated_at
        FROM reschedule_requests WHERE id = $1`
	var req models.RescheduleRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateStatus moves a request out of Pending. The WHERE clause guards the
// transition so a resolved request cannot be resolved twice.
func (r *RescheduleRequestRepository) UpdateStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE reschedule_requests SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC(), models.RequestStatusPending)
	if err != nil {
		return fmt.Errorf("update reschedule request status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns requests optionally filtered by status, newest first.
func (r *RescheduleRequestRepository) List(ctx context.Context, status string) ([]models.RescheduleRequest, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, status)
	}
	query := fmt.Sprintf(`SELECT id, presentation_id, requested_by_id, requested_by_role, requestor_email,
        requested_date, requested_start, requested_end, requested_venue, reason, status, created_at, updated_at
        FROM reschedule_requests WHERE %s ORDER BY created_at DESC`, strings.Join(conditions, " AND "))

	var requests []models.RescheduleRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list reschedule requests: %w", err)
	}
	return requests, nil
}

// ListByRequester returns one user's requests, newest first.
func (r *RescheduleRequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]models.RescheduleRequest, error) {
	const query = `SELECT id, presentation_id, requested_by_id, requested_by_role, requestor_email,
        requested_date, requested_start, requested_end, requested_venue, reason, status, created_at, updated_at
        FROM reschedule_requests WHERE requested_by_id = $1 ORDER BY created_at DESC`
	var requests []models.RescheduleRequest
	if err := r.db.SelectContext(ctx, &requests, query, requesterID); err != nil {
		return nil, fmt.Errorf("list requester reschedule requests: %w", err)
	}
	return requests, nil
}

// ListActiveByDate returns the pending and approved requests targeting a
// date, earliest requested start first. The suggestion flow treats their
// time ranges as claimed.
func (r *RescheduleRequestRepository) ListActiveByDate(ctx context.Context, date string) ([]models.RescheduleRequest, error) {
	const query = `SELECT id, presentation_id, requested_by_id, requested_by_role, requestor_email,
        requested_date, requested_start, requested_end, requested_venue, reason, status, created_at, updated_at
        FROM reschedule_requests WHERE requested_date = $1 AND status <> $2 ORDER BY requested_start ASC`
	var requests []models.RescheduleRequest
	if err := r.db.SelectContext(ctx, &requests, query, date, models.RequestStatusRejected); err != nil {
		return nil, fmt.Errorf("list active reschedule requests: %w", err)
	}
	return requests, nil
}

// Delete removes a request.
func (r *RescheduleRequestRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reschedule_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reschedule request: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteForRequesterByStatus bulk-removes one user's requests that sit in
// the given status. Returns the number of rows removed.
func (r *RescheduleRequestRepository) DeleteForRequesterByStatus(ctx context.Context, requesterID, status string) (int64, error) {
	const query = `DELETE FROM reschedule_requests WHERE requested_by_id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, requesterID, status)
	if err != nil {
		return 0, fmt.Errorf("delete requester reschedule requests: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete requester reschedule requests: %w", err)
	}
	return affected, nil
}

// DeleteRejectedBefore purges rejected requests last touched before the
// cutoff. Returns the number of rows removed.
func (r *RescheduleRequestRepository) DeleteRejectedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM reschedule_requests WHERE status = $1 AND updated_at < $2`
	res, err := r.db.ExecContext(ctx, query, models.RequestStatusRejected, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge rejected reschedule requests: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rejected reschedule requests: %w", err)
	}
	return affected, nil
}

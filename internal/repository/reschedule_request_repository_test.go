package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisched/presentation-api/internal/models"
)

func newRescheduleRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRescheduleRequestRepositoryCreateDefaultsToPending(t *testing.T) {
	db, mock, cleanup := newRescheduleRequestRepoMock(t)
	defer cleanup()
	repo := NewRescheduleRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reschedule_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.RescheduleRequest{
		PresentationID: "pres-1",
		RequestedByID:  "ex-1",
		RequestedDate:  "2026-09-10",
		RequestedStart: "09:00",
		RequestedEnd:   "10:00",
	}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.NotEmpty(t, req.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleRequestRepositoryUpdateStatusGuard(t *testing.T) {
	db, mock, cleanup := newRescheduleRequestRepoMock(t)
	defer cleanup()
	repo := NewRescheduleRequestRepository(db)

	t.Run("pending request transitions", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE reschedule_requests SET status")).
			WithArgs("req-1", models.RequestStatusApproved, sqlmock.AnyArg(), models.RequestStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateStatus(context.Background(), "req-1", models.RequestStatusApproved))
	})

	t.Run("resolved request cannot transition again", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE reschedule_requests SET status")).
			WithArgs("req-1", models.RequestStatusRejected, sqlmock.AnyArg(), models.RequestStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(context.Background(), "req-1", models.RequestStatusRejected)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleRequestRepositoryListActiveByDate(t *testing.T) {
	db, mock, cleanup := newRescheduleRequestRepoMock(t)
	defer cleanup()
	repo := NewRescheduleRequestRepository(db)

	rows := sqlmock.NewRows([]string{"id", "presentation_id", "requested_by_id", "requested_date", "requested_start", "requested_end", "status"}).
		AddRow("req-1", "pres-1", "ex-1", "2026-09-10", "09:00", "10:00", models.RequestStatusPending).
		AddRow("req-2", "pres-2", "ex-2", "2026-09-10", "14:00", "15:00", models.RequestStatusApproved)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reschedule_requests WHERE requested_date = $1 AND status <> $2")).
		WithArgs("2026-09-10", models.RequestStatusRejected).
		WillReturnRows(rows)

	requests, err := repo.ListActiveByDate(context.Background(), "2026-09-10")
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "09:00", requests[0].RequestedStart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleRequestRepositoryDeleteForRequesterByStatus(t *testing.T) {
	db, mock, cleanup := newRescheduleRequestRepoMock(t)
	defer cleanup()
	repo := NewRescheduleRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reschedule_requests WHERE requested_by_id = $1 AND status = $2")).
		WithArgs("ex-1", models.RequestStatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := repo.DeleteForRequesterByStatus(context.Background(), "ex-1", models.RequestStatusApproved)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleRequestRepositoryDeleteRejectedBefore(t *testing.T) {
	db, mock, cleanup := newRescheduleRequestRepoMock(t)
	defer cleanup()
	repo := NewRescheduleRequestRepository(db)

	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reschedule_requests WHERE status = $1 AND updated_at < $2")).
		WithArgs(models.RequestStatusRejected, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	removed, err := repo.DeleteRejectedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 4, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

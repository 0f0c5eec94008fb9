package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTimetableRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTimetableRepositoryListSlotsByLecturerAndDay(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "timetable_id", "day", "start_time", "end_time", "module_code", "lecturer_id", "venue_id"}).
		AddRow("slot-1", "tt-1", "Monday", "09:00", "10:00", "CS101", "lect-1", "venue-1").
		AddRow("slot-2", "tt-1", "Monday", "10:00", "11:00", "CS102", "lect-1", "venue-1")
	mock.ExpectQuery(regexp.QuoteMeta("FROM lecture_slots ls WHERE ls.lecturer_id = $1 AND ls.day = $2")).
		WithArgs("lect-1", "Monday").
		WillReturnRows(rows)

	slots, err := repo.ListSlotsByLecturerAndDay(context.Background(), nil, "lect-1", "Monday")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryMoveSlot(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	t.Run("existing slot moves", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE lecture_slots SET day = $2, start_time = $3, end_time = $4 WHERE id = $1")).
			WithArgs("slot-1", "Tuesday", "08:00", "09:00").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.MoveSlot(context.Background(), nil, "slot-1", "Tuesday", "08:00", "09:00"))
	})

	t.Run("missing slot reports no rows", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE lecture_slots SET day = $2, start_time = $3, end_time = $4 WHERE id = $1")).
			WithArgs("slot-9", "Tuesday", "08:00", "09:00").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.MoveSlot(context.Background(), nil, "slot-9", "Tuesday", "08:00", "09:00")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

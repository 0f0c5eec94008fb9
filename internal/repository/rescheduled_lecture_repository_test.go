package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisched/presentation-api/internal/models"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
)

func newRescheduledLectureRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRescheduledLectureRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRescheduledLectureRepoMock(t)
	defer cleanup()
	repo := NewRescheduledLectureRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rescheduled_lectures")).
		WillReturnError(&pq.Error{Code: "23505"})

	lectures, err := models.EncodeLectures([]models.DisplacedLecture{{StartTime: "09:00", EndTime: "10:00", ModuleCode: "CS101"}})
	require.NoError(t, err)

	rec := &models.RescheduledLecture{
		LecturerID:      "lect-1",
		OriginalDate:    "2026-09-07",
		RescheduledDate: "2026-09-08",
		Lectures:        lectures,
	}
	err = repo.Create(context.Background(), nil, rec)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyRescheduled))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduledLectureRepositoryFindByLecturerAndDate(t *testing.T) {
	db, mock, cleanup := newRescheduledLectureRepoMock(t)
	defer cleanup()
	repo := NewRescheduledLectureRepository(db)

	t.Run("missing record returns nil without error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, lecturer_id, original_date, rescheduled_date, lectures, created_at")).
			WithArgs("lect-1", "2026-09-07").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		rec, err := repo.FindByLecturerAndDate(context.Background(), nil, "lect-1", "2026-09-07")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("existing record round-trips its lectures", func(t *testing.T) {
		raw := `[{"start_time":"09:00","end_time":"10:00","module_code":"CS101","venue_id":"venue-1","group_id":"G1"}]`
		rows := sqlmock.NewRows([]string{"id", "lecturer_id", "original_date", "rescheduled_date", "lectures", "created_at"}).
			AddRow("rec-1", "lect-1", "2026-09-07", "2026-09-08", []byte(raw), time.Now())
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, lecturer_id, original_date, rescheduled_date, lectures, created_at")).
			WithArgs("lect-1", "2026-09-07").
			WillReturnRows(rows)

		rec, err := repo.FindByLecturerAndDate(context.Background(), nil, "lect-1", "2026-09-07")
		require.NoError(t, err)
		require.NotNil(t, rec)

		lectures, err := rec.DecodeLectures()
		require.NoError(t, err)
		require.Len(t, lectures, 1)
		assert.Equal(t, "CS101", lectures[0].ModuleCode)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

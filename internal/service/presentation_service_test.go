package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisched/presentation-api/internal/models"
)

type mockPresentationRepo struct {
	presentations map[string]models.Presentation
	byDate        map[string][]models.Presentation
	created       *models.Presentation
	updated       *models.Presentation
}

func (m *mockPresentationRepo) RunSerializable(ctx context.Context, fn func(exec sqlx.ExtContext) error) error {
	return fn(nil)
}

func (m *mockPresentationRepo) Create(ctx context.Context, exec sqlx.ExtContext, p *models.Presentation) error {
	if p.ID == "" {
		p.ID = "new-pres"
	}
	m.created = p
	return nil
}

func (m *mockPresentationRepo) Update(ctx context.Context, exec sqlx.ExtContext, p *models.Presentation) error {
	m.updated = p
	return nil
}

func (m *mockPresentationRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.presentations[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.presentations, id)
	return nil
}

func (m *mockPresentationRepo) FindByID(ctx context.Context, id string) (*models.Presentation, error) {
	if p, ok := m.presentations[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPresentationRepo) List(ctx context.Context, filter models.PresentationFilter) ([]models.Presentation, int, error) {
	return nil, 0, nil
}

func (m *mockPresentationRepo) ListForExaminer(ctx context.Context, examinerID string) ([]models.Presentation, error) {
	return nil, nil
}

func (m *mockPresentationRepo) ListForStudent(ctx context.Context, studentID string) ([]models.Presentation, error) {
	return nil, nil
}

func (m *mockPresentationRepo) ListByDateForResources(ctx context.Context, exec sqlx.ExtContext, date, venueID string, examinerIDs, studentIDs []string) ([]models.Presentation, error) {
	return m.byDate[date], nil
}

type mockChecker struct {
	ok        bool
	conflicts []Conflict
	requests  []AvailabilityRequest
}

func (m *mockChecker) Check(ctx context.Context, exec sqlx.ExtContext, req AvailabilityRequest) (bool, []Conflict, error) {
	m.requests = append(m.requests, req)
	return m.ok, m.conflicts, nil
}

type mockDateSelector struct {
	date string
}

func (m *mockDateSelector) SelectBestDate(ctx context.Context, startOffsetDays, horizonDays int, examinerIDs []string) (string, error) {
	return m.date, nil
}

type mockDisplacer struct {
	calls []string
	rec   *models.RescheduledLecture
}

func (m *mockDisplacer) DisplaceLectures(ctx context.Context, lecturerID, date string) (*models.RescheduledLecture, error) {
	m.calls = append(m.calls, lecturerID+"@"+date)
	return m.rec, nil
}

type mockBookingNotifier struct {
	scheduled []string
	moved     []string
	displaced int
}

func (m *mockBookingNotifier) BookingScheduled(p *models.Presentation) {
	m.scheduled = append(m.scheduled, p.ID)
}

func (m *mockBookingNotifier) BookingMoved(p *models.Presentation, previousDate string) {
	m.moved = append(m.moved, p.ID+"<-"+previousDate)
}

func (m *mockBookingNotifier) LecturesDisplaced(rec *models.RescheduledLecture) {
	m.displaced++
}

func TestPresentationServiceCreate(t *testing.T) {
	t.Run("free slot books and cascades displacement", func(t *testing.T) {
		repo := &mockPresentationRepo{}
		checker := &mockChecker{ok: true}
		displacer := &mockDisplacer{rec: &models.RescheduledLecture{ID: "rec-1"}}
		notifier := &mockBookingNotifier{}
		svc := NewPresentationService(repo, checker, &mockDateSelector{}, displacer, notifier, nil, nil, nil, nil)

		result, err := svc.Create(context.Background(), CreatePresentationRequest{
			Title:           "Thesis Defense",
			Department:      "Computing",
			VenueID:         "venue-1",
			Date:            "2026-09-07",
			StartTime:       "09:00",
			DurationMinutes: 90,
			ExaminerIDs:     []string{"ex-1", "ex-2"},
			StudentIDs:      []string{"st-1"},
		})
		require.NoError(t, err)
		require.True(t, result.Scheduled)
		require.NotNil(t, result.Presentation)
		assert.Equal(t, models.TimeRange{Start: "09:00", End: "10:30"}, result.Presentation.TimeRange)

		assert.Equal(t, []string{"ex-1@2026-09-07", "ex-2@2026-09-07"}, displacer.calls)
		assert.Equal(t, 2, notifier.displaced)
		assert.Len(t, notifier.scheduled, 1)
	})

	t.Run("occupied slot is an outcome, not an error", func(t *testing.T) {
		repo := &mockPresentationRepo{}
		checker := &mockChecker{ok: false, conflicts: []Conflict{{PresentationID: "pres-0", Resource: ResourceVenue}}}
		svc := NewPresentationService(repo, checker, &mockDateSelector{}, nil, nil, nil, nil, nil, nil)

		result, err := svc.Create(context.Background(), CreatePresentationRequest{
			Title:           "Thesis Defense",
			Department:      "Computing",
			VenueID:         "venue-1",
			Date:            "2026-09-07",
			StartTime:       "09:00",
			DurationMinutes: 60,
			ExaminerIDs:     []string{"ex-1"},
			StudentIDs:      []string{"st-1"},
		})
		require.NoError(t, err)
		assert.False(t, result.Scheduled)
		assert.Contains(t, result.Reason, "venue")
		assert.Nil(t, repo.created)
	})

	t.Run("missing date and start resolve automatically", func(t *testing.T) {
		repo := &mockPresentationRepo{byDate: map[string][]models.Presentation{
			"2026-09-09": {booking("pres-0", "venue-1", "08:00", "09:00", nil, nil)},
		}}
		checker := &mockChecker{ok: true}
		svc := NewPresentationService(repo, checker, &mockDateSelector{date: "2026-09-09"}, nil, nil, nil, nil, nil, nil)

		result, err := svc.Create(context.Background(), CreatePresentationRequest{
			Title:           "Thesis Defense",
			Department:      "Computing",
			VenueID:         "venue-1",
			DurationMinutes: 60,
			ExaminerIDs:     []string{"ex-1"},
			StudentIDs:      []string{"st-1"},
		})
		require.NoError(t, err)
		require.True(t, result.Scheduled)
		assert.Equal(t, "2026-09-09", result.Presentation.Date)
		assert.Equal(t, "09:00", result.Presentation.TimeRange.Start)
	})

	t.Run("slot past the operating day is rejected", func(t *testing.T) {
		repo := &mockPresentationRepo{}
		svc := NewPresentationService(repo, &mockChecker{ok: true}, &mockDateSelector{}, nil, nil, nil, nil, nil, nil)

		_, err := svc.Create(context.Background(), CreatePresentationRequest{
			Title:           "Thesis Defense",
			Department:      "Computing",
			VenueID:         "venue-1",
			Date:            "2026-09-07",
			StartTime:       "17:30",
			DurationMinutes: 60,
			ExaminerIDs:     []string{"ex-1"},
			StudentIDs:      []string{"st-1"},
		})
		assert.Error(t, err)
	})
}

func TestPresentationServiceMove(t *testing.T) {
	repo := &mockPresentationRepo{presentations: map[string]models.Presentation{
		"pres-1": booking("pres-1", "venue-1", "09:00", "10:00", []string{"ex-1"}, []string{"st-1"}),
	}}
	notifier := &mockBookingNotifier{}
	displacer := &mockDisplacer{}
	svc := NewPresentationService(repo, &mockChecker{ok: true}, &mockDateSelector{}, displacer, notifier, nil, nil, nil, nil)

	p, err := svc.Move(context.Background(), nil, "pres-1", "2026-09-10", models.TimeRange{Start: "14:00", End: "15:00"}, "venue-2")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-10", p.Date)
	assert.Equal(t, "venue-2", p.VenueID)
	assert.Equal(t, 60, p.DurationMinutes)
	require.NotNil(t, repo.updated)
	assert.Equal(t, []string{"ex-1@2026-09-10"}, displacer.calls)
	assert.Equal(t, []string{"pres-1<-2026-09-07"}, notifier.moved)
}

func TestPresentationServiceReschedule(t *testing.T) {
	t.Run("free target slot applies the move", func(t *testing.T) {
		repo := &mockPresentationRepo{presentations: map[string]models.Presentation{
			"pres-1": booking("pres-1", "venue-1", "09:00", "10:00", []string{"ex-1"}, []string{"st-1"}),
		}}
		checker := &mockChecker{ok: true}
		notifier := &mockBookingNotifier{}
		displacer := &mockDisplacer{}
		svc := NewPresentationService(repo, checker, &mockDateSelector{}, displacer, notifier, nil, nil, nil, nil)

		result, err := svc.Reschedule(context.Background(), "pres-1", ReschedulePresentationRequest{
			Date:      "2026-09-10",
			TimeRange: models.TimeRange{Start: "14:00", End: "15:00"},
		})
		require.NoError(t, err)
		require.True(t, result.Scheduled)
		assert.Equal(t, "2026-09-10", result.Presentation.Date)
		// Venue carries over when the request leaves it blank.
		assert.Equal(t, "venue-1", result.Presentation.VenueID)
		require.NotNil(t, repo.updated)

		require.Len(t, checker.requests, 1)
		assert.Equal(t, "pres-1", checker.requests[0].IgnorePresentationID)
		assert.Equal(t, []string{"ex-1@2026-09-10"}, displacer.calls)
		assert.Equal(t, []string{"pres-1<-2026-09-07"}, notifier.moved)
	})

	t.Run("taken target slot is an outcome and leaves the booking alone", func(t *testing.T) {
		repo := &mockPresentationRepo{presentations: map[string]models.Presentation{
			"pres-1": booking("pres-1", "venue-1", "09:00", "10:00", []string{"ex-1"}, []string{"st-1"}),
		}}
		checker := &mockChecker{ok: false, conflicts: []Conflict{{PresentationID: "pres-9", Resource: ResourceExaminer}}}
		svc := NewPresentationService(repo, checker, &mockDateSelector{}, nil, nil, nil, nil, nil, nil)

		result, err := svc.Reschedule(context.Background(), "pres-1", ReschedulePresentationRequest{
			Date:      "2026-09-10",
			TimeRange: models.TimeRange{Start: "14:00", End: "15:00"},
		})
		require.NoError(t, err)
		assert.False(t, result.Scheduled)
		assert.Contains(t, result.Reason, "examiner")
		assert.Nil(t, repo.updated)
	})
}

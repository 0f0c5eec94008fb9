package service

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisched/presentation-api/internal/models"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
)

type movedSlot struct {
	SlotID string
	Day    string
	Start  string
	End    string
}

type mockDisplacementTimetableRepo struct {
	slotsByDay map[string][]models.LectureSlot
	moved      []movedSlot
}

func (m *mockDisplacementTimetableRepo) RunTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) error {
	return fn(nil)
}

func (m *mockDisplacementTimetableRepo) ListSlotsByLecturerAndDay(ctx context.Context, exec sqlx.ExtContext, lecturerID, day string) ([]models.LectureSlot, error) {
	var out []models.LectureSlot
	for _, slot := range m.slotsByDay[day] {
		if slot.LecturerID == lecturerID {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (m *mockDisplacementTimetableRepo) ListSlotsByDay(ctx context.Context, exec sqlx.ExtContext, day string) ([]models.LectureSlot, error) {
	return m.slotsByDay[day], nil
}

func (m *mockDisplacementTimetableRepo) MoveSlot(ctx context.Context, exec sqlx.ExtContext, slotID, day, start, end string) error {
	m.moved = append(m.moved, movedSlot{SlotID: slotID, Day: day, Start: start, End: end})
	return nil
}

func (m *mockDisplacementTimetableRepo) GroupIDForTimetable(ctx context.Context, exec sqlx.ExtContext, timetableID string) (string, error) {
	return "G1", nil
}

type mockDisplacementRecordRepo struct {
	existing map[string]*models.RescheduledLecture
	created  *models.RescheduledLecture
}

func (m *mockDisplacementRecordRepo) Create(ctx context.Context, exec sqlx.ExtContext, rec *models.RescheduledLecture) error {
	m.created = rec
	return nil
}

func (m *mockDisplacementRecordRepo) FindByLecturerAndDate(ctx context.Context, exec sqlx.ExtContext, lecturerID, originalDate string) (*models.RescheduledLecture, error) {
	return m.existing[lecturerID+"|"+originalDate], nil
}

func (m *mockDisplacementRecordRepo) ListByLecturer(ctx context.Context, lecturerID string) ([]models.RescheduledLecture, error) {
	return nil, nil
}

func lecture(id, day, start, end, module string) models.LectureSlot {
	return models.LectureSlot{
		ID:          id,
		TimetableID: "tt-1",
		Day:         day,
		StartTime:   start,
		EndTime:     end,
		ModuleCode:  module,
		LecturerID:  "lect-1",
		VenueID:     "venue-9",
	}
}

func TestDisplacementServiceDisplaceLectures(t *testing.T) {
	// 2026-09-07 is a Monday.
	const monday = "2026-09-07"

	t.Run("the day's lectures land together on the next free day", func(t *testing.T) {
		timetables := &mockDisplacementTimetableRepo{slotsByDay: map[string][]models.LectureSlot{
			"Monday": {
				lecture("slot-1", "Monday", "09:00", "10:00", "CS101"),
				lecture("slot-2", "Monday", "10:00", "11:00", "CS102"),
			},
			"Tuesday": {
				lecture("slot-3", "Tuesday", "10:00", "12:00", "CS103"),
			},
		}}
		records := &mockDisplacementRecordRepo{}
		svc := NewDisplacementService(timetables, records, testSchedulingConfig(), nil)

		rec, err := svc.DisplaceLectures(context.Background(), "lect-1", monday)
		require.NoError(t, err)
		require.NotNil(t, rec)

		assert.Equal(t, monday, rec.OriginalDate)
		assert.Equal(t, "2026-09-08", rec.RescheduledDate)

		require.Len(t, timetables.moved, 2)
		assert.Equal(t, movedSlot{SlotID: "slot-1", Day: "Tuesday", Start: "08:00", End: "09:00"}, timetables.moved[0])
		assert.Equal(t, movedSlot{SlotID: "slot-2", Day: "Tuesday", Start: "09:00", End: "10:00"}, timetables.moved[1])

		lectures, err := rec.DecodeLectures()
		require.NoError(t, err)
		require.Len(t, lectures, 2)
		assert.Equal(t, "CS101", lectures[0].ModuleCode)
		assert.Equal(t, "G1", lectures[0].GroupID)
	})

	t.Run("every lecture that weekday moves, however far apart", func(t *testing.T) {
		timetables := &mockDisplacementTimetableRepo{slotsByDay: map[string][]models.LectureSlot{
			"Monday": {
				lecture("slot-1", "Monday", "09:00", "10:00", "CS101"),
				lecture("slot-2", "Monday", "14:00", "15:00", "CS102"),
			},
		}}
		records := &mockDisplacementRecordRepo{}
		svc := NewDisplacementService(timetables, records, testSchedulingConfig(), nil)

		rec, err := svc.DisplaceLectures(context.Background(), "lect-1", monday)
		require.NoError(t, err)
		require.NotNil(t, rec)

		require.Len(t, timetables.moved, 2)
		assert.Equal(t, movedSlot{SlotID: "slot-1", Day: "Tuesday", Start: "08:00", End: "09:00"}, timetables.moved[0])
		assert.Equal(t, movedSlot{SlotID: "slot-2", Day: "Tuesday", Start: "09:00", End: "10:00"}, timetables.moved[1])
	})

	t.Run("a day whose venue is taken by another lecturer is skipped", func(t *testing.T) {
		occupied := lecture("slot-other", "Tuesday", "08:00", "18:00", "BIO200")
		occupied.LecturerID = "lect-2"
		timetables := &mockDisplacementTimetableRepo{slotsByDay: map[string][]models.LectureSlot{
			"Monday":  {lecture("slot-1", "Monday", "09:00", "10:00", "CS101")},
			"Tuesday": {occupied},
		}}
		records := &mockDisplacementRecordRepo{}
		svc := NewDisplacementService(timetables, records, testSchedulingConfig(), nil)

		rec, err := svc.DisplaceLectures(context.Background(), "lect-1", monday)
		require.NoError(t, err)
		require.NotNil(t, rec)

		assert.Equal(t, "2026-09-09", rec.RescheduledDate)
		require.Len(t, timetables.moved, 1)
		assert.Equal(t, movedSlot{SlotID: "slot-1", Day: "Wednesday", Start: "08:00", End: "09:00"}, timetables.moved[0])
	})

	t.Run("no lectures that weekday means nothing moves", func(t *testing.T) {
		other := lecture("slot-1", "Monday", "14:00", "15:00", "CS101")
		other.LecturerID = "lect-2"
		timetables := &mockDisplacementTimetableRepo{slotsByDay: map[string][]models.LectureSlot{
			"Monday": {other},
		}}
		records := &mockDisplacementRecordRepo{}
		svc := NewDisplacementService(timetables, records, testSchedulingConfig(), nil)

		rec, err := svc.DisplaceLectures(context.Background(), "lect-1", monday)
		require.NoError(t, err)
		assert.Nil(t, rec)
		assert.Empty(t, timetables.moved)
	})

	t.Run("already handled date is a no-op", func(t *testing.T) {
		timetables := &mockDisplacementTimetableRepo{slotsByDay: map[string][]models.LectureSlot{
			"Monday": {lecture("slot-1", "Monday", "09:00", "10:00", "CS101")},
		}}
		records := &mockDisplacementRecordRepo{existing: map[string]*models.RescheduledLecture{
			"lect-1|" + monday: {ID: "rec-1"},
		}}
		svc := NewDisplacementService(timetables, records, testSchedulingConfig(), nil)

		rec, err := svc.DisplaceLectures(context.Background(), "lect-1", monday)
		require.NoError(t, err)
		assert.Nil(t, rec)
		assert.Empty(t, timetables.moved)
		assert.Nil(t, records.created)
	})

	t.Run("horizon with no room reports no slot", func(t *testing.T) {
		full := map[string][]models.LectureSlot{
			"Monday": {lecture("slot-1", "Monday", "09:00", "10:00", "CS101")},
		}
		for _, day := range []string{"Tuesday", "Wednesday", "Thursday", "Friday"} {
			full[day] = []models.LectureSlot{lecture("slot-"+day, day, "08:00", "18:00", "BLOCK")}
		}
		// The following Monday inside the horizon is fully booked too.
		full["Monday"] = append(full["Monday"], lecture("slot-next-mon", "Monday", "08:00", "09:00", "CS000"), lecture("slot-next-mon-2", "Monday", "10:00", "18:00", "CS000"))
		timetables := &mockDisplacementTimetableRepo{slotsByDay: full}
		records := &mockDisplacementRecordRepo{}
		svc := NewDisplacementService(timetables, records, testSchedulingConfig(), nil)

		_, err := svc.DisplaceLectures(context.Background(), "lect-1", monday)
		assert.True(t, appErrors.Is(err, appErrors.ErrNoSlotFound))
		assert.Empty(t, timetables.moved)
	})

	t.Run("weekend dates are ignored", func(t *testing.T) {
		timetables := &mockDisplacementTimetableRepo{}
		records := &mockDisplacementRecordRepo{}
		svc := NewDisplacementService(timetables, records, testSchedulingConfig(), nil)

		// 2026-09-05 is a Saturday.
		rec, err := svc.DisplaceLectures(context.Background(), "lect-1", "2026-09-05")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

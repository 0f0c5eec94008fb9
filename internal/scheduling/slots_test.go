package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisched/presentation-api/internal/models"
)

func tr(start, end string) models.TimeRange {
	return models.TimeRange{Start: start, End: end}
}

func TestComputeFreeSlots(t *testing.T) {
	t.Run("full day with no bookings", func(t *testing.T) {
		free := ComputeFreeSlots("08:00", "10:00", 30, nil)
		require.Len(t, free, 4)
		assert.Equal(t, tr("08:00", "08:30"), free[0])
		assert.Equal(t, tr("09:30", "10:00"), free[3])
	})

	t.Run("busy ranges knock out overlapping buckets", func(t *testing.T) {
		busy := []models.TimeRange{tr("08:45", "09:15")}
		free := ComputeFreeSlots("08:00", "10:00", 30, busy)
		// 08:30 and 09:00 buckets both overlap the booking.
		require.Len(t, free, 2)
		assert.Equal(t, tr("08:00", "08:30"), free[0])
		assert.Equal(t, tr("09:30", "10:00"), free[1])
	})

	t.Run("touching booking does not block a bucket", func(t *testing.T) {
		busy := []models.TimeRange{tr("08:30", "09:00")}
		free := ComputeFreeSlots("08:00", "09:30", 30, busy)
		require.Len(t, free, 2)
		assert.Equal(t, tr("08:00", "08:30"), free[0])
		assert.Equal(t, tr("09:00", "09:30"), free[1])
	})

	t.Run("trailing partial bucket is discarded", func(t *testing.T) {
		free := ComputeFreeSlots("08:00", "09:20", 30, nil)
		require.Len(t, free, 2)
		assert.Equal(t, tr("08:30", "09:00"), free[1])
	})

	t.Run("malformed bounds yield nothing", func(t *testing.T) {
		assert.Nil(t, ComputeFreeSlots("8am", "10:00", 30, nil))
		assert.Nil(t, ComputeFreeSlots("08:00", "10:00", 0, nil))
	})
}

func TestAssignContinuous(t *testing.T) {
	t.Run("earliest adjacent run wins", func(t *testing.T) {
		free := []models.TimeRange{
			tr("10:00", "10:30"),
			tr("08:00", "08:30"),
			tr("08:30", "09:00"),
		}
		got := AssignContinuous(free, 60)
		require.NotNil(t, got)
		assert.Equal(t, tr("08:00", "09:00"), *got)
	})

	t.Run("fragmented buckets cannot serve a long requirement", func(t *testing.T) {
		free := []models.TimeRange{
			tr("08:00", "08:30"),
			tr("09:00", "09:30"),
			tr("10:00", "10:30"),
		}
		assert.Nil(t, AssignContinuous(free, 60))
	})

	t.Run("duration off the bucket grid never matches", func(t *testing.T) {
		free := []models.TimeRange{
			tr("08:00", "08:30"),
			tr("08:30", "09:00"),
		}
		assert.Nil(t, AssignContinuous(free, 45))
	})

	t.Run("run longer than needed yields its prefix", func(t *testing.T) {
		free := []models.TimeRange{
			tr("08:00", "08:30"),
			tr("08:30", "09:00"),
			tr("09:00", "09:30"),
		}
		got := AssignContinuous(free, 60)
		require.NotNil(t, got)
		assert.Equal(t, tr("08:00", "09:00"), *got)
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Nil(t, AssignContinuous(nil, 30))
		assert.Nil(t, AssignContinuous([]models.TimeRange{tr("08:00", "08:30")}, 0))
	})
}

func TestAssignBatch(t *testing.T) {
	t.Run("assignments never overlap", func(t *testing.T) {
		free := ComputeFreeSlots("08:00", "10:00", 15, nil)
		lectures := []Requirement{
			{DurationMinutes: 60, ModuleCode: "CS101"},
			{DurationMinutes: 60, ModuleCode: "CS102"},
		}
		got := AssignBatch(free, lectures)
		require.Len(t, got, 2)
		assert.Equal(t, tr("08:00", "09:00"), got[0].Range)
		assert.Equal(t, tr("09:00", "10:00"), got[1].Range)
		assert.False(t, got[0].Range.Overlaps(got[1].Range))
	})

	t.Run("all or nothing", func(t *testing.T) {
		free := ComputeFreeSlots("08:00", "09:30", 30, nil)
		lectures := []Requirement{
			{DurationMinutes: 60, ModuleCode: "CS101"},
			{DurationMinutes: 60, ModuleCode: "CS102"},
		}
		assert.Nil(t, AssignBatch(free, lectures))
	})

	t.Run("input slice is not mutated", func(t *testing.T) {
		free := ComputeFreeSlots("08:00", "10:00", 30, nil)
		before := make([]models.TimeRange, len(free))
		copy(before, free)

		AssignBatch(free, []Requirement{{DurationMinutes: 60}})
		assert.Equal(t, before, free)
	})
}

func TestConflicts(t *testing.T) {
	busy := []models.TimeRange{tr("09:00", "10:00")}

	assert.True(t, Conflicts(tr("09:30", "10:30"), busy))
	assert.True(t, Conflicts(tr("08:00", "11:00"), busy))
	assert.False(t, Conflicts(tr("10:00", "11:00"), busy), "touching ranges are not a conflict")
	assert.False(t, Conflicts(tr("08:00", "09:00"), busy))
}

package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unisched/presentation-api/internal/models"
	"github.com/unisched/presentation-api/internal/scheduling"
	"github.com/unisched/presentation-api/pkg/config"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
)

type displacementTimetableRepository interface {
	RunTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) error
	ListSlotsByLecturerAndDay(ctx context.Context, exec sqlx.ExtContext, lecturerID, day string) ([]models.LectureSlot, error)
	ListSlotsByDay(ctx context.Context, exec sqlx.ExtContext, day string) ([]models.LectureSlot, error)
	MoveSlot(ctx context.Context, exec sqlx.ExtContext, slotID, day, start, end string) error
	GroupIDForTimetable(ctx context.Context, exec sqlx.ExtContext, timetableID string) (string, error)
}

type displacementRecordRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, rec *models.RescheduledLecture) error
	FindByLecturerAndDate(ctx context.Context, exec sqlx.ExtContext, lecturerID, originalDate string) (*models.RescheduledLecture, error)
	ListByLecturer(ctx context.Context, lecturerID string) ([]models.RescheduledLecture, error)
}

// DisplacementService relocates a lecturer's teaching sessions off a date
// when a booking claims it. Relocation is all-or-nothing: either every
// lecture the lecturer teaches that weekday lands on one later teaching day,
// or nothing moves. A lecturer's lectures are displaced off a given date at
// most once.
type DisplacementService struct {
	timetables displacementTimetableRepository
	records    displacementRecordRepository
	cfg        config.SchedulingConfig
	logger     *zap.Logger
}

// NewDisplacementService constructs the service.
func NewDisplacementService(timetables displacementTimetableRepository, records displacementRecordRepository, cfg config.SchedulingConfig, logger *zap.Logger) *DisplacementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DisplacementService{timetables: timetables, records: records, cfg: cfg, logger: logger}
}

// DisplaceLectures moves every lecture the lecturer teaches on the weekday
// of date to the first later teaching day that fits the whole set. Returns
// nil with no error when the lecturer has no lectures that weekday or the
// date was already handled; ErrNoSlotFound when the horizon has no day that
// fits every lecture.
func (s *DisplacementService) DisplaceLectures(ctx context.Context, lecturerID, date string) (*models.RescheduledLecture, error) {
	weekday, err := models.WeekdayOf(date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD")
	}
	if !models.IsTeachingDay(weekday) {
		return nil, nil
	}

	existing, err := s.records.FindByLecturerAndDate(ctx, nil, lecturerID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check displacement history")
	}
	if existing != nil {
		s.logger.Info("lectures already displaced",
			zap.String("lecturer_id", lecturerID),
			zap.String("original_date", date))
		return nil, nil
	}

	slots, err := s.timetables.ListSlotsByLecturerAndDay(ctx, nil, lecturerID, weekday)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecturer timetable")
	}
	if len(slots) == 0 {
		return nil, nil
	}

	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD")
	}

	venues := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		venues[slot.VenueID] = struct{}{}
	}

	for offset := 1; offset <= s.cfg.DisplacementHorizonDays; offset++ {
		target := day.AddDate(0, 0, offset)
		targetDay := target.Weekday().String()
		if !models.IsTeachingDay(targetDay) {
			continue
		}

		busy, err := s.targetDayBusy(ctx, lecturerID, targetDay, venues)
		if err != nil {
			return nil, err
		}

		free := scheduling.ComputeFreeSlots(models.DayStart, models.DayEnd, s.cfg.DisplacementGranularity, busy)
		reqs := make([]scheduling.Requirement, 0, len(slots))
		for _, slot := range slots {
			reqs = append(reqs, scheduling.Requirement{
				DurationMinutes: slot.Range().DurationMinutes(),
				ModuleCode:      slot.ModuleCode,
				VenueID:         slot.VenueID,
			})
		}
		assigned := scheduling.AssignBatch(free, reqs)
		if assigned == nil {
			continue
		}

		rec, err := s.commit(ctx, lecturerID, date, target.Format(models.DateLayout), targetDay, slots, assigned)
		if err != nil {
			return nil, err
		}
		s.logger.Info("lectures displaced",
			zap.String("lecturer_id", lecturerID),
			zap.String("original_date", date),
			zap.String("rescheduled_date", rec.RescheduledDate),
			zap.Int("lectures", len(slots)))
		return rec, nil
	}

	return nil, appErrors.Clone(appErrors.ErrNoSlotFound, "no day within the displacement horizon fits all lectures")
}

// targetDayBusy merges the lecturer's own slots on the target day with every
// slot occupying one of the displaced lectures' venues.
func (s *DisplacementService) targetDayBusy(ctx context.Context, lecturerID, targetDay string, venues map[string]struct{}) ([]models.TimeRange, error) {
	daySlots, err := s.timetables.ListSlotsByDay(ctx, nil, targetDay)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target day timetable")
	}
	var busy []models.TimeRange
	for _, slot := range daySlots {
		if slot.LecturerID == lecturerID {
			busy = append(busy, slot.Range())
			continue
		}
		if _, ok := venues[slot.VenueID]; ok {
			busy = append(busy, slot.Range())
		}
	}
	return busy, nil
}

func (s *DisplacementService) commit(ctx context.Context, lecturerID, date, targetDate, targetDay string, slots []models.LectureSlot, assigned []scheduling.Assigned) (*models.RescheduledLecture, error) {
	rec := &models.RescheduledLecture{
		LecturerID:      lecturerID,
		OriginalDate:    date,
		RescheduledDate: targetDate,
	}

	err := s.timetables.RunTx(ctx, func(exec sqlx.ExtContext) error {
		displaced := make([]models.DisplacedLecture, 0, len(slots))
		for i, slot := range slots {
			rng := assigned[i].Range
			if err := s.timetables.MoveSlot(ctx, exec, slot.ID, targetDay, rng.Start, rng.End); err != nil {
				return err
			}
			groupID, err := s.timetables.GroupIDForTimetable(ctx, exec, slot.TimetableID)
			if err != nil {
				return err
			}
			displaced = append(displaced, models.DisplacedLecture{
				StartTime:  rng.Start,
				EndTime:    rng.End,
				ModuleCode: slot.ModuleCode,
				VenueID:    slot.VenueID,
				GroupID:    groupID,
			})
		}
		lectures, err := models.EncodeLectures(displaced)
		if err != nil {
			return err
		}
		rec.Lectures = lectures
		return s.records.Create(ctx, exec, rec)
	})
	if err != nil {
		if appErrors.Is(err, appErrors.ErrAlreadyRescheduled) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit lecture displacement")
	}
	return rec, nil
}

// ListForLecturer returns a lecturer's displacement history.
func (s *DisplacementService) ListForLecturer(ctx context.Context, lecturerID string) ([]models.RescheduledLecture, error) {
	records, err := s.records.ListByLecturer(ctx, lecturerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list displacement records")
	}
	return records, nil
}

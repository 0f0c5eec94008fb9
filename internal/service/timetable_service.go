package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unisched/presentation-api/internal/models"
	"github.com/unisched/presentation-api/internal/scheduling"
	"github.com/unisched/presentation-api/pkg/config"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
)

type timetableRepository interface {
	Create(ctx context.Context, t *models.Timetable) error
	ReplaceSlots(ctx context.Context, exec sqlx.ExtContext, timetableID string, slots []models.LectureSlot) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	FindByGroupID(ctx context.Context, groupID string) (*models.Timetable, error)
	List(ctx context.Context) ([]models.Timetable, error)
	ListSlotsByDay(ctx context.Context, exec sqlx.ExtContext, day string) ([]models.LectureSlot, error)
}

// TimetableService manages weekly lecture timetables. Writes enforce that
// no lecturer, venue, or group is in two places at once on the same
// weekday.
type TimetableService struct {
	repo      timetableRepository
	cfg       config.SchedulingConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs the service.
func NewTimetableService(repo timetableRepository, cfg config.SchedulingConfig, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{repo: repo, cfg: cfg, validator: validate, logger: logger}
}

// LectureSlotInput is one slot in a timetable payload.
type LectureSlotInput struct {
	Day        string `json:"day" validate:"required"`
	StartTime  string `json:"start_time" validate:"required"`
	EndTime    string `json:"end_time" validate:"required"`
	ModuleCode string `json:"module_code" validate:"required"`
	LecturerID string `json:"lecturer_id" validate:"required"`
	VenueID    string `json:"venue_id" validate:"required"`
}

// CreateTimetableRequest describes a new weekly timetable.
type CreateTimetableRequest struct {
	GroupID string             `json:"group_id" validate:"required"`
	Slots   []LectureSlotInput `json:"slots" validate:"required,min=1,dive"`
}

// Create registers a group's weekly timetable.
func (s *TimetableService) Create(ctx context.Context, req CreateTimetableRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable")
	}
	slots := buildSlots(req.Slots)
	if err := s.checkSlots(ctx, "", slots); err != nil {
		return nil, err
	}

	t := &models.Timetable{GroupID: req.GroupID, Slots: slots}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}
	return t, nil
}

// UpdateSlots replaces a timetable's slot set.
func (s *TimetableService) UpdateSlots(ctx context.Context, timetableID string, inputs []LectureSlotInput) (*models.Timetable, error) {
	for _, in := range inputs {
		if err := s.validator.Struct(in); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable slot")
		}
	}
	existing, err := s.repo.FindByID(ctx, timetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	slots := buildSlots(inputs)
	if err := s.checkSlots(ctx, timetableID, slots); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceSlots(ctx, nil, timetableID, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable")
	}
	existing.Slots = slots
	return existing, nil
}

func buildSlots(inputs []LectureSlotInput) []models.LectureSlot {
	slots := make([]models.LectureSlot, 0, len(inputs))
	for _, in := range inputs {
		slots = append(slots, models.LectureSlot{
			Day:        in.Day,
			StartTime:  in.StartTime,
			EndTime:    in.EndTime,
			ModuleCode: in.ModuleCode,
			LecturerID: in.LecturerID,
			VenueID:    in.VenueID,
		})
	}
	return slots
}

// checkSlots enforces the no-double-booking invariants, both within the
// submitted set and against every other timetable's slots on the same
// weekday. ownID excludes the timetable's current slots when updating.
func (s *TimetableService) checkSlots(ctx context.Context, ownID string, slots []models.LectureSlot) error {
	for _, slot := range slots {
		if !models.IsTeachingDay(slot.Day) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a teaching day", slot.Day))
		}
		if !slot.Range().Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "slot times must fall within the operating day")
		}
	}

	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].Day != slots[j].Day || !slots[i].Range().Overlaps(slots[j].Range()) {
				continue
			}
			if slots[i].LecturerID == slots[j].LecturerID {
				return appErrors.Clone(appErrors.ErrConflict, "lecturer is double-booked within the timetable")
			}
			if slots[i].VenueID == slots[j].VenueID {
				return appErrors.Clone(appErrors.ErrConflict, "venue is double-booked within the timetable")
			}
			return appErrors.Clone(appErrors.ErrConflict, "group has overlapping lectures")
		}
	}

	days := make(map[string]struct{})
	for _, slot := range slots {
		days[slot.Day] = struct{}{}
	}
	for day := range days {
		others, err := s.repo.ListSlotsByDay(ctx, nil, day)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing timetables")
		}
		for _, other := range others {
			if other.TimetableID == ownID {
				continue
			}
			for _, slot := range slots {
				if slot.Day != day || !slot.Range().Overlaps(other.Range()) {
					continue
				}
				if slot.LecturerID == other.LecturerID {
					return appErrors.Clone(appErrors.ErrConflict, "lecturer already teaches elsewhere in this slot")
				}
				if slot.VenueID == other.VenueID {
					return appErrors.Clone(appErrors.ErrConflict, "venue is already occupied in this slot")
				}
			}
		}
	}
	return nil
}

// Get returns one timetable.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.Timetable, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return t, nil
}

// GetForGroup returns a group's timetable.
func (s *TimetableService) GetForGroup(ctx context.Context, groupID string) (*models.Timetable, error) {
	t, err := s.repo.FindByGroupID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found for group")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return t, nil
}

// List returns all timetables.
func (s *TimetableService) List(ctx context.Context) ([]models.Timetable, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return rows, nil
}

// Delete removes a timetable.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	return nil
}

// FreeTimeForDay returns a group's free hour blocks on one weekday.
func (s *TimetableService) FreeTimeForDay(ctx context.Context, groupID, day string) ([]models.TimeRange, error) {
	if !models.IsTeachingDay(day) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a teaching day", day))
	}
	t, err := s.GetForGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	var busy []models.TimeRange
	for _, slot := range t.Slots {
		if slot.Day == day {
			busy = append(busy, slot.Range())
		}
	}
	return scheduling.ComputeFreeSlots(models.DayStart, models.DayEnd, s.cfg.DisplayGranularity, busy), nil
}

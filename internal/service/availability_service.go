package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unisched/presentation-api/internal/models"
	"github.com/unisched/presentation-api/internal/scheduling"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
)

type availabilityPresentationRepository interface {
	ListByDateForResources(ctx context.Context, exec sqlx.ExtContext, date, venueID string, examinerIDs, studentIDs []string) ([]models.Presentation, error)
	ListByDate(ctx context.Context, date string) ([]models.Presentation, error)
}

// AvailabilityService answers whether a venue, examiner set, and student set
// are jointly free for a date and time range, and computes a day's free
// windows. It is the conflict gate in front of every booking write.
type AvailabilityService struct {
	presentations availabilityPresentationRepository
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(presentations availabilityPresentationRepository, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{presentations: presentations, validator: validate, logger: logger}
}

// AvailabilityRequest describes a candidate booking to test. Any empty
// resource dimension is skipped: a request with no venue checks examiners
// and students only. IgnorePresentationID excludes one booking from the
// check, so moving a presentation does not conflict with its own
// reservation.
type AvailabilityRequest struct {
	Date                 string           `json:"date" validate:"required,datetime=2006-01-02"`
	TimeRange            models.TimeRange `json:"time_range"`
	VenueID              string           `json:"venue_id"`
	ExaminerIDs          []string         `json:"examiner_ids"`
	StudentIDs           []string         `json:"student_ids"`
	IgnorePresentationID string           `json:"-"`
}

// Conflict names the booking and resource dimension that blocked a slot.
type Conflict struct {
	PresentationID string           `json:"presentation_id"`
	Resource       string           `json:"resource"`
	TimeRange      models.TimeRange `json:"time_range"`
}

// Resource dimensions reported in conflicts.
const (
	ResourceVenue    = "venue"
	ResourceExaminer = "examiner"
	ResourceStudent  = "student"
)

// Check reports whether the requested slot is free, with the conflicts that
// block it. It reads through exec so a booking transaction sees its own
// isolation level.
func (s *AvailabilityService) Check(ctx context.Context, exec sqlx.ExtContext, req AvailabilityRequest) (bool, []Conflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability request")
	}
	if !req.TimeRange.Valid() {
		return false, nil, appErrors.Clone(appErrors.ErrValidation, "time range must fall within the operating day")
	}

	existing, err := s.presentations.ListByDateForResources(ctx, exec, req.Date, req.VenueID, req.ExaminerIDs, req.StudentIDs)
	if err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings for availability check")
	}

	conflicts := collectConflicts(req, existing)
	return len(conflicts) == 0, conflicts, nil
}

func collectConflicts(req AvailabilityRequest, existing []models.Presentation) []Conflict {
	examiners := make(map[string]struct{}, len(req.ExaminerIDs))
	for _, id := range req.ExaminerIDs {
		examiners[id] = struct{}{}
	}
	students := make(map[string]struct{}, len(req.StudentIDs))
	for _, id := range req.StudentIDs {
		students[id] = struct{}{}
	}

	var conflicts []Conflict
	for _, p := range existing {
		if p.ID == req.IgnorePresentationID {
			continue
		}
		if !req.TimeRange.Overlaps(p.TimeRange) {
			continue
		}
		if req.VenueID != "" && p.VenueID == req.VenueID {
			conflicts = append(conflicts, Conflict{PresentationID: p.ID, Resource: ResourceVenue, TimeRange: p.TimeRange})
			continue
		}
		if shared(p.ExaminerIDs, examiners) {
			conflicts = append(conflicts, Conflict{PresentationID: p.ID, Resource: ResourceExaminer, TimeRange: p.TimeRange})
			continue
		}
		if shared(p.StudentIDs, students) {
			conflicts = append(conflicts, Conflict{PresentationID: p.ID, Resource: ResourceStudent, TimeRange: p.TimeRange})
		}
	}
	return conflicts
}

func shared(ids []string, set map[string]struct{}) bool {
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

// FreeWindows partitions a venue's day into granularity-minute windows and
// marks each as available or taken.
func (s *AvailabilityService) FreeWindows(ctx context.Context, date, venueID string, granularity int) ([]models.FreeWindow, error) {
	if _, err := models.WeekdayOf(date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD")
	}

	bookings, err := s.presentations.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings for free windows")
	}
	var busy []models.TimeRange
	for _, p := range bookings {
		if venueID == "" || p.VenueID == venueID {
			busy = append(busy, p.TimeRange)
		}
	}

	free := scheduling.ComputeFreeSlots(models.DayStart, models.DayEnd, granularity, busy)
	freeSet := make(map[string]struct{}, len(free))
	for _, slot := range free {
		freeSet[slot.Start] = struct{}{}
	}

	all := scheduling.ComputeFreeSlots(models.DayStart, models.DayEnd, granularity, nil)
	windows := make([]models.FreeWindow, 0, len(all))
	for _, slot := range all {
		_, available := freeSet[slot.Start]
		windows = append(windows, models.FreeWindow{
			TimeSlot:  slot.Start + " - " + slot.End,
			Available: available,
		})
	}
	return windows, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unisched/presentation-api/internal/models"
	"github.com/unisched/presentation-api/internal/scheduling"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
)

type presentationRepository interface {
	RunSerializable(ctx context.Context, fn func(exec sqlx.ExtContext) error) error
	Create(ctx context.Context, exec sqlx.ExtContext, p *models.Presentation) error
	Update(ctx context.Context, exec sqlx.ExtContext, p *models.Presentation) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Presentation, error)
	List(ctx context.Context, filter models.PresentationFilter) ([]models.Presentation, int, error)
	ListForExaminer(ctx context.Context, examinerID string) ([]models.Presentation, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.Presentation, error)
	ListByDateForResources(ctx context.Context, exec sqlx.ExtContext, date, venueID string, examinerIDs, studentIDs []string) ([]models.Presentation, error)
}

type slotChecker interface {
	Check(ctx context.Context, exec sqlx.ExtContext, req AvailabilityRequest) (bool, []Conflict, error)
}

type bestDateSelector interface {
	SelectBestDate(ctx context.Context, startOffsetDays, horizonDays int, examinerIDs []string) (string, error)
}

type lectureDisplacer interface {
	DisplaceLectures(ctx context.Context, lecturerID, date string) (*models.RescheduledLecture, error)
}

type bookingNotifier interface {
	BookingScheduled(p *models.Presentation)
	BookingMoved(p *models.Presentation, previousDate string)
	LecturesDisplaced(rec *models.RescheduledLecture)
}

type bookingCache interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type bookingMetrics interface {
	BookingAttempt(outcome string)
	LectureDisplacement()
}

// PresentationService books, moves, and lists presentations. Booking runs
// its availability check and insert in one serializable transaction; a
// successful booking then displaces any lectures its examiners were due to
// teach during the slot.
type PresentationService struct {
	repo      presentationRepository
	checker   slotChecker
	dates     bestDateSelector
	displacer lectureDisplacer
	notifier  bookingNotifier
	cache     bookingCache
	metrics   bookingMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPresentationService constructs the service. notifier, cache, and
// metrics may be nil.
func NewPresentationService(
	repo presentationRepository,
	checker slotChecker,
	dates bestDateSelector,
	displacer lectureDisplacer,
	notifier bookingNotifier,
	cache bookingCache,
	metrics bookingMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
) *PresentationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PresentationService{
		repo:      repo,
		checker:   checker,
		dates:     dates,
		displacer: displacer,
		notifier:  notifier,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Booking attempt outcomes reported to metrics.
const (
	BookingOutcomeScheduled = "scheduled"
	BookingOutcomeConflict  = "conflict"
	BookingOutcomeError     = "error"
)

// CreatePresentationRequest describes a booking. Date and StartTime are
// optional: a missing date resolves to the least-loaded date over the
// horizon, a missing start to the earliest run of free time on that date.
type CreatePresentationRequest struct {
	Title           string   `json:"title" validate:"required"`
	Department      string   `json:"department" validate:"required"`
	VenueID         string   `json:"venue_id" validate:"required"`
	Date            string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime       string   `json:"start_time"`
	DurationMinutes int      `json:"duration_minutes" validate:"required,gt=0"`
	ExaminerIDs     []string `json:"examiner_ids" validate:"required,min=1"`
	StudentIDs      []string `json:"student_ids" validate:"required,min=1"`
}

// Create books a presentation. A slot conflict is an expected outcome and
// comes back in the BookingResult, not as an error.
func (s *PresentationService) Create(ctx context.Context, req CreatePresentationRequest) (*models.BookingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		s.countBooking(BookingOutcomeError)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking request")
	}

	date := req.Date
	if date == "" {
		best, err := s.dates.SelectBestDate(ctx, 1, 0, req.ExaminerIDs)
		if err != nil {
			s.countBooking(BookingOutcomeError)
			return nil, err
		}
		date = best
	}

	start := req.StartTime
	if start == "" {
		assigned, err := s.earliestRun(ctx, date, req.VenueID, req.DurationMinutes)
		if err != nil {
			s.countBooking(BookingOutcomeError)
			return nil, err
		}
		if assigned == nil {
			s.countBooking(BookingOutcomeConflict)
			return &models.BookingResult{Scheduled: false, Reason: "no continuous free run long enough on " + date}, nil
		}
		start = assigned.Start
	}

	rng := models.TimeRange{
		Start: start,
		End:   models.TimeOf(models.MinuteOf(start) + req.DurationMinutes),
	}
	if !rng.Valid() {
		s.countBooking(BookingOutcomeError)
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot must fall within the operating day")
	}

	p := &models.Presentation{
		Title:           req.Title,
		Department:      req.Department,
		VenueID:         req.VenueID,
		Date:            date,
		DurationMinutes: req.DurationMinutes,
		NumExaminers:    len(req.ExaminerIDs),
		TimeRange:       rng,
		ExaminerIDs:     req.ExaminerIDs,
		StudentIDs:      req.StudentIDs,
	}

	var conflicts []Conflict
	err := s.repo.RunSerializable(ctx, func(exec sqlx.ExtContext) error {
		ok, found, err := s.checker.Check(ctx, exec, AvailabilityRequest{
			Date:        date,
			TimeRange:   rng,
			VenueID:     req.VenueID,
			ExaminerIDs: req.ExaminerIDs,
			StudentIDs:  req.StudentIDs,
		})
		if err != nil {
			return err
		}
		if !ok {
			conflicts = found
			return appErrors.ErrConflict
		}
		return s.repo.Create(ctx, exec, p)
	})
	if err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			s.countBooking(BookingOutcomeConflict)
			return &models.BookingResult{Scheduled: false, Reason: conflictReason(conflicts)}, nil
		}
		s.countBooking(BookingOutcomeError)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to book presentation")
	}

	s.countBooking(BookingOutcomeScheduled)
	s.invalidateDateLoads(ctx)
	s.displaceExaminerLectures(ctx, p)
	if s.notifier != nil {
		s.notifier.BookingScheduled(p)
	}
	return &models.BookingResult{Scheduled: true, Presentation: p}, nil
}

func (s *PresentationService) earliestRun(ctx context.Context, date, venueID string, duration int) (*models.TimeRange, error) {
	existing, err := s.repo.ListByDateForResources(ctx, nil, date, venueID, nil, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load venue bookings")
	}
	busy := make([]models.TimeRange, 0, len(existing))
	for _, p := range existing {
		busy = append(busy, p.TimeRange)
	}
	free := scheduling.ComputeFreeSlots(models.DayStart, models.DayEnd, 30, busy)
	return scheduling.AssignContinuous(free, duration), nil
}

func conflictReason(conflicts []Conflict) string {
	if len(conflicts) == 0 {
		return "slot is no longer available"
	}
	resources := make([]string, 0, len(conflicts))
	seen := make(map[string]struct{})
	for _, c := range conflicts {
		if _, ok := seen[c.Resource]; ok {
			continue
		}
		seen[c.Resource] = struct{}{}
		resources = append(resources, c.Resource)
	}
	return "slot conflicts on: " + strings.Join(resources, ", ")
}

// Move relocates an existing presentation to a new date, range, and venue.
// Used by the reschedule approval flow; the caller has already verified
// availability inside its own transaction when needed.
func (s *PresentationService) Move(ctx context.Context, exec sqlx.ExtContext, id string, date string, rng models.TimeRange, venueID string) (*models.Presentation, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "presentation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load presentation")
	}

	previousDate := p.Date
	p.Date = date
	p.TimeRange = rng
	p.DurationMinutes = rng.DurationMinutes()
	if venueID != "" {
		p.VenueID = venueID
	}
	if err := s.repo.Update(ctx, exec, p); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move presentation")
	}

	s.invalidateDateLoads(ctx)
	s.displaceExaminerLectures(ctx, p)
	if s.notifier != nil {
		s.notifier.BookingMoved(p, previousDate)
	}
	return p, nil
}

// ReschedulePresentationRequest describes a direct move of a booking.
type ReschedulePresentationRequest struct {
	Date      string           `json:"date" validate:"required,datetime=2006-01-02"`
	TimeRange models.TimeRange `json:"time_range"`
	VenueID   string           `json:"venue_id"`
}

// Reschedule moves a presentation after re-checking the target slot, check
// and write in one serializable transaction. A taken slot is a conflict
// outcome, not an error.
func (s *PresentationService) Reschedule(ctx context.Context, id string, req ReschedulePresentationRequest) (*models.BookingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule request")
	}
	if !req.TimeRange.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "time range must fall within the operating day")
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	venueID := req.VenueID
	if venueID == "" {
		venueID = p.VenueID
	}

	previousDate := p.Date
	var conflicts []Conflict
	err = s.repo.RunSerializable(ctx, func(exec sqlx.ExtContext) error {
		ok, found, err := s.checker.Check(ctx, exec, AvailabilityRequest{
			Date:                 req.Date,
			TimeRange:            req.TimeRange,
			VenueID:              venueID,
			ExaminerIDs:          p.ExaminerIDs,
			StudentIDs:           p.StudentIDs,
			IgnorePresentationID: p.ID,
		})
		if err != nil {
			return err
		}
		if !ok {
			conflicts = found
			return appErrors.Clone(appErrors.ErrConflict, "")
		}
		p.Date = req.Date
		p.TimeRange = req.TimeRange
		p.DurationMinutes = req.TimeRange.DurationMinutes()
		p.VenueID = venueID
		return s.repo.Update(ctx, exec, p)
	})
	if err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			return &models.BookingResult{Scheduled: false, Reason: conflictReason(conflicts)}, nil
		}
		if e := appErrors.FromError(err); e.Status < 500 {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reschedule presentation")
	}

	s.invalidateDateLoads(ctx)
	s.displaceExaminerLectures(ctx, p)
	if s.notifier != nil {
		s.notifier.BookingMoved(p, previousDate)
	}
	return &models.BookingResult{Scheduled: true, Presentation: p}, nil
}

// displaceExaminerLectures pushes each examiner's teaching load out of the
// way of the new booking. Displacement failures are logged, never fatal:
// the booking already committed.
func (s *PresentationService) displaceExaminerLectures(ctx context.Context, p *models.Presentation) {
	if s.displacer == nil {
		return
	}
	for _, examinerID := range p.ExaminerIDs {
		rec, err := s.displacer.DisplaceLectures(ctx, examinerID, p.Date)
		if err != nil {
			if appErrors.Is(err, appErrors.ErrAlreadyRescheduled) {
				continue
			}
			s.logger.Error("lecture displacement failed",
				zap.String("examiner_id", examinerID),
				zap.String("date", p.Date),
				zap.Error(err))
			continue
		}
		if rec == nil {
			continue
		}
		if s.metrics != nil {
			s.metrics.LectureDisplacement()
		}
		if s.notifier != nil {
			s.notifier.LecturesDisplaced(rec)
		}
	}
}

// Get returns one presentation.
func (s *PresentationService) Get(ctx context.Context, id string) (*models.Presentation, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "presentation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load presentation")
	}
	return p, nil
}

// List returns presentations with pagination.
func (s *PresentationService) List(ctx context.Context, filter models.PresentationFilter) ([]models.Presentation, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list presentations")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// ListForExaminer returns an examiner's schedule.
func (s *PresentationService) ListForExaminer(ctx context.Context, examinerID string) ([]models.Presentation, error) {
	rows, err := s.repo.ListForExaminer(ctx, examinerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list examiner presentations")
	}
	return rows, nil
}

// ListForStudent returns a student's schedule.
func (s *PresentationService) ListForStudent(ctx context.Context, studentID string) ([]models.Presentation, error) {
	rows, err := s.repo.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student presentations")
	}
	return rows, nil
}

// Delete cancels a presentation.
func (s *PresentationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "presentation not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete presentation")
	}
	s.invalidateDateLoads(ctx)
	return nil
}

func (s *PresentationService) invalidateDateLoads(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "schedule:date-load:*"); err != nil {
		s.logger.Warn("date load cache invalidation failed", zap.Error(err))
	}
}

func (s *PresentationService) countBooking(outcome string) {
	if s.metrics != nil {
		s.metrics.BookingAttempt(outcome)
	}
}

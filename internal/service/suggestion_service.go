package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unisched/presentation-api/internal/models"
	"github.com/unisched/presentation-api/internal/scheduling"
	"github.com/unisched/presentation-api/pkg/config"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
)

type suggestionPresentationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Presentation, error)
	ListByDate(ctx context.Context, date string) ([]models.Presentation, error)
	CountByDateRange(ctx context.Context, from, to string) (map[string]int, error)
}

type suggestionTimetableRepository interface {
	ListSlotsByDay(ctx context.Context, exec sqlx.ExtContext, day string) ([]models.LectureSlot, error)
}

type suggestionExaminerRepository interface {
	ListByDepartment(ctx context.Context, department string) ([]models.Examiner, error)
}

type suggestionStudentRepository interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

type suggestionVenueRepository interface {
	List(ctx context.Context) ([]models.Venue, error)
}

type suggestionRequestRepository interface {
	ListActiveByDate(ctx context.Context, date string) ([]models.RescheduleRequest, error)
}

type suggestionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SuggestionService finds open slots. It first picks the least-loaded date
// over a horizon, then scans start times on that single date for a venue and
// examiner combination.
type SuggestionService struct {
	presentations suggestionPresentationRepository
	timetables    suggestionTimetableRepository
	examiners     suggestionExaminerRepository
	students      suggestionStudentRepository
	venues        suggestionVenueRepository
	requests      suggestionRequestRepository
	cache         suggestionCache
	cfg           config.SchedulingConfig
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewSuggestionService constructs the service.
func NewSuggestionService(
	presentations suggestionPresentationRepository,
	timetables suggestionTimetableRepository,
	examiners suggestionExaminerRepository,
	students suggestionStudentRepository,
	venues suggestionVenueRepository,
	requests suggestionRequestRepository,
	cache suggestionCache,
	cfg config.SchedulingConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *SuggestionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionService{
		presentations: presentations,
		timetables:    timetables,
		examiners:     examiners,
		students:      students,
		venues:        venues,
		requests:      requests,
		cache:         cache,
		cfg:           cfg,
		validator:     validate,
		logger:        logger,
		now:           time.Now,
	}
}

// WithClock overrides the wall clock. Tests pin the horizon with it.
func (s *SuggestionService) WithClock(now func() time.Time) *SuggestionService {
	s.now = now
	return s
}

const dateLoadCacheKey = "schedule:date-load:%s:%s"

// SelectBestDate returns the least-loaded date among horizonDays consecutive
// dates starting startOffsetDays from today. A horizon of zero or less falls
// back to the configured default. With examiners given, load is the number
// of lectures those examiners teach on each date's weekday; without, it is
// the number of presentations already booked per date. A candidate replaces
// the running best only on a strictly smaller load, so ties resolve to the
// earliest date.
func (s *SuggestionService) SelectBestDate(ctx context.Context, startOffsetDays, horizonDays int, examinerIDs []string) (string, error) {
	if horizonDays <= 0 {
		horizonDays = s.cfg.SuggestionHorizonDays
	}
	start := s.now().AddDate(0, 0, startOffsetDays)

	var perDate func(date, weekday string) (int, error)
	if len(examinerIDs) > 0 {
		weekdayLoads := make(map[string]int)
		perDate = func(date, weekday string) (int, error) {
			if load, ok := weekdayLoads[weekday]; ok {
				return load, nil
			}
			load, err := s.examinerLectureLoad(ctx, weekday, examinerIDs)
			if err != nil {
				return 0, err
			}
			weekdayLoads[weekday] = load
			return load, nil
		}
	} else {
		from := start.Format(models.DateLayout)
		to := start.AddDate(0, 0, horizonDays-1).Format(models.DateLayout)
		counts, err := s.dateLoads(ctx, from, to)
		if err != nil {
			return "", err
		}
		perDate = func(date, weekday string) (int, error) {
			return counts[date], nil
		}
	}

	best := ""
	bestLoad := 0
	for i := 0; i < horizonDays; i++ {
		day := start.AddDate(0, 0, i)
		load, err := perDate(day.Format(models.DateLayout), day.Weekday().String())
		if err != nil {
			return "", err
		}
		if best == "" || load < bestLoad {
			best = day.Format(models.DateLayout)
			bestLoad = load
		}
	}
	return best, nil
}

func (s *SuggestionService) examinerLectureLoad(ctx context.Context, weekday string, examinerIDs []string) (int, error) {
	slots, err := s.timetables.ListSlotsByDay(ctx, nil, weekday)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekday lectures")
	}
	ids := make(map[string]struct{}, len(examinerIDs))
	for _, id := range examinerIDs {
		ids[id] = struct{}{}
	}
	load := 0
	for _, slot := range slots {
		if _, ok := ids[slot.LecturerID]; ok {
			load++
		}
	}
	return load, nil
}

func (s *SuggestionService) dateLoads(ctx context.Context, from, to string) (map[string]int, error) {
	key := fmt.Sprintf(dateLoadCacheKey, from, to)
	var counts map[string]int
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &counts); err == nil {
			return counts, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("date load cache read failed", zap.Error(err))
		}
	}

	counts, err := s.presentations.CountByDateRange(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking counts")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, counts, s.cfg.DateLoadCacheTTL); err != nil {
			s.logger.Warn("date load cache write failed", zap.Error(err))
		}
	}
	return counts, nil
}

// SuggestionRequest describes what a suggested slot must accommodate. The
// department is derived from the students, not supplied by the caller.
type SuggestionRequest struct {
	StudentIDs      []string `json:"student_ids" validate:"required,min=1"`
	NumExaminers    int      `json:"num_examiners" validate:"required,gt=0"`
	DurationMinutes int      `json:"duration_minutes" validate:"required,gt=0"`
}

// SuggestSlot picks the least-loaded date for the students' department
// examiners, then scans half-hour starts on that date for a time the
// students are free, pairing the booking with a venue and examiners: an
// examiner already holding a venue that day keeps it, otherwise unassigned
// examiners get an unused venue. Past starts are skipped when the date is
// today. ErrNoSlotFound when the date has no workable time or pairing.
func (s *SuggestionService) SuggestSlot(ctx context.Context, req SuggestionRequest) (*models.SlotSuggestion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid suggestion request")
	}

	students, err := s.students.FindByIDs(ctx, req.StudentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no valid students found")
	}
	department := students[0].Department

	pool, err := s.examiners.ListByDepartment(ctx, department)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department examiners")
	}
	if len(pool) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no examiners found in department "+department)
	}
	if len(pool) < req.NumExaminers {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department has fewer examiners than requested")
	}

	venues, err := s.loadVenues(ctx)
	if err != nil {
		return nil, err
	}

	poolIDs := make([]string, 0, len(pool))
	for _, e := range pool {
		poolIDs = append(poolIDs, e.ID)
	}
	date, err := s.SelectBestDate(ctx, 0, 0, poolIDs)
	if err != nil {
		return nil, err
	}

	bookings, err := s.presentations.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings for suggestion")
	}
	examinerVenue := make(map[string]string)
	venueUsed := make(map[string]struct{})
	studentBusy := make(map[string][]models.TimeRange)
	for _, p := range bookings {
		venueUsed[p.VenueID] = struct{}{}
		for _, id := range p.ExaminerIDs {
			examinerVenue[id] = p.VenueID
		}
		for _, id := range p.StudentIDs {
			studentBusy[id] = append(studentBusy[id], p.TimeRange)
		}
	}

	dayEnd := models.MinuteOf(models.DayEnd)
	nowMinutes := s.pastCutoff(date)
	for start := models.MinuteOf(models.DayStart); start+req.DurationMinutes <= dayEnd; start += s.cfg.SuggestionGranularity {
		if start <= nowMinutes {
			continue
		}
		candidate := models.TimeRange{Start: models.TimeOf(start), End: models.TimeOf(start + req.DurationMinutes)}
		if anyBusy(req.StudentIDs, studentBusy, candidate) {
			continue
		}

		venueID, picked := pairVenueAndExaminers(pool, examinerVenue, venueUsed, venues, req.NumExaminers)
		if venueID == "" || len(picked) < req.NumExaminers {
			return nil, appErrors.Clone(appErrors.ErrNoSlotFound, "no venue and examiner combination is free on "+date)
		}
		return &models.SlotSuggestion{
			Date:        date,
			TimeRange:   candidate,
			VenueID:     venueID,
			ExaminerIDs: picked,
			Department:  department,
		}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNoSlotFound, "no open time on "+date)
}

// pairVenueAndExaminers reuses the venue of examiners already booked that
// day; when too few are booked, it swaps to entirely unassigned examiners
// and the first venue no booking occupies.
func pairVenueAndExaminers(pool []models.Examiner, examinerVenue map[string]string, venueUsed map[string]struct{}, venues []models.Venue, want int) (string, []string) {
	venueID := ""
	var picked []string
	for _, e := range pool {
		if v, ok := examinerVenue[e.ID]; ok {
			venueID = v
			picked = append(picked, e.ID)
			if len(picked) == want {
				break
			}
		}
	}
	if len(picked) < want {
		var fresh []string
		for _, e := range pool {
			if _, ok := examinerVenue[e.ID]; !ok {
				fresh = append(fresh, e.ID)
			}
		}
		if len(fresh) >= want {
			picked = fresh[:want]
			venueID = ""
			for _, v := range venues {
				if _, used := venueUsed[v.ID]; !used {
					venueID = v.ID
					break
				}
			}
		}
	}
	return venueID, picked
}

// SuggestForReschedule finds a replacement slot for an existing booking. It
// keeps the booking's examiners and students, searches from tomorrow, skips
// times already claimed by open reschedule requests on the chosen date, and
// ignores the booking's own reservation.
func (s *SuggestionService) SuggestForReschedule(ctx context.Context, presentationID string) (*models.SlotSuggestion, error) {
	p, err := s.presentations.FindByID(ctx, presentationID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "presentation not found")
	}
	duration := p.DurationMinutes
	if duration <= 0 {
		duration = p.TimeRange.DurationMinutes()
	}

	date, err := s.SelectBestDate(ctx, 1, 0, p.ExaminerIDs)
	if err != nil {
		return nil, err
	}

	venues, err := s.loadVenues(ctx)
	if err != nil {
		return nil, err
	}

	claimed, err := s.claimedRanges(ctx, date)
	if err != nil {
		return nil, err
	}

	bookings, err := s.presentations.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings for suggestion")
	}
	venueBusy := make(map[string][]models.TimeRange)
	examinerBusy := make(map[string][]models.TimeRange)
	studentBusy := make(map[string][]models.TimeRange)
	for _, other := range bookings {
		if other.ID == p.ID {
			continue
		}
		venueBusy[other.VenueID] = append(venueBusy[other.VenueID], other.TimeRange)
		for _, id := range other.ExaminerIDs {
			examinerBusy[id] = append(examinerBusy[id], other.TimeRange)
		}
		for _, id := range other.StudentIDs {
			studentBusy[id] = append(studentBusy[id], other.TimeRange)
		}
	}

	dayEnd := models.MinuteOf(models.DayEnd)
	nowMinutes := s.pastCutoff(date)
	for start := models.MinuteOf(models.DayStart); start+duration <= dayEnd; start += s.cfg.SuggestionGranularity {
		if start <= nowMinutes {
			continue
		}
		candidate := models.TimeRange{Start: models.TimeOf(start), End: models.TimeOf(start + duration)}
		if scheduling.Conflicts(candidate, claimed) {
			continue
		}
		if anyBusy(p.ExaminerIDs, examinerBusy, candidate) {
			continue
		}
		if anyBusy(p.StudentIDs, studentBusy, candidate) {
			continue
		}

		venueID := ""
		for _, v := range venues {
			if !scheduling.Conflicts(candidate, venueBusy[v.ID]) {
				venueID = v.ID
				break
			}
		}
		if venueID == "" {
			continue
		}

		return &models.SlotSuggestion{
			Date:        date,
			TimeRange:   candidate,
			VenueID:     venueID,
			ExaminerIDs: p.ExaminerIDs,
			Department:  p.Department,
		}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNoSlotFound, "no open time on "+date)
}

// claimedRanges returns the time ranges of pending or approved reschedule
// requests already targeting the date.
func (s *SuggestionService) claimedRanges(ctx context.Context, date string) ([]models.TimeRange, error) {
	if s.requests == nil {
		return nil, nil
	}
	open, err := s.requests.ListActiveByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load open reschedule requests")
	}
	ranges := make([]models.TimeRange, 0, len(open))
	for _, r := range open {
		ranges = append(ranges, r.RequestedRange())
	}
	return ranges, nil
}

// pastCutoff returns the current minute of day when date is today, -1
// otherwise. Starts at or before the cutoff are skipped.
func (s *SuggestionService) pastCutoff(date string) int {
	now := s.now()
	if date != now.Format(models.DateLayout) {
		return -1
	}
	return now.Hour()*60 + now.Minute()
}

func (s *SuggestionService) loadVenues(ctx context.Context) ([]models.Venue, error) {
	venues, err := s.venues.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load venues")
	}
	if len(venues) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no venues registered")
	}
	return venues, nil
}

func anyBusy(ids []string, busy map[string][]models.TimeRange, candidate models.TimeRange) bool {
	for _, id := range ids {
		if scheduling.Conflicts(candidate, busy[id]) {
			return true
		}
	}
	return false
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unisched/presentation-api/internal/models"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
)

type rescheduleRequestRepository interface {
	Create(ctx context.Context, req *models.RescheduleRequest) error
	FindByID(ctx context.Context, id string) (*models.RescheduleRequest, error)
	UpdateStatus(ctx context.Context, id, status string) error
	List(ctx context.Context, status string) ([]models.RescheduleRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]models.RescheduleRequest, error)
	Delete(ctx context.Context, id string) error
	DeleteRejectedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteForRequesterByStatus(ctx context.Context, requesterID, status string) (int64, error)
}

type rescheduleBookings interface {
	Get(ctx context.Context, id string) (*models.Presentation, error)
	Move(ctx context.Context, exec sqlx.ExtContext, id string, date string, rng models.TimeRange, venueID string) (*models.Presentation, error)
}

type rescheduleNotifier interface {
	RequestSubmitted(req *models.RescheduleRequest)
	RequestResolved(req *models.RescheduleRequest, approved bool, reason string)
}

type rescheduleMetrics interface {
	RescheduleResolution(outcome string)
}

// RescheduleService runs the reschedule request workflow. Requests start
// Pending and leave it exactly once, to Approved or Rejected. Approval
// re-checks the requested slot against the presentation's current
// participants; a slot that has gone stale rejects the request as a normal
// outcome, not an error.
type RescheduleService struct {
	requests  rescheduleRequestRepository
	bookings  rescheduleBookings
	checker   slotChecker
	notifier  rescheduleNotifier
	metrics   rescheduleMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRescheduleService constructs the service. notifier and metrics may be
// nil.
func NewRescheduleService(
	requests rescheduleRequestRepository,
	bookings rescheduleBookings,
	checker slotChecker,
	notifier rescheduleNotifier,
	metrics rescheduleMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
) *RescheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RescheduleService{
		requests:  requests,
		bookings:  bookings,
		checker:   checker,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Reschedule resolution outcomes reported to metrics.
const (
	ResolutionApproved     = "approved"
	ResolutionRejected     = "rejected"
	ResolutionAutoRejected = "auto_rejected"
)

// SubmitRescheduleRequest describes a new reschedule request.
type SubmitRescheduleRequest struct {
	PresentationID  string `json:"presentation_id" validate:"required"`
	RequestedByID   string `json:"requested_by_id" validate:"required"`
	RequestedByRole string `json:"requested_by_role" validate:"required,oneof=student examiner"`
	RequestorEmail  string `json:"requestor_email" validate:"omitempty,email"`
	RequestedDate   string `json:"requested_date" validate:"required,datetime=2006-01-02"`
	RequestedStart  string `json:"requested_start" validate:"required"`
	RequestedEnd    string `json:"requested_end" validate:"required"`
	RequestedVenue  string `json:"requested_venue"`
	Reason          string `json:"reason" validate:"required"`
}

// Submit files a pending reschedule request for an existing presentation.
func (s *RescheduleService) Submit(ctx context.Context, req SubmitRescheduleRequest) (*models.RescheduleRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule request")
	}
	rng := models.TimeRange{Start: req.RequestedStart, End: req.RequestedEnd}
	if !rng.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requested range must fall within the operating day")
	}
	if _, err := s.bookings.Get(ctx, req.PresentationID); err != nil {
		return nil, err
	}

	request := &models.RescheduleRequest{
		PresentationID:  req.PresentationID,
		RequestedByID:   req.RequestedByID,
		RequestedByRole: req.RequestedByRole,
		RequestorEmail:  req.RequestorEmail,
		RequestedDate:   req.RequestedDate,
		RequestedStart:  req.RequestedStart,
		RequestedEnd:    req.RequestedEnd,
		RequestedVenue:  req.RequestedVenue,
		Reason:          req.Reason,
		Status:          models.RequestStatusPending,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reschedule request")
	}
	if s.notifier != nil {
		s.notifier.RequestSubmitted(request)
	}
	return request, nil
}

// ResolutionResult reports how a request left the Pending state.
type ResolutionResult struct {
	Request      *models.RescheduleRequest `json:"request"`
	AutoRejected bool                      `json:"auto_rejected"`
	Conflicts    []Conflict                `json:"conflicts,omitempty"`
}

// Resolve applies an admin decision to a pending request. An approval whose
// requested slot has since been taken flips to a rejection and reports the
// conflicts.
func (s *RescheduleService) Resolve(ctx context.Context, id, action string) (*ResolutionResult, error) {
	if action != models.RequestActionApprove && action != models.RequestActionReject {
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be Approve or Reject")
	}

	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reschedule request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reschedule request")
	}
	if request.Status != models.RequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrRequestResolved, "")
	}

	if action == models.RequestActionReject {
		if err := s.transition(ctx, request, models.RequestStatusRejected); err != nil {
			return nil, err
		}
		s.countResolution(ResolutionRejected)
		if s.notifier != nil {
			s.notifier.RequestResolved(request, false, "rejected by administrator")
		}
		return &ResolutionResult{Request: request}, nil
	}

	// Approval path. Participants are re-fetched so the check runs against
	// the presentation as it stands now, not as it stood at submission.
	p, err := s.bookings.Get(ctx, request.PresentationID)
	if err != nil {
		return nil, err
	}
	venueID := request.RequestedVenue
	if venueID == "" {
		venueID = p.VenueID
	}

	ok, conflicts, err := s.checker.Check(ctx, nil, AvailabilityRequest{
		Date:                 request.RequestedDate,
		TimeRange:            request.RequestedRange(),
		VenueID:              venueID,
		ExaminerIDs:          p.ExaminerIDs,
		StudentIDs:           p.StudentIDs,
		IgnorePresentationID: p.ID,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := s.transition(ctx, request, models.RequestStatusRejected); err != nil {
			return nil, err
		}
		s.countResolution(ResolutionAutoRejected)
		if s.notifier != nil {
			s.notifier.RequestResolved(request, false, "requested slot is no longer available")
		}
		s.logger.Info("reschedule request auto-rejected",
			zap.String("request_id", request.ID),
			zap.Int("conflicts", len(conflicts)))
		return &ResolutionResult{Request: request, AutoRejected: true, Conflicts: conflicts}, nil
	}

	if _, err := s.bookings.Move(ctx, nil, request.PresentationID, request.RequestedDate, request.RequestedRange(), venueID); err != nil {
		return nil, err
	}
	if err := s.transition(ctx, request, models.RequestStatusApproved); err != nil {
		return nil, err
	}
	s.countResolution(ResolutionApproved)
	if s.notifier != nil {
		s.notifier.RequestResolved(request, true, "")
	}
	return &ResolutionResult{Request: request}, nil
}

func (s *RescheduleService) transition(ctx context.Context, request *models.RescheduleRequest, status string) error {
	if err := s.requests.UpdateStatus(ctx, request.ID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrRequestResolved, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reschedule request")
	}
	request.Status = status
	return nil
}

// List returns requests, optionally filtered by status.
func (s *RescheduleService) List(ctx context.Context, status string) ([]models.RescheduleRequest, error) {
	switch status {
	case "", models.RequestStatusPending, models.RequestStatusApproved, models.RequestStatusRejected:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}
	rows, err := s.requests.List(ctx, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reschedule requests")
	}
	return rows, nil
}

// ListForRequester returns one user's requests.
func (s *RescheduleService) ListForRequester(ctx context.Context, requesterID string) ([]models.RescheduleRequest, error) {
	rows, err := s.requests.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reschedule requests")
	}
	return rows, nil
}

// Delete removes a request.
func (s *RescheduleService) Delete(ctx context.Context, id string) error {
	if err := s.requests.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "reschedule request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete reschedule request")
	}
	return nil
}

// DeleteResolvedForRequester removes every request a user filed that ended
// in the given terminal status. Pending requests are never bulk-deleted.
func (s *RescheduleService) DeleteResolvedForRequester(ctx context.Context, requesterID, status string) (int64, error) {
	if status != models.RequestStatusApproved && status != models.RequestStatusRejected {
		return 0, appErrors.Clone(appErrors.ErrValidation, "status must be Approved or Rejected")
	}
	removed, err := s.requests.DeleteForRequesterByStatus(ctx, requesterID, status)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete resolved reschedule requests")
	}
	return removed, nil
}

// PurgeRejectedOlderThan removes rejected requests older than age.
func (s *RescheduleService) PurgeRejectedOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	removed, err := s.requests.DeleteRejectedBefore(ctx, time.Now().UTC().Add(-age))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge rejected requests")
	}
	return removed, nil
}

func (s *RescheduleService) countResolution(outcome string) {
	if s.metrics != nil {
		s.metrics.RescheduleResolution(outcome)
	}
}

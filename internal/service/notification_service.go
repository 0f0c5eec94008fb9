package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unisched/presentation-api/internal/models"
	"github.com/unisched/presentation-api/pkg/config"
	"github.com/unisched/presentation-api/pkg/jobs"
	"github.com/unisched/presentation-api/pkg/mailer"
)

type notificationExaminerRepository interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Examiner, error)
	FindByID(ctx context.Context, id string) (*models.Examiner, error)
}

type notificationStudentRepository interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

type notificationGroupRepository interface {
	FindByGroupID(ctx context.Context, groupID string) (*models.StudentGroup, error)
}

// NotificationService composes and dispatches schedule emails. Delivery is
// fire-and-forget through the job queue: a failed send retries in the
// background and never fails the schedule change that triggered it.
type NotificationService struct {
	examiners notificationExaminerRepository
	students  notificationStudentRepository
	groups    notificationGroupRepository
	mailer    mailer.Mailer
	queue     *jobs.Queue
	cfg       config.NotificationsConfig
	logger    *zap.Logger
}

type emailJob struct {
	To      string
	Subject string
	Body    string
}

// NewNotificationService constructs the service and its delivery queue.
// Call Start before enqueueing and Stop on shutdown.
func NewNotificationService(
	examiners notificationExaminerRepository,
	students notificationStudentRepository,
	groups notificationGroupRepository,
	m mailer.Mailer,
	cfg config.NotificationsConfig,
	logger *zap.Logger,
) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		examiners: examiners,
		students:  students,
		groups:    groups,
		mailer:    m,
		cfg:       cfg,
		logger:    logger,
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.cfg.Enabled {
		s.queue.Start(ctx)
	}
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	if s.cfg.Enabled {
		s.queue.Stop()
	}
}

func (s *NotificationService) deliver(_ context.Context, job jobs.Job) error {
	email, ok := job.Payload.(emailJob)
	if !ok {
		s.logger.Error("notification job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.mailer.Send(email.To, email.Subject, email.Body)
}

func (s *NotificationService) enqueue(kind, to, subject, body string) {
	if !s.cfg.Enabled || to == "" {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    kind,
		Payload: emailJob{To: to, Subject: subject, Body: body},
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification", zap.String("type", kind), zap.Error(err))
	}
}

// BookingScheduled mails every participant of a new booking.
func (s *NotificationService) BookingScheduled(p *models.Presentation) {
	subject := fmt.Sprintf("Presentation scheduled: %s", p.Title)
	body := fmt.Sprintf("%q is scheduled on %s from %s to %s in venue %s.",
		p.Title, p.Date, p.TimeRange.Start, p.TimeRange.End, p.VenueID)
	s.mailParticipants(p, subject, body)
}

// BookingMoved mails every participant after a reschedule.
func (s *NotificationService) BookingMoved(p *models.Presentation, previousDate string) {
	subject := fmt.Sprintf("Presentation rescheduled: %s", p.Title)
	body := fmt.Sprintf("%q moved from %s to %s, now %s to %s in venue %s.",
		p.Title, previousDate, p.Date, p.TimeRange.Start, p.TimeRange.End, p.VenueID)
	s.mailParticipants(p, subject, body)
}

func (s *NotificationService) mailParticipants(p *models.Presentation, subject, body string) {
	ctx := context.Background()
	examiners, err := s.examiners.FindByIDs(ctx, p.ExaminerIDs)
	if err != nil {
		s.logger.Warn("failed to resolve examiner recipients", zap.Error(err))
	}
	for _, e := range examiners {
		s.enqueue("booking", e.Email, subject, body)
	}
	students, err := s.students.FindByIDs(ctx, p.StudentIDs)
	if err != nil {
		s.logger.Warn("failed to resolve student recipients", zap.Error(err))
	}
	for _, st := range students {
		s.enqueue("booking", st.Email, subject, body)
	}
}

// LecturesDisplaced mails the lecturer whose lectures were moved, then every
// student enrolled in the affected groups. Each address receives one mail
// even when a student sits in several displaced groups.
func (s *NotificationService) LecturesDisplaced(rec *models.RescheduledLecture) {
	ctx := context.Background()

	lectures, err := rec.DecodeLectures()
	if err != nil {
		s.logger.Warn("failed to decode displaced lectures", zap.Error(err))
	}
	var lines []string
	for _, lec := range lectures {
		lines = append(lines, fmt.Sprintf("  %s %s-%s in %s", lec.ModuleCode, lec.StartTime, lec.EndTime, lec.VenueID))
	}
	detail := strings.Join(lines, "\n")
	subject := fmt.Sprintf("Lectures moved from %s to %s", rec.OriginalDate, rec.RescheduledDate)

	lecturer, err := s.examiners.FindByID(ctx, rec.LecturerID)
	if err != nil {
		s.logger.Warn("failed to resolve displaced lecturer", zap.String("lecturer_id", rec.LecturerID), zap.Error(err))
	} else {
		body := fmt.Sprintf("Your lectures on %s were moved to %s:\n%s", rec.OriginalDate, rec.RescheduledDate, detail)
		s.enqueue("displacement", lecturer.Email, subject, body)
	}

	body := fmt.Sprintf("Lectures on %s were moved to %s:\n%s", rec.OriginalDate, rec.RescheduledDate, detail)
	for _, email := range s.groupStudentEmails(ctx, lectures) {
		s.enqueue("displacement", email, subject, body)
	}
}

// groupStudentEmails resolves the distinct addresses of every student in
// the displaced lectures' groups.
func (s *NotificationService) groupStudentEmails(ctx context.Context, lectures []models.DisplacedLecture) []string {
	if s.groups == nil {
		return nil
	}

	seenGroups := make(map[string]struct{})
	var studentIDs []string
	seenStudents := make(map[string]struct{})
	for _, lec := range lectures {
		if lec.GroupID == "" {
			continue
		}
		if _, ok := seenGroups[lec.GroupID]; ok {
			continue
		}
		seenGroups[lec.GroupID] = struct{}{}
		group, err := s.groups.FindByGroupID(ctx, lec.GroupID)
		if err != nil {
			s.logger.Warn("failed to resolve displaced group", zap.String("group_id", lec.GroupID), zap.Error(err))
			continue
		}
		for _, id := range group.StudentIDs {
			if _, ok := seenStudents[id]; ok {
				continue
			}
			seenStudents[id] = struct{}{}
			studentIDs = append(studentIDs, id)
		}
	}
	if len(studentIDs) == 0 {
		return nil
	}

	students, err := s.students.FindByIDs(ctx, studentIDs)
	if err != nil {
		s.logger.Warn("failed to resolve displaced group students", zap.Error(err))
		return nil
	}
	seenEmails := make(map[string]struct{}, len(students))
	var emails []string
	for _, st := range students {
		if st.Email == "" {
			continue
		}
		if _, ok := seenEmails[st.Email]; ok {
			continue
		}
		seenEmails[st.Email] = struct{}{}
		emails = append(emails, st.Email)
	}
	return emails
}

// RequestSubmitted mails the scheduling office about a new request.
func (s *NotificationService) RequestSubmitted(req *models.RescheduleRequest) {
	subject := "New reschedule request"
	body := fmt.Sprintf("Request %s asks to move presentation %s to %s %s-%s.\nReason: %s",
		req.ID, req.PresentationID, req.RequestedDate, req.RequestedStart, req.RequestedEnd, req.Reason)
	s.enqueue("reschedule-request", s.cfg.AdminEmail, subject, body)
}

// RequestResolved mails the requester with the decision.
func (s *NotificationService) RequestResolved(req *models.RescheduleRequest, approved bool, reason string) {
	decision := "approved"
	if !approved {
		decision = "rejected"
	}
	subject := fmt.Sprintf("Reschedule request %s", decision)
	body := fmt.Sprintf("Your request to move presentation %s to %s %s-%s was %s.",
		req.PresentationID, req.RequestedDate, req.RequestedStart, req.RequestedEnd, decision)
	if reason != "" {
		body += "\nReason: " + reason
	}
	s.enqueue("reschedule-resolution", req.RequestorEmail, subject, body)
}

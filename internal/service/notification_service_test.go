package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisched/presentation-api/internal/models"
	"github.com/unisched/presentation-api/pkg/config"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *captureMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

func (m *captureMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	copy(out, m.sent)
	return out
}

type mockNotificationExaminers struct {
	byID map[string]models.Examiner
}

func (m *mockNotificationExaminers) FindByIDs(ctx context.Context, ids []string) ([]models.Examiner, error) {
	var out []models.Examiner
	for _, id := range ids {
		if e, ok := m.byID[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockNotificationExaminers) FindByID(ctx context.Context, id string) (*models.Examiner, error) {
	e, ok := m.byID[id]
	if !ok {
		return nil, assert.AnError
	}
	return &e, nil
}

type mockNotificationStudents struct {
	byID map[string]models.Student
}

func (m *mockNotificationStudents) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	var out []models.Student
	for _, id := range ids {
		if st, ok := m.byID[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

type mockNotificationGroups struct {
	byGroupID map[string][]string
}

func (m *mockNotificationGroups) FindByGroupID(ctx context.Context, groupID string) (*models.StudentGroup, error) {
	members, ok := m.byGroupID[groupID]
	if !ok {
		return nil, assert.AnError
	}
	return &models.StudentGroup{ID: "row-" + groupID, GroupID: groupID, StudentIDs: members}, nil
}

func testNotificationsConfig() config.NotificationsConfig {
	return config.NotificationsConfig{
		Enabled:    true,
		Workers:    1,
		BufferSize: 16,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
		AdminEmail: "office@uni.edu",
	}
}

func TestNotificationServiceLecturesDisplaced(t *testing.T) {
	examiners := &mockNotificationExaminers{byID: map[string]models.Examiner{
		"lect-1": {ID: "lect-1", Email: "lect-1@uni.edu"},
	}}
	students := &mockNotificationStudents{byID: map[string]models.Student{
		"s1": {ID: "s1", Email: "s1@uni.edu"},
		"s2": {ID: "s2", Email: "s2@uni.edu"},
		"s3": {ID: "s3", Email: "s1@uni.edu"}, // shares an inbox with s1
	}}
	groups := &mockNotificationGroups{byGroupID: map[string][]string{
		"G1": {"s1", "s2"},
		"G2": {"s2", "s3"},
	}}
	mail := &captureMailer{}

	svc := NewNotificationService(examiners, students, groups, mail, testNotificationsConfig(), nil)
	svc.Start(context.Background())
	defer svc.Stop()

	lectures, err := models.EncodeLectures([]models.DisplacedLecture{
		{StartTime: "08:00", EndTime: "09:00", ModuleCode: "CS101", VenueID: "venue-9", GroupID: "G1"},
		{StartTime: "09:00", EndTime: "10:00", ModuleCode: "CS102", VenueID: "venue-9", GroupID: "G2"},
	})
	require.NoError(t, err)

	svc.LecturesDisplaced(&models.RescheduledLecture{
		LecturerID:      "lect-1",
		OriginalDate:    "2026-09-07",
		RescheduledDate: "2026-09-08",
		Lectures:        lectures,
	})

	// Lecturer plus two distinct student inboxes.
	require.Eventually(t, func() bool {
		return len(mail.recipients()) == 3
	}, time.Second, 10*time.Millisecond)

	got := mail.recipients()
	assert.Contains(t, got, "lect-1@uni.edu")
	assert.Contains(t, got, "s1@uni.edu")
	assert.Contains(t, got, "s2@uni.edu")

	// No duplicate deliveries arrive afterwards.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, mail.recipients(), 3)
}

func TestNotificationServiceDisabled(t *testing.T) {
	cfg := testNotificationsConfig()
	cfg.Enabled = false
	mail := &captureMailer{}

	svc := NewNotificationService(
		&mockNotificationExaminers{}, &mockNotificationStudents{}, &mockNotificationGroups{},
		mail, cfg, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.RequestSubmitted(&models.RescheduleRequest{ID: "req-1", PresentationID: "pres-1"})

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, mail.recipients())
}

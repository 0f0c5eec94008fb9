package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisched/presentation-api/internal/models"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
)

type mockRequestRepo struct {
	requests map[string]models.RescheduleRequest
	statuses map[string]string
}

func (m *mockRequestRepo) Create(ctx context.Context, req *models.RescheduleRequest) error {
	if m.requests == nil {
		m.requests = make(map[string]models.RescheduleRequest)
	}
	if req.ID == "" {
		req.ID = "new-req"
	}
	m.requests[req.ID] = *req
	return nil
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*models.RescheduleRequest, error) {
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestRepo) UpdateStatus(ctx context.Context, id, status string) error {
	r, ok := m.requests[id]
	if !ok || r.Status != models.RequestStatusPending {
		return sql.ErrNoRows
	}
	r.Status = status
	m.requests[id] = r
	if m.statuses == nil {
		m.statuses = make(map[string]string)
	}
	m.statuses[id] = status
	return nil
}

func (m *mockRequestRepo) List(ctx context.Context, status string) ([]models.RescheduleRequest, error) {
	return nil, nil
}

func (m *mockRequestRepo) ListByRequester(ctx context.Context, requesterID string) ([]models.RescheduleRequest, error) {
	return nil, nil
}

func (m *mockRequestRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.requests[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.requests, id)
	return nil
}

func (m *mockRequestRepo) DeleteRejectedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *mockRequestRepo) DeleteForRequesterByStatus(ctx context.Context, requesterID, status string) (int64, error) {
	var removed int64
	for id, r := range m.requests {
		if r.RequestedByID == requesterID && r.Status == status {
			delete(m.requests, id)
			removed++
		}
	}
	return removed, nil
}

type mockRescheduleBookings struct {
	presentations map[string]models.Presentation
	moved         []string
}

func (m *mockRescheduleBookings) Get(ctx context.Context, id string) (*models.Presentation, error) {
	if p, ok := m.presentations[id]; ok {
		return &p, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "presentation not found")
}

func (m *mockRescheduleBookings) Move(ctx context.Context, exec sqlx.ExtContext, id string, date string, rng models.TimeRange, venueID string) (*models.Presentation, error) {
	m.moved = append(m.moved, id+"->"+date+" "+rng.Start)
	p := m.presentations[id]
	p.Date = date
	p.TimeRange = rng
	m.presentations[id] = p
	return &p, nil
}

type mockRescheduleNotifier struct {
	submitted []string
	resolved  []string
}

func (m *mockRescheduleNotifier) RequestSubmitted(req *models.RescheduleRequest) {
	m.submitted = append(m.submitted, req.ID)
}

func (m *mockRescheduleNotifier) RequestResolved(req *models.RescheduleRequest, approved bool, reason string) {
	decision := "rejected"
	if approved {
		decision = "approved"
	}
	m.resolved = append(m.resolved, req.ID+":"+decision)
}

func pendingRequest(id string) models.RescheduleRequest {
	return models.RescheduleRequest{
		ID:             id,
		PresentationID: "pres-1",
		RequestedByID:  "ex-1",
		RequestedDate:  "2026-09-10",
		RequestedStart: "14:00",
		RequestedEnd:   "15:00",
		Status:         models.RequestStatusPending,
	}
}

func newRescheduleFixture(checkerOK bool, conflicts []Conflict) (*RescheduleService, *mockRequestRepo, *mockRescheduleBookings, *mockRescheduleNotifier) {
	requests := &mockRequestRepo{requests: map[string]models.RescheduleRequest{
		"req-1": pendingRequest("req-1"),
	}}
	bookings := &mockRescheduleBookings{presentations: map[string]models.Presentation{
		"pres-1": booking("pres-1", "venue-1", "09:00", "10:00", []string{"ex-1"}, []string{"st-1"}),
	}}
	notifier := &mockRescheduleNotifier{}
	svc := NewRescheduleService(requests, bookings, &mockChecker{ok: checkerOK, conflicts: conflicts}, notifier, nil, nil, nil)
	return svc, requests, bookings, notifier
}

func TestRescheduleServiceSubmit(t *testing.T) {
	svc, requests, _, notifier := newRescheduleFixture(true, nil)

	req, err := svc.Submit(context.Background(), SubmitRescheduleRequest{
		PresentationID:  "pres-1",
		RequestedByID:   "ex-1",
		RequestedByRole: "examiner",
		RequestedDate:   "2026-09-10",
		RequestedStart:  "14:00",
		RequestedEnd:    "15:00",
		Reason:          "clash with departmental meeting",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Contains(t, requests.requests, req.ID)
	assert.Equal(t, []string{req.ID}, notifier.submitted)
}

func TestRescheduleServiceSubmitUnknownPresentation(t *testing.T) {
	svc, _, _, _ := newRescheduleFixture(true, nil)

	_, err := svc.Submit(context.Background(), SubmitRescheduleRequest{
		PresentationID:  "pres-9",
		RequestedByID:   "ex-1",
		RequestedByRole: "examiner",
		RequestedDate:   "2026-09-10",
		RequestedStart:  "14:00",
		RequestedEnd:    "15:00",
		Reason:          "clash",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestRescheduleServiceResolve(t *testing.T) {
	t.Run("approve moves the presentation", func(t *testing.T) {
		svc, requests, bookings, notifier := newRescheduleFixture(true, nil)

		result, err := svc.Resolve(context.Background(), "req-1", models.RequestActionApprove)
		require.NoError(t, err)
		assert.False(t, result.AutoRejected)
		assert.Equal(t, models.RequestStatusApproved, result.Request.Status)
		assert.Equal(t, []string{"pres-1->2026-09-10 14:00"}, bookings.moved)
		assert.Equal(t, models.RequestStatusApproved, requests.statuses["req-1"])
		assert.Equal(t, []string{"req-1:approved"}, notifier.resolved)
	})

	t.Run("stale slot flips approval to rejection", func(t *testing.T) {
		svc, requests, bookings, notifier := newRescheduleFixture(false, []Conflict{{PresentationID: "pres-2", Resource: ResourceVenue}})

		result, err := svc.Resolve(context.Background(), "req-1", models.RequestActionApprove)
		require.NoError(t, err)
		assert.True(t, result.AutoRejected)
		assert.Equal(t, models.RequestStatusRejected, result.Request.Status)
		require.Len(t, result.Conflicts, 1)
		assert.Empty(t, bookings.moved)
		assert.Equal(t, models.RequestStatusRejected, requests.statuses["req-1"])
		assert.Equal(t, []string{"req-1:rejected"}, notifier.resolved)
	})

	t.Run("reject skips the availability check", func(t *testing.T) {
		svc, requests, bookings, _ := newRescheduleFixture(false, nil)

		result, err := svc.Resolve(context.Background(), "req-1", models.RequestActionReject)
		require.NoError(t, err)
		assert.False(t, result.AutoRejected)
		assert.Equal(t, models.RequestStatusRejected, result.Request.Status)
		assert.Empty(t, bookings.moved)
		assert.Equal(t, models.RequestStatusRejected, requests.statuses["req-1"])
	})

	t.Run("resolved request cannot be resolved again", func(t *testing.T) {
		svc, requests, _, _ := newRescheduleFixture(true, nil)
		r := requests.requests["req-1"]
		r.Status = models.RequestStatusApproved
		requests.requests["req-1"] = r

		_, err := svc.Resolve(context.Background(), "req-1", models.RequestActionReject)
		assert.True(t, appErrors.Is(err, appErrors.ErrRequestResolved))
	})

	t.Run("unknown action is rejected", func(t *testing.T) {
		svc, _, _, _ := newRescheduleFixture(true, nil)

		_, err := svc.Resolve(context.Background(), "req-1", "Defer")
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	})

	t.Run("unknown request reports not found", func(t *testing.T) {
		svc, _, _, _ := newRescheduleFixture(true, nil)

		_, err := svc.Resolve(context.Background(), "req-9", models.RequestActionApprove)
		assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	})
}

func TestRescheduleServiceDeleteResolvedForRequester(t *testing.T) {
	t.Run("removes only the matching terminal requests", func(t *testing.T) {
		svc, requests, _, _ := newRescheduleFixture(true, nil)
		approved := pendingRequest("req-2")
		approved.Status = models.RequestStatusApproved
		rejected := pendingRequest("req-3")
		rejected.Status = models.RequestStatusRejected
		requests.requests["req-2"] = approved
		requests.requests["req-3"] = rejected

		removed, err := svc.DeleteResolvedForRequester(context.Background(), "ex-1", models.RequestStatusApproved)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)
		assert.NotContains(t, requests.requests, "req-2")
		assert.Contains(t, requests.requests, "req-1")
		assert.Contains(t, requests.requests, "req-3")
	})

	t.Run("pending is not a deletable status", func(t *testing.T) {
		svc, requests, _, _ := newRescheduleFixture(true, nil)

		_, err := svc.DeleteResolvedForRequester(context.Background(), "ex-1", models.RequestStatusPending)
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
		assert.Contains(t, requests.requests, "req-1")
	})
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

type pendingStub struct {
	requests []models.PTSRequest
	err      error
}

func (p pendingStub) ListPending(ctx context.Context) ([]models.PTSRequest, error) {
	return p.requests, p.err
}

type markerStub struct {
	seen map[string]bool
	keys []string
}

func (m *markerStub) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	m.keys = append(m.keys, key)
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

type notificationStoreStub struct {
	created []*models.Notification
	err     error
}

func (n *notificationStoreStub) Create(ctx context.Context, notification *models.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.created = append(n.created, notification)
	return nil
}

func (n *notificationStoreStub) ListByRole(ctx context.Context, role models.UserRole, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, item := range n.created {
		if item.RecipientRole == role {
			out = append(out, *item)
		}
	}
	return out, nil
}

type fixedHolidays []time.Time

func (f fixedHolidays) Between(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	return f, nil
}

func newReminderServiceForTest(pending pendingStub, holidays fixedHolidays) (*ReminderService, *markerStub, *notificationStoreStub) {
	marker := &markerStub{}
	store := &notificationStoreStub{}
	svc := NewReminderService(pending, marker, NewInAppNotifier(store, nil), store, holidays, nil, nil,
		ReminderConfig{SLABusinessDays: 3, DedupTTL: time.Hour})
	svc.now = func() time.Time { return time.Date(2024, 3, 8, 10, 0, 0, 0, time.UTC) }
	return svc, marker, store
}

func TestReminderServiceNotifiesOverdueStepsOnce(t *testing.T) {
	pending := pendingStub{requests: []models.PTSRequest{
		{ID: "overdue", CitizenID: "1100000000001", CurrentStep: 2, StepStartedAt: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)},
		{ID: "fresh", CitizenID: "1100000000002", CurrentStep: 1, StepStartedAt: time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC)},
	}}
	svc, marker, store := newReminderServiceForTest(pending, nil)

	sent, err := svc.SendOverdueReminders(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Len(t, store.created, 1)
	assert.Equal(t, models.RoleDeptHead, store.created[0].RecipientRole)
	assert.Equal(t, "overdue", store.created[0].RefID)
	assert.Contains(t, store.created[0].Message, "4 business days")
	assert.Equal(t, []string{"reminder:overdue:2"}, marker.keys)

	sent, err = svc.SendOverdueReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, store.created, 1)
}

func TestReminderServiceSkipsHolidays(t *testing.T) {
	pending := pendingStub{requests: []models.PTSRequest{
		{ID: "r-1", CurrentStep: 3, StepStartedAt: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)},
	}}
	svc, _, store := newReminderServiceForTest(pending, fixedHolidays{
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
	})

	sent, err := svc.SendOverdueReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, store.created)
}

func TestReminderServiceDeliveryFailureIsNotFatal(t *testing.T) {
	pending := pendingStub{requests: []models.PTSRequest{
		{ID: "r-1", CurrentStep: 6, StepStartedAt: time.Date(2024, 2, 26, 9, 0, 0, 0, time.UTC)},
	}}
	svc, _, store := newReminderServiceForTest(pending, nil)
	store.err = errors.New("insert failed")

	sent, err := svc.SendOverdueReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	svc.requests = pendingStub{err: errors.New("db down")}
	require.Error(t, svc.Run(context.Background()))
}

func TestReminderServiceInbox(t *testing.T) {
	svc, _, store := newReminderServiceForTest(pendingStub{}, nil)
	store.created = append(store.created,
		&models.Notification{RecipientRole: models.RoleDirector, RefID: "a"},
		&models.Notification{RecipientRole: models.RoleHRHead, RefID: "b"},
	)
	items, err := svc.Inbox(context.Background(), models.RoleDirector, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].RefID)
}

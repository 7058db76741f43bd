package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/pts-payroll-api/internal/models"
	"github.com/noah-isme/pts-payroll-api/internal/payroll"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
)

type pendingRequestLister interface {
	ListPending(ctx context.Context) ([]models.PTSRequest, error)
}

type onceMarker interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRole(ctx context.Context, role models.UserRole, limit int) ([]models.Notification, error)
}

// Notifier delivers a notification. Implementations must not block the caller on slow channels.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// InAppNotifier persists notifications for the in-app inbox.
type InAppNotifier struct {
	store  notificationStore
	logger *zap.Logger
}

// NewInAppNotifier constructs the notifier.
func NewInAppNotifier(store notificationStore, logger *zap.Logger) *InAppNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InAppNotifier{store: store, logger: logger}
}

// Notify stores n and logs the delivery.
func (n *InAppNotifier) Notify(ctx context.Context, notification *models.Notification) error {
	if err := n.store.Create(ctx, notification); err != nil {
		return err
	}
	n.logger.Info("notification queued",
		zap.String("role", string(notification.RecipientRole)),
		zap.String("ref_type", notification.RefType),
		zap.String("ref_id", notification.RefID))
	return nil
}

// ReminderConfig controls SLA reminders.
type ReminderConfig struct {
	SLABusinessDays int
	DedupTTL        time.Duration
}

// ReminderService nudges approvers about requests that have waited too long at their step.
type ReminderService struct {
	requests pendingRequestLister
	marker   onceMarker
	notifier Notifier
	inbox    notificationStore
	holidays holidaySource
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      ReminderConfig
	now      func() time.Time
}

// NewReminderService constructs the service.
func NewReminderService(requests pendingRequestLister, marker onceMarker, notifier Notifier, inbox notificationStore,
	holidays holidaySource, metrics *MetricsService, logger *zap.Logger, cfg ReminderConfig) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SLABusinessDays <= 0 {
		cfg.SLABusinessDays = 3
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}
	return &ReminderService{
		requests: requests,
		marker:   marker,
		notifier: notifier,
		inbox:    inbox,
		holidays: holidays,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SendOverdueReminders notifies the step role of every pending request whose business days at
// the current step reached the SLA. Each request/step pair is reminded at most once per dedup TTL.
func (s *ReminderService) SendOverdueReminders(ctx context.Context) (int, error) {
	pending, err := s.requests.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending requests: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	now := s.now()
	from := now
	for _, req := range pending {
		if req.StepStartedAt.Before(from) {
			from = req.StepStartedAt
		}
	}
	holidays, err := s.holidays.Between(ctx, payroll.Truncate(from), payroll.Truncate(now))
	if err != nil {
		return 0, fmt.Errorf("load holidays: %w", err)
	}
	calendar := payroll.NewCalendar(holidays)

	sent := 0
	for _, req := range pending {
		waited := calendar.CountBusinessDays(req.StepStartedAt, now)
		if waited < s.cfg.SLABusinessDays {
			continue
		}
		role, ok := models.ApprovalSteps[req.CurrentStep]
		if !ok {
			continue
		}

		first, err := s.marker.MarkOnce(ctx, fmt.Sprintf("reminder:%s:%d", req.ID, req.CurrentStep), s.cfg.DedupTTL)
		if err != nil {
			s.logger.Warn("reminder dedup failed", zap.String("request_id", req.ID), zap.Error(err))
			continue
		}
		if !first {
			continue
		}

		notification := &models.Notification{
			RecipientRole: role,
			Title:         "PTS request awaiting approval",
			Message:       fmt.Sprintf("Request %s for %s has waited %d business days at step %d", req.ID, req.CitizenID, waited, req.CurrentStep),
			RefType:       "pts_request",
			RefID:         req.ID,
			CreatedAt:     now,
		}
		if err := s.notifier.Notify(ctx, notification); err != nil {
			s.logger.Warn("reminder delivery failed", zap.String("request_id", req.ID), zap.Error(err))
			continue
		}
		s.metrics.RecordReminder()
		sent++
	}
	if sent > 0 {
		s.logger.Info("sla reminders sent", zap.Int("count", sent))
	}
	return sent, nil
}

// Run adapts SendOverdueReminders to the scheduler task signature.
func (s *ReminderService) Run(ctx context.Context) error {
	_, err := s.SendOverdueReminders(ctx)
	return err
}

// Inbox lists notifications addressed to role.
func (s *ReminderService) Inbox(ctx context.Context, role models.UserRole, limit int) ([]models.Notification, error) {
	notifications, err := s.inbox.ListByRole(ctx, role, limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list notifications")
	}
	return notifications, nil
}

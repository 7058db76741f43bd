package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/pts-payroll-api/internal/dto"
	"github.com/noah-isme/pts-payroll-api/internal/models"
	"github.com/noah-isme/pts-payroll-api/internal/payroll"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
	"github.com/noah-isme/pts-payroll-api/pkg/jobs"
)

const payrollRunJobType = "payroll.run"

type periodStore interface {
	Create(ctx context.Context, period *models.PayPeriod) error
	GetByID(ctx context.Context, id int64) (*models.PayPeriod, error)
	FindByYearMonth(ctx context.Context, year, month int) (*models.PayPeriod, error)
	List(ctx context.Context, year int) ([]models.PayPeriod, error)
	TransitionStatus(ctx context.Context, id int64, from, to models.PeriodStatus) error
	UpdateTotals(ctx context.Context, id int64, total decimal.Decimal, headcount int) error
	Close(ctx context.Context, id int64, actorID string, at time.Time) error
}

type payoutStore interface {
	SavePayout(ctx context.Context, tx *sqlx.Tx, periodID int64, citizenID string, result *models.PayoutResult, masterRateID *int64, rateSnapshot decimal.Decimal, refYear, refMonth int) (string, error)
	DeleteForCitizen(ctx context.Context, tx *sqlx.Tx, periodID int64, citizenID string) error
	ListByPeriod(ctx context.Context, periodID int64) ([]models.PayoutSummary, error)
	ListItems(ctx context.Context, payoutID string) ([]models.PayoutItem, error)
	PeriodTotals(ctx context.Context, periodID int64) (decimal.Decimal, int, error)
}

type citizenLister interface {
	ListCitizensWithin(ctx context.Context, from, to time.Time) ([]string, error)
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type DistributedLock interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

type payrollCalculator interface {
	CalculateMonthly(ctx context.Context, citizenID string, year, month int) (*models.PayoutResult, error)
	CalculateRetroactive(ctx context.Context, citizenID string, year, month, lookBack int) (*models.RetroResult, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// PayrollRunConfig tunes period runs.
type PayrollRunConfig struct {
	LockTTL time.Duration
}

// PayrollRunService manages pay periods and executes period runs in the background.
type PayrollRunService struct {
	periods    periodStore
	payouts    payoutStore
	citizens   citizenLister
	tx         txRunner
	lock       DistributedLock
	calculator payrollCalculator
	queue      jobEnqueuer
	audit      auditLogger
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        PayrollRunConfig
}

// NewPayrollRunService constructs the service. lock may be nil when Redis is unavailable, in which
// case only the period status guards against concurrent runs.
func NewPayrollRunService(periods periodStore, payouts payoutStore, citizens citizenLister, tx txRunner, lock DistributedLock,
	calculator payrollCalculator, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg PayrollRunConfig) *PayrollRunService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	return &PayrollRunService{
		periods:    periods,
		payouts:    payouts,
		citizens:   citizens,
		tx:         tx,
		lock:       lock,
		calculator: calculator,
		audit:      audit,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

// AttachQueue sets the queue RunPeriod dispatches to. Without one, runs execute inline.
func (s *PayrollRunService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// CreatePeriod opens a pay period for a calendar month.
func (s *PayrollRunService) CreatePeriod(ctx context.Context, req dto.CreatePeriodRequest, actorID string) (*models.PayPeriod, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	if _, err := s.periods.FindByYearMonth(ctx, req.Year, req.Month); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("period %04d-%02d already exists", req.Year, req.Month))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check period")
	}

	period := &models.PayPeriod{Year: req.Year, Month: req.Month}
	if err := s.periods.Create(ctx, period); err != nil {
		return nil, appErrors.Internal(err, "failed to create period")
	}
	s.auditPeriod(ctx, actorID, models.AuditActionPeriodCreate, period.ID, fmt.Sprintf(`{"year":%d,"month":%d}`, period.Year, period.Month))
	return period, nil
}

// ListPeriods returns periods, optionally for one year.
func (s *PayrollRunService) ListPeriods(ctx context.Context, year int) ([]models.PayPeriod, error) {
	periods, err := s.periods.List(ctx, year)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list periods")
	}
	return periods, nil
}

// GetPeriod returns one period.
func (s *PayrollRunService) GetPeriod(ctx context.Context, id int64) (*models.PayPeriod, error) {
	period, err := s.periods.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.Internal(err, "failed to load period")
	}
	return period, nil
}

// RunPeriod schedules a run for an OPEN period. The returned period reflects its state at
// scheduling time; progress is visible through GetPeriod.
func (s *PayrollRunService) RunPeriod(ctx context.Context, id int64, actorID string) (*models.PayPeriod, error) {
	period, err := s.GetPeriod(ctx, id)
	if err != nil {
		return nil, err
	}
	switch period.Status {
	case models.PeriodStatusClosed:
		return nil, appErrors.ErrPeriodClosed
	case models.PeriodStatusProcessing:
		return nil, appErrors.Clone(appErrors.ErrLocked, "period run already in progress")
	}

	s.auditPeriod(ctx, actorID, models.AuditActionPeriodRun, period.ID, "")
	if s.queue == nil {
		if _, err := s.Execute(ctx, period.ID); err != nil {
			return nil, err
		}
		return s.GetPeriod(ctx, period.ID)
	}

	job := jobs.Job{ID: runJobID(period.ID), Type: payrollRunJobType, Payload: period.ID}
	if err := s.queue.Enqueue(job); err != nil {
		if errors.Is(err, jobs.ErrDuplicateJob) {
			return nil, appErrors.Clone(appErrors.ErrLocked, "period run already queued")
		}
		return nil, appErrors.Internal(err, "failed to queue period run")
	}
	return period, nil
}

// HandleJob is the queue handler for period runs.
func (s *PayrollRunService) HandleJob(ctx context.Context, job jobs.Job) error {
	periodID, ok := job.Payload.(int64)
	if !ok {
		return fmt.Errorf("payroll run job %s: unexpected payload %T", job.ID, job.Payload)
	}
	summary, err := s.Execute(ctx, periodID)
	if err != nil {
		return err
	}
	s.logger.Info("payroll period run finished",
		zap.Int64("period_id", summary.PeriodID),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.String("total", summary.Total.StringFixed(2)))
	return nil
}

// Execute runs the period synchronously: lock, mark PROCESSING, compute and persist every eligible
// employee one at a time, store totals and return the period to OPEN. A failure for one employee
// rolls back only that employee.
func (s *PayrollRunService) Execute(ctx context.Context, periodID int64) (*dto.RunSummary, error) {
	started := time.Now()
	lockKey := fmt.Sprintf("payroll:period:%d", periodID)
	token := uuid.NewString()
	if s.lock != nil {
		acquired, err := s.lock.AcquireLock(ctx, lockKey, token, s.cfg.LockTTL)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to acquire period lock")
		}
		if !acquired {
			return nil, appErrors.Clone(appErrors.ErrLocked, "period run already in progress")
		}
		defer func() {
			if err := s.lock.ReleaseLock(context.Background(), lockKey, token); err != nil {
				s.logger.Warn("failed to release period lock", zap.Int64("period_id", periodID), zap.Error(err))
			}
		}()
	}

	period, err := s.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if err := s.periods.TransitionStatus(ctx, periodID, models.PeriodStatusOpen, models.PeriodStatusProcessing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "period is not open")
		}
		return nil, appErrors.Internal(err, "failed to mark period processing")
	}
	defer func() {
		if err := s.periods.TransitionStatus(context.Background(), periodID, models.PeriodStatusProcessing, models.PeriodStatusOpen); err != nil {
			s.logger.Error("failed to reopen period after run", zap.Int64("period_id", periodID), zap.Error(err))
		}
	}()

	monthStart, monthEnd := payroll.MonthBounds(period.Year, period.Month)
	citizens, err := s.citizens.ListCitizensWithin(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list eligible employees")
	}

	summary := &dto.RunSummary{PeriodID: periodID, Total: decimal.Zero}
	for _, citizenID := range citizens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.processCitizen(ctx, period, citizenID); err != nil {
			summary.Failed++
			s.metrics.RecordPayrollEmployee(false)
			s.logger.Error("payroll calculation failed for employee",
				zap.Int64("period_id", periodID), zap.String("citizen_id", citizenID), zap.Error(err))
			continue
		}
		summary.Processed++
		s.metrics.RecordPayrollEmployee(true)
	}

	total, headcount, err := s.payouts.PeriodTotals(ctx, periodID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to total payouts")
	}
	if err := s.periods.UpdateTotals(ctx, periodID, total, headcount); err != nil {
		return nil, appErrors.Internal(err, "failed to store period totals")
	}
	summary.Total = total
	s.metrics.ObservePayrollRun(time.Since(started))
	return summary, nil
}

func (s *PayrollRunService) processCitizen(ctx context.Context, period *models.PayPeriod, citizenID string) error {
	result, err := s.calculator.CalculateMonthly(ctx, citizenID, period.Year, period.Month)
	if err != nil {
		return fmt.Errorf("calculate monthly: %w", err)
	}
	retro, err := s.calculator.CalculateRetroactive(ctx, citizenID, period.Year, period.Month, 0)
	if err != nil {
		return fmt.Errorf("calculate retroactive: %w", err)
	}
	result.RetroactiveTotal = retro.Total
	result.RetroDetails = retro.Details

	return s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.payouts.DeleteForCitizen(ctx, tx, period.ID, citizenID); err != nil {
			return err
		}
		_, err := s.payouts.SavePayout(ctx, tx, period.ID, citizenID, result, result.MasterRateID, result.RateSnapshot, period.Year, period.Month)
		return err
	})
}

// ClosePeriod moves an OPEN period to CLOSED.
func (s *PayrollRunService) ClosePeriod(ctx context.Context, id int64, actorID string) (*models.PayPeriod, error) {
	period, err := s.GetPeriod(ctx, id)
	if err != nil {
		return nil, err
	}
	if period.Status == models.PeriodStatusClosed {
		return nil, appErrors.ErrPeriodClosed
	}
	if err := s.periods.Close(ctx, id, actorID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only an open period can be closed")
		}
		return nil, appErrors.Internal(err, "failed to close period")
	}
	s.auditPeriod(ctx, actorID, models.AuditActionPeriodClose, id, "")
	return s.GetPeriod(ctx, id)
}

// ListPayouts returns the payouts of a period.
func (s *PayrollRunService) ListPayouts(ctx context.Context, periodID int64) ([]models.PayoutSummary, error) {
	if _, err := s.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}
	payouts, err := s.payouts.ListByPeriod(ctx, periodID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list payouts")
	}
	return payouts, nil
}

// ListPayoutItems returns the lines of one payout.
func (s *PayrollRunService) ListPayoutItems(ctx context.Context, payoutID string) ([]models.PayoutItem, error) {
	items, err := s.payouts.ListItems(ctx, payoutID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list payout items")
	}
	return items, nil
}

func (s *PayrollRunService) auditPeriod(ctx context.Context, actorID, action string, periodID int64, payload string) {
	id := strconv.FormatInt(periodID, 10)
	log := &models.AuditLog{
		UserID:     optionalString(actorID),
		Action:     action,
		Resource:   "pay_period",
		ResourceID: &id,
	}
	if payload != "" {
		log.NewValues = []byte(payload)
	}
	emitAudit(ctx, s.audit, s.logger, log)
}

func runJobID(periodID int64) string {
	return "payroll-run-" + strconv.FormatInt(periodID, 10)
}

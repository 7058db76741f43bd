package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/pts-payroll-api/internal/models"
	"github.com/noah-isme/pts-payroll-api/internal/payroll"
	appErrors "github.com/noah-isme/pts-payroll-api/pkg/errors"
)

type windowReader interface {
	ListOverlapping(ctx context.Context, citizenID string, from, to time.Time) ([]models.EligibilityWindow, error)
}

type employeeReader interface {
	FindByCitizenID(ctx context.Context, citizenID string) (*models.Employee, error)
	ListMovements(ctx context.Context, citizenID string, upTo time.Time) ([]models.EmploymentMovement, error)
	ListLicenses(ctx context.Context, citizenID string) ([]models.LicenseRecord, error)
}

type leaveReader interface {
	ListByFiscalYear(ctx context.Context, citizenID string, fiscalYear int) ([]models.LeaveRecord, error)
	FindQuota(ctx context.Context, citizenID string, fiscalYear int) (*models.LeaveQuota, error)
}

type holidaySource interface {
	Between(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

type periodLookup interface {
	FindByYearMonth(ctx context.Context, year, month int) (*models.PayPeriod, error)
}

type payoutBaseline interface {
	FindCalculatedAmount(ctx context.Context, periodID int64, citizenID string) (decimal.Decimal, bool, error)
	SumRetroAdjustments(ctx context.Context, citizenID string, refYear, refMonth int, excludePeriodID int64) (decimal.Decimal, error)
}

// PayrollConfig tunes the calculation service.
type PayrollConfig struct {
	FiscalYearOffset    int
	RetroLookBackMonths int
}

// PayrollService loads employee data and runs the monthly and retroactive calculations.
type PayrollService struct {
	windows   windowReader
	employees employeeReader
	leaves    leaveReader
	holidays  holidaySource
	periods   periodLookup
	payouts   payoutBaseline
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       PayrollConfig
}

// NewPayrollService constructs the service.
func NewPayrollService(windows windowReader, employees employeeReader, leaves leaveReader, holidays holidaySource,
	periods periodLookup, payouts payoutBaseline, metrics *MetricsService, logger *zap.Logger, cfg PayrollConfig) *PayrollService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetroLookBackMonths <= 0 {
		cfg.RetroLookBackMonths = 6
	}
	return &PayrollService{
		windows:   windows,
		employees: employees,
		leaves:    leaves,
		holidays:  holidays,
		periods:   periods,
		payouts:   payouts,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// LookBackMonths returns the configured retro window.
func (s *PayrollService) LookBackMonths() int {
	return s.cfg.RetroLookBackMonths
}

// CalculateMonthly computes one employee's payout for a calendar month. Reference data is
// loaded concurrently; any storage error aborts the calculation.
func (s *PayrollService) CalculateMonthly(ctx context.Context, citizenID string, year, month int) (*models.PayoutResult, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	monthStart, monthEnd := payroll.MonthBounds(year, month)
	fiscalYear := payroll.FiscalYear(year, month, s.cfg.FiscalYearOffset)
	holidayFrom, holidayTo := holidayRange(year, month)

	in := payroll.MonthlyInput{Year: year, Month: month}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		windows, err := s.windows.ListOverlapping(gctx, citizenID, monthStart, monthEnd)
		if err != nil {
			return fmt.Errorf("load eligibility windows: %w", err)
		}
		in.Windows = windows
		return nil
	})
	g.Go(func() error {
		movements, err := s.employees.ListMovements(gctx, citizenID, monthEnd)
		if err != nil {
			return fmt.Errorf("load movements: %w", err)
		}
		in.Movements = movements
		return nil
	})
	g.Go(func() error {
		employee, err := s.employees.FindByCitizenID(gctx, citizenID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("load employee: %w", err)
		}
		in.PositionName = employee.PositionName
		return nil
	})
	g.Go(func() error {
		licenses, err := s.employees.ListLicenses(gctx, citizenID)
		if err != nil {
			return fmt.Errorf("load licenses: %w", err)
		}
		in.Licenses = licenses
		return nil
	})
	g.Go(func() error {
		leaves, err := s.leaves.ListByFiscalYear(gctx, citizenID, fiscalYear)
		if err != nil {
			return fmt.Errorf("load leaves: %w", err)
		}
		in.Leaves = leaves
		return nil
	})
	g.Go(func() error {
		quota, err := s.leaves.FindQuota(gctx, citizenID, fiscalYear)
		if err != nil {
			return fmt.Errorf("load leave quota: %w", err)
		}
		in.Quota = quota
		return nil
	})
	g.Go(func() error {
		holidays, err := s.holidays.Between(gctx, holidayFrom, holidayTo)
		if err != nil {
			return fmt.Errorf("load holidays: %w", err)
		}
		in.Holidays = holidays
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := payroll.CalculateMonth(in)
	for _, warning := range result.Warnings {
		s.logger.Warn("payroll calculation warning",
			zap.String("citizen_id", citizenID), zap.Int("year", year), zap.Int("month", month), zap.String("warning", warning))
	}
	return result, nil
}

// CalculateRetroactive recomputes up to lookBack months before (year, month) that belong to CLOSED
// periods and returns the corrections against what was already paid. lookBack <= 0 uses the
// configured default.
func (s *PayrollService) CalculateRetroactive(ctx context.Context, citizenID string, year, month, lookBack int) (*models.RetroResult, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	if lookBack <= 0 {
		lookBack = s.cfg.RetroLookBackMonths
	}

	// Lines written by an earlier run of the current period must not count as already paid.
	var currentPeriodID int64
	current, err := s.periods.FindByYearMonth(ctx, year, month)
	switch {
	case err == nil:
		currentPeriodID = current.ID
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("load current period: %w", err)
	}

	result := &models.RetroResult{Total: decimal.Zero, Details: []models.RetroDetail{}}
	for _, ref := range payroll.LookBack(year, month, lookBack) {
		period, err := s.periods.FindByYearMonth(ctx, ref.Year, ref.Month)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("load period %04d-%02d: %w", ref.Year, ref.Month, err)
		}
		if period.Status != models.PeriodStatusClosed {
			continue
		}

		original, _, err := s.payouts.FindCalculatedAmount(ctx, period.ID, citizenID)
		if err != nil {
			return nil, fmt.Errorf("load original payout %04d-%02d: %w", ref.Year, ref.Month, err)
		}
		adjusted, err := s.payouts.SumRetroAdjustments(ctx, citizenID, ref.Year, ref.Month, currentPeriodID)
		if err != nil {
			return nil, fmt.Errorf("load prior adjustments %04d-%02d: %w", ref.Year, ref.Month, err)
		}
		baseline := original.Add(adjusted)

		recomputed, err := s.CalculateMonthly(ctx, citizenID, ref.Year, ref.Month)
		if err != nil {
			return nil, err
		}
		diff, ok := payroll.Correction(recomputed.NetPayment, baseline)
		if !ok {
			continue
		}
		result.Total = result.Total.Add(diff)
		result.Details = append(result.Details, models.RetroDetail{
			Year:   ref.Year,
			Month:  ref.Month,
			Diff:   diff,
			Remark: fmt.Sprintf("retroactive correction for %04d-%02d", ref.Year, ref.Month),
		})
		s.metrics.RecordRetroAdjustment(diff)
	}
	return result, nil
}

// holidayRange spans the calendar year and the fiscal year (October to September) containing
// the month, so leave spans anywhere in the fiscal year count business days correctly.
func holidayRange(year, month int) (time.Time, time.Time) {
	fiscalStart := time.Date(year-1, time.October, 1, 0, 0, 0, 0, time.UTC)
	if month >= 10 {
		fiscalStart = time.Date(year, time.October, 1, 0, 0, 0, 0, time.UTC)
	}
	fiscalEnd := fiscalStart.AddDate(1, 0, -1)

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	if fiscalStart.Before(from) {
		from = fiscalStart
	}
	if fiscalEnd.After(to) {
		to = fiscalEnd
	}
	return from, to
}

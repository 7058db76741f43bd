package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

type windowStub struct {
	windows map[string][]models.EligibilityWindow
}

func (w *windowStub) ListOverlapping(ctx context.Context, citizenID string, from, to time.Time) ([]models.EligibilityWindow, error) {
	var out []models.EligibilityWindow
	for _, win := range w.windows[citizenID] {
		if win.EffectiveDate.After(to) {
			continue
		}
		if win.ExpiryDate != nil && win.ExpiryDate.Before(from) {
			continue
		}
		out = append(out, win)
	}
	return out, nil
}

type employeeStub struct {
	employees map[string]*models.Employee
	movements map[string][]models.EmploymentMovement
}

func (e *employeeStub) FindByCitizenID(ctx context.Context, citizenID string) (*models.Employee, error) {
	if emp, ok := e.employees[citizenID]; ok {
		return emp, nil
	}
	return nil, sql.ErrNoRows
}

func (e *employeeStub) ListMovements(ctx context.Context, citizenID string, upTo time.Time) ([]models.EmploymentMovement, error) {
	var out []models.EmploymentMovement
	for _, mv := range e.movements[citizenID] {
		if !mv.EffectiveDate.After(upTo) {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (e *employeeStub) ListLicenses(ctx context.Context, citizenID string) ([]models.LicenseRecord, error) {
	return nil, nil
}

type leaveStub struct {
	mu          sync.Mutex
	fiscalYears []int
	err         error
}

func (l *leaveStub) ListByFiscalYear(ctx context.Context, citizenID string, fiscalYear int) ([]models.LeaveRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fiscalYears = append(l.fiscalYears, fiscalYear)
	return nil, l.err
}

func (l *leaveStub) FindQuota(ctx context.Context, citizenID string, fiscalYear int) (*models.LeaveQuota, error) {
	return nil, nil
}

type holidaySourceStub struct{}

func (holidaySourceStub) Between(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	return nil, nil
}

type periodLookupStub struct {
	periods map[[2]int]*models.PayPeriod
}

func (p *periodLookupStub) FindByYearMonth(ctx context.Context, year, month int) (*models.PayPeriod, error) {
	if period, ok := p.periods[[2]int{year, month}]; ok {
		return period, nil
	}
	return nil, sql.ErrNoRows
}

type baselineStub struct {
	amounts     map[int64]decimal.Decimal
	adjustments map[[2]int]decimal.Decimal
	excluded    []int64
}

func (b *baselineStub) FindCalculatedAmount(ctx context.Context, periodID int64, citizenID string) (decimal.Decimal, bool, error) {
	amount, ok := b.amounts[periodID]
	return amount, ok, nil
}

func (b *baselineStub) SumRetroAdjustments(ctx context.Context, citizenID string, refYear, refMonth int, excludePeriodID int64) (decimal.Decimal, error) {
	b.excluded = append(b.excluded, excludePeriodID)
	return b.adjustments[[2]int{refYear, refMonth}], nil
}

type payrollFixture struct {
	windows   *windowStub
	employees *employeeStub
	leaves    *leaveStub
	periods   *periodLookupStub
	baseline  *baselineStub
}

func newPayrollFixture() *payrollFixture {
	return &payrollFixture{
		windows: &windowStub{windows: map[string][]models.EligibilityWindow{
			"1100000000001": {{ID: 1, CitizenID: "1100000000001", MasterRateID: 5, Rate: decimal.NewFromInt(3000), EffectiveDate: date(2023, 1, 1)}},
		}},
		employees: &employeeStub{employees: map[string]*models.Employee{
			"1100000000001": {CitizenID: "1100000000001", FullName: "Somsri", PositionName: "พยาบาลวิชาชีพ"},
		}},
		leaves:   &leaveStub{},
		periods:  &periodLookupStub{periods: map[[2]int]*models.PayPeriod{}},
		baseline: &baselineStub{amounts: map[int64]decimal.Decimal{}, adjustments: map[[2]int]decimal.Decimal{}},
	}
}

func (f *payrollFixture) service() *PayrollService {
	return NewPayrollService(f.windows, f.employees, f.leaves, holidaySourceStub{}, f.periods, f.baseline, nil, nil,
		PayrollConfig{FiscalYearOffset: 543, RetroLookBackMonths: 6})
}

func TestPayrollServiceCalculateMonthlyFullMonth(t *testing.T) {
	f := newPayrollFixture()
	result, err := f.service().CalculateMonthly(context.Background(), "1100000000001", 2024, 1)
	require.NoError(t, err)
	require.Equal(t, "3000.00", result.NetPayment.StringFixed(2))
	require.Equal(t, 31.0, result.EligibleDays)
	require.Equal(t, 31, result.ValidLicenseDays)
	require.NotNil(t, result.MasterRateID)
	require.Equal(t, int64(5), *result.MasterRateID)
	require.Equal(t, []int{2567}, f.leaves.fiscalYears)
}

func TestPayrollServiceCalculateMonthlyFiscalYearRollover(t *testing.T) {
	f := newPayrollFixture()
	_, err := f.service().CalculateMonthly(context.Background(), "1100000000001", 2024, 10)
	require.NoError(t, err)
	require.Equal(t, []int{2568}, f.leaves.fiscalYears)
}

func TestPayrollServiceCalculateMonthlyUnknownEmployee(t *testing.T) {
	f := newPayrollFixture()
	result, err := f.service().CalculateMonthly(context.Background(), "3100000000009", 2024, 1)
	require.NoError(t, err)
	require.True(t, result.NetPayment.IsZero())
	require.Nil(t, result.MasterRateID)
}

func TestPayrollServiceCalculateMonthlyPropagatesStorageErrors(t *testing.T) {
	f := newPayrollFixture()
	f.leaves.err = errors.New("connection reset")
	_, err := f.service().CalculateMonthly(context.Background(), "1100000000001", 2024, 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "load leaves")

	_, err = f.service().CalculateMonthly(context.Background(), "1100000000001", 2024, 13)
	require.Error(t, err)
}

func TestPayrollServiceCalculateRetroactive(t *testing.T) {
	f := newPayrollFixture()
	f.periods.periods[[2]int{2024, 1}] = &models.PayPeriod{ID: 13, Year: 2024, Month: 1, Status: models.PeriodStatusOpen}
	f.periods.periods[[2]int{2023, 12}] = &models.PayPeriod{ID: 12, Year: 2023, Month: 12, Status: models.PeriodStatusClosed}
	f.periods.periods[[2]int{2023, 11}] = &models.PayPeriod{ID: 11, Year: 2023, Month: 11, Status: models.PeriodStatusOpen}
	f.periods.periods[[2]int{2023, 10}] = &models.PayPeriod{ID: 10, Year: 2023, Month: 10, Status: models.PeriodStatusClosed}

	// December was paid 2000 plus a 500 adjustment; October was paid in full.
	f.baseline.amounts[12] = decimal.NewFromInt(2000)
	f.baseline.adjustments[[2]int{2023, 12}] = decimal.NewFromInt(500)
	f.baseline.amounts[10] = decimal.RequireFromString("3000.00")

	result, err := f.service().CalculateRetroactive(context.Background(), "1100000000001", 2024, 1, 0)
	require.NoError(t, err)
	require.Equal(t, "500.00", result.Total.StringFixed(2))
	require.Len(t, result.Details, 1)
	require.Equal(t, 2023, result.Details[0].Year)
	require.Equal(t, 12, result.Details[0].Month)
	require.Equal(t, []int64{13, 13}, f.baseline.excluded)
}

func TestPayrollServiceCalculateRetroactiveNothingClosed(t *testing.T) {
	f := newPayrollFixture()
	result, err := f.service().CalculateRetroactive(context.Background(), "1100000000001", 2024, 3, 3)
	require.NoError(t, err)
	require.True(t, result.Total.IsZero())
	require.Empty(t, result.Details)
}

func TestHolidayRangeCoversFiscalAndCalendarYear(t *testing.T) {
	from, to := holidayRange(2024, 3)
	require.Equal(t, date(2023, 10, 1), from)
	require.Equal(t, date(2024, 12, 31), to)

	from, to = holidayRange(2024, 11)
	require.Equal(t, date(2024, 1, 1), from)
	require.Equal(t, date(2025, 9, 30), to)
}

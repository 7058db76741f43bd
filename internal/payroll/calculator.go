package payroll

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

// MonthlyInput carries every record the monthly calculation depends on.
type MonthlyInput struct {
	Year         int
	Month        int
	Windows      []models.EligibilityWindow
	Movements    []models.EmploymentMovement
	PositionName string
	Licenses     []models.LicenseRecord
	Leaves       []models.LeaveRecord
	Quota        *models.LeaveQuota
	Holidays     []time.Time
}

// CalculateMonth prorates the PTS rate over every active, licensed day of the month, net of
// leave deductions. Daily amounts always divide by the full length of the month.
// When windows overlap, the one with the latest effective date wins and a warning is added.
func CalculateMonth(in MonthlyInput) *models.PayoutResult {
	monthStart, monthEnd := MonthBounds(in.Year, in.Month)
	result := &models.PayoutResult{
		NetPayment:       decimal.Zero,
		RateSnapshot:     decimal.Zero,
		RetroactiveTotal: decimal.Zero,
	}

	resolution := ResolveActivePeriods(in.Movements, monthStart, monthEnd)
	result.Remark = resolution.Remark
	if len(resolution.Periods) == 0 {
		return result
	}

	cal := NewCalendar(in.Holidays)
	deductions := ComputeDeductions(in.Leaves, in.Quota, cal, monthStart, monthEnd)
	windows := orderWindows(in.Windows)
	result.Warnings = overlapWarnings(windows, monthStart, monthEnd)

	// Accumulate rate*weight and divide once so full months come out exact.
	numerator := decimal.Zero
	for _, period := range resolution.Periods {
		for day := period.Start; !day.After(period.End); day = day.AddDate(0, 0, 1) {
			window := pickWindow(windows, day)
			if window == nil {
				continue
			}
			key := DateKey(day)

			base := 0.0
			if HasValidLicense(in.Licenses, key, in.PositionName) {
				base = 1
				result.ValidLicenseDays++
			}
			deducted := math.Min(deductions[key], 1)
			result.TotalDeductionDays += deducted

			weight := math.Max(0, base-deducted)
			result.EligibleDays += weight
			numerator = numerator.Add(window.Rate.Mul(decimal.NewFromFloat(weight)))

			id := window.MasterRateID
			result.MasterRateID = &id
			result.RateSnapshot = window.Rate
		}
	}

	days := decimal.NewFromInt(int64(DaysInMonth(in.Year, in.Month)))
	result.NetPayment = numerator.Div(days).Round(2)
	return result
}

func orderWindows(windows []models.EligibilityWindow) []models.EligibilityWindow {
	ordered := append([]models.EligibilityWindow(nil), windows...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := Truncate(ordered[i].EffectiveDate), Truncate(ordered[j].EffectiveDate)
		if !a.Equal(b) {
			return a.After(b)
		}
		return ordered[i].ID > ordered[j].ID
	})
	return ordered
}

func pickWindow(ordered []models.EligibilityWindow, day time.Time) *models.EligibilityWindow {
	for i := range ordered {
		if covers(ordered[i], day) {
			return &ordered[i]
		}
	}
	return nil
}

func covers(w models.EligibilityWindow, day time.Time) bool {
	if day.Before(Truncate(w.EffectiveDate)) {
		return false
	}
	return w.ExpiryDate == nil || !day.After(Truncate(*w.ExpiryDate))
}

func overlapWarnings(ordered []models.EligibilityWindow, monthStart, monthEnd time.Time) []string {
	var warnings []string
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			a, b := ordered[i], ordered[j]
			start := latest(Truncate(a.EffectiveDate), Truncate(b.EffectiveDate), monthStart)
			end := monthEnd
			if a.ExpiryDate != nil && Truncate(*a.ExpiryDate).Before(end) {
				end = Truncate(*a.ExpiryDate)
			}
			if b.ExpiryDate != nil && Truncate(*b.ExpiryDate).Before(end) {
				end = Truncate(*b.ExpiryDate)
			}
			if start.After(end) {
				continue
			}
			warnings = append(warnings, fmt.Sprintf("eligibility windows %d and %d overlap from %s to %s; window %d applied",
				a.ID, b.ID, DateKey(start), DateKey(end), a.ID))
		}
	}
	return warnings
}

func latest(times ...time.Time) time.Time {
	out := times[0]
	for _, t := range times[1:] {
		if t.After(out) {
			out = t
		}
	}
	return out
}

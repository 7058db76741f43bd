package payroll

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

// LeaveUnit is the unit a leave rule measures durations in.
type LeaveUnit string

const (
	UnitBusinessDays LeaveUnit = "business_days"
	UnitCalendarDays LeaveUnit = "calendar_days"
)

// LeaveRule caps paid leave of one type. A nil Limit means unlimited.
type LeaveRule struct {
	Limit      *float64
	Unit       LeaveUnit
	Cumulative bool
}

func limit(v float64) *float64 { return &v }

var leaveRules = map[string]LeaveRule{
	models.LeaveSick:         {Limit: limit(60), Unit: UnitBusinessDays, Cumulative: true},
	models.LeavePersonal:     {Limit: limit(45), Unit: UnitBusinessDays, Cumulative: true},
	models.LeaveVacation:     {Limit: limit(10), Unit: UnitBusinessDays, Cumulative: true},
	models.LeaveMaternity:    {Limit: limit(90), Unit: UnitCalendarDays},
	models.LeaveWifeHelp:     {Limit: limit(15), Unit: UnitBusinessDays},
	models.LeaveOrdain:       {Limit: limit(60), Unit: UnitCalendarDays},
	models.LeaveMilitary:     {Limit: limit(60), Unit: UnitCalendarDays},
	models.LeaveEducation:    {Limit: limit(0), Unit: UnitCalendarDays},
	models.LeaveRehab:        {Limit: limit(0), Unit: UnitCalendarDays},
	models.LeaveOfficialDuty: {Unit: UnitCalendarDays},
}

// RuleFor returns the rule for leaveType with per-employee quota overrides applied.
// Unknown types are unlimited.
func RuleFor(leaveType string, quota *models.LeaveQuota) LeaveRule {
	key := strings.ToLower(strings.TrimSpace(leaveType))
	rule, ok := leaveRules[key]
	if !ok {
		return LeaveRule{Unit: UnitCalendarDays}
	}
	if quota == nil {
		return rule
	}
	var override *float64
	switch key {
	case models.LeaveSick:
		override = quota.QuotaSick
	case models.LeavePersonal:
		override = quota.QuotaPersonal
	case models.LeaveVacation:
		override = quota.QuotaVacation
	}
	if override != nil {
		rule.Limit = limit(*override)
	}
	return rule
}

func leaveDuration(leave models.LeaveRecord, rule LeaveRule, cal *Calendar) float64 {
	if leave.HalfDay() {
		return 0.5
	}
	if rule.Unit == UnitBusinessDays {
		return float64(cal.CountBusinessDaysInclusive(leave.StartDate, leave.EndDate))
	}
	return float64(CountCalendarDaysInclusive(leave.StartDate, leave.EndDate))
}

// ComputeDeductions converts leave taken beyond its cap into per-date deduction weights.
// Leaves are consumed in start-date order; cumulative types share a running usage total across
// the records passed in. The excess of each leave is charged to its last days, walking backward
// from the end date (skipping non-working days for business-day rules). Only dates within
// [monthStart, monthEnd] are returned.
func ComputeDeductions(leaves []models.LeaveRecord, quota *models.LeaveQuota, cal *Calendar, monthStart, monthEnd time.Time) map[string]float64 {
	deductions := make(map[string]float64)
	if len(leaves) == 0 {
		return deductions
	}

	ordered := append([]models.LeaveRecord(nil), leaves...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartDate.Before(ordered[j].StartDate)
	})

	from, to := Truncate(monthStart), Truncate(monthEnd)
	usage := make(map[string]float64)

	for _, leave := range ordered {
		key := strings.ToLower(strings.TrimSpace(leave.LeaveType))
		rule := RuleFor(key, quota)
		duration := leaveDuration(leave, rule, cal)

		var usedBefore float64
		if rule.Cumulative {
			usedBefore = usage[key]
			usage[key] = usedBefore + duration
		}
		if rule.Limit == nil {
			continue
		}

		remaining := math.Max(0, *rule.Limit-usedBefore)
		if duration <= remaining {
			continue
		}
		excess := duration - remaining

		unitWeight := 1.0
		if leave.HalfDay() {
			unitWeight = 0.5
		}
		start := Truncate(leave.StartDate)
		for day := Truncate(leave.EndDate); excess > 0 && !day.Before(start); day = day.AddDate(0, 0, -1) {
			if rule.Unit == UnitBusinessDays && cal.IsNonWorkingDay(day) {
				continue
			}
			weight := math.Min(unitWeight, excess)
			excess -= weight
			if day.Before(from) || day.After(to) {
				continue
			}
			deductions[DateKey(day)] += weight
		}
	}

	return deductions
}

// Package payroll holds the pure PTS calculation engine: business-day arithmetic, license
// validity, leave deduction allocation, active period resolution and monthly proration.
// Nothing here touches storage; callers load the records and pass them in.
package payroll

import "time"

// DateLayout is the local-date format used for day keys and license comparisons.
const DateLayout = "2006-01-02"

// Truncate drops the clock part of t, keeping its local calendar date.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats the local calendar date of t.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// Calendar answers business-day questions over a fixed holiday set.
type Calendar struct {
	holidays map[string]struct{}
}

// NewCalendar builds a calendar from holiday dates.
func NewCalendar(holidays []time.Time) *Calendar {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[DateKey(h)] = struct{}{}
	}
	return &Calendar{holidays: set}
}

// IsNonWorkingDay is true for Saturdays, Sundays and holidays.
func (c *Calendar) IsNonWorkingDay(date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	if c == nil {
		return false
	}
	_, ok := c.holidays[DateKey(date)]
	return ok
}

// CountBusinessDays counts working days in [start, end). Used for elapsed time such as SLAs.
func (c *Calendar) CountBusinessDays(start, end time.Time) int {
	from, to := Truncate(start), Truncate(end)
	count := 0
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		if !c.IsNonWorkingDay(d) {
			count++
		}
	}
	return count
}

// CountBusinessDaysInclusive counts working days in [start, end]. Used for leave durations.
func (c *Calendar) CountBusinessDaysInclusive(start, end time.Time) int {
	return c.CountBusinessDays(start, Truncate(end).AddDate(0, 0, 1))
}

// CountCalendarDaysInclusive counts every date in [start, end].
func CountCalendarDaysInclusive(start, end time.Time) int {
	from, to := Truncate(start), Truncate(end)
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}

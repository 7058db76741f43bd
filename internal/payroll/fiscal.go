package payroll

import "time"

// FiscalYear returns the stored fiscal_year for a calendar month. The fiscal year starts in
// October; offset converts the Gregorian year to the era used by the leave tables.
func FiscalYear(year, month, offset int) int {
	fy := year + offset
	if month >= 10 {
		fy++
	}
	return fy
}

// MonthBounds returns the first and last date of a calendar month.
func MonthBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

// DaysInMonth returns the number of calendar days in the month.
func DaysInMonth(year, month int) int {
	_, end := MonthBounds(year, month)
	return end.Day()
}

// PreviousMonth steps one month back, wrapping the year.
func PreviousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

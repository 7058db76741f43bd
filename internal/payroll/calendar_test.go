package payroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestCalendarNonWorkingDays(t *testing.T) {
	cal := NewCalendar([]time.Time{day(2024, 1, 1)})

	require.True(t, cal.IsNonWorkingDay(day(2024, 1, 1)))
	require.False(t, cal.IsNonWorkingDay(day(2024, 1, 2)))
	require.True(t, cal.IsNonWorkingDay(day(2024, 1, 6)))
	require.True(t, cal.IsNonWorkingDay(day(2024, 1, 7)))

	bangkok := time.FixedZone("ICT", 7*3600)
	require.True(t, cal.IsNonWorkingDay(time.Date(2024, 1, 1, 23, 30, 0, 0, bangkok)))
}

func TestCountBusinessDaysBoundaries(t *testing.T) {
	cal := NewCalendar(nil)
	holidayCal := NewCalendar([]time.Time{day(2024, 1, 1)})

	cases := []struct {
		name      string
		cal       *Calendar
		start     time.Time
		end       time.Time
		halfOpen  int
		inclusive int
	}{
		{name: "full week", cal: cal, start: day(2024, 1, 1), end: day(2024, 1, 8), halfOpen: 5, inclusive: 6},
		{name: "same day", cal: cal, start: day(2024, 1, 2), end: day(2024, 1, 2), halfOpen: 0, inclusive: 1},
		{name: "weekend only", cal: cal, start: day(2024, 1, 6), end: day(2024, 1, 7), halfOpen: 0, inclusive: 0},
		{name: "holiday skipped", cal: holidayCal, start: day(2024, 1, 1), end: day(2024, 1, 5), halfOpen: 3, inclusive: 4},
		{name: "reversed range", cal: cal, start: day(2024, 1, 5), end: day(2024, 1, 1), halfOpen: 0, inclusive: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.halfOpen, tc.cal.CountBusinessDays(tc.start, tc.end))
			require.Equal(t, tc.inclusive, tc.cal.CountBusinessDaysInclusive(tc.start, tc.end))
		})
	}
}

func TestCountCalendarDaysInclusive(t *testing.T) {
	require.Equal(t, 31, CountCalendarDaysInclusive(day(2024, 1, 1), day(2024, 1, 31)))
	require.Equal(t, 1, CountCalendarDaysInclusive(day(2024, 2, 29), day(2024, 2, 29)))
	require.Equal(t, 0, CountCalendarDaysInclusive(day(2024, 3, 2), day(2024, 3, 1)))
}

func TestFiscalHelpers(t *testing.T) {
	require.Equal(t, 2567, FiscalYear(2024, 9, 543))
	require.Equal(t, 2568, FiscalYear(2024, 10, 543))
	require.Equal(t, 2025, FiscalYear(2024, 12, 0))

	require.Equal(t, 29, DaysInMonth(2024, 2))
	require.Equal(t, 28, DaysInMonth(2023, 2))

	y, m := PreviousMonth(2024, 1)
	require.Equal(t, 2023, y)
	require.Equal(t, 12, m)

	start, end := MonthBounds(2024, 4)
	require.Equal(t, day(2024, 4, 1), start)
	require.Equal(t, day(2024, 4, 30), end)
}

package payroll

import "github.com/shopspring/decimal"

// RetroTolerance is the largest difference treated as rounding noise.
var RetroTolerance = decimal.NewFromFloat(0.01)

// MonthRef identifies a calendar month.
type MonthRef struct {
	Year  int
	Month int
}

// LookBack lists the n months preceding (year, month), most recent first.
func LookBack(year, month, n int) []MonthRef {
	refs := make([]MonthRef, 0, n)
	y, m := year, month
	for i := 0; i < n; i++ {
		y, m = PreviousMonth(y, m)
		refs = append(refs, MonthRef{Year: y, Month: m})
	}
	return refs
}

// Correction returns round2(recomputed - baseline) and whether it exceeds the tolerance.
func Correction(recomputed, baseline decimal.Decimal) (decimal.Decimal, bool) {
	diff := recomputed.Sub(baseline).Round(2)
	if diff.Abs().LessThanOrEqual(RetroTolerance) {
		return decimal.Zero, false
	}
	return diff, true
}

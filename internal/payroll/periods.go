package payroll

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

// ActivePeriod is an inclusive date range of active employment inside a month.
type ActivePeriod struct {
	Start time.Time
	End   time.Time
}

// Resolution is the outcome of replaying the movement log for one month.
type Resolution struct {
	Periods []ActivePeriod
	Remark  string
}

func closesService(t models.MovementType) bool {
	switch t {
	case models.MovementResign, models.MovementRetire, models.MovementDeath, models.MovementTransferOut:
		return true
	}
	return false
}

// ResolveActivePeriods replays movements to find the sub-ranges of the month during which the
// employee is actively employed. Leaving movements end the range the day before they take
// effect; STUDY suspends the rest of the month.
func ResolveActivePeriods(movements []models.EmploymentMovement, monthStart, monthEnd time.Time) Resolution {
	from, to := Truncate(monthStart), Truncate(monthEnd)
	if len(movements) == 0 {
		return Resolution{Periods: []ActivePeriod{{Start: from, End: to}}}
	}

	ordered := append([]models.EmploymentMovement(nil), movements...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := Truncate(ordered[i].EffectiveDate), Truncate(ordered[j].EffectiveDate)
		if !a.Equal(b) {
			return a.Before(b)
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	var prior, inMonth []models.EmploymentMovement
	for _, mv := range ordered {
		day := Truncate(mv.EffectiveDate)
		switch {
		case day.Before(from):
			prior = append(prior, mv)
		case !day.After(to):
			inMonth = append(inMonth, mv)
		}
	}

	var res Resolution
	active := true
	if len(prior) == 0 && len(inMonth) > 0 && inMonth[0].MovementType == models.MovementEntry {
		active = false
	}
	for _, mv := range prior {
		switch {
		case mv.MovementType == models.MovementEntry:
			active = true
			res.Remark = ""
		case mv.MovementType == models.MovementStudy:
			active = false
			res.Remark = fmt.Sprintf("on study leave since %s", DateKey(mv.EffectiveDate))
		case closesService(mv.MovementType):
			active = false
			res.Remark = ""
		}
	}

	cursor := from
	for _, mv := range inMonth {
		day := Truncate(mv.EffectiveDate)
		switch {
		case mv.MovementType == models.MovementEntry:
			if !active {
				active = true
				cursor = day
				res.Remark = ""
			}
		case mv.MovementType == models.MovementStudy:
			if active {
				res.appendRange(cursor, day.AddDate(0, 0, -1))
			}
			res.Remark = fmt.Sprintf("on study leave from %s", DateKey(day))
			return res.finish()
		case closesService(mv.MovementType):
			if active {
				res.appendRange(cursor, day.AddDate(0, 0, -1))
				active = false
			}
		}
	}
	if active {
		res.appendRange(cursor, to)
	}
	return res.finish()
}

func (r *Resolution) appendRange(start, end time.Time) {
	if end.Before(start) {
		return
	}
	r.Periods = append(r.Periods, ActivePeriod{Start: start, End: end})
}

func (r Resolution) finish() Resolution {
	if len(r.Periods) == 0 && r.Remark == "" {
		r.Remark = "no active service period in month"
	}
	return r
}

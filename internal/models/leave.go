package models

import "time"

// Leave types as recorded by the HR leave system.
const (
	LeaveSick         = "sick"
	LeavePersonal     = "personal"
	LeaveVacation     = "vacation"
	LeaveMaternity    = "maternity"
	LeaveWifeHelp     = "wife_help"
	LeaveOrdain       = "ordain"
	LeaveMilitary     = "military"
	LeaveEducation    = "education"
	LeaveRehab        = "rehab"
	LeaveOfficialDuty = "official_duty"
)

// LeaveRecord is one leave event. DurationDays is 0.5 for a half-day record.
type LeaveRecord struct {
	ID           int64     `db:"id" json:"id"`
	RefID        string    `db:"ref_id" json:"refId"`
	CitizenID    string    `db:"citizen_id" json:"citizenId"`
	LeaveType    string    `db:"leave_type" json:"leaveType"`
	StartDate    time.Time `db:"start_date" json:"startDate"`
	EndDate      time.Time `db:"end_date" json:"endDate"`
	DurationDays float64   `db:"duration_days" json:"durationDays"`
	FiscalYear   int       `db:"fiscal_year" json:"fiscalYear"`
}

// HalfDay reports whether the record represents a half-day leave.
func (l LeaveRecord) HalfDay() bool {
	return l.DurationDays == 0.5
}

// LeaveQuota holds per-employee annual caps. Nil values fall back to the default rule limit.
type LeaveQuota struct {
	CitizenID     string   `db:"citizen_id" json:"citizenId"`
	FiscalYear    int      `db:"fiscal_year" json:"fiscalYear"`
	QuotaVacation *float64 `db:"quota_vacation" json:"quotaVacation,omitempty"`
	QuotaPersonal *float64 `db:"quota_personal" json:"quotaPersonal,omitempty"`
	QuotaSick     *float64 `db:"quota_sick" json:"quotaSick,omitempty"`
}

package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin           = "LOGIN"
	AuditActionUserCreate      = "USER_CREATE"
	AuditActionUserUpdate      = "USER_UPDATE"
	AuditActionUserDeactivate  = "USER_DEACTIVATE"
	AuditActionRequestSubmit   = "PTS_REQUEST_SUBMIT"
	AuditActionRequestApprove  = "PTS_REQUEST_APPROVE"
	AuditActionRequestReject   = "PTS_REQUEST_REJECT"
	AuditActionRequestReturn   = "PTS_REQUEST_RETURN"
	AuditActionRequestResubmit = "PTS_REQUEST_RESUBMIT"
	AuditActionRequestCancel   = "PTS_REQUEST_CANCEL"
	AuditActionPeriodCreate    = "PAY_PERIOD_CREATE"
	AuditActionPeriodRun       = "PAY_PERIOD_RUN"
	AuditActionPeriodClose     = "PAY_PERIOD_CLOSE"
	AuditActionHolidayCreate   = "HOLIDAY_CREATE"
	AuditActionHolidayDelete   = "HOLIDAY_DELETE"
	AuditActionHRSync          = "HR_SYNC"
	AuditActionExport          = "PAYOUT_EXPORT"
	AuditActionExportDownload  = "PAYOUT_EXPORT_DOWNLOAD"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

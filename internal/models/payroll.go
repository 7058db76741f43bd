package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodStatus captures the lifecycle of a monthly pay period.
type PeriodStatus string

const (
	PeriodStatusOpen       PeriodStatus = "OPEN"
	PeriodStatusProcessing PeriodStatus = "PROCESSING"
	PeriodStatusClosed     PeriodStatus = "CLOSED"
)

// PayoutItemType tags payout lines.
type PayoutItemType string

const (
	PayoutItemCurrent           PayoutItemType = "CURRENT"
	PayoutItemRetroactiveAdd    PayoutItemType = "RETROACTIVE_ADD"
	PayoutItemRetroactiveDeduct PayoutItemType = "RETROACTIVE_DEDUCT"
)

// PayPeriod is one calendar month of PTS payroll.
type PayPeriod struct {
	ID          int64           `db:"id" json:"id"`
	Year        int             `db:"period_year" json:"year"`
	Month       int             `db:"period_month" json:"month"`
	Status      PeriodStatus    `db:"status" json:"status"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"totalAmount"`
	Headcount   int             `db:"headcount" json:"headcount"`
	ClosedAt    *time.Time      `db:"closed_at" json:"closedAt,omitempty"`
	ClosedBy    *string         `db:"closed_by" json:"closedBy,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// Payout is the persisted header row for one employee in one period.
type Payout struct {
	ID                string          `db:"id" json:"id"`
	PeriodID          int64           `db:"period_id" json:"periodId"`
	CitizenID         string          `db:"citizen_id" json:"citizenId"`
	MasterRateID      *int64          `db:"master_rate_id" json:"masterRateId,omitempty"`
	RateSnapshot      decimal.Decimal `db:"rate_snapshot" json:"rateSnapshot"`
	EligibleDays      float64         `db:"eligible_days" json:"eligibleDays"`
	DeductedDays      float64         `db:"deducted_days" json:"deductedDays"`
	ValidLicenseDays  int             `db:"valid_license_days" json:"validLicenseDays"`
	CalculatedAmount  decimal.Decimal `db:"calculated_amount" json:"calculatedAmount"`
	RetroactiveAmount decimal.Decimal `db:"retroactive_amount" json:"retroactiveAmount"`
	TotalPayable      decimal.Decimal `db:"total_payable" json:"totalPayable"`
	Remark            string          `db:"remark" json:"remark"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
}

// PayoutItem is one itemized line of a payout.
type PayoutItem struct {
	ID             string          `db:"id" json:"id"`
	PayoutID       string          `db:"payout_id" json:"payoutId"`
	ItemType       PayoutItemType  `db:"item_type" json:"itemType"`
	ReferenceYear  int             `db:"reference_year" json:"referenceYear"`
	ReferenceMonth int             `db:"reference_month" json:"referenceMonth"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Description    string          `db:"description" json:"description"`
}

// RetroDetail is one correction for a previously closed month.
type RetroDetail struct {
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Diff   decimal.Decimal `json:"diff"`
	Remark string          `json:"remark"`
}

// PayoutResult is the computed, not yet persisted, outcome for one employee and month.
type PayoutResult struct {
	NetPayment         decimal.Decimal `json:"netPayment"`
	TotalDeductionDays float64         `json:"totalDeductionDays"`
	ValidLicenseDays   int             `json:"validLicenseDays"`
	EligibleDays       float64         `json:"eligibleDays"`
	Remark             string          `json:"remark,omitempty"`
	MasterRateID       *int64          `json:"masterRateId,omitempty"`
	RateSnapshot       decimal.Decimal `json:"rateSnapshot"`
	RetroactiveTotal   decimal.Decimal `json:"retroactiveTotal"`
	RetroDetails       []RetroDetail   `json:"retroDetails,omitempty"`
	Warnings           []string        `json:"warnings,omitempty"`
}

// RetroResult aggregates corrections across the look-back window.
type RetroResult struct {
	Total   decimal.Decimal `json:"totalRetro"`
	Details []RetroDetail   `json:"retroDetails"`
}

// PayoutSummary is a payout joined with the employee name for listings and exports.
type PayoutSummary struct {
	Payout
	FullName string `db:"full_name" json:"fullName"`
}

// ExportFormat enumerates payout report formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

package dto

import "github.com/shopspring/decimal"

// CreatePeriodRequest is the body of POST /payroll/periods.
type CreatePeriodRequest struct {
	Year  int `json:"year" validate:"required,gte=2000,lte=2600"`
	Month int `json:"month" validate:"required,gte=1,lte=12"`
}

// RunSummary reports the outcome of one payroll period run.
type RunSummary struct {
	PeriodID  int64           `json:"periodId"`
	Processed int             `json:"processed"`
	Failed    int             `json:"failed"`
	Total     decimal.Decimal `json:"totalAmount"`
}

// ExportResponse is returned after a payout report is generated.
type ExportResponse struct {
	URL       string `json:"url"`
	Format    string `json:"format"`
	ExpiresAt string `json:"expiresAt"`
}

// SyncSummary reports affected rows per HR staging step.
type SyncSummary struct {
	Steps      map[string]int64 `json:"steps"`
	StartedAt  string           `json:"startedAt"`
	FinishedAt string           `json:"finishedAt"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MasterRate is one row of the PTS rate table.
type MasterRate struct {
	ID             int64           `db:"id" json:"id"`
	ProfessionCode string          `db:"profession_code" json:"professionCode"`
	GroupNo        int             `db:"group_no" json:"groupNo"`
	ItemNo         string          `db:"item_no" json:"itemNo"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	ConditionDesc  string          `db:"condition_desc" json:"conditionDesc"`
	IsActive       bool            `db:"is_active" json:"isActive"`
}

// EligibilityWindow is an approved rate assignment. A nil ExpiryDate is open-ended.
type EligibilityWindow struct {
	ID            int64           `db:"id" json:"id"`
	CitizenID     string          `db:"citizen_id" json:"citizenId"`
	MasterRateID  int64           `db:"master_rate_id" json:"masterRateId"`
	Rate          decimal.Decimal `db:"rate" json:"rate"`
	EffectiveDate time.Time       `db:"effective_date" json:"effectiveDate"`
	ExpiryDate    *time.Time      `db:"expiry_date" json:"expiryDate,omitempty"`
	RequestID     *string         `db:"request_id" json:"requestId,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}


package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SyncRepository copies HR staging tables into the application tables.
type SyncRepository struct {
	db *sqlx.DB
}

// NewSyncRepository constructs the repository.
func NewSyncRepository(db *sqlx.DB) *SyncRepository {
	return &SyncRepository{db: db}
}

// SyncStep is one named staging upsert.
type SyncStep struct {
	Name  string
	Query string
}

// SyncSteps lists the upserts in dependency order.
var SyncSteps = []SyncStep{
	{Name: "employees", Query: `INSERT INTO employees (citizen_id, full_name, position_name, department, ward, updated_at)
SELECT citizen_id, full_name, COALESCE(position_name, ''), COALESCE(department, ''), COALESCE(ward, ''), NOW()
FROM hr_staging.employees
ON CONFLICT (citizen_id) DO UPDATE
SET full_name = EXCLUDED.full_name,
    position_name = EXCLUDED.position_name,
    department = EXCLUDED.department,
    ward = EXCLUDED.ward,
    updated_at = NOW()`},
	{Name: "movements", Query: `INSERT INTO employee_movements (citizen_id, movement_type, effective_date)
SELECT DISTINCT citizen_id, UPPER(movement_type), effective_date FROM hr_staging.movements
ON CONFLICT (citizen_id, movement_type, effective_date) DO NOTHING`},
	{Name: "licenses", Query: `INSERT INTO employee_licenses (citizen_id, license_no, license_name, license_type, occupation_name, valid_from, valid_until, status)
SELECT DISTINCT ON (citizen_id, license_no) citizen_id, license_no, COALESCE(license_name, ''), COALESCE(license_type, ''),
       COALESCE(occupation_name, ''), valid_from, valid_until, COALESCE(UPPER(status), 'ACTIVE')
FROM hr_staging.licenses
ORDER BY citizen_id, license_no, valid_until DESC NULLS FIRST
ON CONFLICT (citizen_id, license_no) DO UPDATE
SET license_name = EXCLUDED.license_name,
    license_type = EXCLUDED.license_type,
    occupation_name = EXCLUDED.occupation_name,
    valid_from = EXCLUDED.valid_from,
    valid_until = EXCLUDED.valid_until,
    status = EXCLUDED.status`},
	{Name: "leaves", Query: `INSERT INTO leave_records (ref_id, citizen_id, leave_type, start_date, end_date, duration_days, fiscal_year)
SELECT DISTINCT ON (ref_id) ref_id, citizen_id, LOWER(leave_type), start_date, end_date, duration_days, fiscal_year
FROM hr_staging.leaves
ORDER BY ref_id
ON CONFLICT (ref_id) DO UPDATE
SET leave_type = EXCLUDED.leave_type,
    start_date = EXCLUDED.start_date,
    end_date = EXCLUDED.end_date,
    duration_days = EXCLUDED.duration_days,
    fiscal_year = EXCLUDED.fiscal_year`},
	{Name: "leave_quotas", Query: `INSERT INTO leave_quotas (citizen_id, fiscal_year, quota_vacation, quota_personal, quota_sick)
SELECT DISTINCT ON (citizen_id, fiscal_year) citizen_id, fiscal_year, quota_vacation, quota_personal, quota_sick
FROM hr_staging.leave_quotas
ORDER BY citizen_id, fiscal_year
ON CONFLICT (citizen_id, fiscal_year) DO UPDATE
SET quota_vacation = EXCLUDED.quota_vacation,
    quota_personal = EXCLUDED.quota_personal,
    quota_sick = EXCLUDED.quota_sick`},
}

// Run executes one staging upsert inside tx and returns the affected row count.
func (r *SyncRepository) Run(ctx context.Context, tx *sqlx.Tx, step SyncStep) (int64, error) {
	result, err := extOr(r.db, tx).ExecContext(ctx, step.Query)
	if err != nil {
		return 0, fmt.Errorf("sync %s: %w", step.Name, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sync %s rows: %w", step.Name, err)
	}
	return rows, nil
}

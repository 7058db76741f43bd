package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

// LeaveRepository reads leave records and quotas.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// ListByFiscalYear returns the employee's leaves for the fiscal year ordered by start date.
func (r *LeaveRepository) ListByFiscalYear(ctx context.Context, citizenID string, fiscalYear int) ([]models.LeaveRecord, error) {
	const query = `SELECT id, ref_id, citizen_id, leave_type, start_date, end_date, duration_days, fiscal_year
FROM leave_records WHERE citizen_id = $1 AND fiscal_year = $2 ORDER BY start_date ASC, id ASC`
	var leaves []models.LeaveRecord
	if err := r.db.SelectContext(ctx, &leaves, query, citizenID, fiscalYear); err != nil {
		return nil, fmt.Errorf("list leaves: %w", err)
	}
	return leaves, nil
}

// FindQuota returns the employee's quota for the fiscal year, or nil when none is recorded.
func (r *LeaveRepository) FindQuota(ctx context.Context, citizenID string, fiscalYear int) (*models.LeaveQuota, error) {
	const query = `SELECT citizen_id, fiscal_year, quota_vacation, quota_personal, quota_sick
FROM leave_quotas WHERE citizen_id = $1 AND fiscal_year = $2`
	var quota models.LeaveQuota
	if err := r.db.GetContext(ctx, &quota, query, citizenID, fiscalYear); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find leave quota: %w", err)
	}
	return &quota, nil
}

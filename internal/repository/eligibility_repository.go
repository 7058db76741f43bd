package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

// EligibilityRepository manages master rates and approved eligibility windows.
type EligibilityRepository struct {
	db *sqlx.DB
}

// NewEligibilityRepository constructs the repository.
func NewEligibilityRepository(db *sqlx.DB) *EligibilityRepository {
	return &EligibilityRepository{db: db}
}

// ListOverlapping returns the employee's windows intersecting [from, to].
func (r *EligibilityRepository) ListOverlapping(ctx context.Context, citizenID string, from, to time.Time) ([]models.EligibilityWindow, error) {
	const query = `SELECT id, citizen_id, master_rate_id, rate, effective_date, expiry_date, request_id, created_at
FROM eligibility_windows
WHERE citizen_id = $1 AND effective_date <= $3 AND (expiry_date IS NULL OR expiry_date >= $2)
ORDER BY effective_date ASC, id ASC`
	var windows []models.EligibilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, citizenID, from, to); err != nil {
		return nil, fmt.Errorf("list eligibility windows: %w", err)
	}
	return windows, nil
}

// ListCitizensWithin returns every employee with a window intersecting [from, to].
func (r *EligibilityRepository) ListCitizensWithin(ctx context.Context, from, to time.Time) ([]string, error) {
	const query = `SELECT DISTINCT citizen_id FROM eligibility_windows
WHERE effective_date <= $2 AND (expiry_date IS NULL OR expiry_date >= $1)
ORDER BY citizen_id ASC`
	var citizens []string
	if err := r.db.SelectContext(ctx, &citizens, query, from, to); err != nil {
		return nil, fmt.Errorf("list eligible citizens: %w", err)
	}
	return citizens, nil
}

// CloseOpenWindows sets the expiry of open-ended windows starting before effective to the day before it.
func (r *EligibilityRepository) CloseOpenWindows(ctx context.Context, tx *sqlx.Tx, citizenID string, effective time.Time) error {
	const query = `UPDATE eligibility_windows SET expiry_date = $2::date - 1
WHERE citizen_id = $1 AND expiry_date IS NULL AND effective_date < $2`
	if _, err := extOr(r.db, tx).ExecContext(ctx, query, citizenID, effective); err != nil {
		return fmt.Errorf("close eligibility windows: %w", err)
	}
	return nil
}

// CreateWindow inserts a window and fills its generated id.
func (r *EligibilityRepository) CreateWindow(ctx context.Context, tx *sqlx.Tx, window *models.EligibilityWindow) error {
	if window.CreatedAt.IsZero() {
		window.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO eligibility_windows (citizen_id, master_rate_id, rate, effective_date, expiry_date, request_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	row := extOr(r.db, tx).QueryRowxContext(ctx, query,
		window.CitizenID, window.MasterRateID, window.Rate, window.EffectiveDate, window.ExpiryDate, window.RequestID, window.CreatedAt)
	if err := row.Scan(&window.ID); err != nil {
		return fmt.Errorf("create eligibility window: %w", err)
	}
	return nil
}

// GetMasterRate returns a master rate or sql.ErrNoRows.
func (r *EligibilityRepository) GetMasterRate(ctx context.Context, id int64) (*models.MasterRate, error) {
	const query = `SELECT id, profession_code, group_no, item_no, amount, condition_desc, is_active FROM pts_master_rates WHERE id = $1`
	var rate models.MasterRate
	if err := r.db.GetContext(ctx, &rate, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get master rate: %w", err)
	}
	return &rate, nil
}

// ListMasterRates returns the rate table, optionally active rows only.
func (r *EligibilityRepository) ListMasterRates(ctx context.Context, activeOnly bool) ([]models.MasterRate, error) {
	query := `SELECT id, profession_code, group_no, item_no, amount, condition_desc, is_active FROM pts_master_rates`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY profession_code ASC, group_no ASC, item_no ASC`
	var rates []models.MasterRate
	if err := r.db.SelectContext(ctx, &rates, query); err != nil {
		return nil, fmt.Errorf("list master rates: %w", err)
	}
	return rates, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

const periodColumns = `id, period_year, period_month, status, total_amount, headcount, closed_at, closed_by, created_at, updated_at`

// PeriodRepository persists monthly pay periods.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository constructs the repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// Create inserts an OPEN period and fills its generated id.
func (r *PeriodRepository) Create(ctx context.Context, period *models.PayPeriod) error {
	now := time.Now().UTC()
	period.Status = models.PeriodStatusOpen
	period.CreatedAt = now
	period.UpdatedAt = now
	const query = `INSERT INTO pay_periods (period_year, period_month, status, total_amount, headcount, created_at, updated_at)
VALUES ($1, $2, $3, 0, 0, $4, $4) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, period.Year, period.Month, period.Status, now).Scan(&period.ID); err != nil {
		return fmt.Errorf("create pay period: %w", err)
	}
	return nil
}

// GetByID returns a period or sql.ErrNoRows.
func (r *PeriodRepository) GetByID(ctx context.Context, id int64) (*models.PayPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM pay_periods WHERE id = $1`
	var period models.PayPeriod
	if err := r.db.GetContext(ctx, &period, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get pay period: %w", err)
	}
	return &period, nil
}

// FindByYearMonth returns the period for a calendar month or sql.ErrNoRows.
func (r *PeriodRepository) FindByYearMonth(ctx context.Context, year, month int) (*models.PayPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM pay_periods WHERE period_year = $1 AND period_month = $2`
	var period models.PayPeriod
	if err := r.db.GetContext(ctx, &period, query, year, month); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find pay period: %w", err)
	}
	return &period, nil
}

// List returns periods, newest first, optionally for a single year.
func (r *PeriodRepository) List(ctx context.Context, year int) ([]models.PayPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM pay_periods`
	args := []interface{}{}
	if year > 0 {
		query += ` WHERE period_year = $1`
		args = append(args, year)
	}
	query += ` ORDER BY period_year DESC, period_month DESC`
	var periods []models.PayPeriod
	if err := r.db.SelectContext(ctx, &periods, query, args...); err != nil {
		return nil, fmt.Errorf("list pay periods: %w", err)
	}
	return periods, nil
}

// TransitionStatus moves a period from one status to another. It returns sql.ErrNoRows when the
// period is not in the expected status.
func (r *PeriodRepository) TransitionStatus(ctx context.Context, id int64, from, to models.PeriodStatus) error {
	const query = `UPDATE pay_periods SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update pay period status: %w", err)
	}
	return expectOneRow(result, "pay period status")
}

// UpdateTotals stores the aggregated amount and headcount of a run.
func (r *PeriodRepository) UpdateTotals(ctx context.Context, id int64, total decimal.Decimal, headcount int) error {
	const query = `UPDATE pay_periods SET total_amount = $2, headcount = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, total, headcount, time.Now().UTC()); err != nil {
		return fmt.Errorf("update pay period totals: %w", err)
	}
	return nil
}

// Close marks an OPEN period CLOSED. It returns sql.ErrNoRows when the period is not OPEN.
func (r *PeriodRepository) Close(ctx context.Context, id int64, actorID string, at time.Time) error {
	const query = `UPDATE pay_periods SET status = $2, closed_at = $3, closed_by = $4, updated_at = $3
WHERE id = $1 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, id, models.PeriodStatusClosed, at, actorID, models.PeriodStatusOpen)
	if err != nil {
		return fmt.Errorf("close pay period: %w", err)
	}
	return expectOneRow(result, "close pay period")
}

func expectOneRow(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

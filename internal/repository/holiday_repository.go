package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/pts-payroll-api/internal/models"
)

// HolidayRepository manages the holiday calendar.
type HolidayRepository struct {
	db *sqlx.DB
}

// NewHolidayRepository constructs the repository.
func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// ListBetween returns holidays in [from, to] ordered by date.
func (r *HolidayRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.Holiday, error) {
	const query = `SELECT id, holiday_date, name FROM holidays WHERE holiday_date BETWEEN $1 AND $2 ORDER BY holiday_date ASC`
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, from, to); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// Create inserts a holiday and fills its generated id.
func (r *HolidayRepository) Create(ctx context.Context, holiday *models.Holiday) error {
	const query = `INSERT INTO holidays (holiday_date, name) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, holiday.HolidayDate, holiday.Name).Scan(&holiday.ID); err != nil {
		return fmt.Errorf("create holiday: %w", err)
	}
	return nil
}

// ExistsOn reports whether a holiday is already recorded for the date.
func (r *HolidayRepository) ExistsOn(ctx context.Context, date time.Time) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM holidays WHERE holiday_date = $1)`, date); err != nil {
		return false, fmt.Errorf("check holiday: %w", err)
	}
	return exists, nil
}

// Delete removes a holiday. It returns false when nothing matched.
func (r *HolidayRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete holiday: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check holiday delete rows: %w", err)
	}
	return rows > 0, nil
}

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

// EmployeeRepository reads HR records the payroll engine depends on.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// FindByCitizenID returns the employee profile or sql.ErrNoRows.
func (r *EmployeeRepository) FindByCitizenID(ctx context.Context, citizenID string) (*models.Employee, error) {
	const query = `SELECT citizen_id, full_name, position_name, department, ward, updated_at FROM employees WHERE citizen_id = $1`
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, citizenID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find employee: %w", err)
	}
	return &employee, nil
}

// ListMovements returns movements effective on or before upTo, oldest first.
func (r *EmployeeRepository) ListMovements(ctx context.Context, citizenID string, upTo time.Time) ([]models.EmploymentMovement, error) {
	const query = `SELECT id, citizen_id, movement_type, effective_date, created_at
FROM employee_movements WHERE citizen_id = $1 AND effective_date <= $2
ORDER BY effective_date ASC, created_at ASC`
	var movements []models.EmploymentMovement
	if err := r.db.SelectContext(ctx, &movements, query, citizenID, upTo); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movements, nil
}

// ListLicenses returns every license recorded for the employee.
func (r *EmployeeRepository) ListLicenses(ctx context.Context, citizenID string) ([]models.LicenseRecord, error) {
	const query = `SELECT id, citizen_id, license_no, license_name, license_type, occupation_name, valid_from, valid_until, status
FROM employee_licenses WHERE citizen_id = $1 ORDER BY valid_from ASC NULLS FIRST`
	var licenses []models.LicenseRecord
	if err := r.db.SelectContext(ctx, &licenses, query, citizenID); err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	return licenses, nil
}

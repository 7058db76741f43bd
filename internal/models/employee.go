package models

import "time"

// MovementType enumerates employment status changes recorded by HR.
type MovementType string

const (
	MovementEntry       MovementType = "ENTRY"
	MovementStudy       MovementType = "STUDY"
	MovementResign      MovementType = "RESIGN"
	MovementRetire      MovementType = "RETIRE"
	MovementDeath       MovementType = "DEATH"
	MovementTransferOut MovementType = "TRANSFER_OUT"
)

// Employee is the HR profile the calculator reads the position name from.
type Employee struct {
	CitizenID    string    `db:"citizen_id" json:"citizenId"`
	FullName     string    `db:"full_name" json:"fullName"`
	PositionName string    `db:"position_name" json:"positionName"`
	Department   string    `db:"department" json:"department"`
	Ward         string    `db:"ward" json:"ward"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// EmploymentMovement is one entry of an employee's status change log.
type EmploymentMovement struct {
	ID            int64        `db:"id" json:"id"`
	CitizenID     string       `db:"citizen_id" json:"citizenId"`
	MovementType  MovementType `db:"movement_type" json:"movementType"`
	EffectiveDate time.Time    `db:"effective_date" json:"effectiveDate"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
}

// LicenseRecord is a professional license held by an employee.
type LicenseRecord struct {
	ID             int64      `db:"id" json:"id"`
	CitizenID      string     `db:"citizen_id" json:"citizenId"`
	LicenseNo      string     `db:"license_no" json:"licenseNo"`
	LicenseName    string     `db:"license_name" json:"licenseName"`
	LicenseType    string     `db:"license_type" json:"licenseType"`
	OccupationName string     `db:"occupation_name" json:"occupationName"`
	ValidFrom      *time.Time `db:"valid_from" json:"validFrom,omitempty"`
	ValidUntil     *time.Time `db:"valid_until" json:"validUntil,omitempty"`
	Status         string     `db:"status" json:"status"`
}

package models

import "time"

// Holiday is a non-working calendar date.
type Holiday struct {
	ID          int64     `db:"id" json:"id"`
	HolidayDate time.Time `db:"holiday_date" json:"date"`
	Name        string    `db:"name" json:"name"`
}

package dto

// CreateHolidayRequest is the body of POST /holidays.
type CreateHolidayRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Name string `json:"name" validate:"required,max=200"`
}

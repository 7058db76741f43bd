package dto

import "github.com/noah-isme/pts-payroll-api/internal/models"

// CreateUserRequest is the body of POST /admin/users.
type CreateUserRequest struct {
	Email     string          `json:"email" validate:"required,email"`
	FullName  string          `json:"full_name" validate:"required,max=255"`
	Role      models.UserRole `json:"role" validate:"required,oneof=USER WARD_HEAD DEPT_HEAD PTS_OFFICER HR_HEAD FINANCE_HEAD DIRECTOR ADMIN"`
	CitizenID string          `json:"citizen_id" validate:"omitempty,len=13,numeric"`
	Password  string          `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest is the body of PUT /admin/users/:id.
type UpdateUserRequest struct {
	FullName  string          `json:"full_name" validate:"required,max=255"`
	Role      models.UserRole `json:"role" validate:"required,oneof=USER WARD_HEAD DEPT_HEAD PTS_OFFICER HR_HEAD FINANCE_HEAD DIRECTOR ADMIN"`
	CitizenID *string         `json:"citizen_id" validate:"omitempty,len=13,numeric"`
	Active    *bool           `json:"active"`
}

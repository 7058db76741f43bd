package models

import "time"

// Notification is an in-app message addressed to every user holding a role.
type Notification struct {
	ID            string     `db:"id" json:"id"`
	RecipientRole UserRole   `db:"recipient_role" json:"recipientRole"`
	Title         string     `db:"title" json:"title"`
	Message       string     `db:"message" json:"message"`
	RefType       string     `db:"ref_type" json:"refType"`
	RefID         string     `db:"ref_id" json:"refId"`
	ReadAt        *time.Time `db:"read_at" json:"readAt,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}

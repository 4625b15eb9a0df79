package models

import "time"

// StaffProfile carries gate-staff metadata attached to a user account.
type StaffProfile struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Shift     string    `db:"shift" json:"shift"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StaffDetail joins the profile with its user account for listings.
type StaffDetail struct {
	StaffProfile
	Email    string `db:"email" json:"email"`
	Phone    string `db:"phone" json:"phone"`
	FullName string `db:"full_name" json:"full_name"`
	Active   bool   `db:"active" json:"active"`
}

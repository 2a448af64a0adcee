package models

import "time"

// ProfileStatus mirrors the owning invitation/account lifecycle.
type ProfileStatus string

const (
	ProfilePending  ProfileStatus = "pending"
	ProfileActive   ProfileStatus = "active"
	ProfileInactive ProfileStatus = "inactive"
)

// RoleProfile is the role-specific descriptive record (HOD or teacher)
// linked 1:1 to a user account. It is created pending alongside an
// invitation and populated when the invitation is redeemed.
type RoleProfile struct {
	ID             string        `db:"id" json:"id"`
	UserID         string        `db:"user_id" json:"user_id"`
	Role           UserRole      `db:"role" json:"role"`
	FullName       string        `db:"full_name" json:"full_name"`
	Email          string        `db:"email" json:"email"`
	DepartmentID   *string       `db:"department_id" json:"department_id,omitempty"`
	Qualification  string        `db:"qualification" json:"qualification"`
	Specialization string        `db:"specialization" json:"specialization"`
	Position       string        `db:"position" json:"position"`
	Phone          string        `db:"phone" json:"phone"`
	Experience     int           `db:"experience" json:"experience"`
	Department     string        `db:"department" json:"department"`
	Status         ProfileStatus `db:"status" json:"status"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

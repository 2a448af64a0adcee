package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin   UserRole = "super_admin"
	RoleCollegeAdmin UserRole = "college_admin"
	RoleHOD          UserRole = "hod"
	RoleTeacher      UserRole = "teacher"
	RoleClerk        UserRole = "clerk"
	RoleStudent      UserRole = "student"
	RoleRecruiter    UserRole = "recruiter"
	RoleAlumni       UserRole = "alumni"
)

// roleTiers orders the administrative hierarchy. Each tier is implicitly
// authorized for everything below it. Recruiter and alumni sit outside the
// ladder and only match exact-role checks.
var roleTiers = map[UserRole]int{
	RoleStudent:      1,
	RoleClerk:        2,
	RoleTeacher:      3,
	RoleHOD:          4,
	RoleCollegeAdmin: 5,
	RoleSuperAdmin:   6,
}

// Tier returns the hierarchy level of the role, or 0 for roles outside the
// administrative ladder.
func (r UserRole) Tier() int {
	return roleTiers[r]
}

// AtLeast reports whether the role sits at or above the given tier.
func (r UserRole) AtLeast(min UserRole) bool {
	tier := roleTiers[r]
	return tier > 0 && tier >= roleTiers[min]
}

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCollegeAdmin, RoleHOD, RoleTeacher, RoleClerk, RoleStudent, RoleRecruiter, RoleAlumni:
		return true
	}
	return false
}

// UserStatus tracks the account lifecycle.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User represents an application account stored in the users table.
// PasswordHash is empty for placeholder accounts awaiting invitation
// completion and for federated-login-only accounts.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Status       UserStatus `db:"status" json:"status"`
	CollegeID    string     `db:"college_id" json:"college_id"`
	DepartmentID *string    `db:"department_id" json:"department_id,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Active reports whether the account may authenticate.
func (u *User) Active() bool {
	return u != nil && u.Status == UserStatusActive
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	CollegeID    string
	Role         *UserRole
	Status       *UserStatus
	DepartmentID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// RegisterStudentRequest is the payload for student self-registration.
type RegisterStudentRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	FullName     string `json:"full_name" validate:"required"`
	CollegeID    string `json:"college_id" validate:"required"`
	DepartmentID string `json:"department_id"`
}

// UpdateUserRequest is the payload for administrative account edits.
type UpdateUserRequest struct {
	FullName     string      `json:"full_name"`
	Status       *UserStatus `json:"status"`
	DepartmentID *string     `json:"department_id"`
}

// VerifyAlumniRequest records the outcome of an alumni review.
type VerifyAlumniRequest struct {
	Approved bool `json:"approved"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

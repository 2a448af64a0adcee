package models

import "time"

// InvitationStatus tracks the invitation lifecycle. Expiry is evaluated at
// read time against ExpiresAt; the persisted status only ever moves
// pending -> completed.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationCompleted InvitationStatus = "completed"
	InvitationExpired   InvitationStatus = "expired"
)

// Invitation is a single-use, time-boxed capability token granting one email
// the right to complete registration into one role at one department.
type Invitation struct {
	ID         string           `db:"id" json:"id"`
	Token      string           `db:"token" json:"-"`
	Email      string           `db:"email" json:"email"`
	Role       UserRole         `db:"role" json:"role"`
	Status     InvitationStatus `db:"status" json:"status"`
	CollegeID  string           `db:"college_id" json:"college_id"`
	CreatedBy  string           `db:"created_by" json:"created_by"`
	Department string           `db:"department" json:"department"`
	Subject    string           `db:"subject" json:"subject"`
	Message    string           `db:"message" json:"message"`
	ExpiresAt  time.Time        `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}

// ExpiredAt reports whether the invitation is past its expiry at the given
// instant, regardless of the persisted status.
func (i *Invitation) ExpiredAt(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// InvitationFilter captures listing criteria for invitations.
type InvitationFilter struct {
	CollegeID string
	Status    InvitationStatus
	Email     string
	Page      int
	PageSize  int
}

// IssueInvitationRequest is the payload for inviting a user into a college.
type IssueInvitationRequest struct {
	Email        string   `json:"email" validate:"required,email"`
	Role         UserRole `json:"role" validate:"required"`
	DepartmentID string   `json:"department_id"`
	Subject      string   `json:"subject"`
	Message      string   `json:"message"`
}

// VerifyInvitationResponse describes a pending invitation to the invitee.
type VerifyInvitationResponse struct {
	Email      string    `json:"email"`
	Role       UserRole  `json:"role"`
	CollegeID  string    `json:"college_id"`
	Department string    `json:"department"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// CompleteRegistrationRequest is the payload for redeeming an invitation.
// The profile fields land on the invitee's role profile when it activates.
type CompleteRegistrationRequest struct {
	Token          string `json:"token" validate:"required"`
	FullName       string `json:"full_name" validate:"required"`
	Password       string `json:"password" validate:"required,min=8"`
	Phone          string `json:"phone"`
	Qualification  string `json:"qualification"`
	Specialization string `json:"specialization"`
	Experience     int    `json:"experience" validate:"omitempty,min=0"`
}

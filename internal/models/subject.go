package models

import "time"

// Subject is a course taught within a department. Code is globally unique;
// the instructor must be a teacher account in the same college as the
// department.
type Subject struct {
	ID               string    `db:"id" json:"id"`
	DepartmentID     string    `db:"department_id" json:"department_id"`
	Name             string    `db:"name" json:"name"`
	Code             string    `db:"code" json:"code"`
	Semester         int       `db:"semester" json:"semester"`
	TheoryCredits    int       `db:"theory_credits" json:"theory_credits"`
	PracticalCredits int       `db:"practical_credits" json:"practical_credits"`
	Description      string    `db:"description" json:"description"`
	InstructorID     *string   `db:"instructor_id" json:"instructor_id,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectDetail joins instructor account info onto a subject.
type SubjectDetail struct {
	Subject
	InstructorName  string `db:"instructor_name" json:"instructor_name"`
	InstructorEmail string `db:"instructor_email" json:"instructor_email"`
}

// CreateSubjectRequest is the payload for adding a subject. InstructorID,
// when set, must reference an active teacher of the same department.
type CreateSubjectRequest struct {
	DepartmentID     string `json:"department_id" validate:"required"`
	Name             string `json:"name" validate:"required"`
	Code             string `json:"code" validate:"required"`
	Semester         int    `json:"semester" validate:"required,min=1,max=12"`
	TheoryCredits    int    `json:"theory_credits" validate:"min=0,max=10"`
	PracticalCredits int    `json:"practical_credits" validate:"min=0,max=10"`
	Description      string `json:"description"`
	InstructorID     string `json:"instructor_id"`
}

// UpdateSubjectRequest is the payload for editing a subject.
type UpdateSubjectRequest struct {
	Name             string  `json:"name"`
	Code             string  `json:"code"`
	Semester         int     `json:"semester" validate:"omitempty,min=1,max=12"`
	TheoryCredits    *int    `json:"theory_credits" validate:"omitempty,min=0,max=10"`
	PracticalCredits *int    `json:"practical_credits" validate:"omitempty,min=0,max=10"`
	Description      *string `json:"description"`
	InstructorID     *string `json:"instructor_id"`
}

// SubjectFilter captures listing criteria for subjects.
type SubjectFilter struct {
	DepartmentID string
	Semester     int
	Search       string
	Page         int
	PageSize     int
}

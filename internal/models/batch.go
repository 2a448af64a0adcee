package models

import "time"

// Batch is a student cohort within a department, unique per
// (department, year, section). CurrentStudents is derived from the roster
// inside the same transaction as every roster mutation, so it never drifts
// from the actual roster length.
type Batch struct {
	ID              string    `db:"id" json:"id"`
	DepartmentID    string    `db:"department_id" json:"department_id"`
	Year            int       `db:"year" json:"year"`
	Section         string    `db:"section" json:"section"`
	Capacity        int       `db:"capacity" json:"capacity"`
	CurrentSemester int       `db:"current_semester" json:"current_semester"`
	CurrentStudents int       `db:"current_students" json:"current_students"`
	AverageGrade    float64   `db:"average_grade" json:"average_grade"`
	PassRate        float64   `db:"pass_rate" json:"pass_rate"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// BatchStudent is a roster row joined with account info.
type BatchStudent struct {
	UserID   string `db:"user_id" json:"user_id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// BatchDetail bundles a batch with its roster.
type BatchDetail struct {
	Batch
	Students []BatchStudent `json:"students"`
}

// CreateBatchRequest is the payload for adding a batch to a department.
type CreateBatchRequest struct {
	DepartmentID    string `json:"department_id" validate:"required"`
	Year            int    `json:"year" validate:"required,min=2000,max=2100"`
	Section         string `json:"section" validate:"required"`
	Capacity        int    `json:"capacity" validate:"required,min=1"`
	CurrentSemester int    `json:"current_semester" validate:"omitempty,min=1,max=12"`
}

// UpdateBatchRequest is the payload for editing a batch.
type UpdateBatchRequest struct {
	Capacity        int      `json:"capacity" validate:"omitempty,min=1"`
	CurrentSemester int      `json:"current_semester" validate:"omitempty,min=1,max=12"`
	AverageGrade    *float64 `json:"average_grade" validate:"omitempty,min=0,max=100"`
	PassRate        *float64 `json:"pass_rate" validate:"omitempty,min=0,max=100"`
}

// AddStudentsRequest enrolls students into a batch roster.
type AddStudentsRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,required"`
}

// BatchFilter captures listing criteria for batches.
type BatchFilter struct {
	DepartmentID string
	Year         int
	Page         int
	PageSize     int
}

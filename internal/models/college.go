package models

import "time"

// College is the root of the organizational hierarchy.
type College struct {
	ID                 string    `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Code               string    `db:"code" json:"code"`
	EmailDomain        string    `db:"email_domain" json:"email_domain"`
	Address            string    `db:"address" json:"address"`
	Website            string    `db:"website" json:"website"`
	About              string    `db:"about" json:"about"`
	VerificationStatus string    `db:"verification_status" json:"verification_status"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// UpdateCollegeRequest is the payload for editing a college profile.
type UpdateCollegeRequest struct {
	Name    string  `json:"name"`
	Address *string `json:"address"`
	Website *string `json:"website" validate:"omitempty,url"`
	About   *string `json:"about"`
}

// CollegeStats aggregates dashboard counters for a college.
type CollegeStats struct {
	TotalStudents    int                    `json:"total_students"`
	TotalTeachers    int                    `json:"total_teachers"`
	TotalDepartments int                    `json:"total_departments"`
	RecentUsers      []UserInfo             `json:"recent_users"`
	DepartmentCounts []DepartmentStudentRow `json:"department_counts"`
}

// DepartmentStudentRow pairs a department with its student count.
type DepartmentStudentRow struct {
	DepartmentID   string `db:"department_id" json:"department_id"`
	DepartmentName string `db:"department_name" json:"department_name"`
	StudentCount   int    `db:"student_count" json:"student_count"`
}

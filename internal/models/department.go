package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DepartmentMetrics carries aggregated counters for a department.
type DepartmentMetrics struct {
	TotalTeachers int     `json:"total_teachers"`
	TotalStudents int     `json:"total_students"`
	PassRate      float64 `json:"pass_rate"`
}

// EventType enumerates department event categories.
type EventType string

const (
	EventWorkshop    EventType = "workshop"
	EventSeminar     EventType = "seminar"
	EventConference  EventType = "conference"
	EventCompetition EventType = "competition"
	EventCultural    EventType = "cultural"
	EventTechnical   EventType = "technical"
	EventSports      EventType = "sports"
	EventOther       EventType = "other"
)

// Event is a department event entry.
type Event struct {
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time,omitempty"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Type        EventType `json:"type"`
	Status      string    `json:"status"`
}

// EventList stores department events as a JSONB column.
type EventList []Event

// Value implements driver.Valuer.
func (e EventList) Value() (driver.Value, error) {
	if e == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e)
}

// Scan implements sql.Scanner.
func (e *EventList) Scan(src interface{}) error {
	if src == nil {
		*e = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported event list source %T", src)
	}
	return json.Unmarshal(raw, e)
}

// Department is an organizational unit under a college. The (college, code)
// pair is unique; HODUserID references the owning HOD account when assigned.
type Department struct {
	ID             string    `db:"id" json:"id"`
	CollegeID      string    `db:"college_id" json:"college_id"`
	Name           string    `db:"name" json:"name"`
	Code           string    `db:"code" json:"code"`
	HODUserID      *string   `db:"hod_user_id" json:"hod_user_id,omitempty"`
	TotalSemesters int       `db:"total_semesters" json:"total_semesters"`
	Description    string    `db:"description" json:"description"`
	TotalTeachers  int       `db:"total_teachers" json:"total_teachers"`
	TotalStudents  int       `db:"total_students" json:"total_students"`
	PassRate       float64   `db:"pass_rate" json:"pass_rate"`
	Events         EventList `db:"events" json:"events"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Metrics bundles the aggregated counters.
func (d *Department) Metrics() DepartmentMetrics {
	return DepartmentMetrics{
		TotalTeachers: d.TotalTeachers,
		TotalStudents: d.TotalStudents,
		PassRate:      d.PassRate,
	}
}

// CreateDepartmentRequest is the payload for adding a department. HODEmail
// optionally triggers an HOD invitation for the new department.
type CreateDepartmentRequest struct {
	Name           string `json:"name" validate:"required"`
	Code           string `json:"code" validate:"required"`
	TotalSemesters int    `json:"total_semesters" validate:"required,min=1,max=12"`
	Description    string `json:"description"`
	HODEmail       string `json:"hod_email" validate:"omitempty,email"`
}

// UpdateDepartmentRequest is the payload for editing a department.
type UpdateDepartmentRequest struct {
	Name           string   `json:"name"`
	Code           string   `json:"code"`
	TotalSemesters int      `json:"total_semesters" validate:"omitempty,min=1,max=12"`
	Description    *string  `json:"description"`
	PassRate       *float64 `json:"pass_rate" validate:"omitempty,min=0,max=100"`
}

// CreateEventRequest is the payload for announcing a department event.
type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	Time        string    `json:"time"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Type        EventType `json:"type" validate:"required"`
}

// DepartmentDetail extends a department with joined HOD info and counts.
type DepartmentDetail struct {
	Department
	HODName       *string `db:"hod_name" json:"hod_name,omitempty"`
	HODEmail      *string `db:"hod_email" json:"hod_email,omitempty"`
	TotalBatches  int     `db:"total_batches" json:"total_batches"`
	TotalSubjects int     `db:"total_subjects" json:"total_subjects"`
}

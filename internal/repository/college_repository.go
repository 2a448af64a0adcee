package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/college-admin-api/internal/models"
)

const collegeColumns = `id, name, code, email_domain, address, website, about, verification_status, created_at, updated_at`

// CollegeRepository provides database access for colleges and their
// aggregate dashboard statistics.
type CollegeRepository struct {
	db *sqlx.DB
}

// NewCollegeRepository creates a new instance of CollegeRepository.
func NewCollegeRepository(db *sqlx.DB) *CollegeRepository {
	return &CollegeRepository{db: db}
}

// Create inserts a college.
func (r *CollegeRepository) Create(ctx context.Context, college *models.College) error {
	if college.ID == "" {
		college.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if college.CreatedAt.IsZero() {
		college.CreatedAt = now
	}
	college.UpdatedAt = now

	const query = `INSERT INTO colleges (id, name, code, email_domain, address, website, about, verification_status, created_at, updated_at)
        VALUES (:id, :name, :code, :email_domain, :address, :website, :about, :verification_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, college); err != nil {
		if IsUniqueViolation(err, "") {
			return err
		}
		return fmt.Errorf("create college: %w", err)
	}
	return nil
}

// FindByID returns a college by identifier.
func (r *CollegeRepository) FindByID(ctx context.Context, id string) (*models.College, error) {
	query := fmt.Sprintf(`SELECT %s FROM colleges WHERE id = $1 LIMIT 1`, collegeColumns)
	var college models.College
	if err := r.db.GetContext(ctx, &college, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find college by id: %w", err)
	}
	return &college, nil
}

// Update updates the editable profile fields of a college.
func (r *CollegeRepository) Update(ctx context.Context, college *models.College) error {
	college.UpdatedAt = time.Now().UTC()
	const query = `UPDATE colleges SET name = :name, address = :address, website = :website, about = :about, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, college); err != nil {
		return fmt.Errorf("update college: %w", err)
	}
	return nil
}

// List returns all colleges.
func (r *CollegeRepository) List(ctx context.Context) ([]models.College, error) {
	query := fmt.Sprintf(`SELECT %s FROM colleges ORDER BY name ASC`, collegeColumns)
	var colleges []models.College
	if err := r.db.SelectContext(ctx, &colleges, query); err != nil {
		return nil, fmt.Errorf("list colleges: %w", err)
	}
	return colleges, nil
}

// Stats aggregates the dashboard counters for a college.
func (r *CollegeRepository) Stats(ctx context.Context, collegeID string) (*models.CollegeStats, error) {
	stats := &models.CollegeStats{}

	const countsQuery = `SELECT
            COUNT(*) FILTER (WHERE role = 'student' AND status = 'active') AS total_students,
            COUNT(*) FILTER (WHERE role = 'teacher' AND status = 'active') AS total_teachers
        FROM users WHERE college_id = $1`
	row := struct {
		TotalStudents int `db:"total_students"`
		TotalTeachers int `db:"total_teachers"`
	}{}
	if err := r.db.GetContext(ctx, &row, countsQuery, collegeID); err != nil {
		return nil, fmt.Errorf("count college users: %w", err)
	}
	stats.TotalStudents = row.TotalStudents
	stats.TotalTeachers = row.TotalTeachers

	const deptQuery = `SELECT COUNT(*) FROM departments WHERE college_id = $1`
	if err := r.db.GetContext(ctx, &stats.TotalDepartments, deptQuery, collegeID); err != nil {
		return nil, fmt.Errorf("count college departments: %w", err)
	}

	const recentQuery = `SELECT id, email, full_name, role, college_id FROM users
        WHERE college_id = $1 AND status = 'active'
        ORDER BY created_at DESC LIMIT 5`
	if err := r.db.SelectContext(ctx, &stats.RecentUsers, recentQuery, collegeID); err != nil {
		return nil, fmt.Errorf("list recent users: %w", err)
	}

	const byDeptQuery = `SELECT d.id AS department_id, d.name AS department_name,
            COUNT(u.id) FILTER (WHERE u.role = 'student' AND u.status = 'active') AS student_count
        FROM departments d
        LEFT JOIN users u ON u.department_id = d.id
        WHERE d.college_id = $1
        GROUP BY d.id, d.name
        ORDER BY d.name ASC`
	if err := r.db.SelectContext(ctx, &stats.DepartmentCounts, byDeptQuery, collegeID); err != nil {
		return nil, fmt.Errorf("count students by department: %w", err)
	}

	return stats, nil
}

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

const departmentColumns = `id, college_id, name, code, hod_user_id, total_semesters, description, total_teachers, total_students, pass_rate, events, created_at, updated_at`

// DepartmentRepository provides database access for departments.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository creates a new instance of DepartmentRepository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// Create inserts a department. Code is unique per college.
func (r *DepartmentRepository) Create(ctx context.Context, dept *models.Department) error {
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if dept.CreatedAt.IsZero() {
		dept.CreatedAt = now
	}
	dept.UpdatedAt = now
	if dept.Events == nil {
		dept.Events = models.EventList{}
	}

	const query = `INSERT INTO departments (id, college_id, name, code, hod_user_id, total_semesters, description, total_teachers, total_students, pass_rate, events, created_at, updated_at)
        VALUES (:id, :college_id, :name, :code, :hod_user_id, :total_semesters, :description, :total_teachers, :total_students, :pass_rate, :events, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, dept); err != nil {
		if IsUniqueViolation(err, "") {
			return err
		}
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// FindByID returns a department by identifier.
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*models.Department, error) {
	query := fmt.Sprintf(`SELECT %s FROM departments WHERE id = $1 LIMIT 1`, departmentColumns)
	var dept models.Department
	if err := r.db.GetContext(ctx, &dept, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find department by id: %w", err)
	}
	return &dept, nil
}

// FindDetail returns a department joined with its HOD and child counts.
func (r *DepartmentRepository) FindDetail(ctx context.Context, id string) (*models.DepartmentDetail, error) {
	const query = `SELECT d.id, d.college_id, d.name, d.code, d.hod_user_id, d.total_semesters, d.description,
            d.total_teachers, d.total_students, d.pass_rate, d.events, d.created_at, d.updated_at,
            u.full_name AS hod_name, u.email AS hod_email,
            (SELECT COUNT(*) FROM batches b WHERE b.department_id = d.id) AS total_batches,
            (SELECT COUNT(*) FROM subjects s WHERE s.department_id = d.id) AS total_subjects
        FROM departments d
        LEFT JOIN users u ON u.id = d.hod_user_id
        WHERE d.id = $1`
	var detail models.DepartmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find department detail: %w", err)
	}
	return &detail, nil
}

// Update updates the mutable fields of a department.
func (r *DepartmentRepository) Update(ctx context.Context, dept *models.Department) error {
	dept.UpdatedAt = time.Now().UTC()
	const query = `UPDATE departments SET name = :name, code = :code, total_semesters = :total_semesters, description = :description,
        pass_rate = :pass_rate, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, dept); err != nil {
		if IsUniqueViolation(err, "") {
			return err
		}
		return fmt.Errorf("update department: %w", err)
	}
	return nil
}

// SetHOD assigns the head-of-department account.
func (r *DepartmentRepository) SetHOD(ctx context.Context, departmentID string, hodUserID *string) error {
	const query = `UPDATE departments SET hod_user_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, departmentID, hodUserID, time.Now().UTC()); err != nil {
		return fmt.Errorf("set department hod: %w", err)
	}
	return nil
}

// AppendEvent appends an announcement to the department's event log.
func (r *DepartmentRepository) AppendEvent(ctx context.Context, departmentID string, event models.Event) error {
	const query = `UPDATE departments SET events = events || $2::jsonb, updated_at = $3 WHERE id = $1`
	payload, err := models.EventList{event}.Value()
	if err != nil {
		return fmt.Errorf("encode department event: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, departmentID, payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("append department event: %w", err)
	}
	return nil
}

// RefreshCounts recomputes the cached teacher and student totals from the
// users table.
func (r *DepartmentRepository) RefreshCounts(ctx context.Context, departmentID string) error {
	const query = `UPDATE departments SET
            total_teachers = (SELECT COUNT(*) FROM users WHERE department_id = $1 AND role = 'teacher' AND status = 'active'),
            total_students = (SELECT COUNT(*) FROM users WHERE department_id = $1 AND role = 'student' AND status = 'active'),
            updated_at = $2
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, departmentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("refresh department counts: %w", err)
	}
	return nil
}

// ListByCollege returns a college's departments with HOD details.
func (r *DepartmentRepository) ListByCollege(ctx context.Context, collegeID string) ([]models.DepartmentDetail, error) {
	const query = `SELECT d.id, d.college_id, d.name, d.code, d.hod_user_id, d.total_semesters, d.description,
            d.total_teachers, d.total_students, d.pass_rate, d.events, d.created_at, d.updated_at,
            u.full_name AS hod_name, u.email AS hod_email,
            (SELECT COUNT(*) FROM batches b WHERE b.department_id = d.id) AS total_batches,
            (SELECT COUNT(*) FROM subjects s WHERE s.department_id = d.id) AS total_subjects
        FROM departments d
        LEFT JOIN users u ON u.id = d.hod_user_id
        WHERE d.college_id = $1
        ORDER BY d.name ASC`
	var departments []models.DepartmentDetail
	if err := r.db.SelectContext(ctx, &departments, query, collegeID); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// Delete removes a department. Foreign keys cascade batches and subjects.
func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM departments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

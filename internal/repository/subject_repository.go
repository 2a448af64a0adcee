package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/college-admin-api/internal/models"
)

const subjectColumns = `id, department_id, name, code, semester, theory_credits, practical_credits, description, instructor_id, created_at, updated_at`

// SubjectRepository provides database access for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new instance of SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// Create inserts a subject. Code is globally unique.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (id, department_id, name, code, semester, theory_credits, practical_credits, description, instructor_id, created_at, updated_at)
        VALUES (:id, :department_id, :name, :code, :semester, :theory_credits, :practical_credits, :description, :instructor_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		if IsUniqueViolation(err, "") {
			return err
		}
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// FindByID returns a subject by identifier.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	query := fmt.Sprintf(`SELECT %s FROM subjects WHERE id = $1 LIMIT 1`, subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find subject by id: %w", err)
	}
	return &subject, nil
}

// FindDetail returns a subject joined with its instructor.
func (r *SubjectRepository) FindDetail(ctx context.Context, id string) (*models.SubjectDetail, error) {
	const query = `SELECT s.id, s.department_id, s.name, s.code, s.semester, s.theory_credits, s.practical_credits,
            s.description, s.instructor_id, s.created_at, s.updated_at,
            COALESCE(u.full_name, '') AS instructor_name, COALESCE(u.email, '') AS instructor_email
        FROM subjects s
        LEFT JOIN users u ON u.id = s.instructor_id
        WHERE s.id = $1`
	var detail models.SubjectDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find subject detail: %w", err)
	}
	return &detail, nil
}

// Update updates the mutable fields of a subject.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, code = :code, semester = :semester, theory_credits = :theory_credits,
        practical_credits = :practical_credits, description = :description, instructor_id = :instructor_id, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		if IsUniqueViolation(err, "") {
			return err
		}
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// List returns subjects matching the filter with total count.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, int, error) {
	baseQuery := `FROM subjects s LEFT JOIN users u ON u.id = s.instructor_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("s.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("s.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.name) LIKE $%d OR LOWER(s.code) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT s.id, s.department_id, s.name, s.code, s.semester, s.theory_credits, s.practical_credits,
            s.description, s.instructor_id, s.created_at, s.updated_at,
            COALESCE(u.full_name, '') AS instructor_name, COALESCE(u.email, '') AS instructor_email
        %s ORDER BY s.semester ASC, s.code ASC LIMIT %d OFFSET %d`, baseQuery, pageSize, offset)

	var subjects []models.SubjectDetail
	if err := r.db.SelectContext(ctx, &subjects, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}

	return subjects, total, nil
}

// Delete removes a subject.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

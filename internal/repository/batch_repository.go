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

const batchColumns = `id, department_id, year, section, capacity, current_semester, current_students, average_grade, pass_rate, created_at, updated_at`

// BatchRepository provides database access for batches and their rosters.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository creates a new instance of BatchRepository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts a batch. Year and section are unique per department.
func (r *BatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	const query = `INSERT INTO batches (id, department_id, year, section, capacity, current_semester, current_students, average_grade, pass_rate, created_at, updated_at)
        VALUES (:id, :department_id, :year, :section, :capacity, :current_semester, :current_students, :average_grade, :pass_rate, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		if IsUniqueViolation(err, "") {
			return err
		}
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// FindByID returns a batch by identifier.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	query := fmt.Sprintf(`SELECT %s FROM batches WHERE id = $1 LIMIT 1`, batchColumns)
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find batch by id: %w", err)
	}
	return &batch, nil
}

// FindDetail returns a batch along with its enrolled students.
func (r *BatchRepository) FindDetail(ctx context.Context, id string) (*models.BatchDetail, error) {
	batch, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	const rosterQuery = `SELECT u.id AS user_id, u.full_name, u.email
        FROM batch_students bs
        JOIN users u ON u.id = bs.user_id
        WHERE bs.batch_id = $1
        ORDER BY u.full_name ASC`
	var students []models.BatchStudent
	if err := r.db.SelectContext(ctx, &students, rosterQuery, id); err != nil {
		return nil, fmt.Errorf("list batch students: %w", err)
	}

	return &models.BatchDetail{Batch: *batch, Students: students}, nil
}

// Update updates the mutable fields of a batch. current_students is derived
// from the roster and only changes through roster operations.
func (r *BatchRepository) Update(ctx context.Context, batch *models.Batch) error {
	batch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE batches SET capacity = :capacity, current_semester = :current_semester, average_grade = :average_grade,
        pass_rate = :pass_rate, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

// AddStudents enrolls students and recounts current_students in the same
// transaction so the cached total never drifts from the roster.
func (r *BatchRepository) AddStudents(ctx context.Context, batchID string, userIDs []string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin add students: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO batch_students (batch_id, user_id, added_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	now := time.Now().UTC()
	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx, insert, batchID, userID, now); err != nil {
			return 0, fmt.Errorf("enroll student: %w", err)
		}
	}

	count, err := recountBatch(ctx, tx, batchID, now)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit add students: %w", err)
	}
	return count, nil
}

// RemoveStudent removes a student from the roster and recounts within one
// transaction.
func (r *BatchRepository) RemoveStudent(ctx context.Context, batchID, userID string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin remove student: %w", err)
	}
	defer tx.Rollback()

	const remove = `DELETE FROM batch_students WHERE batch_id = $1 AND user_id = $2`
	result, err := tx.ExecContext(ctx, remove, batchID, userID)
	if err != nil {
		return 0, fmt.Errorf("remove student: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return 0, sql.ErrNoRows
	}

	count, err := recountBatch(ctx, tx, batchID, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit remove student: %w", err)
	}
	return count, nil
}

func recountBatch(ctx context.Context, tx *sqlx.Tx, batchID string, now time.Time) (int, error) {
	const recount = `UPDATE batches SET current_students = (SELECT COUNT(*) FROM batch_students WHERE batch_id = $1), updated_at = $2
        WHERE id = $1 RETURNING current_students`
	var count int
	if err := tx.GetContext(ctx, &count, recount, batchID, now); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("recount batch: %w", err)
	}
	return count, nil
}

// List returns batches matching the filter with total count.
func (r *BatchRepository) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, int, error) {
	baseQuery := `FROM batches WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY year DESC, section ASC LIMIT %d OFFSET %d", batchColumns, baseQuery, pageSize, offset)

	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	return batches, total, nil
}

// Delete removes a batch along with its roster rows.
func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete batch: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM batch_students WHERE batch_id = $1`, id); err != nil {
		return fmt.Errorf("delete batch roster: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete batch: %w", err)
	}
	return nil
}

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

const profileColumns = `id, user_id, role, full_name, email, department_id, qualification, specialization, position, phone, experience, department, status, created_at, updated_at`

// ProfileRepository provides database access for role profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new instance of ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a role profile.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.RoleProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	profile.Email = strings.ToLower(profile.Email)

	const query = `INSERT INTO role_profiles (id, user_id, role, full_name, email, department_id, qualification, specialization, position, phone, experience, department, status, created_at, updated_at)
        VALUES (:id, :user_id, :role, :full_name, :email, :department_id, :qualification, :specialization, :position, :phone, :experience, :department, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		if IsUniqueViolation(err, "") {
			return err
		}
		return fmt.Errorf("create role profile: %w", err)
	}
	return nil
}

// FindByUserID returns the profile held by an account.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.RoleProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM role_profiles WHERE user_id = $1 LIMIT 1`, profileColumns)
	var profile models.RoleProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile by user id: %w", err)
	}
	return &profile, nil
}

// Update updates the mutable details of a profile.
func (r *ProfileRepository) Update(ctx context.Context, profile *models.RoleProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE role_profiles SET full_name = :full_name, department_id = :department_id, qualification = :qualification,
        specialization = :specialization, position = :position, phone = :phone, experience = :experience, department = :department,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update role profile: %w", err)
	}
	return nil
}

// ListByDepartment returns active profiles attached to a department.
func (r *ProfileRepository) ListByDepartment(ctx context.Context, departmentID string, role models.UserRole) ([]models.RoleProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM role_profiles WHERE department_id = $1 AND role = $2 AND status = 'active' ORDER BY full_name ASC`, profileColumns)
	var profiles []models.RoleProfile
	if err := r.db.SelectContext(ctx, &profiles, query, departmentID, role); err != nil {
		return nil, fmt.Errorf("list profiles by department: %w", err)
	}
	return profiles, nil
}

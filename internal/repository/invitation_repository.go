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

const invitationColumns = `id, token, email, role, status, college_id, created_by, department, subject, message, expires_at, created_at`

// InvitationRepository provides database access for invitation records.
type InvitationRepository struct {
	db *sqlx.DB
}

// NewInvitationRepository creates a new instance of InvitationRepository.
func NewInvitationRepository(db *sqlx.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create inserts a pending invitation. The invitations_pending_email_idx
// partial unique index rejects a second pending invitation for the same
// email, which surfaces as a unique violation.
func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	inv.Email = strings.ToLower(inv.Email)

	const query = `INSERT INTO invitations (id, token, email, role, status, college_id, created_by, department, subject, message, expires_at, created_at)
        VALUES (:id, :token, :email, :role, :status, :college_id, :created_by, :department, :subject, :message, :expires_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
		if IsUniqueViolation(err, "") {
			return err
		}
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

// FindByToken returns an invitation by its opaque token regardless of status.
func (r *InvitationRepository) FindByToken(ctx context.Context, token string) (*models.Invitation, error) {
	query := fmt.Sprintf(`SELECT %s FROM invitations WHERE token = $1 LIMIT 1`, invitationColumns)
	var inv models.Invitation
	if err := r.db.GetContext(ctx, &inv, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find invitation by token: %w", err)
	}
	return &inv, nil
}

// FindPendingByEmail returns the pending invitation for an email, if any.
func (r *InvitationRepository) FindPendingByEmail(ctx context.Context, email string) (*models.Invitation, error) {
	query := fmt.Sprintf(`SELECT %s FROM invitations WHERE LOWER(email) = LOWER($1) AND status = 'pending' LIMIT 1`, invitationColumns)
	var inv models.Invitation
	if err := r.db.GetContext(ctx, &inv, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find pending invitation: %w", err)
	}
	return &inv, nil
}

// MarkExpired moves a pending invitation to the expired status.
func (r *InvitationRepository) MarkExpired(ctx context.Context, id string) error {
	const query = `UPDATE invitations SET status = 'expired' WHERE id = $1 AND status = 'pending'`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark invitation expired: %w", err)
	}
	return nil
}

// Complete redeems an invitation and activates the invited account inside a
// single transaction. The status update is conditional on the invitation
// still being pending and unexpired; zero rows affected means a concurrent
// redemption or expiry won and the caller receives sql.ErrNoRows. The
// request's profile fields are written onto the activating role profile.
func (r *InvitationRepository) Complete(ctx context.Context, req models.CompleteRegistrationRequest, passwordHash string, now time.Time) (*models.Invitation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin complete invitation: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`UPDATE invitations SET status = 'completed' WHERE token = $1 AND status = 'pending' AND expires_at > $2 RETURNING %s`, invitationColumns)
	var inv models.Invitation
	if err := tx.GetContext(ctx, &inv, query, req.Token, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("redeem invitation: %w", err)
	}

	const activateUser = `UPDATE users SET password_hash = $2, full_name = $3, status = 'active', updated_at = $4
        WHERE LOWER(email) = LOWER($1) AND status = 'pending'`
	if _, err := tx.ExecContext(ctx, activateUser, inv.Email, passwordHash, req.FullName, now); err != nil {
		return nil, fmt.Errorf("activate invited user: %w", err)
	}

	const activateProfile = `UPDATE role_profiles SET status = 'active', full_name = $2, phone = $3, qualification = $4, specialization = $5, experience = $6, updated_at = $7
        WHERE LOWER(email) = LOWER($1) AND status = 'pending'`
	if _, err := tx.ExecContext(ctx, activateProfile, inv.Email, req.FullName, req.Phone, req.Qualification, req.Specialization, req.Experience, now); err != nil {
		return nil, fmt.Errorf("activate invited profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit complete invitation: %w", err)
	}
	return &inv, nil
}

// List returns invitations for a college with total count.
func (r *InvitationRepository) List(ctx context.Context, filter models.InvitationFilter) ([]models.Invitation, int, error) {
	baseQuery := `FROM invitations WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.CollegeID != "" {
		conditions = append(conditions, fmt.Sprintf("college_id = $%d", len(args)+1))
		args = append(args, filter.CollegeID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Email != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(email) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Email)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", invitationColumns, baseQuery, pageSize, offset)

	var invitations []models.Invitation
	if err := r.db.SelectContext(ctx, &invitations, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list invitations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count invitations: %w", err)
	}

	return invitations, total, nil
}

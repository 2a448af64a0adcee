package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/college-admin-api/internal/models"
	"github.com/campuskit/college-admin-api/internal/repository"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
	"github.com/campuskit/college-admin-api/pkg/jobs"
)

type invitationRepository interface {
	Create(ctx context.Context, inv *models.Invitation) error
	FindByToken(ctx context.Context, token string) (*models.Invitation, error)
	MarkExpired(ctx context.Context, id string) error
	Complete(ctx context.Context, req models.CompleteRegistrationRequest, passwordHash string, now time.Time) (*models.Invitation, error)
	List(ctx context.Context, filter models.InvitationFilter) ([]models.Invitation, int, error)
}

type invitationUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type invitationProfileRepository interface {
	Create(ctx context.Context, profile *models.RoleProfile) error
}

type invitationDepartmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
	RefreshCounts(ctx context.Context, departmentID string) error
}

// InvitationConfig defines invitation issuance settings.
type InvitationConfig struct {
	Duration     time.Duration
	FrontendBase string
}

// InvitationService manages the invitation lifecycle from issuance through
// completion.
type InvitationService struct {
	invitations invitationRepository
	users       invitationUserRepository
	profiles    invitationProfileRepository
	departments invitationDepartmentRepository
	mailQueue   *jobs.Queue
	validator   *validator.Validate
	logger      *zap.Logger
	config      InvitationConfig
	now         func() time.Time
}

// InvitationMailJob is the payload enqueued for asynchronous delivery.
type InvitationMailJob struct {
	Email         string
	Role          string
	Department    string
	Subject       string
	Message       string
	CompletionURL string
	ExpiresAt     time.Time
}

// NewInvitationService constructs an InvitationService instance.
func NewInvitationService(
	invitations invitationRepository,
	users invitationUserRepository,
	profiles invitationProfileRepository,
	departments invitationDepartmentRepository,
	mailQueue *jobs.Queue,
	validate *validator.Validate,
	logger *zap.Logger,
	config InvitationConfig,
) *InvitationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Duration <= 0 {
		config.Duration = 7 * 24 * time.Hour
	}
	return &InvitationService{
		invitations: invitations,
		users:       users,
		profiles:    profiles,
		departments: departments,
		mailQueue:   mailQueue,
		validator:   validate,
		logger:      logger,
		config:      config,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// invitableRoles lists the roles that may be provisioned through an
// invitation. Students self-register and super admins are seeded directly.
var invitableRoles = map[models.UserRole]bool{
	models.RoleCollegeAdmin: true,
	models.RoleHOD:          true,
	models.RoleTeacher:      true,
	models.RoleClerk:        true,
	models.RoleAlumni:       true,
}

// Issue creates a placeholder account, a pending role profile and a pending
// invitation, then queues the invitation mail. Mail delivery failure never
// fails the operation.
func (s *InvitationService) Issue(ctx context.Context, actor *models.User, req models.IssueInvitationRequest) (*models.Invitation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invitation payload")
	}
	if !invitableRoles[req.Role] {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("role %s cannot be invited", req.Role))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	if existing, err := s.users.FindByEmail(ctx, email); err == nil && existing != nil {
		if existing.Status != models.UserStatusPending {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an account with this email already exists")
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "an invitation for this email is already pending")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing account")
	}

	var departmentName string
	var departmentID *string
	if req.DepartmentID != "" {
		dept, err := s.departments.FindByID(ctx, req.DepartmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
		}
		if dept.CollegeID != actor.CollegeID && actor.Role != models.RoleSuperAdmin {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "department belongs to another college")
		}
		departmentName = dept.Name
		departmentID = &dept.ID
	}

	token, err := generateInvitationToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate invitation token")
	}

	now := s.now()

	placeholder := &models.User{
		Email:        email,
		FullName:     "",
		Role:         req.Role,
		Status:       models.UserStatusPending,
		CollegeID:    actor.CollegeID,
		DepartmentID: departmentID,
	}
	if err := s.users.Create(ctx, placeholder); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an account with this email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create placeholder account")
	}

	profile := &models.RoleProfile{
		UserID:       placeholder.ID,
		Role:         req.Role,
		Email:        email,
		DepartmentID: departmentID,
		Department:   departmentName,
		Status:       models.ProfilePending,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create role profile")
	}

	invitation := &models.Invitation{
		Token:      token,
		Email:      email,
		Role:       req.Role,
		Status:     models.InvitationPending,
		CollegeID:  actor.CollegeID,
		CreatedBy:  actor.ID,
		Department: departmentName,
		Subject:    req.Subject,
		Message:    req.Message,
		ExpiresAt:  now.Add(s.config.Duration),
		CreatedAt:  now,
	}
	if err := s.invitations.Create(ctx, invitation); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an invitation for this email is already pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create invitation")
	}

	s.enqueueInvitationMail(invitation)

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionInvitationIssue,
		Resource:   "invitation",
		ResourceID: &invitation.ID,
		NewValues:  []byte(fmt.Sprintf(`{"email":%q,"role":%q}`, email, req.Role)),
	}); err != nil {
		s.logger.Warn("failed to record invitation audit log", zap.Error(err))
	}

	return invitation, nil
}

// Verify reports the invitation details for a token without mutating
// anything. Expired invitations are distinguished from unknown tokens.
func (s *InvitationService) Verify(ctx context.Context, token string) (*models.VerifyInvitationResponse, error) {
	invitation, err := s.lookupPending(ctx, token)
	if err != nil {
		return nil, err
	}

	return &models.VerifyInvitationResponse{
		Email:      invitation.Email,
		Role:       invitation.Role,
		CollegeID:  invitation.CollegeID,
		Department: invitation.Department,
		ExpiresAt:  invitation.ExpiresAt,
	}, nil
}

// Complete redeems an invitation: the invited account receives its password
// and becomes active, the profile activates, and the invitation completes.
// A token redeemed concurrently loses with a conflict.
func (s *InvitationService) Complete(ctx context.Context, req models.CompleteRegistrationRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.lookupPending(ctx, req.Token); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	completed, err := s.invitations.Complete(ctx, req, passwordHash, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "invitation was already redeemed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete registration")
	}

	user, err := s.users.FindByEmail(ctx, completed.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activated account")
	}

	if user.DepartmentID != nil {
		if err := s.departments.RefreshCounts(ctx, *user.DepartmentID); err != nil {
			s.logger.Warn("failed to refresh department counts", zap.Error(err))
		}
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionInvitationRedeem,
		Resource:   "invitation",
		ResourceID: &completed.ID,
		NewValues:  []byte(`{"status":"completed"}`),
	}); err != nil {
		s.logger.Warn("failed to record redemption audit log", zap.Error(err))
	}

	return user, nil
}

// Resend re-queues the invitation mail for a still-pending invitation.
func (s *InvitationService) Resend(ctx context.Context, actor *models.User, token string) error {
	invitation, err := s.lookupPending(ctx, token)
	if err != nil {
		return err
	}
	if invitation.CollegeID != actor.CollegeID && actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "invitation belongs to another college")
	}
	s.enqueueInvitationMail(invitation)
	return nil
}

// List returns invitations visible to the actor's college.
func (s *InvitationService) List(ctx context.Context, actor *models.User, filter models.InvitationFilter) ([]models.Invitation, int, error) {
	if actor.Role != models.RoleSuperAdmin {
		filter.CollegeID = actor.CollegeID
	}
	invitations, total, err := s.invitations.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invitations")
	}
	return invitations, total, nil
}

// lookupPending fetches an invitation by token and checks its lifecycle
// state, lazily marking stale pending rows expired.
func (s *InvitationService) lookupPending(ctx context.Context, token string) (*models.Invitation, error) {
	invitation, err := s.invitations.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invitation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invitation")
	}

	switch invitation.Status {
	case models.InvitationCompleted:
		return nil, appErrors.Clone(appErrors.ErrConflict, "invitation was already redeemed")
	case models.InvitationExpired:
		return nil, appErrors.Clone(appErrors.ErrExpired, "invitation has expired")
	}

	if invitation.ExpiredAt(s.now()) {
		if err := s.invitations.MarkExpired(ctx, invitation.ID); err != nil {
			s.logger.Warn("failed to mark invitation expired", zap.Error(err))
		}
		return nil, appErrors.Clone(appErrors.ErrExpired, "invitation has expired")
	}

	return invitation, nil
}

func (s *InvitationService) enqueueInvitationMail(invitation *models.Invitation) {
	if s.mailQueue == nil {
		return
	}
	job := jobs.Job{
		ID:   invitation.ID,
		Type: "invitation_mail",
		Payload: InvitationMailJob{
			Email:         invitation.Email,
			Role:          string(invitation.Role),
			Department:    invitation.Department,
			Subject:       invitation.Subject,
			Message:       invitation.Message,
			CompletionURL: fmt.Sprintf("%s/complete-registration/%s", s.config.FrontendBase, invitation.Token),
			ExpiresAt:     invitation.ExpiresAt,
		},
	}
	if err := s.mailQueue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue invitation mail",
			zap.String("invitation_id", invitation.ID),
			zap.Error(err))
	}
}

func generateInvitationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

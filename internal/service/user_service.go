package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/college-admin-api/internal/models"
	"github.com/campuskit/college-admin-api/internal/repository"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
	"github.com/campuskit/college-admin-api/pkg/jobs"
)

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	SetVerificationStatus(ctx context.Context, userID, collegeID string, status models.UserStatus) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type userDepartmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
	RefreshCounts(ctx context.Context, departmentID string) error
}

type userCollegeRepository interface {
	FindByID(ctx context.Context, id string) (*models.College, error)
}

// UserService manages accounts: student self-registration, administrative
// listing and edits, and alumni verification.
type UserService struct {
	repo        userRepository
	departments userDepartmentRepository
	colleges    userCollegeRepository
	mailQueue   *jobs.Queue
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userRepository, departments userDepartmentRepository, colleges userCollegeRepository, mailQueue *jobs.Queue, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, departments: departments, colleges: colleges, mailQueue: mailQueue, validator: validate, logger: logger}
}

// RegisterStudent creates an active student account directly, without an
// invitation.
func (s *UserService) RegisterStudent(ctx context.Context, req models.RegisterStudentRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.colleges.FindByID(ctx, req.CollegeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "college not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load college")
	}

	var departmentID *string
	if req.DepartmentID != "" {
		dept, err := s.departments.FindByID(ctx, req.DepartmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
		}
		if dept.CollegeID != req.CollegeID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "department belongs to another college")
		}
		departmentID = &dept.ID
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		Role:         models.RoleStudent,
		Status:       models.UserStatusActive,
		CollegeID:    req.CollegeID,
		DepartmentID: departmentID,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an account with this email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	if departmentID != nil {
		if err := s.departments.RefreshCounts(ctx, *departmentID); err != nil {
			s.logger.Warn("failed to refresh department counts", zap.Error(err))
		}
	}

	s.recordAudit(ctx, user.ID, models.AuditActionUserCreate, user.ID, `{"role":"student"}`)
	return user, nil
}

// Get returns an account visible to the actor.
func (s *UserService) Get(ctx context.Context, actor *models.User, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if actor.ID != user.ID {
		if err := requireCollegeScope(actor, user.CollegeID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// List returns accounts scoped to the actor's college. Super admins see all
// colleges unless they filter explicitly.
func (s *UserService) List(ctx context.Context, actor *models.User, filter models.UserFilter) ([]models.User, int, error) {
	if err := requireMinRole(actor, models.RoleHOD); err != nil {
		return nil, 0, err
	}
	if actor.Role != models.RoleSuperAdmin {
		filter.CollegeID = actor.CollegeID
	}
	if actor.Role == models.RoleHOD && actor.DepartmentID != nil {
		filter.DepartmentID = *actor.DepartmentID
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, total, nil
}

// Update edits an account's administrative fields.
func (s *UserService) Update(ctx context.Context, actor *models.User, id string, req models.UpdateUserRequest) (*models.User, error) {
	if err := requireMinRole(actor, models.RoleCollegeAdmin); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if err := requireCollegeScope(actor, user.CollegeID); err != nil {
		return nil, err
	}
	if user.Role.AtLeast(actor.Role) && actor.ID != user.ID && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot edit an account of equal or higher role")
	}

	oldDepartment := user.DepartmentID

	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Status != nil {
		user.Status = *req.Status
	}
	if req.DepartmentID != nil {
		if *req.DepartmentID == "" {
			user.DepartmentID = nil
		} else {
			dept, err := s.departments.FindByID(ctx, *req.DepartmentID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
			}
			if dept.CollegeID != user.CollegeID {
				return nil, appErrors.Clone(appErrors.ErrValidation, "department belongs to another college")
			}
			user.DepartmentID = req.DepartmentID
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.refreshDepartments(ctx, oldDepartment, user.DepartmentID)
	s.recordAudit(ctx, actor.ID, models.AuditActionUserUpdate, user.ID, `{"status":"updated"}`)
	return user, nil
}

// Delete deactivates an account.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := requireMinRole(actor, models.RoleCollegeAdmin); err != nil {
		return err
	}
	if actor.ID == id {
		return appErrors.Clone(appErrors.ErrValidation, "cannot delete your own account")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if err := requireCollegeScope(actor, user.CollegeID); err != nil {
		return err
	}
	if user.Role.AtLeast(actor.Role) && actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot delete an account of equal or higher role")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	if user.DepartmentID != nil {
		if err := s.departments.RefreshCounts(ctx, *user.DepartmentID); err != nil {
			s.logger.Warn("failed to refresh department counts", zap.Error(err))
		}
	}

	s.recordAudit(ctx, actor.ID, models.AuditActionUserDelete, user.ID, `{"status":"inactive"}`)
	return nil
}

// VerifyAlumni approves or rejects a pending alumni account and queues the
// outcome notification.
func (s *UserService) VerifyAlumni(ctx context.Context, actor *models.User, id string, req models.VerifyAlumniRequest) (*models.User, error) {
	if err := requireMinRole(actor, models.RoleCollegeAdmin); err != nil {
		return nil, err
	}

	status := models.UserStatusActive
	if !req.Approved {
		status = models.UserStatusInactive
	}

	user, err := s.repo.SetVerificationStatus(ctx, id, actor.CollegeID, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alumni account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update alumni status")
	}

	if s.mailQueue != nil {
		job := jobs.Job{
			ID:   user.ID,
			Type: "verification_mail",
			Payload: VerificationMailJob{
				Email:    user.Email,
				FullName: user.FullName,
				Approved: req.Approved,
			},
		}
		if err := s.mailQueue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue verification mail", zap.Error(err))
		}
	}

	s.recordAudit(ctx, actor.ID, models.AuditActionAlumniVerify, user.ID, fmt.Sprintf(`{"approved":%t}`, req.Approved))
	return user, nil
}

func (s *UserService) refreshDepartments(ctx context.Context, old, current *string) {
	seen := map[string]bool{}
	for _, id := range []*string{old, current} {
		if id == nil || seen[*id] {
			continue
		}
		seen[*id] = true
		if err := s.departments.RefreshCounts(ctx, *id); err != nil {
			s.logger.Warn("failed to refresh department counts", zap.Error(err))
		}
	}
}

func (s *UserService) recordAudit(ctx context.Context, actorID, action, resourceID, payload string) {
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "user",
		ResourceID: &resourceID,
		NewValues:  []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record user audit log", zap.Error(err))
	}
}

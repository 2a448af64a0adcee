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
)

type departmentRepository interface {
	Create(ctx context.Context, dept *models.Department) error
	FindByID(ctx context.Context, id string) (*models.Department, error)
	FindDetail(ctx context.Context, id string) (*models.DepartmentDetail, error)
	Update(ctx context.Context, dept *models.Department) error
	SetHOD(ctx context.Context, departmentID string, hodUserID *string) error
	AppendEvent(ctx context.Context, departmentID string, event models.Event) error
	ListByCollege(ctx context.Context, collegeID string) ([]models.DepartmentDetail, error)
	Delete(ctx context.Context, id string) error
}

type departmentUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type departmentInviter interface {
	Issue(ctx context.Context, actor *models.User, req models.IssueInvitationRequest) (*models.Invitation, error)
}

// DepartmentService manages departments within a college.
type DepartmentService struct {
	repo      departmentRepository
	users     departmentUserRepository
	inviter   departmentInviter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDepartmentService constructs a DepartmentService instance.
func NewDepartmentService(repo departmentRepository, users departmentUserRepository, inviter departmentInviter, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DepartmentService{repo: repo, users: users, inviter: inviter, validator: validate, logger: logger}
}

// Create adds a department to the actor's college. When an HOD email is
// provided an HOD invitation is issued for the new department; a failed
// invitation does not roll the department back.
func (s *DepartmentService) Create(ctx context.Context, actor *models.User, req models.CreateDepartmentRequest) (*models.Department, error) {
	if err := requireMinRole(actor, models.RoleCollegeAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}

	dept := &models.Department{
		CollegeID:      actor.CollegeID,
		Name:           strings.TrimSpace(req.Name),
		Code:           strings.ToUpper(strings.TrimSpace(req.Code)),
		TotalSemesters: req.TotalSemesters,
		Description:    req.Description,
	}
	if err := s.repo.Create(ctx, dept); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a department with this code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create department")
	}

	if req.HODEmail != "" && s.inviter != nil {
		if _, err := s.inviter.Issue(ctx, actor, models.IssueInvitationRequest{
			Email:        req.HODEmail,
			Role:         models.RoleHOD,
			DepartmentID: dept.ID,
		}); err != nil {
			s.logger.Warn("failed to issue hod invitation",
				zap.String("department_id", dept.ID),
				zap.Error(err))
		} else {
			s.linkProvisionedHOD(ctx, dept, req.HODEmail)
		}
	}

	s.recordAudit(ctx, actor, dept.ID, fmt.Sprintf(`{"name":%q,"code":%q}`, dept.Name, dept.Code))
	return dept, nil
}

// Get returns a department with its HOD and child counts.
func (s *DepartmentService) Get(ctx context.Context, actor *models.User, id string) (*models.DepartmentDetail, error) {
	detail, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	if err := requireCollegeScope(actor, detail.CollegeID); err != nil {
		return nil, err
	}
	return detail, nil
}

// List returns the departments of the actor's college. Super admins may pass
// an explicit college identifier.
func (s *DepartmentService) List(ctx context.Context, actor *models.User, collegeID string) ([]models.DepartmentDetail, error) {
	if actor.Role != models.RoleSuperAdmin || collegeID == "" {
		collegeID = actor.CollegeID
	}
	departments, err := s.repo.ListByCollege(ctx, collegeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return departments, nil
}

// Update edits a department's descriptive fields.
func (s *DepartmentService) Update(ctx context.Context, actor *models.User, id string, req models.UpdateDepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}

	dept, err := s.loadScoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		dept.Name = strings.TrimSpace(req.Name)
	}
	if req.Code != "" {
		dept.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	}
	if req.TotalSemesters > 0 {
		dept.TotalSemesters = req.TotalSemesters
	}
	if req.Description != nil {
		dept.Description = *req.Description
	}
	if req.PassRate != nil {
		dept.PassRate = *req.PassRate
	}

	if err := s.repo.Update(ctx, dept); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a department with this code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update department")
	}

	s.recordAudit(ctx, actor, dept.ID, fmt.Sprintf(`{"name":%q}`, dept.Name))
	return dept, nil
}

// AssignHOD points the department at an HOD account.
func (s *DepartmentService) AssignHOD(ctx context.Context, actor *models.User, id string, hodUserID *string) error {
	if err := requireMinRole(actor, models.RoleCollegeAdmin); err != nil {
		return err
	}
	dept, err := s.loadScoped(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetHOD(ctx, dept.ID, hodUserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign hod")
	}
	s.recordAudit(ctx, actor, dept.ID, `{"hod":"assigned"}`)
	return nil
}

// AddEvent announces an event on the department's board.
func (s *DepartmentService) AddEvent(ctx context.Context, actor *models.User, id string, req models.CreateEventRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	dept, err := s.loadScoped(ctx, actor, id)
	if err != nil {
		return err
	}

	event := models.Event{
		Title:       req.Title,
		Date:        req.Date,
		Time:        req.Time,
		Location:    req.Location,
		Description: req.Description,
		Type:        req.Type,
		Status:      "upcoming",
	}
	if err := s.repo.AppendEvent(ctx, dept.ID, event); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add event")
	}
	s.recordAudit(ctx, actor, dept.ID, fmt.Sprintf(`{"event":%q}`, event.Title))
	return nil
}

// Delete removes a department.
func (s *DepartmentService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := requireMinRole(actor, models.RoleCollegeAdmin); err != nil {
		return err
	}
	dept, err := s.loadScoped(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, dept.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete department")
	}
	s.recordAudit(ctx, actor, dept.ID, `{"status":"deleted"}`)
	return nil
}

func (s *DepartmentService) loadScoped(ctx context.Context, actor *models.User, id string) (*models.Department, error) {
	dept, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	if err := requireDepartmentScope(actor, dept); err != nil {
		return nil, err
	}
	return dept, nil
}

// linkProvisionedHOD points the department at the placeholder account the
// invitation created, so the invitee already heads the department scope when
// they finish registering. The department stands on its own if this fails.
func (s *DepartmentService) linkProvisionedHOD(ctx context.Context, dept *models.Department, email string) {
	if s.users == nil {
		return
	}
	hod, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("failed to find provisioned hod account",
			zap.String("department_id", dept.ID),
			zap.Error(err))
		return
	}
	if err := s.repo.SetHOD(ctx, dept.ID, &hod.ID); err != nil {
		s.logger.Warn("failed to link hod to department",
			zap.String("department_id", dept.ID),
			zap.String("hod_user_id", hod.ID),
			zap.Error(err))
		return
	}
	dept.HODUserID = &hod.ID
}

func (s *DepartmentService) recordAudit(ctx context.Context, actor *models.User, departmentID, payload string) {
	if s.users == nil {
		return
	}
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionDepartmentWrite,
		Resource:   "department",
		ResourceID: &departmentID,
		NewValues:  []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record department audit log", zap.Error(err))
	}
}

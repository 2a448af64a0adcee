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

type subjectRepository interface {
	Create(ctx context.Context, subject *models.Subject) error
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	FindDetail(ctx context.Context, id string) (*models.SubjectDetail, error)
	Update(ctx context.Context, subject *models.Subject) error
	List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, int, error)
	Delete(ctx context.Context, id string) error
}

type subjectUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type subjectDepartmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

// SubjectService manages the subject catalog of a department.
type SubjectService struct {
	repo        subjectRepository
	users       subjectUserRepository
	departments subjectDepartmentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSubjectService constructs a SubjectService instance.
func NewSubjectService(repo subjectRepository, users subjectUserRepository, departments subjectDepartmentRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubjectService{repo: repo, users: users, departments: departments, validator: validate, logger: logger}
}

// Create adds a subject, optionally bound to an instructor.
func (s *SubjectService) Create(ctx context.Context, actor *models.User, req models.CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	dept, err := s.loadDepartmentScoped(ctx, actor, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	if req.Semester > dept.TotalSemesters {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester exceeds the department's semester count")
	}

	var instructorID *string
	if req.InstructorID != "" {
		if err := s.checkInstructor(ctx, req.InstructorID, dept.ID); err != nil {
			return nil, err
		}
		instructorID = &req.InstructorID
	}

	subject := &models.Subject{
		DepartmentID:     dept.ID,
		Name:             strings.TrimSpace(req.Name),
		Code:             strings.ToUpper(strings.TrimSpace(req.Code)),
		Semester:         req.Semester,
		TheoryCredits:    req.TheoryCredits,
		PracticalCredits: req.PracticalCredits,
		Description:      req.Description,
		InstructorID:     instructorID,
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a subject with this code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}

	s.recordAudit(ctx, actor, subject.ID, fmt.Sprintf(`{"code":%q}`, subject.Code))
	return subject, nil
}

// Get returns a subject with its instructor details.
func (s *SubjectService) Get(ctx context.Context, actor *models.User, id string) (*models.SubjectDetail, error) {
	detail, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	dept, err := s.departments.FindByID(ctx, detail.DepartmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	if err := requireCollegeScope(actor, dept.CollegeID); err != nil {
		return nil, err
	}
	return detail, nil
}

// List returns subjects for a department the actor may view.
func (s *SubjectService) List(ctx context.Context, actor *models.User, filter models.SubjectFilter) ([]models.SubjectDetail, int, error) {
	if filter.DepartmentID != "" {
		dept, err := s.departments.FindByID(ctx, filter.DepartmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, 0, appErrors.Clone(appErrors.ErrNotFound, "department not found")
			}
			return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
		}
		if err := requireCollegeScope(actor, dept.CollegeID); err != nil {
			return nil, 0, err
		}
	}
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, total, nil
}

// Update edits a subject.
func (s *SubjectService) Update(ctx context.Context, actor *models.User, id string, req models.UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject, dept, err := s.loadSubjectScoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		subject.Name = strings.TrimSpace(req.Name)
	}
	if req.Code != "" {
		subject.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	}
	if req.Semester > 0 {
		if req.Semester > dept.TotalSemesters {
			return nil, appErrors.Clone(appErrors.ErrValidation, "semester exceeds the department's semester count")
		}
		subject.Semester = req.Semester
	}
	if req.TheoryCredits != nil {
		subject.TheoryCredits = *req.TheoryCredits
	}
	if req.PracticalCredits != nil {
		subject.PracticalCredits = *req.PracticalCredits
	}
	if req.Description != nil {
		subject.Description = *req.Description
	}
	if req.InstructorID != nil {
		if *req.InstructorID == "" {
			subject.InstructorID = nil
		} else {
			if err := s.checkInstructor(ctx, *req.InstructorID, subject.DepartmentID); err != nil {
				return nil, err
			}
			subject.InstructorID = req.InstructorID
		}
	}

	if err := s.repo.Update(ctx, subject); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a subject with this code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}

	s.recordAudit(ctx, actor, subject.ID, `{"status":"updated"}`)
	return subject, nil
}

// Delete removes a subject.
func (s *SubjectService) Delete(ctx context.Context, actor *models.User, id string) error {
	subject, _, err := s.loadSubjectScoped(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, subject.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	s.recordAudit(ctx, actor, subject.ID, `{"status":"deleted"}`)
	return nil
}

func (s *SubjectService) checkInstructor(ctx context.Context, instructorID, departmentID string) error {
	instructor, err := s.users.FindByID(ctx, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if instructor.Role != models.RoleTeacher || !instructor.Active() {
		return appErrors.Clone(appErrors.ErrValidation, "instructor must be an active teacher")
	}
	if instructor.DepartmentID == nil || *instructor.DepartmentID != departmentID {
		return appErrors.Clone(appErrors.ErrValidation, "instructor belongs to another department")
	}
	return nil
}

func (s *SubjectService) loadSubjectScoped(ctx context.Context, actor *models.User, id string) (*models.Subject, *models.Department, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	dept, err := s.loadDepartmentScoped(ctx, actor, subject.DepartmentID)
	if err != nil {
		return nil, nil, err
	}
	return subject, dept, nil
}

func (s *SubjectService) loadDepartmentScoped(ctx context.Context, actor *models.User, departmentID string) (*models.Department, error) {
	dept, err := s.departments.FindByID(ctx, departmentID)
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

func (s *SubjectService) recordAudit(ctx context.Context, actor *models.User, subjectID, payload string) {
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionSubjectWrite,
		Resource:   "subject",
		ResourceID: &subjectID,
		NewValues:  []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record subject audit log", zap.Error(err))
	}
}

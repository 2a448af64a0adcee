package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/college-admin-api/internal/models"
	"github.com/campuskit/college-admin-api/internal/repository"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
)

type batchRepository interface {
	Create(ctx context.Context, batch *models.Batch) error
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	FindDetail(ctx context.Context, id string) (*models.BatchDetail, error)
	Update(ctx context.Context, batch *models.Batch) error
	AddStudents(ctx context.Context, batchID string, userIDs []string) (int, error)
	RemoveStudent(ctx context.Context, batchID, userID string) (int, error)
	List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, int, error)
	Delete(ctx context.Context, id string) error
}

type batchUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type batchDepartmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

// BatchService manages batches and their student rosters.
type BatchService struct {
	repo        batchRepository
	users       batchUserRepository
	departments batchDepartmentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewBatchService constructs a BatchService instance.
func NewBatchService(repo batchRepository, users batchUserRepository, departments batchDepartmentRepository, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BatchService{repo: repo, users: users, departments: departments, validator: validate, logger: logger}
}

// Create adds a batch under a department the actor administers.
func (s *BatchService) Create(ctx context.Context, actor *models.User, req models.CreateBatchRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}

	dept, err := s.loadDepartmentScoped(ctx, actor, req.DepartmentID)
	if err != nil {
		return nil, err
	}

	semester := req.CurrentSemester
	if semester == 0 {
		semester = 1
	}
	batch := &models.Batch{
		DepartmentID:    dept.ID,
		Year:            req.Year,
		Section:         req.Section,
		Capacity:        req.Capacity,
		CurrentSemester: semester,
	}
	if err := s.repo.Create(ctx, batch); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a batch for this year and section already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
	}

	s.recordAudit(ctx, actor, batch.ID, fmt.Sprintf(`{"year":%d,"section":%q}`, batch.Year, batch.Section))
	return batch, nil
}

// Get returns a batch with its roster.
func (s *BatchService) Get(ctx context.Context, actor *models.User, id string) (*models.BatchDetail, error) {
	detail, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
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

// List returns batches for a department the actor may view.
func (s *BatchService) List(ctx context.Context, actor *models.User, filter models.BatchFilter) ([]models.Batch, int, error) {
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
	batches, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
	}
	return batches, total, nil
}

// Update edits batch settings. Shrinking capacity below the current roster
// size is rejected.
func (s *BatchService) Update(ctx context.Context, actor *models.User, id string, req models.UpdateBatchRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}

	batch, err := s.loadBatchScoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Capacity > 0 {
		if req.Capacity < batch.CurrentStudents {
			return nil, appErrors.Clone(appErrors.ErrValidation, "capacity cannot be below the current roster size")
		}
		batch.Capacity = req.Capacity
	}
	if req.CurrentSemester > 0 {
		batch.CurrentSemester = req.CurrentSemester
	}
	if req.AverageGrade != nil {
		batch.AverageGrade = *req.AverageGrade
	}
	if req.PassRate != nil {
		batch.PassRate = *req.PassRate
	}

	if err := s.repo.Update(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update batch")
	}

	s.recordAudit(ctx, actor, batch.ID, `{"status":"updated"}`)
	return batch, nil
}

// AddStudents enrolls active students into the batch. Enrollment and the
// cached roster count move together, so the returned count always reflects
// the roster.
func (s *BatchService) AddStudents(ctx context.Context, actor *models.User, id string, req models.AddStudentsRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}

	batch, err := s.loadBatchScoped(ctx, actor, id)
	if err != nil {
		return 0, err
	}

	if batch.CurrentStudents+len(req.UserIDs) > batch.Capacity {
		return 0, appErrors.Clone(appErrors.ErrValidation, "batch capacity exceeded")
	}

	for _, userID := range req.UserIDs {
		student, err := s.users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", userID))
			}
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		if student.Role != models.RoleStudent || !student.Active() {
			return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("user %s is not an active student", userID))
		}
	}

	count, err := s.repo.AddStudents(ctx, batch.ID, req.UserIDs)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll students")
	}

	s.recordAudit(ctx, actor, batch.ID, fmt.Sprintf(`{"enrolled":%d}`, len(req.UserIDs)))
	return count, nil
}

// RemoveStudent drops a student from the roster.
func (s *BatchService) RemoveStudent(ctx context.Context, actor *models.User, id, userID string) (int, error) {
	batch, err := s.loadBatchScoped(ctx, actor, id)
	if err != nil {
		return 0, err
	}

	count, err := s.repo.RemoveStudent(ctx, batch.ID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in this batch")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove student")
	}

	s.recordAudit(ctx, actor, batch.ID, fmt.Sprintf(`{"removed":%q}`, userID))
	return count, nil
}

// Delete removes a batch and its roster.
func (s *BatchService) Delete(ctx context.Context, actor *models.User, id string) error {
	batch, err := s.loadBatchScoped(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, batch.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete batch")
	}
	s.recordAudit(ctx, actor, batch.ID, `{"status":"deleted"}`)
	return nil
}

func (s *BatchService) loadBatchScoped(ctx context.Context, actor *models.User, id string) (*models.Batch, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	if _, err := s.loadDepartmentScoped(ctx, actor, batch.DepartmentID); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *BatchService) loadDepartmentScoped(ctx context.Context, actor *models.User, departmentID string) (*models.Department, error) {
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

func (s *BatchService) recordAudit(ctx context.Context, actor *models.User, batchID, payload string) {
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionBatchWrite,
		Resource:   "batch",
		ResourceID: &batchID,
		NewValues:  []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record batch audit log", zap.Error(err))
	}
}

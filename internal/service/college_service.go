package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/college-admin-api/internal/models"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
)

type collegeRepository interface {
	FindByID(ctx context.Context, id string) (*models.College, error)
	Update(ctx context.Context, college *models.College) error
	List(ctx context.Context) ([]models.College, error)
}

// CollegeService exposes the college profile.
type CollegeService struct {
	repo      collegeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCollegeService constructs a CollegeService instance.
func NewCollegeService(repo collegeRepository, validate *validator.Validate, logger *zap.Logger) *CollegeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CollegeService{repo: repo, validator: validate, logger: logger}
}

// Get returns a college profile.
func (s *CollegeService) Get(ctx context.Context, id string) (*models.College, error) {
	college, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "college not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load college")
	}
	return college, nil
}

// List returns all registered colleges. Used by the public registration
// flow to pick a college.
func (s *CollegeService) List(ctx context.Context) ([]models.College, error) {
	colleges, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list colleges")
	}
	return colleges, nil
}

// UpdateProfile edits the actor's own college profile.
func (s *CollegeService) UpdateProfile(ctx context.Context, actor *models.User, req models.UpdateCollegeRequest) (*models.College, error) {
	if err := requireMinRole(actor, models.RoleCollegeAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid college payload")
	}

	college, err := s.Get(ctx, actor.CollegeID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		college.Name = req.Name
	}
	if req.Address != nil {
		college.Address = *req.Address
	}
	if req.Website != nil {
		college.Website = *req.Website
	}
	if req.About != nil {
		college.About = *req.About
	}

	if err := s.repo.Update(ctx, college); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update college")
	}
	return college, nil
}

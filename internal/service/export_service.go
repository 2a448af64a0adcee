package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/campuskit/college-admin-api/internal/models"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
	"github.com/campuskit/college-admin-api/pkg/export"
)

type exportUserRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

type exportDepartmentRepository interface {
	ListByCollege(ctx context.Context, collegeID string) ([]models.DepartmentDetail, error)
}

// ExportService renders administrative data as CSV and PDF downloads.
type ExportService struct {
	users       exportUserRepository
	departments exportDepartmentRepository
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(users exportUserRepository, departments exportDepartmentRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		users:       users,
		departments: departments,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// UsersCSV exports the actor's college accounts as CSV.
func (s *ExportService) UsersCSV(ctx context.Context, actor *models.User, filter models.UserFilter) ([]byte, error) {
	if err := requireMinRole(actor, models.RoleClerk); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleSuperAdmin {
		filter.CollegeID = actor.CollegeID
	}
	filter.PageSize = 100

	dataset := export.Dataset{Headers: []string{"Email", "Name", "Role", "Status", "Department"}}
	for page := 1; ; page++ {
		filter.Page = page
		users, total, err := s.users.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users for export")
		}
		for _, user := range users {
			department := ""
			if user.DepartmentID != nil {
				department = *user.DepartmentID
			}
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Email":      user.Email,
				"Name":       user.FullName,
				"Role":       string(user.Role),
				"Status":     string(user.Status),
				"Department": department,
			})
		}
		if len(dataset.Rows) >= total || len(users) == 0 {
			break
		}
	}

	raw, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return raw, nil
}

// DepartmentsPDF exports a department summary report as PDF.
func (s *ExportService) DepartmentsPDF(ctx context.Context, actor *models.User, collegeID string) ([]byte, error) {
	if err := requireMinRole(actor, models.RoleClerk); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleSuperAdmin || collegeID == "" {
		collegeID = actor.CollegeID
	}

	departments, err := s.departments.ListByCollege(ctx, collegeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments for export")
	}

	dataset := export.Dataset{Headers: []string{"Code", "Name", "HOD", "Teachers", "Students", "Batches", "Subjects"}}
	for _, dept := range departments {
		hod := "unassigned"
		if dept.HODName != nil {
			hod = *dept.HODName
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Code":     dept.Code,
			"Name":     dept.Name,
			"HOD":      hod,
			"Teachers": strconv.Itoa(dept.TotalTeachers),
			"Students": strconv.Itoa(dept.TotalStudents),
			"Batches":  strconv.Itoa(dept.TotalBatches),
			"Subjects": strconv.Itoa(dept.TotalSubjects),
		})
	}

	raw, err := s.pdf.Render(dataset, fmt.Sprintf("Department Report (%d departments)", len(departments)))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return raw, nil
}

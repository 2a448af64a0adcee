package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuskit/college-admin-api/internal/models"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
)

type mockExportUsers struct {
	users      []models.User
	lastFilter models.UserFilter
}

func (m *mockExportUsers) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(m.users) {
		return nil, len(m.users), nil
	}
	end := start + filter.PageSize
	if end > len(m.users) {
		end = len(m.users)
	}
	return m.users[start:end], len(m.users), nil
}

type mockExportDepts struct {
	departments []models.DepartmentDetail
	lastCollege string
}

func (m *mockExportDepts) ListByCollege(ctx context.Context, collegeID string) ([]models.DepartmentDetail, error) {
	m.lastCollege = collegeID
	return m.departments, nil
}

func TestExportUsersCSV(t *testing.T) {
	dept := "d1"
	users := &mockExportUsers{users: []models.User{
		{ID: "u1", Email: "alice@campus.edu", FullName: "Alice Rao", Role: models.RoleTeacher, Status: models.UserStatusActive, DepartmentID: &dept},
		{ID: "u2", Email: "bob@campus.edu", FullName: "Bob Iyer", Role: models.RoleStudent, Status: models.UserStatusActive},
	}}
	svc := NewExportService(users, &mockExportDepts{}, zap.NewNop())

	raw, err := svc.UsersCSV(context.Background(), adminActor(), models.UserFilter{CollegeID: "ignored"})
	require.NoError(t, err)

	out := string(raw)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Email,Name,Role,Status,Department", lines[0])
	assert.Contains(t, lines[1], "alice@campus.edu")
	assert.Contains(t, lines[1], "d1")
	assert.Contains(t, lines[2], "bob@campus.edu")
	assert.Equal(t, "c1", users.lastFilter.CollegeID)
	assert.Equal(t, 100, users.lastFilter.PageSize)
}

func TestExportUsersCSVPaginates(t *testing.T) {
	users := &mockExportUsers{}
	for i := 0; i < 150; i++ {
		users.users = append(users.users, models.User{
			Email:  "user@campus.edu",
			Role:   models.RoleStudent,
			Status: models.UserStatusActive,
		})
	}
	svc := NewExportService(users, &mockExportDepts{}, zap.NewNop())

	raw, err := svc.UsersCSV(context.Background(), adminActor(), models.UserFilter{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 151)
	assert.Equal(t, 2, users.lastFilter.Page)
}

func TestExportUsersCSVRequiresClerk(t *testing.T) {
	svc := NewExportService(&mockExportUsers{}, &mockExportDepts{}, zap.NewNop())

	actor := &models.User{ID: "t1", Role: models.RoleTeacher, Status: models.UserStatusActive, CollegeID: "c1"}
	_, err := svc.UsersCSV(context.Background(), actor, models.UserFilter{})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

func TestExportDepartmentsPDF(t *testing.T) {
	hod := "Dr. Rao"
	depts := &mockExportDepts{departments: []models.DepartmentDetail{
		{
			Department:    models.Department{ID: "d1", Code: "CSE", Name: "Computer Science", TotalTeachers: 8, TotalStudents: 240},
			HODName:       &hod,
			TotalBatches:  4,
			TotalSubjects: 32,
		},
		{
			Department: models.Department{ID: "d2", Code: "ME", Name: "Mechanical"},
		},
	}}
	svc := NewExportService(&mockExportUsers{}, depts, zap.NewNop())

	raw, err := svc.DepartmentsPDF(context.Background(), adminActor(), "other-college")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, "c1", depts.lastCollege)
}

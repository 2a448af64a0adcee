package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuskit/college-admin-api/internal/models"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
)

type mockSubjectRepo struct {
	byID    map[string]*models.Subject
	codes   map[string]bool
	created []*models.Subject
	updated []*models.Subject
	deleted []string
}

func (m *mockSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	if m.codes[subject.Code] {
		return &pq.Error{Code: "23505"}
	}
	subject.ID = uuid.NewString()
	m.created = append(m.created, subject)
	return nil
}

func (m *mockSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *subject
	return &copied, nil
}

func (m *mockSubjectRepo) FindDetail(ctx context.Context, id string) (*models.SubjectDetail, error) {
	subject, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.SubjectDetail{Subject: *subject}, nil
}

func (m *mockSubjectRepo) Update(ctx context.Context, subject *models.Subject) error {
	m.updated = append(m.updated, subject)
	return nil
}

func (m *mockSubjectRepo) List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, int, error) {
	return nil, 0, nil
}

func (m *mockSubjectRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockSubjectUsers struct {
	byID   map[string]*models.User
	audits []*models.AuditLog
}

func (m *mockSubjectUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockSubjectUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

type mockSubjectDepts struct {
	byID map[string]*models.Department
}

func (m *mockSubjectDepts) FindByID(ctx context.Context, id string) (*models.Department, error) {
	dept, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return dept, nil
}

func newSubjectFixture() (*SubjectService, *mockSubjectRepo, *mockSubjectUsers) {
	deptID := "d1"
	repo := &mockSubjectRepo{byID: map[string]*models.Subject{}, codes: map[string]bool{}}
	users := &mockSubjectUsers{byID: map[string]*models.User{
		"t1": {ID: "t1", Role: models.RoleTeacher, Status: models.UserStatusActive, CollegeID: "c1", DepartmentID: &deptID},
	}}
	depts := &mockSubjectDepts{byID: map[string]*models.Department{
		"d1": {ID: "d1", CollegeID: "c1", Code: "CSE", TotalSemesters: 8},
	}}
	svc := NewSubjectService(repo, users, depts, validator.New(), zap.NewNop())
	return svc, repo, users
}

func TestSubjectCreate(t *testing.T) {
	svc, repo, users := newSubjectFixture()

	subject, err := svc.Create(context.Background(), adminActor(), models.CreateSubjectRequest{
		DepartmentID:  "d1",
		Name:          "Operating Systems",
		Code:          "cs301",
		Semester:      5,
		TheoryCredits: 4,
		InstructorID:  "t1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, subject.ID)
	assert.Equal(t, "CS301", subject.Code)
	require.NotNil(t, subject.InstructorID)
	assert.Equal(t, "t1", *subject.InstructorID)
	require.Len(t, repo.created, 1)
	require.Len(t, users.audits, 1)
}

func TestSubjectCreateSemesterBeyondDepartment(t *testing.T) {
	svc, repo, _ := newSubjectFixture()

	_, err := svc.Create(context.Background(), adminActor(), models.CreateSubjectRequest{
		DepartmentID: "d1",
		Name:         "Phantom Course",
		Code:         "CS999",
		Semester:     9,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Empty(t, repo.created)
}

func TestSubjectCreateDuplicateCode(t *testing.T) {
	svc, repo, _ := newSubjectFixture()
	repo.codes["CS301"] = true

	_, err := svc.Create(context.Background(), adminActor(), models.CreateSubjectRequest{
		DepartmentID: "d1",
		Name:         "Operating Systems",
		Code:         "CS301",
		Semester:     5,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestSubjectCreateInstructorWrongDepartment(t *testing.T) {
	svc, _, users := newSubjectFixture()
	otherDept := "d2"
	users.byID["t2"] = &models.User{ID: "t2", Role: models.RoleTeacher, Status: models.UserStatusActive, CollegeID: "c1", DepartmentID: &otherDept}

	_, err := svc.Create(context.Background(), adminActor(), models.CreateSubjectRequest{
		DepartmentID: "d1",
		Name:         "Compilers",
		Code:         "CS401",
		Semester:     7,
		InstructorID: "t2",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestSubjectCreateInstructorMustBeActiveTeacher(t *testing.T) {
	svc, _, users := newSubjectFixture()
	deptID := "d1"
	users.byID["s1"] = &models.User{ID: "s1", Role: models.RoleStudent, Status: models.UserStatusActive, CollegeID: "c1", DepartmentID: &deptID}

	_, err := svc.Create(context.Background(), adminActor(), models.CreateSubjectRequest{
		DepartmentID: "d1",
		Name:         "Networks",
		Code:         "CS402",
		Semester:     6,
		InstructorID: "s1",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestSubjectUpdateClearsInstructor(t *testing.T) {
	svc, repo, _ := newSubjectFixture()
	instructor := "t1"
	repo.byID["sub1"] = &models.Subject{ID: "sub1", DepartmentID: "d1", Name: "Databases", Code: "CS302", Semester: 4, InstructorID: &instructor}

	empty := ""
	subject, err := svc.Update(context.Background(), adminActor(), "sub1", models.UpdateSubjectRequest{InstructorID: &empty})
	require.NoError(t, err)
	assert.Nil(t, subject.InstructorID)
	require.Len(t, repo.updated, 1)
}

func TestSubjectUpdateSemesterBeyondDepartment(t *testing.T) {
	svc, repo, _ := newSubjectFixture()
	repo.byID["sub1"] = &models.Subject{ID: "sub1", DepartmentID: "d1", Name: "Databases", Code: "CS302", Semester: 4}

	_, err := svc.Update(context.Background(), adminActor(), "sub1", models.UpdateSubjectRequest{Semester: 12})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Empty(t, repo.updated)
}

func TestSubjectDeleteForeignCollegeForbidden(t *testing.T) {
	svc, repo, _ := newSubjectFixture()
	repo.byID["sub1"] = &models.Subject{ID: "sub1", DepartmentID: "d1", Code: "CS302"}

	actor := &models.User{ID: "a2", Role: models.RoleCollegeAdmin, Status: models.UserStatusActive, CollegeID: "c2"}
	err := svc.Delete(context.Background(), actor, "sub1")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
	assert.Empty(t, repo.deleted)
}

func TestSubjectDelete(t *testing.T) {
	svc, repo, users := newSubjectFixture()
	repo.byID["sub1"] = &models.Subject{ID: "sub1", DepartmentID: "d1", Code: "CS302"}

	require.NoError(t, svc.Delete(context.Background(), adminActor(), "sub1"))
	assert.Equal(t, []string{"sub1"}, repo.deleted)
	require.Len(t, users.audits, 1)
}

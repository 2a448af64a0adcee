package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuskit/college-admin-api/internal/models"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
)

type mockUserStore struct {
	byID       map[string]*models.User
	byEmail    map[string]*models.User
	deleted    []string
	verified   map[string]models.UserStatus
	lastFilter models.UserFilter
	audits     []*models.AuditLog
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) Create(ctx context.Context, user *models.User) error {
	if _, ok := m.byEmail[user.Email]; ok {
		return &pq.Error{Code: "23505"}
	}
	user.ID = "user-new"
	if m.byEmail == nil {
		m.byEmail = make(map[string]*models.User)
	}
	m.byEmail[user.Email] = user
	return nil
}

func (m *mockUserStore) Update(ctx context.Context, user *models.User) error {
	m.byID[user.ID] = user
	return nil
}

func (m *mockUserStore) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockUserStore) SetVerificationStatus(ctx context.Context, userID, collegeID string, status models.UserStatus) (*models.User, error) {
	u, ok := m.byID[userID]
	if !ok || u.CollegeID != collegeID || u.Role != models.RoleAlumni {
		return nil, sql.ErrNoRows
	}
	u.Status = status
	if m.verified == nil {
		m.verified = make(map[string]models.UserStatus)
	}
	m.verified[userID] = status
	copied := *u
	return &copied, nil
}

func (m *mockUserStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	return nil, 0, nil
}

func (m *mockUserStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

type mockUserDepts struct {
	byID      map[string]*models.Department
	refreshed []string
}

func (m *mockUserDepts) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := m.byID[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserDepts) RefreshCounts(ctx context.Context, departmentID string) error {
	m.refreshed = append(m.refreshed, departmentID)
	return nil
}

type mockUserColleges struct {
	byID map[string]*models.College
}

func (m *mockUserColleges) FindByID(ctx context.Context, id string) (*models.College, error) {
	if c, ok := m.byID[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func newUserFixture() (*UserService, *mockUserStore, *mockUserDepts, *mockUserColleges) {
	store := &mockUserStore{byID: make(map[string]*models.User), byEmail: make(map[string]*models.User)}
	depts := &mockUserDepts{byID: map[string]*models.Department{
		"d1": {ID: "d1", CollegeID: "c1", Name: "Computer Science"},
	}}
	colleges := &mockUserColleges{byID: map[string]*models.College{
		"c1": {ID: "c1", Name: "Engineering College"},
	}}
	svc := NewUserService(store, depts, colleges, nil, validator.New(), zap.NewNop())
	return svc, store, depts, colleges
}

func TestRegisterStudent(t *testing.T) {
	svc, _, depts, _ := newUserFixture()

	user, err := svc.RegisterStudent(context.Background(), models.RegisterStudentRequest{
		Email:        "Student@College.edu",
		Password:     "long-enough-password",
		FullName:     "First Student",
		CollegeID:    "c1",
		DepartmentID: "d1",
	})
	require.NoError(t, err)
	assert.Equal(t, "student@college.edu", user.Email)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.Equal(t, models.UserStatusActive, user.Status)
	assert.NotEmpty(t, user.PasswordHash)
	assert.Contains(t, depts.refreshed, "d1")
}

func TestRegisterStudentUnknownCollege(t *testing.T) {
	svc, _, _, _ := newUserFixture()

	_, err := svc.RegisterStudent(context.Background(), models.RegisterStudentRequest{
		Email:     "student@college.edu",
		Password:  "long-enough-password",
		FullName:  "First Student",
		CollegeID: "missing",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestRegisterStudentForeignDepartment(t *testing.T) {
	svc, _, depts, colleges := newUserFixture()
	colleges.byID["c2"] = &models.College{ID: "c2"}
	depts.byID["d9"] = &models.Department{ID: "d9", CollegeID: "c1"}

	_, err := svc.RegisterStudent(context.Background(), models.RegisterStudentRequest{
		Email:        "student@college.edu",
		Password:     "long-enough-password",
		FullName:     "First Student",
		CollegeID:    "c2",
		DepartmentID: "d9",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestRegisterStudentDuplicateEmail(t *testing.T) {
	svc, store, _, _ := newUserFixture()
	store.byEmail["taken@college.edu"] = &models.User{ID: "u1", Email: "taken@college.edu"}

	_, err := svc.RegisterStudent(context.Background(), models.RegisterStudentRequest{
		Email:     "taken@college.edu",
		Password:  "long-enough-password",
		FullName:  "First Student",
		CollegeID: "c1",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestUserListScopesHODToOwnDepartment(t *testing.T) {
	svc, store, _, _ := newUserFixture()
	deptID := "d1"
	hod := &models.User{ID: "hod-1", Role: models.RoleHOD, CollegeID: "c1", DepartmentID: &deptID}

	_, _, err := svc.List(context.Background(), hod, models.UserFilter{DepartmentID: "d2", CollegeID: "c9"})
	require.NoError(t, err)
	assert.Equal(t, "d1", store.lastFilter.DepartmentID)
	assert.Equal(t, "c1", store.lastFilter.CollegeID)
}

func TestUserListRequiresHOD(t *testing.T) {
	svc, _, _, _ := newUserFixture()
	teacher := &models.User{ID: "t1", Role: models.RoleTeacher, CollegeID: "c1"}

	_, _, err := svc.List(context.Background(), teacher, models.UserFilter{})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

func TestUserUpdateCannotTouchHigherRole(t *testing.T) {
	svc, store, _, _ := newUserFixture()
	store.byID["u1"] = &models.User{ID: "u1", Role: models.RoleCollegeAdmin, CollegeID: "c1"}

	_, err := svc.Update(context.Background(), adminActor(), "u1", models.UpdateUserRequest{FullName: "Renamed"})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

func TestUserUpdateMovesDepartments(t *testing.T) {
	svc, store, depts, _ := newUserFixture()
	oldDept := "d1"
	depts.byID["d2"] = &models.Department{ID: "d2", CollegeID: "c1"}
	store.byID["u1"] = &models.User{ID: "u1", Role: models.RoleTeacher, CollegeID: "c1", DepartmentID: &oldDept}

	newDept := "d2"
	user, err := svc.Update(context.Background(), adminActor(), "u1", models.UpdateUserRequest{DepartmentID: &newDept})
	require.NoError(t, err)
	require.NotNil(t, user.DepartmentID)
	assert.Equal(t, "d2", *user.DepartmentID)
	assert.ElementsMatch(t, []string{"d1", "d2"}, depts.refreshed)
}

func TestUserDeleteSelfRejected(t *testing.T) {
	svc, _, _, _ := newUserFixture()
	actor := adminActor()

	err := svc.Delete(context.Background(), actor, actor.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestVerifyAlumniApprove(t *testing.T) {
	svc, store, _, _ := newUserFixture()
	store.byID["al1"] = &models.User{ID: "al1", Role: models.RoleAlumni, Status: models.UserStatusPending, CollegeID: "c1"}

	user, err := svc.VerifyAlumni(context.Background(), adminActor(), "al1", models.VerifyAlumniRequest{Approved: true})
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, user.Status)
	assert.Equal(t, models.UserStatusActive, store.verified["al1"])
}

func TestVerifyAlumniRejectNonAlumni(t *testing.T) {
	svc, store, _, _ := newUserFixture()
	store.byID["t1"] = &models.User{ID: "t1", Role: models.RoleTeacher, Status: models.UserStatusActive, CollegeID: "c1"}

	_, err := svc.VerifyAlumni(context.Background(), adminActor(), "t1", models.VerifyAlumniRequest{Approved: true})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

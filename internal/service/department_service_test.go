package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuskit/college-admin-api/internal/models"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
)

type mockDepartmentStore struct {
	byID      map[string]*models.Department
	codes     map[string]bool
	events    map[string][]models.Event
	hods      map[string]*string
	deleted   []string
	createErr error
}

func (m *mockDepartmentStore) Create(ctx context.Context, dept *models.Department) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.codes[dept.Code] {
		return &pq.Error{Code: "23505"}
	}
	dept.ID = "d-new"
	if m.byID == nil {
		m.byID = make(map[string]*models.Department)
	}
	m.byID[dept.ID] = dept
	if m.codes == nil {
		m.codes = make(map[string]bool)
	}
	m.codes[dept.Code] = true
	return nil
}

func (m *mockDepartmentStore) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := m.byID[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDepartmentStore) FindDetail(ctx context.Context, id string) (*models.DepartmentDetail, error) {
	d, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.DepartmentDetail{Department: *d}, nil
}

func (m *mockDepartmentStore) Update(ctx context.Context, dept *models.Department) error {
	m.byID[dept.ID] = dept
	return nil
}

func (m *mockDepartmentStore) SetHOD(ctx context.Context, departmentID string, hodUserID *string) error {
	if m.hods == nil {
		m.hods = make(map[string]*string)
	}
	m.hods[departmentID] = hodUserID
	return nil
}

func (m *mockDepartmentStore) AppendEvent(ctx context.Context, departmentID string, event models.Event) error {
	if m.events == nil {
		m.events = make(map[string][]models.Event)
	}
	m.events[departmentID] = append(m.events[departmentID], event)
	return nil
}

func (m *mockDepartmentStore) ListByCollege(ctx context.Context, collegeID string) ([]models.DepartmentDetail, error) {
	var out []models.DepartmentDetail
	for _, d := range m.byID {
		if d.CollegeID == collegeID {
			out = append(out, models.DepartmentDetail{Department: *d})
		}
	}
	return out, nil
}

func (m *mockDepartmentStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockDepartmentUsers struct {
	byEmail map[string]*models.User
	audits  []*models.AuditLog
}

func (m *mockDepartmentUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDepartmentUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

type mockInviter struct {
	issued []models.IssueInvitationRequest
	err    error
}

func (m *mockInviter) Issue(ctx context.Context, actor *models.User, req models.IssueInvitationRequest) (*models.Invitation, error) {
	m.issued = append(m.issued, req)
	if m.err != nil {
		return nil, m.err
	}
	return &models.Invitation{ID: "inv-1", Email: req.Email, Role: req.Role}, nil
}

func newDepartmentFixture() (*DepartmentService, *mockDepartmentStore, *mockDepartmentUsers, *mockInviter) {
	store := &mockDepartmentStore{byID: make(map[string]*models.Department), codes: make(map[string]bool)}
	users := &mockDepartmentUsers{byEmail: make(map[string]*models.User)}
	inviter := &mockInviter{}
	svc := NewDepartmentService(store, users, inviter, validator.New(), zap.NewNop())
	return svc, store, users, inviter
}

func TestDepartmentCreate(t *testing.T) {
	svc, _, audits, _ := newDepartmentFixture()

	dept, err := svc.Create(context.Background(), adminActor(), models.CreateDepartmentRequest{
		Name:           "Computer Science",
		Code:           "cse",
		TotalSemesters: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, "CSE", dept.Code)
	assert.Equal(t, "c1", dept.CollegeID)
	assert.Len(t, audits.audits, 1)
}

func TestDepartmentCreateDuplicateCode(t *testing.T) {
	svc, store, _, _ := newDepartmentFixture()
	store.codes["CSE"] = true

	_, err := svc.Create(context.Background(), adminActor(), models.CreateDepartmentRequest{
		Name:           "Computer Science",
		Code:           "CSE",
		TotalSemesters: 8,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestDepartmentCreateIssuesHODInvitation(t *testing.T) {
	svc, store, users, inviter := newDepartmentFixture()
	users.byEmail["head@college.edu"] = &models.User{ID: "hod-9", Email: "head@college.edu", Role: models.RoleHOD}

	dept, err := svc.Create(context.Background(), adminActor(), models.CreateDepartmentRequest{
		Name:           "Computer Science",
		Code:           "CSE",
		TotalSemesters: 8,
		HODEmail:       "head@college.edu",
	})
	require.NoError(t, err)
	require.Len(t, inviter.issued, 1)
	assert.Equal(t, models.RoleHOD, inviter.issued[0].Role)
	assert.Equal(t, dept.ID, inviter.issued[0].DepartmentID)
	require.NotNil(t, store.hods[dept.ID])
	assert.Equal(t, "hod-9", *store.hods[dept.ID])
	require.NotNil(t, dept.HODUserID)
	assert.Equal(t, "hod-9", *dept.HODUserID)
}

func TestDepartmentCreateSurvivesInvitationFailure(t *testing.T) {
	svc, store, _, inviter := newDepartmentFixture()
	inviter.err = appErrors.Clone(appErrors.ErrConflict, "already invited")

	dept, err := svc.Create(context.Background(), adminActor(), models.CreateDepartmentRequest{
		Name:           "Computer Science",
		Code:           "CSE",
		TotalSemesters: 8,
		HODEmail:       "head@college.edu",
	})
	require.NoError(t, err)
	assert.Contains(t, store.byID, dept.ID)
	assert.Nil(t, store.hods[dept.ID])
}

func TestDepartmentCreateRequiresCollegeAdmin(t *testing.T) {
	svc, _, _, _ := newDepartmentFixture()
	hod := &models.User{ID: "hod-1", Role: models.RoleHOD, CollegeID: "c1"}

	_, err := svc.Create(context.Background(), hod, models.CreateDepartmentRequest{
		Name:           "Computer Science",
		Code:           "CSE",
		TotalSemesters: 8,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

func TestDepartmentAddEventByHOD(t *testing.T) {
	svc, store, _, _ := newDepartmentFixture()
	hodID := "hod-1"
	store.byID["d1"] = &models.Department{ID: "d1", CollegeID: "c1", HODUserID: &hodID}
	hod := &models.User{ID: "hod-1", Role: models.RoleHOD, CollegeID: "c1"}

	err := svc.AddEvent(context.Background(), hod, "d1", models.CreateEventRequest{
		Title: "Tech Fest",
		Date:  time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		Type:  models.EventCultural,
	})
	require.NoError(t, err)
	require.Len(t, store.events["d1"], 1)
	assert.Equal(t, "upcoming", store.events["d1"][0].Status)
}

func TestDepartmentAddEventForeignHODForbidden(t *testing.T) {
	svc, store, _, _ := newDepartmentFixture()
	hodID := "hod-1"
	store.byID["d1"] = &models.Department{ID: "d1", CollegeID: "c1", HODUserID: &hodID}
	other := &models.User{ID: "hod-2", Role: models.RoleHOD, CollegeID: "c1"}

	err := svc.AddEvent(context.Background(), other, "d1", models.CreateEventRequest{
		Title: "Tech Fest",
		Date:  time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		Type:  models.EventCultural,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

func TestDepartmentAssignHOD(t *testing.T) {
	svc, store, _, _ := newDepartmentFixture()
	store.byID["d1"] = &models.Department{ID: "d1", CollegeID: "c1"}

	hodID := "hod-1"
	err := svc.AssignHOD(context.Background(), adminActor(), "d1", &hodID)
	require.NoError(t, err)
	require.NotNil(t, store.hods["d1"])
	assert.Equal(t, "hod-1", *store.hods["d1"])
}

func TestDepartmentListScopedToCollege(t *testing.T) {
	svc, store, _, _ := newDepartmentFixture()
	store.byID["d1"] = &models.Department{ID: "d1", CollegeID: "c1"}
	store.byID["d2"] = &models.Department{ID: "d2", CollegeID: "c2"}

	departments, err := svc.List(context.Background(), adminActor(), "c2")
	require.NoError(t, err)
	require.Len(t, departments, 1)
	assert.Equal(t, "c1", departments[0].CollegeID)
}

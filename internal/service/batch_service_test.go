package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuskit/college-admin-api/internal/models"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
)

type mockBatchRepo struct {
	byID      map[string]*models.Batch
	created   []*models.Batch
	updated   []*models.Batch
	enrolled  map[string][]string
	removeErr error
	count     int
}

func (m *mockBatchRepo) Create(ctx context.Context, batch *models.Batch) error {
	batch.ID = "b-new"
	m.created = append(m.created, batch)
	return nil
}

func (m *mockBatchRepo) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	if b, ok := m.byID[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBatchRepo) FindDetail(ctx context.Context, id string) (*models.BatchDetail, error) {
	b, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.BatchDetail{Batch: *b}, nil
}

func (m *mockBatchRepo) Update(ctx context.Context, batch *models.Batch) error {
	m.updated = append(m.updated, batch)
	return nil
}

func (m *mockBatchRepo) AddStudents(ctx context.Context, batchID string, userIDs []string) (int, error) {
	if m.enrolled == nil {
		m.enrolled = make(map[string][]string)
	}
	m.enrolled[batchID] = append(m.enrolled[batchID], userIDs...)
	return m.count, nil
}

func (m *mockBatchRepo) RemoveStudent(ctx context.Context, batchID, userID string) (int, error) {
	if m.removeErr != nil {
		return 0, m.removeErr
	}
	return m.count, nil
}

func (m *mockBatchRepo) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, int, error) {
	return nil, 0, nil
}

func (m *mockBatchRepo) Delete(ctx context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

type mockBatchUsers struct {
	byID   map[string]*models.User
	audits []*models.AuditLog
}

func (m *mockBatchUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBatchUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

type mockBatchDepts struct {
	byID map[string]*models.Department
}

func (m *mockBatchDepts) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := m.byID[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func newBatchFixture() (*BatchService, *mockBatchRepo, *mockBatchUsers, *mockBatchDepts) {
	repo := &mockBatchRepo{byID: make(map[string]*models.Batch)}
	users := &mockBatchUsers{byID: make(map[string]*models.User)}
	depts := &mockBatchDepts{byID: map[string]*models.Department{
		"d1": {ID: "d1", CollegeID: "c1", Name: "Computer Science", TotalSemesters: 8},
	}}
	svc := NewBatchService(repo, users, depts, validator.New(), zap.NewNop())
	return svc, repo, users, depts
}

func TestBatchCreate(t *testing.T) {
	svc, repo, _, _ := newBatchFixture()

	batch, err := svc.Create(context.Background(), adminActor(), models.CreateBatchRequest{
		DepartmentID: "d1",
		Year:         2026,
		Section:      "A",
		Capacity:     60,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, batch.CurrentSemester)
	assert.Len(t, repo.created, 1)
}

func TestBatchCreateForeignDepartmentForbidden(t *testing.T) {
	svc, _, _, depts := newBatchFixture()
	depts.byID["d2"] = &models.Department{ID: "d2", CollegeID: "other-college"}

	_, err := svc.Create(context.Background(), adminActor(), models.CreateBatchRequest{
		DepartmentID: "d2",
		Year:         2026,
		Section:      "A",
		Capacity:     60,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

func TestBatchUpdateCapacityBelowRosterRejected(t *testing.T) {
	svc, repo, _, _ := newBatchFixture()
	repo.byID["b1"] = &models.Batch{ID: "b1", DepartmentID: "d1", Capacity: 60, CurrentStudents: 45}

	_, err := svc.Update(context.Background(), adminActor(), "b1", models.UpdateBatchRequest{Capacity: 40})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Empty(t, repo.updated)
}

func TestBatchAddStudents(t *testing.T) {
	svc, repo, users, _ := newBatchFixture()
	repo.byID["b1"] = &models.Batch{ID: "b1", DepartmentID: "d1", Capacity: 60, CurrentStudents: 10}
	repo.count = 12
	users.byID["s1"] = &models.User{ID: "s1", Role: models.RoleStudent, Status: models.UserStatusActive}
	users.byID["s2"] = &models.User{ID: "s2", Role: models.RoleStudent, Status: models.UserStatusActive}

	count, err := svc.AddStudents(context.Background(), adminActor(), "b1", models.AddStudentsRequest{UserIDs: []string{"s1", "s2"}})
	require.NoError(t, err)
	assert.Equal(t, 12, count)
	assert.Equal(t, []string{"s1", "s2"}, repo.enrolled["b1"])
	assert.Len(t, users.audits, 1)
}

func TestBatchAddStudentsOverCapacity(t *testing.T) {
	svc, repo, users, _ := newBatchFixture()
	repo.byID["b1"] = &models.Batch{ID: "b1", DepartmentID: "d1", Capacity: 11, CurrentStudents: 10}
	users.byID["s1"] = &models.User{ID: "s1", Role: models.RoleStudent, Status: models.UserStatusActive}
	users.byID["s2"] = &models.User{ID: "s2", Role: models.RoleStudent, Status: models.UserStatusActive}

	_, err := svc.AddStudents(context.Background(), adminActor(), "b1", models.AddStudentsRequest{UserIDs: []string{"s1", "s2"}})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Empty(t, repo.enrolled)
}

func TestBatchAddStudentsRejectsNonStudent(t *testing.T) {
	svc, repo, users, _ := newBatchFixture()
	repo.byID["b1"] = &models.Batch{ID: "b1", DepartmentID: "d1", Capacity: 60}
	users.byID["t1"] = &models.User{ID: "t1", Role: models.RoleTeacher, Status: models.UserStatusActive}

	_, err := svc.AddStudents(context.Background(), adminActor(), "b1", models.AddStudentsRequest{UserIDs: []string{"t1"}})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestBatchRemoveStudentNotEnrolled(t *testing.T) {
	svc, repo, _, _ := newBatchFixture()
	repo.byID["b1"] = &models.Batch{ID: "b1", DepartmentID: "d1", Capacity: 60}
	repo.removeErr = sql.ErrNoRows

	_, err := svc.RemoveStudent(context.Background(), adminActor(), "b1", "s9")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestBatchHODScope(t *testing.T) {
	svc, repo, users, depts := newBatchFixture()
	hodID := "hod-1"
	depts.byID["d1"].HODUserID = &hodID
	repo.byID["b1"] = &models.Batch{ID: "b1", DepartmentID: "d1", Capacity: 60}
	repo.count = 1
	users.byID["s1"] = &models.User{ID: "s1", Role: models.RoleStudent, Status: models.UserStatusActive}

	hod := &models.User{ID: "hod-1", Role: models.RoleHOD, Status: models.UserStatusActive, CollegeID: "c1"}
	otherHOD := &models.User{ID: "hod-2", Role: models.RoleHOD, Status: models.UserStatusActive, CollegeID: "c1"}

	_, err := svc.AddStudents(context.Background(), hod, "b1", models.AddStudentsRequest{UserIDs: []string{"s1"}})
	require.NoError(t, err)

	_, err = svc.AddStudents(context.Background(), otherHOD, "b1", models.AddStudentsRequest{UserIDs: []string{"s1"}})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

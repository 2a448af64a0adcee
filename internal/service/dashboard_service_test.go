package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuskit/college-admin-api/internal/models"
)

type mockCollegeStats struct {
	stats       *models.CollegeStats
	lastCollege string
	calls       int
}

func (m *mockCollegeStats) Stats(ctx context.Context, collegeID string) (*models.CollegeStats, error) {
	m.lastCollege = collegeID
	m.calls++
	return m.stats, nil
}

func newDashboardFixture() (*DashboardService, *mockCollegeStats) {
	colleges := &mockCollegeStats{stats: &models.CollegeStats{
		TotalStudents:    320,
		TotalTeachers:    24,
		TotalDepartments: 5,
		DepartmentCounts: []models.DepartmentStudentRow{
			{DepartmentID: "d1", DepartmentName: "Computer Science", StudentCount: 120},
		},
	}}
	svc := NewDashboardService(colleges, nil, nil, time.Minute, zap.NewNop())
	return svc, colleges
}

func TestDashboardStats(t *testing.T) {
	svc, colleges := newDashboardFixture()

	stats, cacheHit, err := svc.Stats(context.Background(), adminActor(), "")
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 320, stats.TotalStudents)
	assert.Equal(t, 5, stats.TotalDepartments)
	assert.Equal(t, "c1", colleges.lastCollege)
}

func TestDashboardStatsPinsActorCollege(t *testing.T) {
	svc, colleges := newDashboardFixture()

	_, _, err := svc.Stats(context.Background(), adminActor(), "c2")
	require.NoError(t, err)
	assert.Equal(t, "c1", colleges.lastCollege)
}

func TestDashboardStatsSuperAdminPicksCollege(t *testing.T) {
	svc, colleges := newDashboardFixture()

	actor := &models.User{ID: "root", Role: models.RoleSuperAdmin, Status: models.UserStatusActive}
	_, _, err := svc.Stats(context.Background(), actor, "c7")
	require.NoError(t, err)
	assert.Equal(t, "c7", colleges.lastCollege)
}

func TestDashboardStatsWithoutRedisQueriesEveryTime(t *testing.T) {
	svc, colleges := newDashboardFixture()

	for i := 0; i < 3; i++ {
		_, cacheHit, err := svc.Stats(context.Background(), adminActor(), "")
		require.NoError(t, err)
		assert.False(t, cacheHit)
	}
	assert.Equal(t, 3, colleges.calls)
}

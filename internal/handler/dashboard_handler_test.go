package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/campuskit/college-admin-api/internal/middleware"
	"github.com/campuskit/college-admin-api/internal/models"
	"github.com/campuskit/college-admin-api/internal/service"
)

type fakeCollegeStats struct {
	stats       *models.CollegeStats
	lastCollege string
}

func (f *fakeCollegeStats) Stats(_ context.Context, collegeID string) (*models.CollegeStats, error) {
	f.lastCollege = collegeID
	return f.stats, nil
}

func TestDashboardHandlerStatsRequiresAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewDashboardService(&fakeCollegeStats{}, nil, nil, time.Minute, zap.NewNop())
	handler := NewDashboardHandler(svc)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)

	handler.Stats(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandlerStatsSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	colleges := &fakeCollegeStats{stats: &models.CollegeStats{TotalStudents: 42, TotalDepartments: 3}}
	svc := service.NewDashboardService(colleges, nil, nil, time.Minute, zap.NewNop())
	handler := NewDashboardHandler(svc)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/stats?college_id=c9", nil)
	c.Set(middleware.ContextAccountKey, &models.User{ID: "a1", Role: models.RoleCollegeAdmin, Status: models.UserStatusActive, CollegeID: "c1"})

	handler.Stats(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", colleges.lastCollege)

	var envelope responseEnvelope
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope.Meta["cache_hit"])
	assert.Equal(t, float64(42), envelope.Data["total_students"])
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

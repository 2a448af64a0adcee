package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/college-admin-api/internal/middleware"
	"github.com/campuskit/college-admin-api/internal/service"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
	"github.com/campuskit/college-admin-api/pkg/response"
)

// DashboardHandler wires HTTP endpoints to the dashboard service.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Stats godoc
// @Summary Dashboard statistics
// @Description Aggregated counters for the actor's college
// @Tags Dashboard
// @Produce json
// @Param college_id query string false "College ID (super admin only)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, cacheHit, err := h.service.Stats(c.Request.Context(), actor, c.Query("college_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

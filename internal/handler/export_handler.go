package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/college-admin-api/internal/models"
	"github.com/campuskit/college-admin-api/internal/service"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
	"github.com/campuskit/college-admin-api/pkg/response"
)

// ExportHandler serves CSV and PDF downloads.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// UsersCSV godoc
// @Summary Export users as CSV
// @Tags Exports
// @Produce text/csv
// @Param role query string false "Filter by role"
// @Success 200 {file} file
// @Router /exports/users.csv [get]
func (h *ExportHandler) UsersCSV(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.UserFilter{DepartmentID: c.Query("department_id")}
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}

	raw, err := h.service.UsersCSV(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("users-%s.csv", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", raw)
}

// DepartmentsPDF godoc
// @Summary Export a department report as PDF
// @Tags Exports
// @Produce application/pdf
// @Success 200 {file} file
// @Router /exports/departments.pdf [get]
func (h *ExportHandler) DepartmentsPDF(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	raw, err := h.service.DepartmentsPDF(c.Request.Context(), actor, c.Query("college_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("departments-%s.pdf", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", raw)
}

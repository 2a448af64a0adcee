package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/college-admin-api/internal/models"
	"github.com/campuskit/college-admin-api/internal/service"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
	"github.com/campuskit/college-admin-api/pkg/response"
)

// CollegeHandler wires HTTP endpoints to the college service.
type CollegeHandler struct {
	service *service.CollegeService
}

// NewCollegeHandler creates a new handler.
func NewCollegeHandler(svc *service.CollegeService) *CollegeHandler {
	return &CollegeHandler{service: svc}
}

// List godoc
// @Summary List colleges
// @Description Public list used by the registration form
// @Tags Colleges
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /colleges [get]
func (h *CollegeHandler) List(c *gin.Context) {
	colleges, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, colleges, nil)
}

// Get godoc
// @Summary Get a college profile
// @Tags Colleges
// @Produce json
// @Param id path string true "College ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /colleges/{id} [get]
func (h *CollegeHandler) Get(c *gin.Context) {
	college, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, college, nil)
}

// UpdateProfile godoc
// @Summary Update the actor's college profile
// @Tags Colleges
// @Accept json
// @Produce json
// @Param payload body models.UpdateCollegeRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /colleges/profile [put]
func (h *CollegeHandler) UpdateProfile(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateCollegeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	college, err := h.service.UpdateProfile(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, college, nil)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/college-admin-api/internal/models"
	"github.com/campuskit/college-admin-api/internal/service"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
	"github.com/campuskit/college-admin-api/pkg/response"
)

// InvitationHandler wires HTTP endpoints to the invitation service.
type InvitationHandler struct {
	service *service.InvitationService
}

// NewInvitationHandler creates a new handler.
func NewInvitationHandler(svc *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{service: svc}
}

// Issue godoc
// @Summary Invite a user
// @Description Issue an invitation that provisions a pending account
// @Tags Invitations
// @Accept json
// @Produce json
// @Param payload body models.IssueInvitationRequest true "Invitation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /invitations [post]
func (h *InvitationHandler) Issue(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.IssueInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invitation payload"))
		return
	}

	invitation, err := h.service.Issue(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, invitation)
}

// List godoc
// @Summary List invitations
// @Description List invitations for the actor's college
// @Tags Invitations
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /invitations [get]
func (h *InvitationHandler) List(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	filter := models.InvitationFilter{
		Status:   models.InvitationStatus(c.Query("status")),
		Email:    c.Query("email"),
		Page:     page,
		PageSize: pageSize,
	}

	invitations, total, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, invitations, &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	})
}

// Resend godoc
// @Summary Resend an invitation
// @Description Re-queue the invitation mail for a pending invitation
// @Tags Invitations
// @Produce json
// @Param token path string true "Invitation token"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /invitations/{token}/resend [post]
func (h *InvitationHandler) Resend(c *gin.Context) {
	actor := accountFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Resend(c.Request.Context(), actor, c.Param("token")); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, gin.H{"message": "invitation mail queued"}, nil)
}

// Verify godoc
// @Summary Verify an invitation token
// @Description Returns invitation details for the registration form
// @Tags Invitations
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /auth/verify-invitation/{token} [get]
func (h *InvitationHandler) Verify(c *gin.Context) {
	details, err := h.service.Verify(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, details, nil)
}

// Complete godoc
// @Summary Complete registration
// @Description Redeem an invitation token and activate the account
// @Tags Invitations
// @Accept json
// @Produce json
// @Param payload body models.CompleteRegistrationRequest true "Registration payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /auth/complete-registration [post]
func (h *InvitationHandler) Complete(c *gin.Context) {
	var req models.CompleteRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	user, err := h.service.Complete(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, user, nil)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumarket-api/internal/models"
	"github.com/noah-isme/edumarket-api/internal/service"
	appErrors "github.com/noah-isme/edumarket-api/pkg/errors"
	"github.com/noah-isme/edumarket-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	Update(ctx context.Context, id string, req models.UpdateProfileRequest) (*models.Profile, error)
	List(ctx context.Context, filter models.ProfileFilter) ([]models.ProfileSummary, *models.Pagination, error)
	UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateProfileStatusRequest, meta service.AuditMeta) (*models.Profile, error)
}

// ProfileHandler serves the signed-in profile and the admin users table.
type ProfileHandler struct {
	service profileService
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(svc profileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Me godoc
// @Summary Get own profile
// @Tags Profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /profile [get]
func (h *ProfileHandler) Me(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	profile, err := h.service.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// UpdateMe godoc
// @Summary Update own profile
// @Tags Profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /profile [put]
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}
	profile, err := h.service.Update(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// List godoc
// @Summary List users
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name, email or university"
// @Param status query string false "active, suspended, pending or all"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/users [get]
func (h *ProfileHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	profiles, pagination, err := h.service.List(c.Request.Context(), models.ProfileFilter{
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profiles, pagination)
}

// UpdateStatus godoc
// @Summary Suspend or reactivate a user
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Profile ID"
// @Param payload body models.UpdateProfileStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{id}/status [patch]
func (h *ProfileHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.UpdateProfileStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	profile, err := h.service.UpdateStatus(c.Request.Context(), claimsFromContext(c), id, req, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

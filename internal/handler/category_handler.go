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

type categoryService interface {
	Active(ctx context.Context) ([]models.Category, bool, error)
	List(ctx context.Context, search string) ([]models.Category, error)
	Create(ctx context.Context, actor *models.JWTClaims, req models.CategoryRequest, meta service.AuditMeta) (*models.Category, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req models.CategoryRequest, meta service.AuditMeta) (*models.Category, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string, meta service.AuditMeta) error
}

// CategoryHandler exposes the public category list and admin category management.
type CategoryHandler struct {
	service categoryService
}

// NewCategoryHandler constructs a CategoryHandler.
func NewCategoryHandler(svc categoryService) *CategoryHandler {
	return &CategoryHandler{service: svc}
}

// Active godoc
// @Summary Active categories
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CategoryHandler) Active(c *gin.Context) {
	categories, hit, err := h.service.Active(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil, withCacheMeta(c, hit))
}

// List godoc
// @Summary All categories
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or description"
// @Success 200 {object} response.Envelope
// @Router /admin/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.service.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// Create godoc
// @Summary Create category
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CategoryRequest true "Category"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req models.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}
	category, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// Update godoc
// @Summary Replace category
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Param payload body models.CategoryRequest true "Category"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}
	category, err := h.service.Update(c.Request.Context(), claimsFromContext(c), id, req, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// Delete godoc
// @Summary Delete category
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /admin/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), id, auditMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

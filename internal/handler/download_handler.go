package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumarket-api/internal/models"
	"github.com/noah-isme/edumarket-api/internal/service"
	"github.com/noah-isme/edumarket-api/pkg/response"
)

type downloadService interface {
	DownloadURL(ctx context.Context, actor *models.JWTClaims, listingID string) (*models.DownloadLink, error)
	Download(ctx context.Context, actor *models.JWTClaims, listingID, token string, meta service.AuditMeta) (*service.DownloadResult, error)
	Mine(ctx context.Context, actor *models.JWTClaims) ([]models.Download, error)
}

// DownloadHandler issues download links and streams listing files.
type DownloadHandler struct {
	service downloadService
}

// NewDownloadHandler constructs a DownloadHandler.
func NewDownloadHandler(svc downloadService) *DownloadHandler {
	return &DownloadHandler{service: svc}
}

// Link godoc
// @Summary Signed download link
// @Tags Downloads
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /listings/{id}/download-url [get]
func (h *DownloadHandler) Link(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	link, err := h.service.DownloadURL(c.Request.Context(), claims, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download listing file
// @Tags Downloads
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /listings/{id}/download [get]
func (h *DownloadHandler) Download(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	result, err := h.service.Download(c.Request.Context(), claims, id, c.Query("token"), auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.Body.Close()

	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.Size, result.ContentType, result.Body, map[string]string{
		"Content-Disposition": response.ContentDisposition(result.Filename),
	})
}

// Mine godoc
// @Summary My downloads
// @Tags Downloads
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /me/downloads [get]
func (h *DownloadHandler) Mine(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	downloads, err := h.service.Mine(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, downloads, nil)
}

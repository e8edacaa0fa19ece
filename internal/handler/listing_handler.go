package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumarket-api/internal/models"
	"github.com/noah-isme/edumarket-api/internal/service"
	appErrors "github.com/noah-isme/edumarket-api/pkg/errors"
	"github.com/noah-isme/edumarket-api/pkg/export"
	"github.com/noah-isme/edumarket-api/pkg/response"
)

// multipart overhead allowed on top of the file size limits
const multipartSlack = 1 << 20

type listingService interface {
	Create(ctx context.Context, actor *models.JWTClaims, input models.CreateListingInput, file service.FileUpload, previews []service.FileUpload, meta service.AuditMeta) (*models.Listing, error)
	Marketplace(ctx context.Context, q service.MarketplaceQuery) ([]models.Listing, *models.Pagination, error)
	AdminList(ctx context.Context, q service.AdminListingQuery) ([]models.Listing, *models.Pagination, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Listing, error)
	Mine(ctx context.Context, actor *models.JWTClaims, search, status string) ([]models.Listing, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateListingRequest, meta service.AuditMeta) (*models.Listing, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string, meta service.AuditMeta) error
	Approve(ctx context.Context, actor *models.JWTClaims, id string, meta service.AuditMeta) (*models.Listing, error)
	Reject(ctx context.Context, actor *models.JWTClaims, id string, req models.ReviewListingRequest, meta service.AuditMeta) (*models.Listing, error)
	Export(ctx context.Context, q service.AdminListingQuery, format export.Format) ([]byte, string, error)
}

// ListingHandler serves marketplace browsing, uploads and moderation.
type ListingHandler struct {
	service       listingService
	maxUploadSize int64
}

// NewListingHandler constructs a ListingHandler. maxUploadSize bounds the
// whole multipart body.
func NewListingHandler(svc listingService, maxUploadSize int64) *ListingHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 80 << 20
	}
	return &ListingHandler{service: svc, maxUploadSize: maxUploadSize}
}

// Marketplace godoc
// @Summary Browse approved listings
// @Tags Listings
// @Produce json
// @Param search query string false "Title or description"
// @Param category query string false "Category slug or id, all for every category"
// @Param sort query string false "recent, popular, price-low, price-high or title"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /listings [get]
func (h *ListingHandler) Marketplace(c *gin.Context) {
	page, size := pageParams(c)
	listings, pagination, err := h.service.Marketplace(c.Request.Context(), service.MarketplaceQuery{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listings, pagination)
}

// Get godoc
// @Summary Listing detail
// @Tags Listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /listings/{id} [get]
func (h *ListingHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	listing, err := h.service.Get(c.Request.Context(), claimsFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// Create godoc
// @Summary Upload a listing
// @Tags Listings
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param category_id formData string true "Category ID"
// @Param price formData number false "Price"
// @Param university formData string false "University"
// @Param course_code formData string false "Course code"
// @Param subject formData string false "Subject"
// @Param language formData string false "Language"
// @Param tags formData []string false "Tags" collectionFormat(multi)
// @Param file formData file true "Material file"
// @Param previews formData file false "Preview images"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /listings [post]
func (h *ListingHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+multipartSlack)

	var input models.CreateListingInput
	if err := c.ShouldBind(&input); err != nil {
		response.Error(c, uploadError(err, "invalid listing form"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, uploadError(err, "file is required"))
		return
	}
	file, closeFile, err := openUpload(fileHeader)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile()

	var previews []service.FileUpload
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, header := range form.File["previews"] {
			preview, closePreview, err := openUpload(header)
			if err != nil {
				response.Error(c, err)
				return
			}
			defer closePreview()
			previews = append(previews, preview)
		}
	}

	listing, err := h.service.Create(c.Request.Context(), claims, input, file, previews, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, listing)
}

// Update godoc
// @Summary Edit listing metadata
// @Tags Listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param payload body models.UpdateListingRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /listings/{id} [put]
func (h *ListingHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid listing payload"))
		return
	}
	listing, err := h.service.Update(c.Request.Context(), claims, id, req, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// Delete godoc
// @Summary Delete listing
// @Tags Listings
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /listings/{id} [delete]
func (h *ListingHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims, id, auditMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Mine godoc
// @Summary Own listings
// @Tags Listings
// @Produce json
// @Security BearerAuth
// @Param search query string false "Title, description, course code or subject"
// @Param status query string false "pending, approved, rejected or all"
// @Success 200 {object} response.Envelope
// @Router /me/listings [get]
func (h *ListingHandler) Mine(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	listings, err := h.service.Mine(c.Request.Context(), claims, c.Query("search"), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listings, nil)
}

// AdminList godoc
// @Summary Moderation queue
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Title, owner or university"
// @Param category query string false "Category slug or id"
// @Param status query string false "pending, approved, rejected or all"
// @Param sort query string false "Sort key"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/listings [get]
func (h *ListingHandler) AdminList(c *gin.Context) {
	listings, pagination, err := h.service.AdminList(c.Request.Context(), adminQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listings, pagination)
}

// Export godoc
// @Summary Export listings
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Param status query string false "Status filter"
// @Success 200 {file} file
// @Router /admin/listings/export [get]
func (h *ListingHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	data, filename, err := h.service.Export(c.Request.Context(), adminQuery(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, format.ContentType(), data)
}

// Approve godoc
// @Summary Approve a pending listing
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/listings/{id}/approve [post]
func (h *ListingHandler) Approve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	listing, err := h.service.Approve(c.Request.Context(), claimsFromContext(c), id, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// Reject godoc
// @Summary Reject a pending listing
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param payload body models.ReviewListingRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/listings/{id}/reject [post]
func (h *ListingHandler) Reject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.ReviewListingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
			return
		}
	}
	listing, err := h.service.Reject(c.Request.Context(), claimsFromContext(c), id, req, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

func adminQuery(c *gin.Context) service.AdminListingQuery {
	page, size := pageParams(c)
	return service.AdminListingQuery{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Sort:     c.Query("sort"),
		Page:     page,
		PageSize: size,
	}
}

func openUpload(header *multipart.FileHeader) (service.FileUpload, func(), error) {
	f, err := header.Open()
	if err != nil {
		return service.FileUpload{}, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload")
	}
	return service.FileUpload{
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Content:  f,
	}, func() { _ = f.Close() }, nil
}

func uploadError(err error, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return appErrors.Wrap(err, appErrors.ErrPayloadTooLarge.Code, appErrors.ErrPayloadTooLarge.Status, "upload exceeds the allowed size")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, msg)
}

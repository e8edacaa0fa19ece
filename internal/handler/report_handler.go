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

type reportService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req models.CreateReportRequest) (*models.Report, error)
	List(ctx context.Context, q service.ReportQuery) ([]models.Report, *models.Pagination, error)
	UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateReportStatusRequest, meta service.AuditMeta) (*models.Report, error)
}

// ReportHandler accepts user reports and serves the admin reports table.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Create godoc
// @Summary File a report
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateReportRequest true "Report"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}
	report, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// List godoc
// @Summary List reports
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Item, reporter, reported user or reason"
// @Param status query string false "pending, investigating, resolved, dismissed or all"
// @Param type query string false "Report type or all"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	reports, pagination, err := h.service.List(c.Request.Context(), service.ReportQuery{
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		Type:     c.Query("type"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, pagination)
}

// UpdateStatus godoc
// @Summary Update report status
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Param payload body models.UpdateReportStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/reports/{id} [patch]
func (h *ReportHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.UpdateReportStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report status payload"))
		return
	}
	report, err := h.service.UpdateStatus(c.Request.Context(), claimsFromContext(c), id, req, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

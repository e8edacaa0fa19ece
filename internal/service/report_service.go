package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edumarket-api/internal/models"
	"github.com/noah-isme/edumarket-api/internal/repository"
	appErrors "github.com/noah-isme/edumarket-api/pkg/errors"
)

type reportStore interface {
	Create(ctx context.Context, report *models.Report) error
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error)
	FindByID(ctx context.Context, id string) (*models.Report, error)
	UpdateStatus(ctx context.Context, id string, from, to models.ReportStatus, resolution *string) error
}

// ReportQuery is the admin reports table criteria.
type ReportQuery struct {
	Search   string
	Status   string
	Type     string
	Page     int
	PageSize int
}

// ReportService files user reports and drives the admin review workflow.
type ReportService struct {
	repo      reportStore
	audit     auditLogger
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(repo reportStore, audit auditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReportService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger}
}

// Create files a report from the caller. Its priority is derived from the type.
func (s *ReportService) Create(ctx context.Context, actor *models.JWTClaims, req models.CreateReportRequest) (*models.Report, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.Reason = strings.TrimSpace(req.Reason)
	req.Description = strings.TrimSpace(req.Description)
	req.ListingID = trimOptional(req.ListingID)
	req.ReportedUserID = trimOptional(req.ReportedUserID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if req.ListingID == nil && req.ReportedUserID == nil && req.Type != models.ReportTypeTechnical {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a report must reference a listing or a user")
	}
	if req.ReportedUserID != nil && *req.ReportedUserID == actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "you cannot report yourself")
	}

	report := &models.Report{
		Type:           req.Type,
		ReporterID:     actor.UserID,
		ListingID:      req.ListingID,
		ReportedUserID: req.ReportedUserID,
		Reason:         req.Reason,
		Description:    req.Description,
		Priority:       models.PriorityFor(req.Type),
		Status:         models.ReportStatusPending,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "reported listing or user does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to file report")
	}

	_ = s.cache.Invalidate(ctx, cachePatternDashboards)
	s.logger.Info("report filed",
		zap.String("report_id", report.ID),
		zap.String("type", string(report.Type)),
		zap.String("priority", string(report.Priority)),
	)
	return report, nil
}

// List returns one page of reports for administrators.
func (s *ReportService) List(ctx context.Context, q ReportQuery) ([]models.Report, *models.Pagination, error) {
	filter := models.ReportFilter{Search: strings.TrimSpace(q.Search)}

	status := strings.ToLower(strings.TrimSpace(q.Status))
	if status != "" && status != "all" {
		filter.Status = models.ReportStatus(status)
		if !validReportStatus(filter.Status) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown report status")
		}
	}
	reportType := strings.TrimSpace(q.Type)
	if reportType != "" && !strings.EqualFold(reportType, "all") {
		filter.Type = models.ReportType(reportType)
		if !validReportType(filter.Type) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown report type")
		}
	}
	filter.Page, filter.PageSize = normalizePagination(q.Page, q.PageSize)

	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return reports, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// UpdateStatus moves a report from pending to investigating and then to
// resolved or dismissed. Closed reports cannot be reopened.
func (s *ReportService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateReportStatusRequest, meta AuditMeta) (*models.Report, error) {
	if !isAdmin(actor) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report status payload")
	}
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if !report.Status.CanTransition(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("report cannot move from %s to %s", report.Status, req.Status))
	}

	resolution := optionalString(req.Resolution)
	if err := s.repo.UpdateStatus(ctx, id, report.Status, req.Status, resolution); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "report was updated concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report")
	}
	report.Status = req.Status
	report.Resolution = resolution
	report.UpdatedAt = time.Now().UTC()

	_ = s.cache.Invalidate(ctx, cachePatternDashboards)
	emitAudit(ctx, s.audit, s.logger, auditEntry(actor.UserID, models.AuditActionReportStatus, "report", id, req, meta))
	return report, nil
}

func validReportStatus(status models.ReportStatus) bool {
	switch status {
	case models.ReportStatusPending, models.ReportStatusInvestigating, models.ReportStatusResolved, models.ReportStatusDismissed:
		return true
	}
	return false
}

func validReportType(t models.ReportType) bool {
	switch t {
	case models.ReportTypeContentViolation, models.ReportTypeInappropriate, models.ReportTypeSpam, models.ReportTypeUserBehavior, models.ReportTypeTechnical:
		return true
	}
	return false
}

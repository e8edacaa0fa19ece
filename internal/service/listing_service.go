package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edumarket-api/internal/catalog"
	"github.com/noah-isme/edumarket-api/internal/models"
	"github.com/noah-isme/edumarket-api/internal/repository"
	appErrors "github.com/noah-isme/edumarket-api/pkg/errors"
	"github.com/noah-isme/edumarket-api/pkg/export"
	"github.com/noah-isme/edumarket-api/pkg/jobs"
	"github.com/noah-isme/edumarket-api/pkg/storage"
)

// DefaultPreviewBytes caps a single preview image.
const DefaultPreviewBytes = 5 * 1024 * 1024

// rasterPreviewTypes are the raster formats served publicly as previews.
var rasterPreviewTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
	"image/gif":  {},
}

const (
	maxListingTags = 20
	exportPageSize = 100
)

type listingStore interface {
	List(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error)
	FindByID(ctx context.Context, id string) (*models.Listing, error)
	Create(ctx context.Context, listing *models.Listing) error
	Update(ctx context.Context, listing *models.Listing) error
	Transition(ctx context.Context, id string, from, to models.ListingStatus, reviewerID string, reason *string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// FileUpload carries one multipart file and its declared metadata.
type FileUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// MarketplaceQuery is the public browse criteria.
type MarketplaceQuery struct {
	Search   string
	Category string
	Sort     string
	Page     int
	PageSize int
}

// AdminListingQuery is the admin listings table criteria.
type AdminListingQuery struct {
	Search   string
	Category string
	Status   string
	Sort     string
	Page     int
	PageSize int
}

// ListingServiceConfig holds storage and moderation settings.
type ListingServiceConfig struct {
	FilesBucket     string
	PreviewsBucket  string
	MaxFileSize     int64
	MaxPreviewSize  int64
	MaxPreviews     int
	AllowedMIMEs    []string
	AutoApprove     bool
	DefaultLanguage string
}

// ListingService implements upload, browse, edit and moderation of listings.
type ListingService struct {
	repo      listingStore
	store     storage.ObjectStore
	cleanup   jobEnqueuer
	cleaner   *StorageCleaner
	renderer  *export.Renderer
	audit     auditLogger
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ListingServiceConfig
	mimeSet   map[string]struct{}
	now       func() time.Time
}

// ListingServiceParams groups constructor dependencies.
type ListingServiceParams struct {
	Repo      listingStore
	Store     storage.ObjectStore
	Cleanup   jobEnqueuer
	Renderer  *export.Renderer
	Audit     auditLogger
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    ListingServiceConfig
}

// NewListingService constructs the service with defaults.
func NewListingService(params ListingServiceParams) *ListingService {
	cfg := params.Config
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 50 * 1024 * 1024
	}
	if cfg.MaxPreviewSize <= 0 {
		cfg.MaxPreviewSize = DefaultPreviewBytes
	}
	if cfg.MaxPreviews <= 0 {
		cfg.MaxPreviews = 5
	}
	if cfg.FilesBucket == "" {
		cfg.FilesBucket = "listing-files"
	}
	if cfg.PreviewsBucket == "" {
		cfg.PreviewsBucket = "listing-previews"
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "English"
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "application/zip"}
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(strings.TrimSpace(mt))] = struct{}{}
	}

	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	renderer := params.Renderer
	if renderer == nil {
		renderer = export.NewRenderer()
	}

	return &ListingService{
		repo:      params.Repo,
		store:     params.Store,
		cleanup:   params.Cleanup,
		cleaner:   NewStorageCleaner(params.Store, params.Metrics, logger, 0),
		renderer:  renderer,
		audit:     params.Audit,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		mimeSet:   mimeSet,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and stores the uploaded files, then inserts the listing.
// Stored objects are removed again when the insert fails.
func (s *ListingService) Create(ctx context.Context, actor *models.JWTClaims, input models.CreateListingInput, file FileUpload, previews []FileUpload, meta AuditMeta) (*models.Listing, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.CategoryID = strings.TrimSpace(input.CategoryID)
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid listing payload")
	}

	fileMIME, err := s.checkMainFile(file)
	if err != nil {
		return nil, err
	}
	previewMIMEs, err := s.checkPreviews(previews)
	if err != nil {
		return nil, err
	}

	var stored []ObjectRef
	rollback := func() {
		if err := s.cleaner.Remove(context.WithoutCancel(ctx), stored); err != nil {
			s.logger.Warn("failed to remove objects of aborted upload", zap.Error(err))
		}
	}

	filePath, err := s.put(ctx, actor.UserID, s.cfg.FilesBucket, file, fileMIME)
	if err != nil {
		return nil, err
	}
	stored = append(stored, ObjectRef{Bucket: s.cfg.FilesBucket, Path: filePath})

	previewPaths := make([]string, 0, len(previews))
	for i, preview := range previews {
		p, err := s.put(ctx, actor.UserID, s.cfg.PreviewsBucket, preview, previewMIMEs[i])
		if err != nil {
			rollback()
			return nil, err
		}
		stored = append(stored, ObjectRef{Bucket: s.cfg.PreviewsBucket, Path: p})
		previewPaths = append(previewPaths, p)
	}

	status := models.ListingStatusPending
	if s.cfg.AutoApprove {
		status = models.ListingStatusApproved
	}
	language := strings.TrimSpace(input.Language)
	if language == "" {
		language = s.cfg.DefaultLanguage
	}

	listing := &models.Listing{
		ID:           uuid.NewString(),
		OwnerID:      actor.UserID,
		CategoryID:   input.CategoryID,
		Title:        input.Title,
		Description:  input.Description,
		Price:        input.Price,
		Status:       status,
		FilePath:     filePath,
		FileName:     path.Base(strings.ReplaceAll(file.Filename, "\\", "/")),
		FileSize:     file.Size,
		FileMIME:     fileMIME,
		PreviewPaths: previewPaths,
		University:   optionalString(input.University),
		CourseCode:   optionalString(input.CourseCode),
		Subject:      optionalString(input.Subject),
		Language:     language,
		Tags:         NormalizeTags(input.Tags),
		OwnerName:    actor.FullName,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		rollback()
		if errors.Is(err, repository.ErrReferenced) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "category does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create listing")
	}

	s.metrics.ObserveUpload(file.Size)
	_ = s.cache.Invalidate(ctx, cachePatternDashboards, cachePatternCategories)
	emitAudit(ctx, s.audit, s.logger, auditEntry(actor.UserID, models.AuditActionListingCreate, "listing", listing.ID,
		map[string]interface{}{"title": listing.Title, "status": listing.Status}, meta))

	s.decorate(listing)
	return listing, nil
}

// Marketplace lists approved listings.
func (s *ListingService) Marketplace(ctx context.Context, q MarketplaceQuery) ([]models.Listing, *models.Pagination, error) {
	return s.list(ctx, models.ListingFilter{
		Status:   models.ListingStatusApproved,
		Category: categorySelector(q.Category),
		Search:   strings.TrimSpace(q.Search),
		Sort:     string(catalog.ParseSortKey(q.Sort)),
		Page:     q.Page,
		PageSize: q.PageSize,
	})
}

// AdminList lists listings of any status for moderation.
func (s *ListingService) AdminList(ctx context.Context, q AdminListingQuery) ([]models.Listing, *models.Pagination, error) {
	status, err := parseListingStatusFilter(q.Status)
	if err != nil {
		return nil, nil, err
	}
	return s.list(ctx, models.ListingFilter{
		Status:    status,
		Category:  categorySelector(q.Category),
		Search:    strings.TrimSpace(q.Search),
		Sort:      string(catalog.ParseSortKey(q.Sort)),
		Page:      q.Page,
		PageSize:  q.PageSize,
		AdminView: true,
	})
}

func (s *ListingService) list(ctx context.Context, filter models.ListingFilter) ([]models.Listing, *models.Pagination, error) {
	filter.Page, filter.PageSize = normalizePagination(filter.Page, filter.PageSize)
	listings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list listings")
	}
	for i := range listings {
		s.decorate(&listings[i])
	}
	return listings, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one listing. Listings that are not approved are only visible
// to their owner and administrators.
func (s *ListingService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Listing, error) {
	listing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingStatusApproved && !canManage(actor, listing) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
	}
	s.decorate(listing)
	return listing, nil
}

// Mine returns the caller's listings filtered in memory.
func (s *ListingService) Mine(ctx context.Context, actor *models.JWTClaims, search, status string) ([]models.Listing, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if _, err := parseListingStatusFilter(status); err != nil {
		return nil, err
	}
	listings, err := s.repo.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list own listings")
	}
	filtered := catalog.Filter(listings, catalog.Criteria{
		Search: search,
		Fields: []catalog.Field{catalog.FieldTitle, catalog.FieldDescription, catalog.FieldCourseCode, catalog.FieldSubject},
		Status: status,
	})
	catalog.Sort(filtered, catalog.SortRecent)
	for i := range filtered {
		s.decorate(&filtered[i])
	}
	return filtered, nil
}

// Update edits listing metadata. Status, files and counters never change here.
func (s *ListingService) Update(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateListingRequest, meta AuditMeta) (*models.Listing, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid listing payload")
	}
	listing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, listing) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner may edit this listing")
	}

	if req.Title != nil {
		listing.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		listing.Description = strings.TrimSpace(*req.Description)
	}
	if req.CategoryID != nil && strings.TrimSpace(*req.CategoryID) != "" {
		listing.CategoryID = strings.TrimSpace(*req.CategoryID)
	}
	if req.Price != nil {
		listing.Price = *req.Price
	}
	if req.University != nil {
		listing.University = trimOptional(req.University)
	}
	if req.CourseCode != nil {
		listing.CourseCode = trimOptional(req.CourseCode)
	}
	if req.Subject != nil {
		listing.Subject = trimOptional(req.Subject)
	}
	if req.Language != nil && strings.TrimSpace(*req.Language) != "" {
		listing.Language = strings.TrimSpace(*req.Language)
	}
	if req.Tags != nil {
		listing.Tags = NormalizeTags(*req.Tags)
	}
	if len(listing.Title) < 3 || len(listing.Description) < 10 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title or description too short")
	}

	if err := s.repo.Update(ctx, listing); err != nil {
		switch {
		case errors.Is(err, repository.ErrReferenced):
			return nil, appErrors.Clone(appErrors.ErrValidation, "category does not exist")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update listing")
	}

	_ = s.cache.Invalidate(ctx, cachePatternCategories)
	emitAudit(ctx, s.audit, s.logger, auditEntry(actor.UserID, models.AuditActionListingUpdate, "listing", id, req, meta))
	s.decorate(listing)
	return listing, nil
}

// Delete removes the listing with a single delete call and schedules removal
// of its stored objects.
func (s *ListingService) Delete(ctx context.Context, actor *models.JWTClaims, id string, meta AuditMeta) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	listing, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, listing) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner may delete this listing")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete listing")
	}

	s.scheduleCleanup(ctx, listing)
	_ = s.cache.Invalidate(ctx, cachePatternDashboards, cachePatternCategories)
	emitAudit(ctx, s.audit, s.logger, auditEntry(actor.UserID, models.AuditActionListingDelete, "listing", id,
		map[string]string{"title": listing.Title}, meta))
	return nil
}

// Approve publishes a pending listing.
func (s *ListingService) Approve(ctx context.Context, actor *models.JWTClaims, id string, meta AuditMeta) (*models.Listing, error) {
	return s.review(ctx, actor, id, models.ListingStatusApproved, "", meta)
}

// Reject declines a pending listing with an optional reason.
func (s *ListingService) Reject(ctx context.Context, actor *models.JWTClaims, id string, req models.ReviewListingRequest, meta AuditMeta) (*models.Listing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	return s.review(ctx, actor, id, models.ListingStatusRejected, req.Reason, meta)
}

func (s *ListingService) review(ctx context.Context, actor *models.JWTClaims, id string, to models.ListingStatus, reason string, meta AuditMeta) (*models.Listing, error) {
	if !isAdmin(actor) {
		return nil, appErrors.ErrForbidden
	}
	listing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !listing.Status.CanTransition(to) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("listing is %s, only pending listings can be reviewed", listing.Status))
	}

	reviewedAt := s.now()
	if err := s.repo.Transition(ctx, id, listing.Status, to, actor.UserID, optionalString(reason), reviewedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "listing was reviewed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review listing")
	}

	listing.Status = to
	listing.ReviewedBy = &actor.UserID
	listing.ReviewedAt = &reviewedAt
	listing.RejectionReason = optionalString(reason)

	s.metrics.RecordModeration(string(to))
	_ = s.cache.Invalidate(ctx, cachePatternDashboards, cachePatternCategories)
	action := models.AuditActionListingApprove
	if to == models.ListingStatusRejected {
		action = models.AuditActionListingReject
	}
	emitAudit(ctx, s.audit, s.logger, auditEntry(actor.UserID, action, "listing", id,
		map[string]interface{}{"status": to, "reason": reason}, meta))

	s.decorate(listing)
	return listing, nil
}

// Export renders every listing matching q as CSV or PDF.
func (s *ListingService) Export(ctx context.Context, q AdminListingQuery, format export.Format) ([]byte, string, error) {
	status, err := parseListingStatusFilter(q.Status)
	if err != nil {
		return nil, "", err
	}
	filter := models.ListingFilter{
		Status:    status,
		Category:  categorySelector(q.Category),
		Search:    strings.TrimSpace(q.Search),
		Sort:      string(catalog.ParseSortKey(q.Sort)),
		PageSize:  exportPageSize,
		AdminView: true,
	}

	var all []models.Listing
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listings for export")
		}
		all = append(all, batch...)
		if len(batch) < exportPageSize || len(all) >= total {
			break
		}
	}

	data, err := s.renderer.Render(format, listingDataset(all), "Listings")
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("listings_%s.%s", s.now().Format("20060102_150405"), format)
	return data, filename, nil
}

func listingDataset(listings []models.Listing) export.Dataset {
	headers := []string{"Title", "Owner", "Category", "University", "Status", "Tone", "Price", "Downloads", "Created"}
	rows := make([]map[string]string, 0, len(listings))
	for _, l := range listings {
		university := ""
		if l.University != nil {
			university = *l.University
		}
		rows = append(rows, map[string]string{
			"Title":      l.Title,
			"Owner":      l.OwnerName,
			"Category":   l.CategoryName,
			"University": university,
			"Status":     string(l.Status),
			"Tone":       string(catalog.StatusTone(string(l.Status))),
			"Price":      strconv.FormatFloat(l.Price, 'f', 2, 64),
			"Downloads":  strconv.Itoa(l.DownloadCount),
			"Created":    l.CreatedAt.Format("2006-01-02"),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func (s *ListingService) find(ctx context.Context, id string) (*models.Listing, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	return listing, nil
}

func (s *ListingService) decorate(listing *models.Listing) {
	listing.PreviewImages = make([]string, 0, len(listing.PreviewPaths))
	for _, p := range listing.PreviewPaths {
		listing.PreviewImages = append(listing.PreviewImages, s.store.PublicURL(s.cfg.PreviewsBucket, p))
	}
}

func (s *ListingService) scheduleCleanup(ctx context.Context, listing *models.Listing) {
	refs := []ObjectRef{{Bucket: s.cfg.FilesBucket, Path: listing.FilePath}}
	for _, p := range listing.PreviewPaths {
		refs = append(refs, ObjectRef{Bucket: s.cfg.PreviewsBucket, Path: p})
	}
	if s.cleanup != nil {
		err := s.cleanup.Enqueue(jobs.Job{ID: uuid.NewString(), Type: JobTypeStorageCleanup, Payload: refs})
		if err == nil {
			return
		}
		s.logger.Warn("cleanup queue unavailable, removing inline", zap.String("listing_id", listing.ID), zap.Error(err))
	}
	if err := s.cleaner.Remove(context.WithoutCancel(ctx), refs); err != nil {
		s.logger.Warn("failed to remove listing objects", zap.String("listing_id", listing.ID), zap.Error(err))
	}
}

func (s *ListingService) put(ctx context.Context, ownerID, bucket string, upload FileUpload, contentType string) (string, error) {
	objectPath, err := storage.ObjectPath(ownerID, upload.Filename, s.now())
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build object path")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	stored, err := s.store.Put(ctx, bucket, objectPath, upload.Content, upload.Size, contentType)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	return stored, nil
}

func (s *ListingService) checkMainFile(file FileUpload) (string, error) {
	if file.Content == nil || file.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if file.Size > s.cfg.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := detectMIME(file)
	if err != nil {
		return "", err
	}
	if _, ok := s.mimeSet[mimeType]; !ok {
		return "", appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("file type %s is not allowed", mimeType))
	}
	return mimeType, nil
}

func (s *ListingService) checkPreviews(previews []FileUpload) ([]string, error) {
	if len(previews) > s.cfg.MaxPreviews {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d preview images are allowed", s.cfg.MaxPreviews))
	}
	types := make([]string, 0, len(previews))
	for _, preview := range previews {
		if preview.Content == nil || preview.Size <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "empty preview image")
		}
		if preview.Size > s.cfg.MaxPreviewSize {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "preview image too large")
		}
		mimeType, err := detectMIME(preview)
		if err != nil {
			return nil, err
		}
		if _, ok := rasterPreviewTypes[mimeType]; !ok {
			return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, "previews must be png, jpeg, webp or gif images")
		}
		types = append(types, mimeType)
	}
	return types, nil
}

// detectMIME sniffs the content and rejects uploads whose declared type disagrees with it.
func detectMIME(upload FileUpload) (string, error) {
	detected, err := mimetype.DetectReader(upload.Content)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	actual := baseMediaType(detected.String())
	declared := baseMediaType(upload.MimeType)
	if declared == "" || declared == "application/octet-stream" {
		return actual, nil
	}
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(declared) {
			return actual, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("declared type %s does not match content %s", declared, actual))
}

func baseMediaType(raw string) string {
	if raw == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// NormalizeTags trims tags, drops blanks and case-insensitive duplicates, keeping first spellings.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		for _, part := range strings.Split(tag, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			key := strings.ToLower(trimmed)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, trimmed)
			if len(out) == maxListingTags {
				return out
			}
		}
	}
	return out
}

func canManage(actor *models.JWTClaims, listing *models.Listing) bool {
	return actor != nil && (actor.Role == models.RoleAdmin || actor.UserID == listing.OwnerID)
}

func categorySelector(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.EqualFold(trimmed, catalog.AllCategories) {
		return ""
	}
	return trimmed
}

func parseListingStatusFilter(raw string) (models.ListingStatus, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == "all" {
		return "", nil
	}
	status := models.ListingStatus(trimmed)
	if !status.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}
	return status, nil
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edumarket-api/internal/models"
	"github.com/noah-isme/edumarket-api/internal/repository"
	appErrors "github.com/noah-isme/edumarket-api/pkg/errors"
)

type categoryStore interface {
	ListActive(ctx context.Context) ([]models.Category, error)
	List(ctx context.Context, search string) ([]models.Category, error)
	FindByID(ctx context.Context, id string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Upsert(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id string) error
}

// CategoryService manages marketplace categories.
type CategoryService struct {
	repo      categoryStore
	audit     auditLogger
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryService constructs a CategoryService.
func NewCategoryService(repo categoryStore, audit auditLogger, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{repo: repo, audit: audit, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Active returns the categories shown on the marketplace, served from cache when possible.
func (s *CategoryService) Active(ctx context.Context) ([]models.Category, bool, error) {
	var cached []models.Category
	if hit, err := s.cache.Get(ctx, cacheKeyCategories, &cached); err == nil && hit {
		return cached, true, nil
	}

	categories, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	if categories == nil {
		categories = []models.Category{}
	}
	_ = s.cache.Set(ctx, cacheKeyCategories, categories, s.cacheTTL)
	return categories, false, nil
}

// List returns every category for the admin table.
func (s *CategoryService) List(ctx context.Context, search string) ([]models.Category, error) {
	categories, err := s.repo.List(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return categories, nil
}

// Create adds a category. The slug is derived from the name when omitted.
func (s *CategoryService) Create(ctx context.Context, actor *models.JWTClaims, req models.CategoryRequest, meta AuditMeta) (*models.Category, error) {
	category, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, s.mapWriteError(err)
	}
	s.afterWrite(ctx, actor, models.AuditActionCategoryWrite, category.ID, category, meta)
	return category, nil
}

// Update replaces a category.
func (s *CategoryService) Update(ctx context.Context, actor *models.JWTClaims, id string, req models.CategoryRequest, meta AuditMeta) (*models.Category, error) {
	category, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapWriteError(err)
	}
	category.ID = existing.ID
	category.CreatedAt = existing.CreatedAt
	category.ItemCount = existing.ItemCount

	if err := s.repo.Update(ctx, category); err != nil {
		return nil, s.mapWriteError(err)
	}
	s.afterWrite(ctx, actor, models.AuditActionCategoryWrite, category.ID, category, meta)
	return category, nil
}

// Delete removes a category that no listing references.
func (s *CategoryService) Delete(ctx context.Context, actor *models.JWTClaims, id string, meta AuditMeta) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return appErrors.Clone(appErrors.ErrConflict, "category still has listings")
		}
		return s.mapWriteError(err)
	}
	s.afterWrite(ctx, actor, models.AuditActionCategoryDelete, id, nil, meta)
	return nil
}

// Seed upserts categories keyed by slug and returns how many were written.
func (s *CategoryService) Seed(ctx context.Context, categories []models.Category) (int, error) {
	written := 0
	for i := range categories {
		category := categories[i]
		category.Name = strings.TrimSpace(category.Name)
		if category.Name == "" {
			return written, appErrors.Clone(appErrors.ErrValidation, "seed category without a name")
		}
		category.Slug = Slugify(firstNonEmpty(category.Slug, category.Name))
		if category.Status == "" {
			category.Status = models.CategoryStatusActive
		}
		if err := s.repo.Upsert(ctx, &category); err != nil {
			return written, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed category "+category.Slug)
		}
		written++
	}
	_ = s.cache.Invalidate(ctx, cachePatternCategories, cachePatternDashboards)
	return written, nil
}

func (s *CategoryService) fromRequest(req models.CategoryRequest) (*models.Category, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	slug := Slugify(firstNonEmpty(req.Slug, req.Name))
	if slug == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "category slug is empty")
	}
	status := req.Status
	if status == "" {
		status = models.CategoryStatusActive
	}
	return &models.Category{
		Name:        req.Name,
		Slug:        slug,
		Description: strings.TrimSpace(req.Description),
		Icon:        strings.TrimSpace(req.Icon),
		Status:      status,
	}, nil
}

func (s *CategoryService) mapWriteError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "category not found")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "category slug already exists")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save category")
	}
}

func (s *CategoryService) afterWrite(ctx context.Context, actor *models.JWTClaims, action, id string, values interface{}, meta AuditMeta) {
	_ = s.cache.Invalidate(ctx, cachePatternCategories, cachePatternDashboards)
	emitAudit(ctx, s.audit, s.logger, auditEntry(actorID(actor), action, "category", id, values, meta))
}

// Slugify lowercases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

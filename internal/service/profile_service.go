package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edumarket-api/internal/models"
	appErrors "github.com/noah-isme/edumarket-api/pkg/errors"
)

type profileStore interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	UpdateDetails(ctx context.Context, profile *models.Profile) error
	UpdateStatus(ctx context.Context, id string, status models.ProfileStatus) error
	List(ctx context.Context, filter models.ProfileFilter) ([]models.ProfileSummary, int, error)
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// ProfileService manages the signed-in profile and the admin users table.
type ProfileService struct {
	repo      profileStore
	audit     auditLogger
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(repo profileStore, audit auditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger}
}

// Get returns a profile by id.
func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return profile, nil
}

// Update edits the caller's full name and university.
func (s *ProfileService) Update(ctx context.Context, id string, req models.UpdateProfileRequest) (*models.Profile, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	profile.FullName = req.FullName
	profile.University = trimOptional(req.University)

	if err := s.repo.UpdateDetails(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return profile, nil
}

// List returns the admin users table.
func (s *ProfileService) List(ctx context.Context, filter models.ProfileFilter) ([]models.ProfileSummary, *models.Pagination, error) {
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	if filter.Status != "" && filter.Status != "all" && !models.ProfileStatus(filter.Status).Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}
	filter.Page, filter.PageSize = normalizePagination(filter.Page, filter.PageSize)

	profiles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list profiles")
	}
	return profiles, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// UpdateStatus suspends or reactivates an account. Suspension revokes its
// refresh sessions so the user is signed out once the access token expires.
func (s *ProfileService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateProfileStatusRequest, meta AuditMeta) (*models.Profile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if actor != nil && actor.UserID == id && req.Status != models.ProfileStatusActive {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrators cannot suspend themselves")
	}

	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := profile.Status
	if previous == req.Status {
		return profile, nil
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile status")
	}
	profile.Status = req.Status

	if req.Status == models.ProfileStatusSuspended {
		if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
			s.logger.Warn("failed to revoke sessions of suspended profile", zap.String("profile_id", id), zap.Error(err))
		}
	}
	_ = s.cache.Invalidate(ctx, cachePatternDashboards)

	emitAudit(ctx, s.audit, s.logger, auditEntry(actorID(actor), models.AuditActionProfileStatus, "profile", id,
		map[string]models.ProfileStatus{"from": previous, "to": req.Status}, meta))
	return profile, nil
}

func actorID(actor *models.JWTClaims) string {
	if actor == nil {
		return ""
	}
	return actor.UserID
}

func isAdmin(actor *models.JWTClaims) bool {
	return actor != nil && actor.Role == models.RoleAdmin
}

func normalizePagination(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edumarket-api/internal/models"
	appErrors "github.com/noah-isme/edumarket-api/pkg/errors"
	"github.com/noah-isme/edumarket-api/pkg/storage"
)

type downloadStore interface {
	Record(ctx context.Context, userID, listingID string, at time.Time) (*models.Download, error)
	ListByUser(ctx context.Context, userID string) ([]models.Download, error)
}

type listingFinder interface {
	FindByID(ctx context.Context, id string) (*models.Listing, error)
}

// DownloadResult is an open listing file ready to be streamed.
type DownloadResult struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
	Receipt     *models.Download
}

// DownloadServiceConfig locates files and download routes.
type DownloadServiceConfig struct {
	FilesBucket string
	APIPrefix   string
}

// DownloadService issues signed download links and serves listing files.
type DownloadService struct {
	listings  listingFinder
	downloads downloadStore
	store     storage.ObjectStore
	signer    *storage.SignedURLSigner
	audit     auditLogger
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       DownloadServiceConfig
	now       func() time.Time
}

// NewDownloadService constructs a DownloadService.
func NewDownloadService(listings listingFinder, downloads downloadStore, store storage.ObjectStore, signer *storage.SignedURLSigner, audit auditLogger, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg DownloadServiceConfig) *DownloadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FilesBucket == "" {
		cfg.FilesBucket = "listing-files"
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	cfg.APIPrefix = strings.TrimRight(cfg.APIPrefix, "/")
	return &DownloadService{
		listings:  listings,
		downloads: downloads,
		store:     store,
		signer:    signer,
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DownloadURL returns a short-lived link bound to the caller and the listing.
func (s *DownloadService) DownloadURL(ctx context.Context, actor *models.JWTClaims, listingID string) (*models.DownloadLink, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	listing, err := s.downloadable(ctx, actor, listingID)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Issue(listing.ID, actor.UserID, listing.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &models.DownloadLink{
		URL:       fmt.Sprintf("%s/listings/%s/download?token=%s", s.cfg.APIPrefix, url.PathEscape(listing.ID), url.QueryEscape(token)),
		ExpiresAt: expiresAt,
	}, nil
}

// Download validates the token, records the receipt and opens the file.
// The caller owns Body.
func (s *DownloadService) Download(ctx context.Context, actor *models.JWTClaims, listingID, token string, meta AuditMeta) (*DownloadResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	grant, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	if grant.ListingID != listingID || grant.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link was issued for another request")
	}

	listing, err := s.downloadable(ctx, actor, listingID)
	if err != nil {
		return nil, err
	}
	if grant.ObjectPath != listing.FilePath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link is stale")
	}

	body, info, err := s.store.Get(ctx, s.cfg.FilesBucket, listing.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing file is missing")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open listing file")
	}

	receipt, err := s.downloads.Record(ctx, actor.UserID, listing.ID, s.now())
	if err != nil {
		_ = body.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record download")
	}

	s.metrics.RecordDownload()
	_ = s.cache.Invalidate(ctx, cachePatternDashboards)
	emitAudit(ctx, s.audit, s.logger, auditEntry(actor.UserID, models.AuditActionListingDownload, "listing", listing.ID, nil, meta))

	contentType := listing.FileMIME
	if contentType == "" {
		contentType = info.ContentType
	}
	size := info.Size
	if size <= 0 {
		size = listing.FileSize
	}
	return &DownloadResult{
		Body:        body,
		Filename:    listing.FileName,
		ContentType: contentType,
		Size:        size,
		Receipt:     receipt,
	}, nil
}

// Mine lists the caller's download receipts, newest first.
func (s *DownloadService) Mine(ctx context.Context, actor *models.JWTClaims) ([]models.Download, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	downloads, err := s.downloads.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list downloads")
	}
	if downloads == nil {
		downloads = []models.Download{}
	}
	return downloads, nil
}

func (s *DownloadService) downloadable(ctx context.Context, actor *models.JWTClaims, listingID string) (*models.Listing, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	if listing.Status != models.ListingStatusApproved && !canManage(actor, listing) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
	}
	if listing.FilePath == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "listing has no file")
	}
	return listing, nil
}

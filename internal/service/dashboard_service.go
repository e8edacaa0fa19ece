package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/edumarket-api/internal/models"
	appErrors "github.com/noah-isme/edumarket-api/pkg/errors"
)

type dashboardStore interface {
	CountProfiles(ctx context.Context) (int, error)
	CountListingsByStatus(ctx context.Context) (map[models.ListingStatus]int, error)
	CountDownloads(ctx context.Context) (int, error)
	CountOpenReports(ctx context.Context) (int, error)
	CategoryBreakdown(ctx context.Context) ([]models.CategoryShare, error)
	UserStats(ctx context.Context, userID string) (*models.UserDashboard, error)
}

// DashboardService aggregates admin and per-user marketplace statistics.
type DashboardService struct {
	repo   dashboardStore
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService creates a dashboard service.
func NewDashboardService(repo dashboardStore, cache *CacheService, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Admin returns the marketplace overview. The bool reports a cache hit.
func (s *DashboardService) Admin(ctx context.Context) (*models.AdminDashboard, bool, error) {
	var cached models.AdminDashboard
	if hit, err := s.cache.Get(ctx, cacheKeyAdminDashboard, &cached); err == nil && hit {
		return &cached, true, nil
	}

	var (
		dashboard = &models.AdminDashboard{}
		byStatus  map[models.ListingStatus]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.repo.CountProfiles(gctx)
		dashboard.TotalUsers = total
		return err
	})
	g.Go(func() error {
		counts, err := s.repo.CountListingsByStatus(gctx)
		byStatus = counts
		return err
	})
	g.Go(func() error {
		total, err := s.repo.CountDownloads(gctx)
		dashboard.TotalDownloads = total
		return err
	})
	g.Go(func() error {
		total, err := s.repo.CountOpenReports(gctx)
		dashboard.OpenReports = total
		return err
	})
	g.Go(func() error {
		shares, err := s.repo.CategoryBreakdown(gctx)
		dashboard.Categories = shares
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard")
	}

	dashboard.ActiveListings = byStatus[models.ListingStatusApproved]
	dashboard.PendingListings = byStatus[models.ListingStatusPending]
	dashboard.Categories = withPercentages(dashboard.Categories)
	dashboard.GeneratedAt = s.now()

	if err := s.cache.Set(ctx, cacheKeyAdminDashboard, dashboard, s.ttl); err != nil {
		s.logger.Debug("admin dashboard not cached", zap.Error(err))
	}
	return dashboard, false, nil
}

// User returns upload and download counters for one profile.
func (s *DashboardService) User(ctx context.Context, userID string) (*models.UserDashboard, bool, error) {
	key := cacheKeyUserDashboard + userID
	var cached models.UserDashboard
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	stats, err := s.repo.UserStats(ctx, userID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard")
	}
	_ = s.cache.Set(ctx, key, stats, s.ttl)
	return stats, false, nil
}

// withPercentages fills each share's percentage of the total, rounded to one decimal.
func withPercentages(shares []models.CategoryShare) []models.CategoryShare {
	if shares == nil {
		return []models.CategoryShare{}
	}
	total := 0
	for _, share := range shares {
		total += share.Count
	}
	for i := range shares {
		if total == 0 {
			shares[i].Percentage = 0
			continue
		}
		shares[i].Percentage = math.Round(float64(shares[i].Count)*1000/float64(total)) / 10
	}
	return shares
}

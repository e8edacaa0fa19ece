package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edumarket-api/internal/models"
)

// DashboardRepository runs the aggregate queries behind admin and user dashboards.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository creates a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// CountProfiles returns the number of registered profiles.
func (r *DashboardRepository) CountProfiles(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM profiles`); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return total, nil
}

// CountListingsByStatus returns listing counts keyed by status.
func (r *DashboardRepository) CountListingsByStatus(ctx context.Context) (map[models.ListingStatus]int, error) {
	var rows []struct {
		Status models.ListingStatus `db:"status"`
		Count  int                  `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM listings GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count listings by status: %w", err)
	}
	counts := make(map[models.ListingStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountDownloads returns the number of download receipts.
func (r *DashboardRepository) CountDownloads(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM downloads`); err != nil {
		return 0, fmt.Errorf("count downloads: %w", err)
	}
	return total, nil
}

// CountOpenReports returns reports not yet resolved or dismissed.
func (r *DashboardRepository) CountOpenReports(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reports WHERE status IN ('pending', 'investigating')`); err != nil {
		return 0, fmt.Errorf("count open reports: %w", err)
	}
	return total, nil
}

// CategoryBreakdown counts approved listings per category, largest first.
func (r *DashboardRepository) CategoryBreakdown(ctx context.Context) ([]models.CategoryShare, error) {
	const query = `SELECT c.id AS category_id, c.name, COUNT(l.id) AS count
	FROM categories c
	LEFT JOIN listings l ON l.category_id = c.id AND l.status = 'approved'
	GROUP BY c.id, c.name
	ORDER BY count DESC, c.name ASC`
	var shares []models.CategoryShare
	if err := r.db.SelectContext(ctx, &shares, query); err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	return shares, nil
}

// UserStats aggregates one profile's uploads and downloads.
func (r *DashboardRepository) UserStats(ctx context.Context, userID string) (*models.UserDashboard, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM listings WHERE owner_id = $1) AS uploads,
	(SELECT COUNT(*) FROM listings WHERE owner_id = $1 AND status = 'approved') AS approved_uploads,
	(SELECT COUNT(*) FROM listings WHERE owner_id = $1 AND status = 'pending') AS pending_uploads,
	(SELECT COALESCE(SUM(download_count), 0) FROM listings WHERE owner_id = $1) AS downloads_received,
	(SELECT COUNT(*) FROM downloads WHERE user_id = $1) AS downloads_made`
	var stats models.UserDashboard
	if err := r.db.GetContext(ctx, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("user dashboard stats: %w", err)
	}
	return &stats, nil
}

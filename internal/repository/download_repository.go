package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edumarket-api/internal/models"
)

// DownloadRepository stores download receipts.
type DownloadRepository struct {
	db *sqlx.DB
}

// NewDownloadRepository creates a DownloadRepository.
func NewDownloadRepository(db *sqlx.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Record appends a receipt and bumps the listing's download_count in one
// transaction. It returns sql.ErrNoRows if the listing vanished meanwhile.
func (r *DownloadRepository) Record(ctx context.Context, userID, listingID string, at time.Time) (*models.Download, error) {
	receipt := &models.Download{
		ID:           uuid.NewString(),
		UserID:       userID,
		ListingID:    listingID,
		DownloadedAt: at.UTC(),
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin download tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `UPDATE listings SET download_count = download_count + 1 WHERE id = $1`, listingID)
	if err != nil {
		return nil, fmt.Errorf("increment download count: %w", err)
	}
	if err := expectOne(res); err != nil {
		return nil, err
	}

	const insert = `INSERT INTO downloads (id, user_id, listing_id, downloaded_at) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insert, receipt.ID, receipt.UserID, receipt.ListingID, receipt.DownloadedAt); err != nil {
		return nil, fmt.Errorf("insert download receipt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit download tx: %w", err)
	}
	return receipt, nil
}

// ListByUser returns a user's receipts joined with the listing title, newest first.
func (r *DownloadRepository) ListByUser(ctx context.Context, userID string) ([]models.Download, error) {
	const query = `SELECT d.id, d.user_id, d.listing_id, d.downloaded_at, l.title AS listing_title, c.name AS category_name
	FROM downloads d
	JOIN listings l ON l.id = d.listing_id
	JOIN categories c ON c.id = l.category_id
	WHERE d.user_id = $1
	ORDER BY d.downloaded_at DESC`
	var downloads []models.Download
	if err := r.db.SelectContext(ctx, &downloads, query, userID); err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	return downloads, nil
}

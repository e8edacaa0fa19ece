package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumarket-api/internal/models"
)

func TestCountListingsByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDashboardRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS count FROM listings GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("approved", 8).
			AddRow("pending", 3))

	counts, err := repo.CountListingsByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, counts[models.ListingStatusApproved])
	assert.Equal(t, 3, counts[models.ListingStatusPending])
	assert.Zero(t, counts[models.ListingStatusRejected])
}

func TestUserStats(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDashboardRepository(db)

	mock.ExpectQuery("AS downloads_made").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"uploads", "approved_uploads", "pending_uploads", "downloads_received", "downloads_made"}).
			AddRow(5, 3, 2, 41, 7))

	stats, err := repo.UserStats(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 41, stats.DownloadsReceived)
	assert.Equal(t, 7, stats.DownloadsMade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumarket-api/internal/models"
)

var listingRowColumns = []string{
	"id", "owner_id", "category_id", "title", "description", "price", "status",
	"download_count", "file_path", "file_name", "file_size", "file_mime", "preview_paths",
	"university", "course_code", "subject", "language", "tags", "rejection_reason",
	"reviewed_by", "reviewed_at", "created_at", "updated_at",
	"owner_name", "category_name", "category_slug",
}

func listingRow(rows *sqlmock.Rows, id, title string, status models.ListingStatus) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "owner-1", "cat-1", title, "desc", 4.5, string(status),
		7, "owner-1/1_abc.pdf", "notes.pdf", 1024, "application/pdf", "{owner-1/1_p.png}",
		"UI", nil, nil, "English", "{calculus,notes}", nil,
		nil, nil, now, now,
		"Rina", "Notes", "notes")
}

func TestListListingsMarketplace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM listings l JOIN profiles p ON p.id = l.owner_id JOIN categories c ON c.id = l.category_id WHERE l.status = $1 AND (LOWER(c.slug) = LOWER($2) OR c.id::text = $3) AND (LOWER(l.title) LIKE $4 OR LOWER(l.description) LIKE $5) ORDER BY l.download_count DESC, l.created_at DESC LIMIT 12 OFFSET 0")).
		WithArgs(models.ListingStatusApproved, "notes", "notes", "%calc%", "%calc%").
		WillReturnRows(listingRow(sqlmock.NewRows(listingRowColumns), "l1", "Calc Notes", models.ListingStatusApproved))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM listings l JOIN profiles p")).
		WithArgs(models.ListingStatusApproved, "notes", "notes", "%calc%", "%calc%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	listings, total, err := repo.List(context.Background(), models.ListingFilter{
		Status:   models.ListingStatusApproved,
		Category: "notes",
		Search:   "Calc",
		Sort:     "popular",
		PageSize: 12,
	})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, pq.StringArray{"calculus", "notes"}, listings[0].Tags)
	assert.Equal(t, "Rina", listings[0].OwnerName)
	assert.Equal(t, 7, listings[0].DownloadCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListListingsAdminSearchAndAllCategory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE (LOWER(l.title) LIKE $1 OR LOWER(p.full_name) LIKE $2 OR LOWER(COALESCE(l.university, '')) LIKE $3) ORDER BY l.created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("%50\\%%", "%50\\%%", "%50\\%%").
		WillReturnRows(sqlmock.NewRows(listingRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.ListingFilter{Search: "50%", Category: "all", AdminView: true, Sort: "bogus"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionListingGuardsStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE listings SET status = $1, reviewed_by = $2, reviewed_at = $3, rejection_reason = $4, updated_at = $5 WHERE id = $6 AND status = $7")).
		WithArgs(models.ListingStatusApproved, "admin-1", at, nil, at, "l1", models.ListingStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Transition(context.Background(), "l1", models.ListingStatusPending, models.ListingStatusApproved, "admin-1", nil, at)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateListingUnknownCategory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectExec("INSERT INTO listings").WillReturnError(&pq.Error{Code: "23503"})

	listing := &models.Listing{OwnerID: "o", CategoryID: "missing", Title: "T", Status: models.ListingStatusPending}
	err := repo.Create(context.Background(), listing)
	assert.ErrorIs(t, err, ErrReferenced)
	assert.NotEmpty(t, listing.ID)
	assert.NotNil(t, listing.Tags)
}

func TestDeleteListingOnce(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM listings WHERE id = $1")).WithArgs("5").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "5"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM listings WHERE id = $1")).WithArgs("5").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "5"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindListingMalformedIDIsNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectQuery("FROM listings l").WithArgs("abc").WillReturnError(&pq.Error{Code: "22P02"})
	_, err := repo.FindByID(context.Background(), "abc")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectQuery("FROM listings l").WithArgs("abc").WillReturnError(&pq.Error{Code: "57014"})
	_, err = repo.FindByID(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

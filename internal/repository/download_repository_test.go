package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDownloadCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDownloadRepository(db)

	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE listings SET download_count = download_count + 1 WHERE id = $1")).
		WithArgs("l1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO downloads").
		WithArgs(sqlmock.AnyArg(), "u1", "l1", at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	receipt, err := repo.Record(context.Background(), "u1", "l1", at)
	require.NoError(t, err)
	assert.Equal(t, "l1", receipt.ListingID)
	assert.Equal(t, at, receipt.DownloadedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDownloadRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDownloadRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE listings SET download_count").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO downloads").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := repo.Record(context.Background(), "u1", "l1", time.Now())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDownloadMissingListing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDownloadRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE listings SET download_count").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Record(context.Background(), "u1", "gone", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDownloadsByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDownloadRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM downloads d\\s+JOIN listings l").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "listing_id", "downloaded_at", "listing_title", "category_name"}).
			AddRow("d2", "u1", "l2", now, "Bio Notes", "Notes").
			AddRow("d1", "u1", "l1", now.Add(-time.Hour), "Calc Notes", "Notes"))

	downloads, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, downloads, 2)
	assert.Equal(t, "Bio Notes", downloads[0].ListingTitle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumarket-api/internal/models"
)

var categoryRowColumns = []string{"id", "name", "slug", "description", "icon", "status", "created_at", "updated_at", "item_count"}

func TestListActiveCategories(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM categories c WHERE c.status = 'active' ORDER BY c.name ASC")).
		WillReturnRows(sqlmock.NewRows(categoryRowColumns).
			AddRow("c1", "Notes", "notes", "Lecture notes", "notebook", "active", now, now, 12))

	categories, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, 12, categories[0].ItemCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCategoriesSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(c.name) LIKE $1 OR LOWER(c.description) LIKE $1 ORDER BY c.name ASC")).
		WithArgs("%slide%").
		WillReturnRows(sqlmock.NewRows(categoryRowColumns))

	_, err := repo.List(context.Background(), "Slide")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReferencedCategory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM categories WHERE id = $1")).
		WithArgs("c1").
		WillReturnError(&pq.Error{Code: "23503"})

	assert.ErrorIs(t, repo.Delete(context.Background(), "c1"), ErrReferenced)
}

func TestUpsertCategoryBySlug(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCategoryRepository(db)

	mock.ExpectExec("INSERT INTO categories .* ON CONFLICT \\(slug\\) DO UPDATE").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Upsert(context.Background(), &models.Category{Name: "Textbooks", Slug: "textbooks", Status: models.CategoryStatusActive})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

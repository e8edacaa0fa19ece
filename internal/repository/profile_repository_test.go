package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumarket-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var profileRowColumns = []string{"id", "email", "password_hash", "full_name", "university", "role", "status", "last_login", "created_at", "updated_at"}

func TestFindProfileByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(profileRowColumns).
		AddRow("1", "admin@edumarket.com", "hash", "Admin", nil, string(models.RoleAdmin), string(models.ProfileStatusActive), now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + profileColumns + " FROM profiles WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("Admin@EduMarket.com").
		WillReturnRows(rows)

	profile, err := repo.FindByEmail(context.Background(), "Admin@EduMarket.com")
	require.NoError(t, err)
	assert.Equal(t, "admin@edumarket.com", profile.Email)
	assert.Equal(t, models.RoleAdmin, profile.Role)
	assert.Nil(t, profile.University)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindProfileByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectQuery("FROM profiles WHERE id = \\$1").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreateProfileDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec("INSERT INTO profiles").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Profile{Email: "a@example.com", FullName: "A", Role: models.RoleUser, Status: models.ProfileStatusActive})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{UserID: "u1", TokenHash: "digest", ExpiresAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileStatusMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE profiles SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("u1", models.ProfileStatusSuspended, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "u1", models.ProfileStatusSuspended)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListProfilesWithFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	now := time.Now()
	listRows := sqlmock.NewRows(append(append([]string{}, profileRowColumns...), "uploads", "downloads")).
		AddRow("1", "rina@example.com", "hash", "Rina", "UI", "user", "suspended", nil, now, now, 4, 9)
	mock.ExpectQuery(`(?s)SELECT p\.id, .* AS downloads\s+FROM profiles p WHERE 1=1 AND p\.status = \$1 AND \(LOWER\(p\.full_name\) LIKE \$2 .*\) ORDER BY p\.created_at DESC LIMIT 10 OFFSET 10`).
		WithArgs("suspended", "%rin%").
		WillReturnRows(listRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM profiles p WHERE 1=1 AND p.status = $1")).
		WithArgs("suspended", "%rin%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	profiles, total, err := repo.List(context.Background(), models.ProfileFilter{Search: "Rin", Status: "Suspended", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, 4, profiles[0].Uploads)
	assert.Equal(t, 9, profiles[0].Downloads)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProfilesStatusAll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectQuery(`FROM profiles p WHERE 1=1 ORDER BY p\.created_at DESC LIMIT 20 OFFSET 0`).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, profileRowColumns...), "uploads", "downloads")))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM profiles p WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	profiles, total, err := repo.List(context.Background(), models.ProfileFilter{Status: "all"})
	require.NoError(t, err)
	assert.Empty(t, profiles)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

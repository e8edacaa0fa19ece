package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/edumarket-api/internal/models"
	"github.com/noah-isme/edumarket-api/internal/service"
	appErrors "github.com/noah-isme/edumarket-api/pkg/errors"
)

type fakeProfileSrv struct {
	filter models.ProfileFilter
}

func (f *fakeProfileSrv) Get(_ context.Context, id string) (*models.Profile, error) {
	return &models.Profile{ID: id, Email: "u@example.com", PasswordHash: "secret-hash"}, nil
}

func (f *fakeProfileSrv) Update(_ context.Context, id string, req models.UpdateProfileRequest) (*models.Profile, error) {
	return &models.Profile{ID: id, FullName: req.FullName}, nil
}

func (f *fakeProfileSrv) List(_ context.Context, filter models.ProfileFilter) ([]models.ProfileSummary, *models.Pagination, error) {
	f.filter = filter
	return []models.ProfileSummary{}, &models.Pagination{Page: 1, PageSize: 10}, nil
}

func (f *fakeProfileSrv) UpdateStatus(_ context.Context, actor *models.JWTClaims, id string, _ models.UpdateProfileStatusRequest, _ service.AuditMeta) (*models.Profile, error) {
	if actor != nil && actor.UserID == id {
		return nil, appErrors.Clone(appErrors.ErrValidation, "administrators cannot change their own status")
	}
	return &models.Profile{ID: id, Status: models.ProfileStatusSuspended}, nil
}

func TestProfileHandlerMeHidesPasswordHash(t *testing.T) {
	handler := NewProfileHandler(&fakeProfileSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/profile", nil)
	withClaims(c, &models.JWTClaims{UserID: "u1"})

	handler.Me(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-hash")
}

func TestProfileHandlerListAndStatus(t *testing.T) {
	srv := &fakeProfileSrv{}
	handler := NewProfileHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/users?search=ayu&status=suspended&page=3&page_size=10", nil)
	handler.List(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ProfileFilter{Search: "ayu", Status: "suspended", Page: 3, PageSize: 10}, srv.filter)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPatch, "/admin/users/a1/status", `{"status":"suspended"}`)
	c.Params = gin.Params{{Key: "id", Value: testUserID}}
	withClaims(c, &models.JWTClaims{UserID: testUserID, Role: models.RoleAdmin})
	handler.UpdateStatus(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeCategorySrv struct {
	hit bool
}

func (f *fakeCategorySrv) Active(context.Context) ([]models.Category, bool, error) {
	return []models.Category{{ID: "c1", Name: "Notes", Slug: "notes"}}, f.hit, nil
}

func (f *fakeCategorySrv) List(context.Context, string) ([]models.Category, error) {
	return nil, nil
}

func (f *fakeCategorySrv) Create(_ context.Context, _ *models.JWTClaims, req models.CategoryRequest, _ service.AuditMeta) (*models.Category, error) {
	return &models.Category{ID: "c2", Name: req.Name}, nil
}

func (f *fakeCategorySrv) Update(_ context.Context, _ *models.JWTClaims, id string, req models.CategoryRequest, _ service.AuditMeta) (*models.Category, error) {
	return &models.Category{ID: id, Name: req.Name}, nil
}

func (f *fakeCategorySrv) Delete(context.Context, *models.JWTClaims, string, service.AuditMeta) error {
	return appErrors.Clone(appErrors.ErrConflict, "category still has listings")
}

func TestCategoryHandler(t *testing.T) {
	handler := NewCategoryHandler(&fakeCategorySrv{hit: true})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/categories", nil)
	handler.Active(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cache_hit":true`)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/admin/categories", `{"name":"Lab Reports"}`)
	handler.Create(c)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/admin/categories/c1", nil)
	c.Params = gin.Params{{Key: "id", Value: testCategoryID}}
	handler.Delete(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

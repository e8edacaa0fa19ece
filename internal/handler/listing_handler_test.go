package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumarket-api/internal/models"
	"github.com/noah-isme/edumarket-api/internal/service"
	appErrors "github.com/noah-isme/edumarket-api/pkg/errors"
	"github.com/noah-isme/edumarket-api/pkg/export"
)

const (
	testListingID  = "9a7c2f4e-1b3d-4e5f-8a6b-0c1d2e3f4a5b"
	testUserID     = "3f2e1d0c-9b8a-4765-8432-10fedcba9876"
	testCategoryID = "c0ffee00-1234-4abc-9def-0123456789ab"
	testReportID   = "7e6d5c4b-3a29-4180-97f6-e5d4c3b2a190"
)

type fakeListingSrv struct {
	input        models.CreateListingInput
	fileName     string
	fileBody     string
	previewNames []string
	market       service.MarketplaceQuery
	admin        service.AdminListingQuery
	rejectReason string
	exportFormat export.Format
	err          error
}

func (f *fakeListingSrv) Create(_ context.Context, actor *models.JWTClaims, input models.CreateListingInput, file service.FileUpload, previews []service.FileUpload, _ service.AuditMeta) (*models.Listing, error) {
	f.input = input
	f.fileName = file.Filename
	body, _ := io.ReadAll(file.Content)
	f.fileBody = string(body)
	for _, p := range previews {
		f.previewNames = append(f.previewNames, p.Filename)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.Listing{ID: "l1", OwnerID: actor.UserID, Title: input.Title, Status: models.ListingStatusPending}, nil
}

func (f *fakeListingSrv) Marketplace(_ context.Context, q service.MarketplaceQuery) ([]models.Listing, *models.Pagination, error) {
	f.market = q
	return []models.Listing{{ID: "l1", Status: models.ListingStatusApproved}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (f *fakeListingSrv) AdminList(_ context.Context, q service.AdminListingQuery) ([]models.Listing, *models.Pagination, error) {
	f.admin = q
	return []models.Listing{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeListingSrv) Get(_ context.Context, _ *models.JWTClaims, id string) (*models.Listing, error) {
	if id != testListingID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
	}
	return &models.Listing{ID: id}, nil
}

func (f *fakeListingSrv) Mine(context.Context, *models.JWTClaims, string, string) ([]models.Listing, error) {
	return nil, nil
}

func (f *fakeListingSrv) Update(_ context.Context, _ *models.JWTClaims, id string, req models.UpdateListingRequest, _ service.AuditMeta) (*models.Listing, error) {
	return &models.Listing{ID: id, Title: *req.Title}, nil
}

func (f *fakeListingSrv) Delete(context.Context, *models.JWTClaims, string, service.AuditMeta) error {
	return f.err
}

func (f *fakeListingSrv) Approve(_ context.Context, _ *models.JWTClaims, id string, _ service.AuditMeta) (*models.Listing, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Listing{ID: id, Status: models.ListingStatusApproved}, nil
}

func (f *fakeListingSrv) Reject(_ context.Context, _ *models.JWTClaims, id string, req models.ReviewListingRequest, _ service.AuditMeta) (*models.Listing, error) {
	f.rejectReason = req.Reason
	return &models.Listing{ID: id, Status: models.ListingStatusRejected}, nil
}

func (f *fakeListingSrv) Export(_ context.Context, q service.AdminListingQuery, format export.Format) ([]byte, string, error) {
	f.admin = q
	f.exportFormat = format
	return []byte("Title\nNotes\n"), "listings.csv", nil
}

func multipartUpload(t *testing.T, fields map[string][]string, files map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, writer.WriteField(key, v))
		}
	}
	for field, names := range files {
		for _, name := range names {
			part, err := writer.CreateFormFile(field, name)
			require.NoError(t, err)
			_, err = part.Write([]byte("content of " + name))
			require.NoError(t, err)
		}
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestListingHandlerCreateParsesMultipart(t *testing.T) {
	srv := &fakeListingSrv{}
	handler := NewListingHandler(srv, 1<<20)

	body, contentType := multipartUpload(t, map[string][]string{
		"title":       {"Linear Algebra"},
		"description": {"Worked examples for every chapter"},
		"category_id": {"cat-1"},
		"price":       {"2.5"},
		"tags":        {"math", "algebra"},
	}, map[string][]string{
		"file":     {"algebra.pdf"},
		"previews": {"p1.png", "p2.png"},
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/listings", body)
	c.Request.Header.Set("Content-Type", contentType)
	withClaims(c, &models.JWTClaims{UserID: "u1", Role: models.RoleUser})

	handler.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Linear Algebra", srv.input.Title)
	assert.Equal(t, 2.5, srv.input.Price)
	assert.Equal(t, []string{"math", "algebra"}, srv.input.Tags)
	assert.Equal(t, "algebra.pdf", srv.fileName)
	assert.Equal(t, "content of algebra.pdf", srv.fileBody)
	assert.Equal(t, []string{"p1.png", "p2.png"}, srv.previewNames)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "pending", envelope.Data["status"])
}

func TestListingHandlerCreateRequiresFile(t *testing.T) {
	handler := NewListingHandler(&fakeListingSrv{}, 1<<20)
	body, contentType := multipartUpload(t, map[string][]string{"title": {"No file here"}}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/listings", body)
	c.Request.Header.Set("Content-Type", contentType)
	withClaims(c, &models.JWTClaims{UserID: "u1"})

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListingHandlerCreateRejectsOversizedBody(t *testing.T) {
	handler := NewListingHandler(&fakeListingSrv{}, 1)
	handler.maxUploadSize = 16
	large := strings.Repeat("x", 2*multipartSlack)
	body, contentType := multipartUpload(t, map[string][]string{"title": {"Big"}, "description": {large}}, map[string][]string{"file": {"big.pdf"}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/listings", body)
	c.Request.Header.Set("Content-Type", contentType)
	withClaims(c, &models.JWTClaims{UserID: "u1"})

	handler.Create(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestListingHandlerMarketplaceQuery(t *testing.T) {
	srv := &fakeListingSrv{}
	handler := NewListingHandler(srv, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/listings?search=calc&category=notes&sort=popular&page=2&limit=5", nil)

	handler.Marketplace(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.MarketplaceQuery{Search: "calc", Category: "notes", Sort: "popular", Page: 2, PageSize: 5}, srv.market)
	assert.Contains(t, rec.Body.String(), `"total_count":1`)
}

func TestListingHandlerGetNotFound(t *testing.T) {
	handler := NewListingHandler(&fakeListingSrv{}, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/listings/zzz", nil)
	c.Params = gin.Params{{Key: "id", Value: "5d3e9a70-0c1b-4c8e-a6f2-7b9d0e1f2a3c"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error.Code)
}

func TestListingHandlerRejectsMalformedID(t *testing.T) {
	srv := &fakeListingSrv{}
	handler := NewListingHandler(srv, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/listings/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/listings/1%27%3B/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "1';"}}
	withClaims(c, &models.JWTClaims{UserID: testUserID, Role: models.RoleAdmin})

	handler.Approve(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListingHandlerApproveConflict(t *testing.T) {
	handler := NewListingHandler(&fakeListingSrv{err: appErrors.ErrInvalidTransition}, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/listings/l1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: testListingID}}
	withClaims(c, &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin})

	handler.Approve(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListingHandlerRejectAcceptsEmptyBody(t *testing.T) {
	srv := &fakeListingSrv{}
	handler := NewListingHandler(srv, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/listings/l1/reject", nil)
	c.Params = gin.Params{{Key: "id", Value: testListingID}}
	withClaims(c, &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin})

	handler.Reject(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/listings/l1/reject", strings.NewReader(`{"reason":"duplicate upload"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: testListingID}}

	handler.Reject(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "duplicate upload", srv.rejectReason)
}

func TestListingHandlerExport(t *testing.T) {
	srv := &fakeListingSrv{}
	handler := NewListingHandler(srv, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/listings/export?format=csv&status=pending", nil)

	handler.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.FormatCSV, srv.exportFormat)
	assert.Equal(t, "pending", srv.admin.Status)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename=listings.csv`)
	assert.Equal(t, "Title\nNotes\n", rec.Body.String())

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/listings/export?format=xlsx", nil)
	handler.Export(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

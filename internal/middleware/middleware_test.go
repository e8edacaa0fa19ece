package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumarket-api/internal/models"
	"github.com/noah-isme/edumarket-api/internal/service"
	appErrors "github.com/noah-isme/edumarket-api/pkg/errors"
)

type validatorStub map[string]*models.JWTClaims

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type auditSinkStub struct {
	logs []*models.AuditLog
}

func (a *auditSinkStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

var tokens = validatorStub{
	"user-token":  {UserID: "u1", Role: models.RoleUser},
	"admin-token": {UserID: "a1", Role: models.RoleAdmin},
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTGatesRequests(t *testing.T) {
	r := gin.New()
	r.GET("/me", JWT(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserIDKey))
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "forged").Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid authorization header")

	ok := serve(r, http.MethodGet, "/me", "user-token")
	assert.Equal(t, http.StatusOK, ok.Code)
	assert.Equal(t, "u1", ok.Body.String())
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	r := gin.New()
	r.GET("/session", OptionalJWT(tokens), func(c *gin.Context) {
		_, signedIn := c.Get(ContextUserKey)
		c.JSON(http.StatusOK, gin.H{"signed_in": signedIn})
	})

	assert.JSONEq(t, `{"signed_in":false}`, serve(r, http.MethodGet, "/session", "").Body.String())
	assert.JSONEq(t, `{"signed_in":false}`, serve(r, http.MethodGet, "/session", "forged").Body.String())
	assert.JSONEq(t, `{"signed_in":true}`, serve(r, http.MethodGet, "/session", "admin-token").Body.String())
}

func TestRBAC(t *testing.T) {
	r := gin.New()
	r.GET("/open/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	admin := r.Group("/admin", JWT(tokens), RequireRoles(models.RoleAdmin))
	admin.GET("/dashboard", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/users/:id", JWT(tokens), RBAC(string(models.RoleAdmin), Self), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/open/admin", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin/dashboard", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin/dashboard", "user-token").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/admin/dashboard", "admin-token").Code)

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/users/u1", "user-token").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/users/u2", "user-token").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/users/u2", "admin-token").Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	sink := &auditSinkStub{}
	r := gin.New()
	r.GET("/listings/:id/export", JWT(tokens), Audit(sink, nil, models.AuditActionListingExport, "listing"), func(c *gin.Context) {
		if c.Query("fail") != "" {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodGet, "/listings/l9/export?format=csv", "admin-token")
	serve(r, http.MethodGet, "/listings/l9/export?fail=1", "admin-token")

	require.Len(t, sink.logs, 1)
	log := sink.logs[0]
	assert.Equal(t, models.AuditActionListingExport, log.Action)
	require.NotNil(t, log.UserID)
	assert.Equal(t, "a1", *log.UserID)
	require.NotNil(t, log.ResourceID)
	assert.Equal(t, "l9", *log.ResourceID)
	assert.Contains(t, string(log.NewValues), `"query":"format=csv"`)
}

func TestResponseMetaAndCacheHeader(t *testing.T) {
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/cached", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	rec := serve(r, http.MethodGet, "/cached", "")
	assert.Equal(t, "HIT", rec.Header().Get(CacheHeader))
	assert.Contains(t, rec.Body.String(), `"cache_hit":true`)
	assert.Contains(t, rec.Body.String(), `"processing_time_ms"`)
	assert.NotContains(t, rec.Body.String(), "started_at")
}

func TestMetricsMiddlewareLabelsRoutes(t *testing.T) {
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/listings/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	serve(r, http.MethodGet, "/listings/abc", "")
	serve(r, http.MethodGet, "/nowhere", "")

	body := serve(r, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/listings/:id",status="200"} 1`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.NotContains(t, body, `path="/metrics"`)
}

package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/edumarket-api/internal/middleware"
	"github.com/noah-isme/edumarket-api/internal/models"
	"github.com/noah-isme/edumarket-api/internal/service"
	appErrors "github.com/noah-isme/edumarket-api/pkg/errors"
	"github.com/noah-isme/edumarket-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requireClaims writes a 401 and returns nil when no session is attached.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}

// pathID reads the :id segment as a UUID and writes a 404 for anything else.
func pathID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "resource not found"))
		return "", false
	}
	return id.String(), true
}

func auditMeta(c *gin.Context) service.AuditMeta {
	return service.AuditMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// queryInt reads a non-negative integer query value; malformed input falls back to zero.
func queryInt(c *gin.Context, key string) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func pageParams(c *gin.Context) (int, int) {
	size := queryInt(c, "page_size")
	if size == 0 {
		size = queryInt(c, "limit")
	}
	return queryInt(c, "page"), size
}

func withCacheMeta(c *gin.Context, hit bool) map[string]interface{} {
	middleware.SetCacheHit(c, hit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["cache_hit"] = hit
	return meta
}

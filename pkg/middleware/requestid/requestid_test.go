package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareReusesOrGeneratesID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, Value(c)) })

	cases := map[string]bool{
		"trace-123":             true,
		"":                      false,
		"has space":             false,
		strings.Repeat("a", 65): false,
		strings.Repeat("b", 64): true,
	}
	for incoming, kept := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if incoming != "" {
			req.Header.Set(headerKey, incoming)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		got := rec.Header().Get(headerKey)
		assert.Equal(t, got, rec.Body.String())
		if kept {
			assert.Equal(t, incoming, got)
			continue
		}
		_, err := uuid.Parse(got)
		require.NoError(t, err, incoming)
	}
}

package handler

import (
	"context"
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
)

type fakeAuthSrv struct {
	signUp      models.SignUpRequest
	signIn      models.SignInRequest
	logoutToken string
	logoutUser  string
	err         error
}

func (f *fakeAuthSrv) SignUp(_ context.Context, req models.SignUpRequest) (*models.SessionTokens, error) {
	f.signUp = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.SessionTokens{AccessToken: "access", RefreshToken: "refresh", User: models.UserInfo{Email: req.Email}}, nil
}

func (f *fakeAuthSrv) SignIn(_ context.Context, req models.SignInRequest) (*models.SessionTokens, error) {
	f.signIn = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.SessionTokens{AccessToken: "access"}, nil
}

func (f *fakeAuthSrv) Refresh(context.Context, models.RefreshTokenRequest) (*models.SessionTokens, error) {
	return &models.SessionTokens{AccessToken: "rotated"}, f.err
}

func (f *fakeAuthSrv) Logout(_ context.Context, refreshToken, userID string, _ service.AuditMeta) error {
	f.logoutToken = refreshToken
	f.logoutUser = userID
	return f.err
}

func (f *fakeAuthSrv) ChangePassword(context.Context, string, models.ChangePasswordRequest) error {
	return f.err
}

func (f *fakeAuthSrv) Session(claims *models.JWTClaims) models.Session {
	if claims == nil {
		return models.Session{}
	}
	return models.Session{IsAuthenticated: true, Role: claims.Role}
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "handler-test")
	return req
}

func TestAuthHandlerSignUpCreated(t *testing.T) {
	srv := &fakeAuthSrv{}
	handler := NewAuthHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/auth/signup", `{"email":"ayu@example.com","password":"secret1","full_name":"Ayu"}`)

	handler.SignUp(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ayu@example.com", srv.signUp.Email)
	assert.Equal(t, "handler-test", srv.signUp.UserAgent)
	assert.Equal(t, "access", decodeEnvelope(t, rec).Data["access_token"])
}

func TestAuthHandlerSignInMalformed(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/auth/signin", `{"email":`)

	handler.SignIn(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerSignInSuspended(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{err: appErrors.ErrAccountSuspended})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/auth/signin", `{"email":"a@example.com","password":"x"}`)

	handler.SignIn(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ACCOUNT_SUSPENDED", decodeEnvelope(t, rec).Error.Code)
}

func TestAuthHandlerLogout(t *testing.T) {
	srv := &fakeAuthSrv{}
	handler := NewAuthHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/auth/logout", `{"refresh_token":"rt-1"}`)
	handler.Logout(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/auth/logout", `{"refresh_token":"rt-1"}`)
	withClaims(c, &models.JWTClaims{UserID: "u1"})
	handler.Logout(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "rt-1", srv.logoutToken)
	assert.Equal(t, "u1", srv.logoutUser)
}

func TestAuthHandlerSession(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	handler.Session(c)
	assert.JSONEq(t, `{"data":{"isAuthenticated":false}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	withClaims(c, &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin})
	handler.Session(c)
	assert.JSONEq(t, `{"data":{"isAuthenticated":true,"role":"admin"}}`, rec.Body.String())
}

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

	"github.com/noah-isme/dormfix-api/internal/models"
)

type fakeAccessSrv struct {
	resp       *models.LoginResponse
	err        error
	lastLogin  models.LoginRequest
	logoutHits int
}

func (f *fakeAccessSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.lastLogin = req
	return f.resp, f.err
}

func (f *fakeAccessSrv) Logout(context.Context, *models.SessionClaims, models.ClientInfo) {
	f.logoutHits++
}

func (f *fakeAccessSrv) DecideRoute(*models.Session, string) models.RouteDecision {
	return models.RouteDecision{Allowed: true}
}

func (f *fakeAccessSrv) DefaultLandingRoute(models.UserRole) string { return "/login" }

func TestAuthHandlerLoginSecureCookieFromForm(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeAccessSrv{resp: &models.LoginResponse{
		Session:      models.Session{Identifier: "admin@dormfix.com", Role: models.RoleAdmin},
		LandingRoute: "/admin-dashboard",
		ExpiresIn:    3600,
		Token:        "signed.jwt.value",
	}}
	h := NewAuthHandler(svc, CookieConfig{Name: "session", Secure: true})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader("email=admin%40dormfix.com&password=password&role=admin"))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request.Header.Set("User-Agent", "handler-test")

	h.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin@dormfix.com", svc.lastLogin.Email)
	assert.Equal(t, models.RoleAdmin, svc.lastLogin.Role)
	assert.Equal(t, "handler-test", svc.lastLogin.UserAgent)
	assert.NotContains(t, rec.Body.String(), "signed.jwt.value")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "signed.jwt.value", cookies[0].Value)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.True(t, cookies[0].Secure)
}

func TestAuthHandlerLogoutWithoutSessionStillClears(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeAccessSrv{}
	h := NewAuthHandler(svc, CookieConfig{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)

	h.Logout(c)

	assert.Equal(t, 0, svc.logoutHits)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestAuthHandlerRouteRequiresPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(&fakeAccessSrv{}, CookieConfig{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/route", nil)

	h.Route(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Path is required.")
}

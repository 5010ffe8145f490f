package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/dormfix-api/internal/models"
	appErrors "github.com/noah-isme/dormfix-api/pkg/errors"
	"github.com/noah-isme/dormfix-api/pkg/logger"
)

type fakeParser map[string]*models.SessionClaims

func (f fakeParser) ParseToken(_ context.Context, token string) (*models.SessionClaims, error) {
	if claims, ok := f[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session")
}

func wardenClaims() *models.SessionClaims {
	return &models.SessionClaims{
		Role:             models.RoleWarden,
		HostelName:       "Podhigai",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "warden.podhigai@dormfix.com"},
	}
}

func newSessionRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, claims.Subject+"|"+c.GetString(logger.ActorKey))
	})
	r.GET("/private", handlers...)
	return r
}

func TestSessionReadsCookieThenBearer(t *testing.T) {
	parser := fakeParser{"good": wardenClaims()}
	r := newSessionRouter(Session(parser, "session"))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "good"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "warden.podhigai@dormfix.com|warden.podhigai@dormfix.com", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionRejectsMissingAndInvalid(t *testing.T) {
	r := newSessionRouter(Session(fakeParser{}, "session"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "forged"})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid session")
}

func TestOptionalSessionNeverBlocks(t *testing.T) {
	r := newSessionRouter(OptionalSession(fakeParser{}, "session"))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestRequireRoles(t *testing.T) {
	parser := fakeParser{"warden": wardenClaims()}
	r := newSessionRouter(Session(parser, "session"), RequireRoles(models.RoleAdmin, models.RoleWarden))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer warden")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	adminOnly := newSessionRouter(Session(parser, "session"), RequireRoles(models.RoleAdmin))
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResponseMetaCollectsEntries(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var captured map[string]interface{}
	r.Use(WithResponseMeta())
	r.GET("/meta", func(c *gin.Context) {
		SetMeta(c, "duplicates_degraded", true)
		captured = ExtractMeta(c)
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meta", nil))
	assert.Equal(t, true, captured["duplicates_degraded"])
	assert.Contains(t, captured, "processing_time_ms")
}

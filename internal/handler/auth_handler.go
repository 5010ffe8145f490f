package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dormfix-api/internal/models"
	appErrors "github.com/noah-isme/dormfix-api/pkg/errors"
	"github.com/noah-isme/dormfix-api/pkg/response"
)

type accessService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, claims *models.SessionClaims, client models.ClientInfo)
	DecideRoute(session *models.Session, path string) models.RouteDecision
	DefaultLandingRoute(role models.UserRole) string
}

// CookieConfig describes the session cookie written on login.
type CookieConfig struct {
	Name   string
	MaxAge int
	Secure bool
}

// AuthHandler wires HTTP endpoints to the access service.
type AuthHandler struct {
	service accessService
	cookie  CookieConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc accessService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "session"
	}
	return &AuthHandler{service: svc, cookie: cookie}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password and set the session cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	client := clientInfo(c)
	req.IP = client.IP
	req.UserAgent = client.UserAgent

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	maxAge := h.cookie.MaxAge
	if maxAge <= 0 {
		maxAge = int(res.ExpiresIn)
	}
	h.writeCookie(c, res.Token, maxAge)
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Logout current session
// @Description Clear the session cookie and revoke the token
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if claims := claimsFromContext(c); claims != nil {
		h.service.Logout(c.Request.Context(), claims, clientInfo(c))
	}
	h.writeCookie(c, "", -1)
	response.NoContent(c)
}

// Session godoc
// @Summary Current session
// @Description Returns the resolved session and its landing route
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session := claims.Session()
	response.JSON(c, http.StatusOK, gin.H{
		"session":      session,
		"landingRoute": h.service.DefaultLandingRoute(session.Role),
	}, nil)
}

// Route godoc
// @Summary Decide client route
// @Description Reports whether the caller may open path, or where to redirect
// @Tags Authentication
// @Produce json
// @Param path query string true "Client path"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/route [get]
func (h *AuthHandler) Route(c *gin.Context) {
	path := strings.TrimSpace(c.Query("path"))
	if path == "" {
		response.Error(c, appErrors.WithFields(appErrors.ErrValidation, map[string][]string{
			"path": {"Path is required."},
		}))
		return
	}

	var session *models.Session
	if claims := claimsFromContext(c); claims != nil {
		s := claims.Session()
		session = &s
	}
	response.JSON(c, http.StatusOK, h.service.DecideRoute(session, path), nil)
}

func (h *AuthHandler) writeCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}

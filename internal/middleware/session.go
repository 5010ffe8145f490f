package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dormfix-api/internal/models"
	appErrors "github.com/noah-isme/dormfix-api/pkg/errors"
	"github.com/noah-isme/dormfix-api/pkg/logger"
	"github.com/noah-isme/dormfix-api/pkg/response"
)

// ContextUserKey is the gin context key storing session claims.
const ContextUserKey = "currentUser"

type tokenParser interface {
	ParseToken(ctx context.Context, token string) (*models.SessionClaims, error)
}

// Session requires a valid session token from the cookie or a Bearer header.
func Session(parser tokenParser, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c, cookieName)
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := parser.ParseToken(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		attach(c, claims)
		c.Next()
	}
}

// OptionalSession attaches claims when a valid token is present but never blocks.
func OptionalSession(parser tokenParser, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c, cookieName); token != "" {
			if claims, err := parser.ParseToken(c.Request.Context(), token); err == nil {
				attach(c, claims)
			}
		}
		c.Next()
	}
}

// Claims returns the session claims set by Session or OptionalSession.
func Claims(c *gin.Context) (*models.SessionClaims, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.SessionClaims)
	return claims, ok && claims != nil
}

func attach(c *gin.Context, claims *models.SessionClaims) {
	c.Set(ContextUserKey, claims)
	c.Set(logger.ActorKey, claims.Subject)
}

func extractToken(c *gin.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

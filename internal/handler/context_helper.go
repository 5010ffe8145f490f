package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dormfix-api/internal/middleware"
	"github.com/noah-isme/dormfix-api/internal/models"
)

const anonymousActor = "anonymous"

func claimsFromContext(c *gin.Context) *models.SessionClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

func clientInfo(c *gin.Context) models.ClientInfo {
	return models.ClientInfo{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

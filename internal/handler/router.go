package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/dormfix-api/internal/middleware"
	"github.com/noah-isme/dormfix-api/internal/models"
	"github.com/noah-isme/dormfix-api/internal/service"
	"github.com/noah-isme/dormfix-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/dormfix-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/dormfix-api/pkg/middleware/requestid"
)

// SessionParser validates session tokens for the session middleware.
type SessionParser interface {
	ParseToken(ctx context.Context, token string) (*models.SessionClaims, error)
}

// Handlers groups every HTTP handler mounted by NewRouter. Exports may be nil
// when exports are disabled.
type Handlers struct {
	Auth      *AuthHandler
	Requests  *RequestHandler
	Dashboard *DashboardHandler
	Exports   *ExportHandler
	Catalog   *CatalogHandler
	Metrics   *MetricsHandler
}

// RouterConfig carries the cross-cutting settings of the HTTP stack.
type RouterConfig struct {
	APIPrefix      string
	CookieName     string
	AllowedOrigins []string
	EnableDocs     bool
	Sessions       SessionParser
	Metrics        *service.MetricsService
	Logger         *zap.Logger
}

// NewRouter builds the gin engine with the middleware chain and all routes.
func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requireSession := middleware.Session(cfg.Sessions, cfg.CookieName)
	optionalSession := middleware.OptionalSession(cfg.Sessions, cfg.CookieName)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/logout", optionalSession, h.Auth.Logout)
	auth.GET("/session", requireSession, h.Auth.Session)
	auth.GET("/route", optionalSession, h.Auth.Route)

	api.GET("/catalog", h.Catalog.List)
	api.GET("/catalog/categories", h.Catalog.Categories)

	requests := api.Group("/requests")
	requests.POST("", optionalSession, h.Requests.Create)
	requests.GET("", requireSession, h.Requests.List)
	requests.GET("/:id", requireSession, h.Requests.Get)
	requests.PATCH("/:id/status", requireSession, h.Requests.UpdateStatus)

	api.GET("/dashboard", requireSession, h.Dashboard.Get)
	api.GET("/metrics/summary", requireSession, middleware.RequireRoles(models.RoleAdmin), h.Metrics.Summary)

	if h.Exports != nil {
		exports := api.Group("/exports")
		exports.POST("", requireSession,
			middleware.RequireRoles(models.RoleAdmin, models.RoleUser, models.RoleWarden, models.RoleFloorIncharge),
			h.Exports.Create)
		exports.GET("/:token", h.Exports.Download)
	}

	return r
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/dormfix-api/api/swagger"
	"github.com/noah-isme/dormfix-api/internal/handler"
	"github.com/noah-isme/dormfix-api/internal/models"
	"github.com/noah-isme/dormfix-api/internal/repository"
	"github.com/noah-isme/dormfix-api/internal/service"
	"github.com/noah-isme/dormfix-api/pkg/cache"
	"github.com/noah-isme/dormfix-api/pkg/config"
	"github.com/noah-isme/dormfix-api/pkg/database"
	"github.com/noah-isme/dormfix-api/pkg/llm"
	"github.com/noah-isme/dormfix-api/pkg/logger"
	"github.com/noah-isme/dormfix-api/pkg/storage"
	"github.com/noah-isme/dormfix-api/pkg/telemetry"
)

// @title DormFix API
// @version 1.0.0
// @description Hostel maintenance requests with urgency prediction and duplicate detection
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	tel, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.Env)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logr.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	accessTable, err := config.LoadAccessTable(cfg.Access.TablePath)
	if err != nil {
		return err
	}
	campusTable, err := config.LoadCampusTable(cfg.Access.CampusTablePath)
	if err != nil {
		return err
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	checks := map[string]handler.ReadinessCheck{}

	var (
		store     service.RequestStore
		auditSink interface {
			Create(context.Context, *models.AuditLog) error
		}
		db *sqlx.DB
	)
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			return err
		}
		store = repository.NewRequestRepository(db)
		auditSink = repository.NewAuditRepository(db)
		checks["postgres"] = db.PingContext
	default:
		mem := repository.NewMemoryRequestRepository()
		if cfg.Store.Seed {
			mem.Seed(repository.SeedRequests())
		}
		store = mem
		auditSink = repository.NewLogAuditRepository(logr)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return err
	}
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		repo := repository.NewCacheRepository(redisClient, logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
		checks["redis"] = func(ctx context.Context) error { return pingRedis(ctx, redisClient) }
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Oracle.GrouperMemoTTL, logr, redisClient != nil)

	audit, err := service.NewAuditService(auditSink, service.AuditConfig{
		Enabled: cfg.Audit.Enabled,
		Workers: cfg.Audit.Workers,
		Retries: cfg.Audit.Retries,
		NodeID:  cfg.Audit.NodeID,
	}, logr)
	if err != nil {
		return err
	}
	audit.Start(ctx)
	defer audit.Stop()

	classifier, grouper, err := buildOracles(cfg, cacheSvc, metrics, logr)
	if err != nil {
		return err
	}

	access, err := service.NewAccessService(accessTable, cacheSvc, audit, validate, logr, service.AccessConfig{
		Secret:       cfg.Session.Secret,
		TTL:          cfg.Session.TTL,
		Issuer:       cfg.Session.Issuer,
		StudentScope: cfg.Access.StudentScope,
	})
	if err != nil {
		return err
	}

	campus := service.NewCampusService(campusTable)
	intake := service.NewIntakeService(store, classifier, campus, audit, metrics, validate, logr, service.IntakeConfig{
		RequireIdentity:     cfg.Intake.RequireIdentity,
		RequireLocation:     cfg.Intake.RequireLocation,
		PhotoPlaceholderURL: cfg.Intake.PhotoPlaceholderURL,
	})
	requests := service.NewRequestService(store, access, audit, cacheSvc, metrics, logr, service.WorkflowConfig{
		AllowBackwardStatus: cfg.Workflow.AllowBackwardStatus,
	})
	dashboard := service.NewDashboardService(store, access, grouper, metrics, logr)

	handlers := handler.Handlers{
		Auth: handler.NewAuthHandler(access, handler.CookieConfig{
			Name:   cfg.Session.CookieName,
			MaxAge: int(cfg.Session.TTL / time.Second),
			Secure: cfg.Env == config.EnvProduction,
		}),
		Requests:  handler.NewRequestHandler(intake, requests),
		Dashboard: handler.NewDashboardHandler(dashboard),
		Catalog:   handler.NewCatalogHandler(campus),
		Metrics:   handler.NewMetricsHandler(metrics, checks),
	}

	if cfg.Exports.Enabled {
		exportStore, err := buildExportStore(ctx, cfg.Exports)
		if err != nil {
			return err
		}
		exports := service.NewExportService(dashboard, exportStore,
			storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
			audit, logr, service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL})
		handlers.Exports = handler.NewExportHandler(exports)
		go exports.RunCleanup(ctx, cfg.Exports.CleanupInterval)
	}

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		CookieName:     cfg.Session.CookieName,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Sessions:       access,
		Metrics:        metrics,
		Logger:         logr,
	}, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env,
			"store", cfg.Store.Driver, "oracle", cfg.Oracle.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildOracles(cfg *config.Config, cacheSvc *service.CacheService, metrics *service.MetricsService, logr *zap.Logger) (service.UrgencyClassifier, service.DuplicateGrouper, error) {
	var (
		classifier service.UrgencyClassifier
		grouper    service.DuplicateGrouper
	)
	switch cfg.Oracle.Provider {
	case config.OracleOpenAI:
		client, err := llm.New(llm.Config{
			APIKey:  cfg.Oracle.APIKey,
			BaseURL: cfg.Oracle.BaseURL,
			Model:   cfg.Oracle.Model,
			Logger:  logr,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openai oracle: %w", err)
		}
		classifier = service.NewLLMUrgencyClassifier(client)
		grouper = service.NewLLMDuplicateGrouper(client)
	case config.OracleRules, "":
		classifier = service.NewRuleUrgencyClassifier()
		grouper = service.NewRuleDuplicateGrouper()
	default:
		return nil, nil, fmt.Errorf("unknown oracle provider %q", cfg.Oracle.Provider)
	}

	name := cfg.Oracle.Provider
	if name == "" {
		name = config.OracleRules
	}
	observedClassifier := service.NewObservedUrgencyClassifier(classifier, name, cfg.Oracle.Timeout, metrics, logr)
	observedGrouper := service.NewObservedDuplicateGrouper(grouper, name, cfg.Oracle.Timeout, metrics)
	memo := service.NewMemoizingDuplicateGrouper(observedGrouper, cacheSvc, cfg.Oracle.GrouperMemoTTL, metrics, logr)
	return observedClassifier, memo, nil
}

func buildExportStore(ctx context.Context, cfg config.ExportsConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.ExportDriverMinIO:
		return storage.NewMinIOStorage(ctx, cfg.MinIO)
	case config.ExportDriverLocal, "":
		return storage.NewLocalStorage(cfg.StorageDir)
	default:
		return nil, fmt.Errorf("unknown exports driver %q", cfg.Driver)
	}
}

func pingRedis(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

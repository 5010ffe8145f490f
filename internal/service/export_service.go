package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/dormfix-api/internal/dto"
	"github.com/noah-isme/dormfix-api/internal/models"
	appErrors "github.com/noah-isme/dormfix-api/pkg/errors"
	"github.com/noah-isme/dormfix-api/pkg/export"
	"github.com/noah-isme/dormfix-api/pkg/storage"
)

// Export column headers, in file order.
var exportHeaders = []string{
	"Hostel Name", "Room Number", "Category", "Priority", "Description", "Status", "Created Date", "Assigned To",
}

var exportColumnWeights = map[string]float64{
	"Hostel Name":  1.2,
	"Room Number":  0.9,
	"Category":     1.2,
	"Priority":     0.8,
	"Description":  3.2,
	"Status":       0.9,
	"Created Date": 1.4,
	"Assigned To":  1.1,
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders the current dashboard view to a file, stores it and
// hands back a signed download link.
type ExportService struct {
	dashboard *DashboardService
	store     storage.Store
	renderers map[models.ExportFormat]export.Renderer
	signer    *storage.SignedURLSigner
	audit     auditRecorder
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService with CSV and PDF renderers.
func NewExportService(dashboard *DashboardService, store storage.Store, signer *storage.SignedURLSigner, audit auditRecorder, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{
		dashboard: dashboard,
		store:     store,
		renderers: map[models.ExportFormat]export.Renderer{
			models.ExportFormatCSV: export.NewCSVExporter(),
			models.ExportFormatPDF: export.NewPDFExporter(exportColumnWeights),
		},
		signer: signer,
		audit:  audit,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Create renders the filtered dashboard rows visible to session.
func (s *ExportService) Create(ctx context.Context, session models.Session, req models.ExportRequest, client models.ClientInfo) (*models.ExportResult, error) {
	format := models.ExportFormat(strings.ToLower(strings.TrimSpace(string(req.Format))))
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.WithFields(appErrors.ErrValidation, map[string][]string{
			"format": {"Format must be one of: csv, pdf."},
		})
	}

	view, _, err := s.dashboard.Build(ctx, session, req.DashboardFilter)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now().UTC()
	dataset := export.Dataset{
		Title:       "Maintenance Requests",
		Headers:     exportHeaders,
		Rows:        exportRows(view.Requests),
		GeneratedAt: generatedAt,
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	id := uuid.NewString()
	object := fmt.Sprintf("maintenance_requests_%s_%s.%s", generatedAt.Format("20060102_150405"), id[:8], renderer.Extension())
	if err := s.store.Put(ctx, object, renderer.ContentType(), payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(id, object)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	s.audit.Record(models.AuditEvent{
		Actor:      session.Identifier,
		Action:     models.AuditActionExport,
		Resource:   "export",
		ResourceID: id,
		New: map[string]interface{}{
			"format": format,
			"rows":   len(dataset.Rows),
			"filter": req.DashboardFilter,
		},
		Client: client,
	})
	s.logger.Info("export created", zap.String("id", id), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))

	return &models.ExportResult{
		ID:        id,
		Format:    format,
		Rows:      len(dataset.Rows),
		URL:       fmt.Sprintf("%s/exports/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		ExpiresAt: expiresAt,
	}, nil
}

// Download is an opened export ready to stream.
type Download struct {
	Filename string
	*storage.Object
}

// Open resolves a signed token to the stored file.
func (s *ExportService) Open(ctx context.Context, token string) (*Download, error) {
	parsed, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}

	obj, err := s.store.Open(ctx, parsed.Object)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to open export")
	}
	return &Download{Filename: path.Base(parsed.Object), Object: obj}, nil
}

// Cleanup removes stored exports older than the result TTL.
func (s *ExportService) Cleanup(ctx context.Context) ([]string, error) {
	return s.store.CleanupOlderThan(ctx, s.cfg.ResultTTL)
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *ExportService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Cleanup(ctx)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}

func exportRows(items []dto.DashboardRequest) []map[string]string {
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		assigned := "N/A"
		if item.AssignedTo != nil && strings.TrimSpace(*item.AssignedTo) != "" {
			assigned = *item.AssignedTo
		}
		rows = append(rows, map[string]string{
			"Hostel Name":  item.HostelName,
			"Room Number":  item.RoomNumber,
			"Category":     string(item.Category),
			"Priority":     string(item.Priority),
			"Description":  item.Description,
			"Status":       string(item.Status),
			"Created Date": item.CreatedDate.UTC().Format("2006-01-02 15:04:05"),
			"Assigned To":  assigned,
		})
	}
	return rows
}

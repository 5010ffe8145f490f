package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dormfix-api/internal/models"
	appErrors "github.com/noah-isme/dormfix-api/pkg/errors"
)

// RequestStore is the persistence boundary for maintenance requests.
type RequestStore interface {
	Append(ctx context.Context, data models.NewRequestData) (*models.MaintenanceRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.MaintenanceRequest, error)
	FindByID(ctx context.Context, id string) (*models.MaintenanceRequest, error)
	UpdateStatus(ctx context.Context, id string, status models.Status, assignedTo *string) (*models.MaintenanceRequest, error)
}

// WorkflowConfig governs status transitions.
type WorkflowConfig struct {
	AllowBackwardStatus bool
}

// RequestService serves scoped reads and status changes.
type RequestService struct {
	store   RequestStore
	access  *AccessService
	audit   auditRecorder
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	config  WorkflowConfig
}

// NewRequestService constructs a RequestService.
// A nil cache disables duplicate memo invalidation.
func NewRequestService(store RequestStore, access *AccessService, audit auditRecorder, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg WorkflowConfig) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{store: store, access: access, audit: audit, cache: cache, metrics: metrics, logger: logger, config: cfg}
}

// List returns every request visible to session, newest first.
func (s *RequestService) List(ctx context.Context, session models.Session) ([]models.MaintenanceRequest, error) {
	return scopedList(ctx, s.store, s.access, s.metrics, session)
}

func scopedList(ctx context.Context, store RequestStore, access *AccessService, metrics *MetricsService, session models.Session) ([]models.MaintenanceRequest, error) {
	filter := access.ScopeFilter(session)
	if access.scopeOf(session.Role) == models.ScopeSubmitter && filter.RegisterNumber == "" {
		return []models.MaintenanceRequest{}, nil
	}
	start := time.Now()
	items, err := store.List(ctx, filter)
	metrics.ObserveDBQuery("request_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}
	return items, nil
}

// Get fetches one request. Requests outside the viewer's scope are reported as missing.
func (s *RequestService) Get(ctx context.Context, session models.Session, id string) (*models.MaintenanceRequest, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.InScope(session, item) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
	}
	return item, nil
}

// UpdateStatus moves a request along its lifecycle on behalf of staff.
func (s *RequestService) UpdateStatus(ctx context.Context, session models.Session, id string, update models.StatusUpdate, client models.ClientInfo) (*models.MaintenanceRequest, error) {
	if !s.access.IsStaff(session.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can change request status")
	}

	next := models.Status(strings.TrimSpace(string(update.Status)))
	if !next.Valid() {
		return nil, appErrors.WithFields(appErrors.ErrValidation, map[string][]string{
			"status": {"Status must be one of: " + statusList() + "."},
		})
	}
	var assignee *string
	if update.AssignedTo != nil {
		trimmed := strings.TrimSpace(*update.AssignedTo)
		assignee = &trimmed
	}

	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.InScope(session, current) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request is outside your scope")
	}

	if next.Rank() < current.Status.Rank() && !s.config.AllowBackwardStatus {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			"cannot move request from "+string(current.Status)+" back to "+string(next))
	}
	if next == current.Status && assignee == nil {
		return current, nil
	}

	start := time.Now()
	updated, err := s.store.UpdateStatus(ctx, id, next, assignee)
	s.metrics.ObserveDBQuery("request_update_status", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}
	// Status is part of every grouping fingerprint, so older memos can no longer hit.
	_ = s.cache.Invalidate(ctx, duplicateMemoPattern)

	s.audit.Record(models.AuditEvent{
		Actor:      session.Identifier,
		Action:     models.AuditActionStatusChange,
		Resource:   "maintenance_request",
		ResourceID: id,
		Old:        statusSnapshot(current),
		New:        statusSnapshot(updated),
		Client:     client,
	})
	s.logger.Info("request status changed",
		zap.String("id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)),
	)
	return updated, nil
}

func (s *RequestService) find(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	item, err := s.store.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
	}
	return item, nil
}

func statusSnapshot(r *models.MaintenanceRequest) map[string]interface{} {
	out := map[string]interface{}{"status": r.Status}
	if r.AssignedTo != nil {
		out["assignedTo"] = *r.AssignedTo
	}
	return out
}

func statusList() string {
	names := make([]string, len(models.Statuses))
	for i, st := range models.Statuses {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}

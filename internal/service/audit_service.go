package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dormfix-api/internal/models"
	"github.com/noah-isme/dormfix-api/pkg/idgen"
	"github.com/noah-isme/dormfix-api/pkg/jobs"
)

type auditSink interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuditConfig tunes the background writer.
type AuditConfig struct {
	Enabled    bool
	Workers    int
	Retries    int
	NodeID     int64
	RetryDelay time.Duration
}

// AuditService persists audit events off the request path.
type AuditService struct {
	sink    auditSink
	queue   *jobs.Queue
	logger  *zap.Logger
	enabled bool
	now     func() time.Time
}

// NewAuditService wires a jobs queue in front of sink. A nil *AuditService
// and a disabled one both drop events silently.
func NewAuditService(sink auditSink, cfg AuditConfig, logger *zap.Logger) (*AuditService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := idgen.Init(cfg.NodeID); err != nil {
		return nil, fmt.Errorf("init audit id generator: %w", err)
	}
	s := &AuditService{sink: sink, logger: logger, enabled: cfg.Enabled && sink != nil, now: time.Now}
	s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s, nil
}

// Start launches the writer.
func (s *AuditService) Start(ctx context.Context) {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains pending events.
func (s *AuditService) Stop() {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Stop()
}

// Record queues ev. It never blocks and never fails the caller.
func (s *AuditService) Record(ev models.AuditEvent) {
	if s == nil || !s.enabled {
		return
	}
	entry := &models.AuditLog{
		ID:        idgen.New(),
		Action:    ev.Action,
		Resource:  ev.Resource,
		IPAddress: ev.Client.IP,
		UserAgent: ev.Client.UserAgent,
		CreatedAt: s.now().UTC(),
	}
	if ev.Actor != "" {
		actor := ev.Actor
		entry.Actor = &actor
	}
	if ev.ResourceID != "" {
		id := ev.ResourceID
		entry.ResourceID = &id
	}
	entry.OldValues = s.encode(ev.Old)
	entry.NewValues = s.encode(ev.New)

	job := jobs.Job{ID: strconv.FormatInt(entry.ID, 10), Type: ev.Action, Payload: entry}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("audit event dropped", zap.String("action", ev.Action), zap.Error(err))
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditLog)
	if !ok {
		s.logger.Error("unexpected audit payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.sink.Create(ctx, entry)
}

func (s *AuditService) encode(v interface{}) []byte {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("audit value not encodable", zap.Error(err))
		return nil
	}
	return raw
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/dormfix-api/internal/models"
)

// AuditRepository stores audit trail rows in PostgreSQL.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create stores an audit log entry. The caller assigns the ID.
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, actor, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :actor, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// LogAuditRepository writes audit entries to the structured log when no database is configured.
type LogAuditRepository struct {
	logger *zap.Logger
}

// NewLogAuditRepository constructs a log-backed audit sink.
func NewLogAuditRepository(logger *zap.Logger) *LogAuditRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogAuditRepository{logger: logger}
}

// Create emits the entry as an "audit" log line.
func (r *LogAuditRepository) Create(_ context.Context, log *models.AuditLog) error {
	fields := []zap.Field{
		zap.Int64("id", log.ID),
		zap.String("action", log.Action),
		zap.String("resource", log.Resource),
		zap.String("ip", log.IPAddress),
	}
	if log.Actor != nil {
		fields = append(fields, zap.String("actor", *log.Actor))
	}
	if log.ResourceID != nil {
		fields = append(fields, zap.String("resource_id", *log.ResourceID))
	}
	if len(log.NewValues) > 0 {
		fields = append(fields, zap.ByteString("new_values", log.NewValues))
	}
	r.logger.Info("audit", fields...)
	return nil
}

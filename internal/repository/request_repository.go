package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dormfix-api/internal/models"
)

const requestColumns = `id, seq, name, register_number, hostel_name, floor, room_number, category, priority, description, status, image_url, urgency, urgency_reason, assigned_to, created_at`

// RequestRepository persists maintenance requests in PostgreSQL.
type RequestRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Append assigns the next sequence-derived ID and creation time, then inserts the row.
func (r *RequestRepository) Append(ctx context.Context, data models.NewRequestData) (*models.MaintenanceRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append request: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var seq int64
	if err := tx.GetContext(ctx, &seq, `SELECT nextval('maintenance_request_seq')`); err != nil {
		return nil, fmt.Errorf("next request sequence: %w", err)
	}

	req := &models.MaintenanceRequest{
		ID:             models.RequestID(seq),
		Seq:            seq,
		Name:           data.Name,
		RegisterNumber: data.RegisterNumber,
		HostelName:     data.HostelName,
		Floor:          data.Floor,
		RoomNumber:     data.RoomNumber,
		Category:       data.Category,
		Priority:       data.Priority,
		Description:    data.Description,
		Status:         data.Status,
		ImageURL:       data.ImageURL,
		Urgency:        data.Urgency,
		UrgencyReason:  data.UrgencyReason,
		CreatedDate:    r.now(),
	}

	const query = `INSERT INTO maintenance_requests (` + requestColumns + `)
VALUES (:id, :seq, :name, :register_number, :hostel_name, :floor, :room_number, :category, :priority, :description, :status, :image_url, :urgency, :urgency_reason, :assigned_to, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, req); err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append request: %w", err)
	}
	return req, nil
}

// List returns requests matching filter, newest first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.MaintenanceRequest, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.HostelName != "" {
		args = append(args, filter.HostelName)
		conditions = append(conditions, fmt.Sprintf("hostel_name = $%d", len(args)))
	}
	if filter.Floor != "" {
		args = append(args, filter.Floor)
		conditions = append(conditions, fmt.Sprintf("floor = $%d", len(args)))
	}
	if filter.RegisterNumber != "" {
		args = append(args, filter.RegisterNumber)
		conditions = append(conditions, fmt.Sprintf("register_number = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	query := "SELECT " + requestColumns + " FROM maintenance_requests" + where + " ORDER BY created_at DESC, seq DESC"

	var requests []models.MaintenanceRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	for i := range requests {
		normalizeRow(&requests[i])
	}
	return requests, nil
}

// FindByID returns a single request. Missing rows surface as sql.ErrNoRows.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	query := "SELECT " + requestColumns + " FROM maintenance_requests WHERE id = $1"
	var req models.MaintenanceRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, fmt.Errorf("find request %s: %w", id, err)
	}
	normalizeRow(&req)
	return &req, nil
}

// UpdateStatus sets status and, when provided, the assignee.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, status models.Status, assignedTo *string) (*models.MaintenanceRequest, error) {
	query := "UPDATE maintenance_requests SET status = $1, assigned_to = COALESCE($2, assigned_to) WHERE id = $3 RETURNING " + requestColumns
	var req models.MaintenanceRequest
	if err := r.db.GetContext(ctx, &req, query, status, assignedTo, id); err != nil {
		return nil, fmt.Errorf("update request %s status: %w", id, err)
	}
	normalizeRow(&req)
	return &req, nil
}

// normalizeRow maps legacy rows written before the lifecycle was renamed.
func normalizeRow(req *models.MaintenanceRequest) {
	req.Status = models.NormalizeStatus(string(req.Status))
}

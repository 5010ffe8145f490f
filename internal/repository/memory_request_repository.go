package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/dormfix-api/internal/models"
)

// MemoryRequestRepository keeps requests in process memory. It is safe for
// concurrent use within one process; nothing survives a restart.
type MemoryRequestRepository struct {
	mu       sync.RWMutex
	requests []models.MaintenanceRequest
	nextSeq  int64
	now      func() time.Time
}

// NewMemoryRequestRepository returns an empty in-memory store.
func NewMemoryRequestRepository() *MemoryRequestRepository {
	return &MemoryRequestRepository{
		nextSeq: 1,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Append assigns ID and creation time and stores a copy of the request.
func (r *MemoryRequestRepository) Append(ctx context.Context, data models.NewRequestData) (*models.MaintenanceRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.nextSeq
	r.nextSeq++
	req := models.MaintenanceRequest{
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
		ImageURL:       cloneString(data.ImageURL),
		Urgency:        data.Urgency,
		UrgencyReason:  data.UrgencyReason,
		CreatedDate:    r.now(),
	}
	r.requests = append(r.requests, req)
	out := cloneRequest(req)
	return &out, nil
}

// List returns matching requests sorted by creation time, newest first.
// Equal timestamps fall back to insertion order, newest first.
func (r *MemoryRequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.MaintenanceRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	result := make([]models.MaintenanceRequest, 0, len(r.requests))
	for i := range r.requests {
		if filter.Matches(&r.requests[i]) {
			result = append(result, cloneRequest(r.requests[i]))
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedDate.Equal(result[j].CreatedDate) {
			return result[i].CreatedDate.After(result[j].CreatedDate)
		}
		return result[i].Seq > result[j].Seq
	})
	return result, nil
}

// FindByID returns a copy of the request with the given ID.
func (r *MemoryRequestRepository) FindByID(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.requests {
		if r.requests[i].ID == id {
			out := cloneRequest(r.requests[i])
			return &out, nil
		}
	}
	return nil, fmt.Errorf("find request %s: %w", id, sql.ErrNoRows)
}

// UpdateStatus mutates status and optionally the assignee in place.
func (r *MemoryRequestRepository) UpdateStatus(ctx context.Context, id string, status models.Status, assignedTo *string) (*models.MaintenanceRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.requests {
		if r.requests[i].ID != id {
			continue
		}
		r.requests[i].Status = status
		if assignedTo != nil {
			r.requests[i].AssignedTo = cloneString(assignedTo)
		}
		out := cloneRequest(r.requests[i])
		return &out, nil
	}
	return nil, fmt.Errorf("update request %s status: %w", id, sql.ErrNoRows)
}

// Seed loads fixed records, keeping their IDs and timestamps. The sequence
// continues after the highest seeded value.
func (r *MemoryRequestRepository) Seed(records []models.MaintenanceRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		if rec.Seq >= r.nextSeq {
			r.nextSeq = rec.Seq + 1
		}
		r.requests = append(r.requests, cloneRequest(rec))
	}
}

func cloneRequest(in models.MaintenanceRequest) models.MaintenanceRequest {
	out := in
	out.ImageURL = cloneString(in.ImageURL)
	out.AssignedTo = cloneString(in.AssignedTo)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/dormfix-api/internal/dto"
	"github.com/noah-isme/dormfix-api/internal/models"
)

// DashboardService composes the role dashboards: the scoped request list,
// duplicate annotations and summary stats.
type DashboardService struct {
	store   RequestStore
	access  *AccessService
	grouper DuplicateGrouper
	metrics *MetricsService
	logger  *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(store RequestStore, access *AccessService, grouper DuplicateGrouper, metrics *MetricsService, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{store: store, access: access, grouper: grouper, metrics: metrics, logger: logger}
}

// Build returns the dashboard for session. Duplicate detection runs over the
// whole scoped list before view filters apply. A grouper failure leaves every
// request unflagged and reports degraded=true instead of failing the read.
func (s *DashboardService) Build(ctx context.Context, session models.Session, filter models.DashboardFilter) (*dto.DashboardResponse, bool, error) {
	items, err := scopedList(ctx, s.store, s.access, s.metrics, session)
	if err != nil {
		return nil, false, err
	}

	groups, degraded := s.duplicateGroups(ctx, items)
	flagged := make(map[int]struct{})
	groupIDs := make([][]string, 0, len(groups))
	for _, group := range groups {
		ids := make([]string, len(group))
		for i, idx := range group {
			flagged[idx] = struct{}{}
			ids[i] = items[idx].ID
		}
		groupIDs = append(groupIDs, ids)
	}

	annotated := make([]dto.DashboardRequest, len(items))
	for i := range items {
		_, dup := flagged[i]
		annotated[i] = dto.DashboardRequest{MaintenanceRequest: items[i], IsDuplicate: dup}
	}

	visible := make([]dto.DashboardRequest, 0, len(annotated))
	for _, item := range annotated {
		if matchesView(filter, &item.MaintenanceRequest) {
			visible = append(visible, item)
		}
	}

	return &dto.DashboardResponse{
		Scope: dto.ScopeView{
			Role:           session.Role,
			HostelName:     session.HostelName,
			Floor:          session.Floor,
			RegisterNumber: session.RegisterNumber,
		},
		Stats:           buildStats(annotated),
		Requests:        visible,
		DuplicateGroups: groupIDs,
	}, degraded, nil
}

// duplicateGroups asks the grouper and keeps only well-formed groups: in-range,
// de-duplicated indices with at least two members.
func (s *DashboardService) duplicateGroups(ctx context.Context, items []models.MaintenanceRequest) ([][]int, bool) {
	if len(items) < 2 || s.grouper == nil {
		return nil, false
	}
	summaries := make([]models.RequestSummary, len(items))
	for i, item := range items {
		summaries[i] = models.Summarize(item)
	}

	raw, err := s.grouper.FindDuplicateGroups(ctx, summaries)
	if err != nil {
		s.logger.Warn("duplicate detection unavailable", zap.Int("requests", len(items)), zap.Error(err))
		return nil, true
	}

	out := make([][]int, 0, len(raw))
	for _, group := range raw {
		seen := make(map[int]struct{}, len(group))
		clean := make([]int, 0, len(group))
		for _, idx := range group {
			if idx < 0 || idx >= len(items) {
				continue
			}
			if _, dup := seen[idx]; dup {
				continue
			}
			seen[idx] = struct{}{}
			clean = append(clean, idx)
		}
		if len(clean) > 1 {
			out = append(out, clean)
		}
	}
	return out, false
}

func matchesView(f models.DashboardFilter, r *models.MaintenanceRequest) bool {
	if f.RoomNumber != "" && !containsFold(r.RoomNumber, f.RoomNumber) {
		return false
	}
	if f.HostelName != "" && r.HostelName != f.HostelName {
		return false
	}
	if f.Floor != "" && !containsFold(r.Floor, f.Floor) {
		return false
	}
	if f.Category != "" && string(r.Category) != f.Category {
		return false
	}
	if f.Priority != "" && string(r.Priority) != f.Priority {
		return false
	}
	if f.Status != "" && r.Status != models.NormalizeStatus(f.Status) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

func buildStats(items []dto.DashboardRequest) dto.DashboardStats {
	stats := dto.DashboardStats{Total: len(items), ByCategory: make(map[string]int)}
	for _, item := range items {
		switch item.Status {
		case models.StatusSubmitted:
			stats.Submitted++
		case models.StatusAssigned:
			stats.Assigned++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusCompleted:
			stats.Completed++
		}
		if item.Urgency.Urgent() {
			stats.Urgent++
		}
		if item.IsDuplicate {
			stats.Duplicates++
		}
		stats.ByCategory[string(item.Category)]++
	}
	return stats
}

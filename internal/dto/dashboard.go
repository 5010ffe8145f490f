package dto

import "github.com/noah-isme/dormfix-api/internal/models"

// DashboardRequest is a maintenance request annotated for a dashboard read.
type DashboardRequest struct {
	models.MaintenanceRequest
	IsDuplicate bool `json:"isDuplicate"`
}

// DashboardStats summarises the viewer's whole scoped request set.
type DashboardStats struct {
	Total      int            `json:"total"`
	Submitted  int            `json:"submitted"`
	Assigned   int            `json:"assigned"`
	InProgress int            `json:"inProgress"`
	Completed  int            `json:"completed"`
	Urgent     int            `json:"urgent"`
	Duplicates int            `json:"duplicates"`
	ByCategory map[string]int `json:"byCategory"`
}

// DashboardResponse is the payload behind every role dashboard.
type DashboardResponse struct {
	Scope           ScopeView          `json:"scope"`
	Stats           DashboardStats     `json:"stats"`
	Requests        []DashboardRequest `json:"requests"`
	DuplicateGroups [][]string         `json:"duplicateGroups"`
}

// ScopeView echoes which slice of requests the viewer is allowed to see.
type ScopeView struct {
	Role           models.UserRole `json:"role"`
	HostelName     string          `json:"hostelName,omitempty"`
	Floor          string          `json:"floor,omitempty"`
	RegisterNumber string          `json:"registerNumber,omitempty"`
}

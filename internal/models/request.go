package models

import (
	"fmt"
	"time"
)

// Category is the maintenance category of a request.
type Category string

const (
	CategoryAC             Category = "AC"
	CategoryPlumbing       Category = "Plumbing"
	CategoryElectrical     Category = "Electrical"
	CategoryFurnitureDoor  Category = "Furniture and Door"
	CategoryLift           Category = "Lift"
	CategoryWater          Category = "Water"
	CategoryWaterDispenser Category = "Water Dispenser"
)

// Priority is the user-facing priority of a request.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Status is the lifecycle state of a request. Values are ordered.
type Status string

const (
	StatusSubmitted  Status = "Submitted"
	StatusAssigned   Status = "Assigned"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Statuses lists the canonical lifecycle in order.
var Statuses = []Status{StatusSubmitted, StatusAssigned, StatusInProgress, StatusCompleted}

// Rank returns the position of s in the lifecycle, or -1 when unknown.
func (s Status) Rank() int {
	for i, candidate := range Statuses {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a canonical status.
func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// NormalizeStatus maps legacy vocabulary found in stored rows onto the
// canonical set. Status updates never go through it.
func NormalizeStatus(raw string) Status {
	if raw == "Resolved" {
		return StatusCompleted
	}
	return Status(raw)
}

// Urgency is the oracle-assigned severity tier.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Valid reports whether u is one of the four tiers.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// Urgent reports whether the tier counts toward the dashboard urgent stat.
func (u Urgency) Urgent() bool {
	return u == UrgencyHigh || u == UrgencyCritical
}

// MaintenanceRequest is a single maintenance ticket.
type MaintenanceRequest struct {
	ID             string    `db:"id" json:"id"`
	Seq            int64     `db:"seq" json:"-"`
	Name           string    `db:"name" json:"name,omitempty"`
	RegisterNumber string    `db:"register_number" json:"registerNumber,omitempty"`
	HostelName     string    `db:"hostel_name" json:"hostelName"`
	Floor          string    `db:"floor" json:"floor"`
	RoomNumber     string    `db:"room_number" json:"roomNumber"`
	Category       Category  `db:"category" json:"category"`
	Priority       Priority  `db:"priority" json:"priority"`
	Description    string    `db:"description" json:"description"`
	Status         Status    `db:"status" json:"status"`
	ImageURL       *string   `db:"image_url" json:"imageUrl,omitempty"`
	Urgency        Urgency   `db:"urgency" json:"urgency"`
	UrgencyReason  string    `db:"urgency_reason" json:"urgencyReason,omitempty"`
	AssignedTo     *string   `db:"assigned_to" json:"assignedTo,omitempty"`
	CreatedDate    time.Time `db:"created_at" json:"createdDate"`
}

// NewRequestData carries validated fields for a request about to be stored.
type NewRequestData struct {
	Name           string
	RegisterNumber string
	HostelName     string
	Floor          string
	RoomNumber     string
	Category       Category
	Priority       Priority
	Description    string
	ImageURL       *string
	Urgency        Urgency
	UrgencyReason  string
	Status         Status
}

// RequestFilter constrains List. Empty fields are unconstrained.
type RequestFilter struct {
	HostelName     string
	Floor          string
	RegisterNumber string
}

// Matches reports whether r satisfies every set field of f.
func (f RequestFilter) Matches(r *MaintenanceRequest) bool {
	if f.HostelName != "" && r.HostelName != f.HostelName {
		return false
	}
	if f.Floor != "" && r.Floor != f.Floor {
		return false
	}
	if f.RegisterNumber != "" && r.RegisterNumber != f.RegisterNumber {
		return false
	}
	return true
}

// RequestID renders the human-readable identifier for sequence n.
func RequestID(n int64) string {
	return fmt.Sprintf("REQ-%03d", n)
}

// RequestSummary is the oracle-facing projection used for duplicate detection.
type RequestSummary struct {
	RoomNumber  string `json:"roomNumber"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedDate string `json:"createdDate"`
}

// Summarize projects r for the duplicate oracle.
func Summarize(r MaintenanceRequest) RequestSummary {
	return RequestSummary{
		RoomNumber:  r.RoomNumber,
		Category:    string(r.Category),
		Priority:    string(r.Priority),
		Description: r.Description,
		Status:      string(r.Status),
		CreatedDate: r.CreatedDate.UTC().Format("2006-01-02"),
	}
}

// UrgencyAssessment is the classifier result.
type UrgencyAssessment struct {
	Urgency Urgency `json:"urgency"`
	Reason  string  `json:"reason"`
}

// StatusUpdate moves a request along its lifecycle.
type StatusUpdate struct {
	Status     Status  `json:"status" validate:"required"`
	AssignedTo *string `json:"assignedTo,omitempty" validate:"omitempty,max=120"`
}

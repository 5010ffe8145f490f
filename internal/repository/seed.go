package repository

import (
	"time"

	"github.com/noah-isme/dormfix-api/internal/models"
)

// SeedRequests is the demo data set loaded into the memory store in development.
func SeedRequests() []models.MaintenanceRequest {
	at := func(raw string) time.Time {
		t, _ := time.Parse(time.RFC3339, raw)
		return t.UTC()
	}
	return []models.MaintenanceRequest{
		{ID: "REQ-001", Seq: 1, HostelName: "Podhigai", Floor: "1", RoomNumber: "101", Category: models.CategoryPlumbing, Priority: models.PriorityHigh,
			Description: "Leaky faucet in the bathroom, dripping constantly.", Status: models.StatusSubmitted, CreatedDate: at("2024-07-20T09:00:00Z"), Urgency: models.UrgencyMedium},
		{ID: "REQ-002", Seq: 2, HostelName: "Vaigai", Floor: "2", RoomNumber: "205", Category: models.CategoryElectrical, Priority: models.PriorityHigh,
			Description: "Main room light is flickering. Possible short circuit.", Status: models.StatusInProgress, CreatedDate: at("2024-07-20T11:30:00Z"), Urgency: models.UrgencyHigh},
		{ID: "REQ-003", Seq: 3, HostelName: "Thamirabarani", Floor: "3", RoomNumber: "310", Category: models.CategoryAC, Priority: models.PriorityMedium,
			Description: "AC is not cooling effectively.", Status: models.StatusSubmitted, CreatedDate: at("2024-07-21T14:00:00Z"), Urgency: models.UrgencyLow},
		{ID: "REQ-004", Seq: 4, HostelName: "Podhigai", Floor: "1", RoomNumber: "101", Category: models.CategoryPlumbing, Priority: models.PriorityHigh,
			Description: "The faucet in my bathroom is leaking.", Status: models.StatusSubmitted, CreatedDate: at("2024-07-21T15:00:00Z"), Urgency: models.UrgencyMedium},
		{ID: "REQ-005", Seq: 5, HostelName: "Kaveri", Floor: "4", RoomNumber: "415", Category: models.CategoryFurnitureDoor, Priority: models.PriorityLow,
			Description: "The desk chair has a broken wheel.", Status: models.NormalizeStatus("Resolved"), CreatedDate: at("2024-07-19T10:00:00Z"), Urgency: models.UrgencyLow},
		{ID: "REQ-006", Seq: 6, HostelName: "Amaravathi", Floor: "G", RoomNumber: "G-Lobby", Category: models.CategoryLift, Priority: models.PriorityHigh,
			Description: "The main elevator is making strange noises and got stuck between floors.", Status: models.StatusSubmitted, CreatedDate: at("2024-07-22T08:00:00Z"), Urgency: models.UrgencyCritical},
		{ID: "REQ-007", Seq: 7, HostelName: "Podhigai", Floor: "2", RoomNumber: "220", Category: models.CategoryElectrical, Priority: models.PriorityHigh,
			Description: "I saw sparks from the power outlet near my bed.", Status: models.StatusSubmitted, CreatedDate: at("2024-07-22T09:15:00Z"), Urgency: models.UrgencyCritical},
	}
}

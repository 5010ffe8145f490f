package models

// CreateRequestInput is the flat form submitted to the intake pipeline.
type CreateRequestInput struct {
	Name           string `json:"name" form:"name"`
	RegisterNumber string `json:"registerNumber" form:"registerNumber"`
	Gender         string `json:"gender" form:"gender"`
	HostelName     string `json:"hostelName" form:"hostelName"`
	Floor          string `json:"floor" form:"floor"`
	RoomNumber     string `json:"roomNumber" form:"roomNumber"`
	Category       string `json:"category" form:"category"`
	Priority       string `json:"priority" form:"priority"`
	Description    string `json:"description" form:"description"`
	ImageURL       string `json:"imageUrl" form:"imageUrl"`
	HasPhoto       bool   `json:"-" form:"-"`
}

// IntakeResult acknowledges a stored request.
type IntakeResult struct {
	Message string              `json:"message"`
	Request *MaintenanceRequest `json:"request"`
}

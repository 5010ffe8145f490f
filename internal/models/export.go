package models

import "time"

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportRequest asks for the current dashboard view rendered as a file.
type ExportRequest struct {
	Format ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	DashboardFilter
}

// ExportResult describes a rendered export ready for download.
type ExportResult struct {
	ID        string       `json:"id"`
	Format    ExportFormat `json:"format"`
	Rows      int          `json:"rows"`
	URL       string       `json:"url"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// DashboardFilter narrows the dashboard view. Empty values are unconstrained.
type DashboardFilter struct {
	RoomNumber string `json:"roomNumber" form:"roomNumber"`
	HostelName string `json:"hostelName" form:"hostelName"`
	Floor      string `json:"floor" form:"floor"`
	Category   string `json:"category" form:"category"`
	Priority   string `json:"priority" form:"priority"`
	Status     string `json:"status" form:"status"`
}

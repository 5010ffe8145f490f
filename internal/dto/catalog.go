package dto

// CatalogResponse lists the closed vocabularies a client needs to build forms.
type CatalogResponse struct {
	Hostels    []HostelOption `json:"hostels"`
	Categories []string       `json:"categories"`
	Priorities []string       `json:"priorities"`
	Statuses   []string       `json:"statuses"`
}

// HostelOption is one hostel with the gender it houses.
type HostelOption struct {
	Name   string `json:"name"`
	Gender string `json:"gender,omitempty"`
}

// CategoryOptions lists categories selectable for a hostel and floor.
type CategoryOptions struct {
	HostelName string   `json:"hostelName"`
	Floor      string   `json:"floor"`
	HasAC      bool     `json:"hasAC"`
	Categories []string `json:"categories"`
}

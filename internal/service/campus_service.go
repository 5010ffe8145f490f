package service

import (
	"strings"

	"github.com/noah-isme/dormfix-api/internal/dto"
	"github.com/noah-isme/dormfix-api/internal/models"
	"github.com/noah-isme/dormfix-api/pkg/config"
)

// Genders accepted on the intake form.
var Genders = []string{"male", "female"}

// CampusService answers static questions about hostels and categories.
// All lookups are pure functions of the campus table.
type CampusService struct {
	hostels    []config.HostelEntry
	byHostel   map[string]config.HostelEntry
	categories []config.CategoryEntry
	byCategory map[string]config.CategoryEntry
}

// NewCampusService indexes table.
func NewCampusService(table *config.CampusTable) *CampusService {
	s := &CampusService{
		hostels:    table.Hostels,
		byHostel:   make(map[string]config.HostelEntry, len(table.Hostels)),
		categories: table.Categories,
		byCategory: make(map[string]config.CategoryEntry, len(table.Categories)),
	}
	for _, h := range table.Hostels {
		s.byHostel[h.Name] = h
	}
	for _, c := range table.Categories {
		s.byCategory[c.Name] = c
	}
	return s
}

// HostelKnown reports whether name is a campus hostel.
func (s *CampusService) HostelKnown(name string) bool {
	_, ok := s.byHostel[name]
	return ok
}

// CategoryKnown reports whether name is a maintenance category.
func (s *CampusService) CategoryKnown(name string) bool {
	_, ok := s.byCategory[name]
	return ok
}

// HasAC reports whether the hostel floor has air conditioning.
func (s *CampusService) HasAC(hostelName, floor string) bool {
	h, ok := s.byHostel[hostelName]
	if !ok {
		return false
	}
	if h.ACAllFloors {
		return true
	}
	floor = strings.TrimSpace(floor)
	for _, f := range h.ACFloors {
		if strings.EqualFold(f, floor) {
			return true
		}
	}
	return false
}

// HostelAllowed reports whether hostelName houses the given gender.
func (s *CampusService) HostelAllowed(gender, hostelName string) bool {
	h, ok := s.byHostel[hostelName]
	return ok && strings.EqualFold(h.Gender, gender)
}

// RequiresAC reports whether category may only be filed where AC exists.
func (s *CampusService) RequiresAC(category string) bool {
	return s.byCategory[category].RequiresAC
}

// ForcedPriority returns the priority a category always carries, if any.
func (s *CampusService) ForcedPriority(category string) (models.Priority, bool) {
	c, ok := s.byCategory[category]
	if !ok || c.ForcePriority == "" {
		return "", false
	}
	return models.Priority(c.ForcePriority), true
}

// HostelNames lists hostels in table order.
func (s *CampusService) HostelNames() []string {
	out := make([]string, len(s.hostels))
	for i, h := range s.hostels {
		out[i] = h.Name
	}
	return out
}

// CategoryNames lists categories in table order.
func (s *CampusService) CategoryNames() []string {
	out := make([]string, len(s.categories))
	for i, c := range s.categories {
		out[i] = c.Name
	}
	return out
}

// Catalog returns every closed vocabulary used by the request forms.
func (s *CampusService) Catalog() dto.CatalogResponse {
	hostels := make([]dto.HostelOption, len(s.hostels))
	for i, h := range s.hostels {
		hostels[i] = dto.HostelOption{Name: h.Name, Gender: h.Gender}
	}
	statuses := make([]string, len(models.Statuses))
	for i, st := range models.Statuses {
		statuses[i] = string(st)
	}
	return dto.CatalogResponse{
		Hostels:    hostels,
		Categories: s.CategoryNames(),
		Priorities: []string{string(models.PriorityLow), string(models.PriorityMedium), string(models.PriorityHigh)},
		Statuses:   statuses,
	}
}

// CategoryOptions filters out AC-only categories where no AC is installed.
func (s *CampusService) CategoryOptions(hostelName, floor string) dto.CategoryOptions {
	hasAC := s.HasAC(hostelName, floor)
	categories := make([]string, 0, len(s.categories))
	for _, c := range s.categories {
		if c.RequiresAC && !hasAC {
			continue
		}
		categories = append(categories, c.Name)
	}
	return dto.CategoryOptions{HostelName: hostelName, Floor: floor, HasAC: hasAC, Categories: categories}
}

package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables/access.yaml
var defaultAccessTable []byte

//go:embed tables/campus.yaml
var defaultCampusTable []byte

// RoleEntry describes one role in the access table.
type RoleEntry struct {
	Name              string   `yaml:"name"`
	LandingRoute      string   `yaml:"landingRoute"`
	ProtectedPrefixes []string `yaml:"protectedPrefixes"`
	Scope             string   `yaml:"scope"`
	Staff             bool     `yaml:"staff"`
}

// AccountEntry is a static credential bound to a role and optional location.
type AccountEntry struct {
	Email          string `yaml:"email"`
	Password       string `yaml:"password"`
	PasswordHash   string `yaml:"passwordHash"`
	Role           string `yaml:"role"`
	Name           string `yaml:"name"`
	HostelName     string `yaml:"hostelName"`
	Floor          string `yaml:"floor"`
	RegisterNumber string `yaml:"registerNumber"`
}

// AccessTable is the closed role/route/account configuration.
type AccessTable struct {
	Roles    []RoleEntry    `yaml:"roles"`
	Accounts []AccountEntry `yaml:"accounts"`
}

// HostelEntry lists a hostel, who it houses, and where AC is installed.
type HostelEntry struct {
	Name        string   `yaml:"name"`
	Gender      string   `yaml:"gender"`
	ACAllFloors bool     `yaml:"acAllFloors"`
	ACFloors    []string `yaml:"acFloors"`
}

// CategoryEntry describes a maintenance category and its intake rules.
type CategoryEntry struct {
	Name          string `yaml:"name"`
	RequiresAC    bool   `yaml:"requiresAC"`
	ForcePriority string `yaml:"forcePriority"`
}

// CampusTable is the static campus catalogue used at intake.
type CampusTable struct {
	Hostels    []HostelEntry   `yaml:"hostels"`
	Categories []CategoryEntry `yaml:"categories"`
}

// LoadAccessTable reads the access table from path, or the built-in table when path is empty.
func LoadAccessTable(path string) (*AccessTable, error) {
	raw, err := readTable(path, defaultAccessTable)
	if err != nil {
		return nil, err
	}
	table := &AccessTable{}
	if err := yaml.Unmarshal(raw, table); err != nil {
		return nil, fmt.Errorf("parse access table: %w", err)
	}
	if err := table.validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// LoadCampusTable reads the campus table from path, or the built-in table when path is empty.
func LoadCampusTable(path string) (*CampusTable, error) {
	raw, err := readTable(path, defaultCampusTable)
	if err != nil {
		return nil, err
	}
	table := &CampusTable{}
	if err := yaml.Unmarshal(raw, table); err != nil {
		return nil, fmt.Errorf("parse campus table: %w", err)
	}
	if len(table.Hostels) == 0 || len(table.Categories) == 0 {
		return nil, fmt.Errorf("campus table requires hostels and categories")
	}
	return table, nil
}

func (t *AccessTable) validate() error {
	roles := make(map[string]struct{}, len(t.Roles))
	for _, role := range t.Roles {
		if role.Name == "" || role.LandingRoute == "" {
			return fmt.Errorf("access table: role requires name and landingRoute")
		}
		switch role.Scope {
		case "", "none", "hostel", "hostel_floor", "submitter":
		default:
			return fmt.Errorf("access table: role %s has unknown scope %q", role.Name, role.Scope)
		}
		roles[role.Name] = struct{}{}
	}
	seen := make(map[string]struct{}, len(t.Accounts))
	for _, account := range t.Accounts {
		email := strings.ToLower(strings.TrimSpace(account.Email))
		if email == "" {
			return fmt.Errorf("access table: account without email")
		}
		if _, dup := seen[email]; dup {
			return fmt.Errorf("access table: duplicate account %s", email)
		}
		seen[email] = struct{}{}
		if _, ok := roles[account.Role]; !ok {
			return fmt.Errorf("access table: account %s references unknown role %s", email, account.Role)
		}
		if account.Password == "" && account.PasswordHash == "" {
			return fmt.Errorf("access table: account %s has no credential", email)
		}
	}
	return nil
}

func readTable(path string, fallback []byte) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return fallback, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}
	return raw, nil
}

package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole identifies a role in the access table.
type UserRole string

const (
	RoleAdmin         UserRole = "admin"
	RoleUser          UserRole = "user"
	RoleStudent       UserRole = "student"
	RoleWarden        UserRole = "warden"
	RoleFloorIncharge UserRole = "floor-incharge"
)

// ScopeKind describes how a role's view of requests is narrowed.
type ScopeKind string

const (
	ScopeNone        ScopeKind = "none"
	ScopeHostel      ScopeKind = "hostel"
	ScopeHostelFloor ScopeKind = "hostel_floor"
	ScopeSubmitter   ScopeKind = "submitter"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string   `json:"email" form:"email" validate:"required,email"`
	Password  string   `json:"password" form:"password" validate:"required"`
	Role      UserRole `json:"role,omitempty" form:"role"`
	IP        string   `json:"-"`
	UserAgent string   `json:"-"`
}

// Session is the resolved identity carried by the session token.
type Session struct {
	Identifier     string   `json:"identifier"`
	Name           string   `json:"name,omitempty"`
	Role           UserRole `json:"role"`
	HostelName     string   `json:"hostelName,omitempty"`
	Floor          string   `json:"floor,omitempty"`
	RegisterNumber string   `json:"registerNumber,omitempty"`
}

// LoginResponse returns the session and where the client should land.
type LoginResponse struct {
	Session      Session `json:"session"`
	LandingRoute string  `json:"landingRoute"`
	ExpiresIn    int64   `json:"expiresIn"`
	Token        string  `json:"-"`
}

// RouteDecision is the outcome of checking a path against a session.
type RouteDecision struct {
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
}

// SessionClaims represents the JWT payload stored in the session cookie.
type SessionClaims struct {
	Role           UserRole `json:"role"`
	Name           string   `json:"name,omitempty"`
	HostelName     string   `json:"hostelName,omitempty"`
	Floor          string   `json:"floor,omitempty"`
	RegisterNumber string   `json:"registerNumber,omitempty"`
	jwt.RegisteredClaims
}

// Session converts the claims into the resolved identity.
func (c *SessionClaims) Session() Session {
	return Session{
		Identifier:     c.Subject,
		Name:           c.Name,
		Role:           c.Role,
		HostelName:     c.HostelName,
		Floor:          c.Floor,
		RegisterNumber: c.RegisterNumber,
	}
}

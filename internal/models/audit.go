package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin        = "LOGIN"
	AuditActionLoginFailed  = "LOGIN_FAILED"
	AuditActionLogout       = "LOGOUT"
	AuditActionIntake       = "REQUEST_CREATE"
	AuditActionIntakeFailed = "REQUEST_CREATE_FAILED"
	AuditActionStatusChange = "REQUEST_STATUS_CHANGE"
	AuditActionExport       = "REQUEST_EXPORT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         int64     `db:"id" json:"id"`
	Actor      *string   `db:"actor" json:"actor,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditEvent is what services report; the audit service turns it into an AuditLog.
type AuditEvent struct {
	Actor      string
	Action     string
	Resource   string
	ResourceID string
	Old        interface{}
	New        interface{}
	Client     ClientInfo
}

// ClientInfo identifies the caller of an HTTP operation.
type ClientInfo struct {
	IP        string
	UserAgent string
}

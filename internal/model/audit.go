package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Placeholders recorded when an entry originates outside an HTTP
// request (batch jobs, workers).
const (
	AuditPlaceholderIP        = "0.0.0.0"
	AuditPlaceholderUserAgent = "Server Action"
)

// AuditLog is an immutable record of who did what to which resource.
// Entries are written to a tenant-scoped table and mirrored to a
// global one; neither write is a precondition for the action itself.
type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ClinicID   uuid.UUID       `json:"clinic_id" db:"clinic_id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id"`
	Action     string          `json:"action" db:"action"`
	Resource   string          `json:"resource" db:"resource"`
	ResourceID string          `json:"resource_id,omitempty" db:"resource_id"`
	Details    string          `json:"details,omitempty" db:"details"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	UserAgent  string          `json:"user_agent" db:"user_agent"`
	Success    bool            `json:"success" db:"success"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionCreate = "create"
	AuditActionRead   = "read"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
	AuditActionLogin  = "login"
	AuditActionLogout = "logout"
	AuditActionExport = "export"
)

type AuditFilters struct {
	UserID     string `form:"user_id"`
	Action     string `form:"action"`
	Resource   string `form:"resource"`
	ResourceID string `form:"resource_id"`
	From       string `form:"from"`
	To         string `form:"to"`
	Pagination
}

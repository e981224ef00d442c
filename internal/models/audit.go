package models

import "time"

// Audit actions recorded by the session manager.
const (
	AuditActionLogin       = "LOGIN"
	AuditActionRefresh     = "REFRESH"
	AuditActionLogout      = "LOGOUT"
	AuditActionForceLogout = "FORCE_LOGOUT"
	AuditActionPassword    = "PASSWORD_CHANGE"
)

// AuditLog records an authentication event for later review and export.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	Detail    string    `db:"detail" json:"detail"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AuditFilter captures filtering criteria for listing audit logs.
type AuditFilter struct {
	UserID   string
	Action   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

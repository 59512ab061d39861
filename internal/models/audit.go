package models

import "time"

// Action is the verb recorded by an audit entry.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionLogin  Action = "LOGIN"
	ActionLogout Action = "LOGOUT"
	ActionExport Action = "EXPORT"
	ActionImport Action = "IMPORT"
	ActionBackup Action = "BACKUP"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin,
		ActionLogout, ActionExport, ActionImport, ActionBackup:
		return true
	}
	return false
}

// Resource types referenced by audit entries.
const (
	ResourceInventory = "inventory"
	ResourceUser      = "user"
	ResourceAuth      = "auth"
	ResourceReport    = "report"
	ResourceSystem    = "system"
)

// AuditEntry is an immutable record of a state-changing or privileged action.
type AuditEntry struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Username     string         `json:"username"`
	Action       Action         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   *string        `json:"resource_id"`
	Details      map[string]any `json:"details"`
	Timestamp    time.Time      `json:"timestamp"`
	Site         string         `json:"sede"`
}

// AuditFilter narrows an audit log query. Empty fields match everything.
type AuditFilter struct {
	Action       Action
	ResourceType string
	Username     string
}

// AuditPage is one page of audit entries, newest first.
type AuditPage struct {
	Entries    []AuditEntry `json:"logs"`
	Pagination Pagination   `json:"pagination"`
}

// Pagination describes the position of an AuditPage.
type Pagination struct {
	Page       int `json:"current_page"`
	TotalPages int `json:"total_pages"`
	Total      int `json:"total_logs"`
	PerPage    int `json:"per_page"`
}

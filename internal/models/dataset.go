package models

// Dataset is a point-in-time read of every stored collection. Users carry
// no password hash.
type Dataset struct {
	Inventory []Item       `json:"inventory"`
	Users     []User       `json:"users"`
	AuditLogs []AuditEntry `json:"audit_logs"`
}

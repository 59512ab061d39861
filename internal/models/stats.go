package models

import "time"

// Stats aggregates inventory and identity counts.
type Stats struct {
	TotalUsers       int            `json:"total_users"`
	ActiveUsers      int            `json:"active_users"`
	TotalItems       int            `json:"total_items"`
	ItemsGood        int            `json:"items_bien"`
	ItemsDamaged     int            `json:"items_mal_estado"`
	ItemsInRepair    int            `json:"items_en_reparacion"`
	ItemsStolen      int            `json:"items_robados"`
	DevicesByType    map[string]int `json:"devices_by_type"`
	RecentActivities []AuditEntry   `json:"recent_activities"`
	SystemHealth     SystemHealth   `json:"system_health"`
}

// SystemHealth is the health block attached to statistics.
type SystemHealth struct {
	DatabaseConnected bool       `json:"database_connected"`
	LastBackup        *time.Time `json:"last_backup"`
	Uptime            string     `json:"uptime"`
}

// Alert is an equipment condition that needs attention.
type Alert struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Action  string `json:"action"`
	Count   int    `json:"count"`
}

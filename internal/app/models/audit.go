package models

import "time"

// AuditEntry records destructive actions such as a student cascade delete.
type AuditEntry struct {
	ID        int64          `json:"id" db:"id"`
	UserID    int64          `json:"userId" db:"user_id"`
	Action    string         `json:"action" db:"action"`
	Entity    string         `json:"entity" db:"entity"`
	EntityID  int64          `json:"entityId" db:"entity_id"`
	Details   map[string]any `json:"details" db:"details"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
}

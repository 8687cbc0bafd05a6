package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/db"
)

// AuditRepository appends to the audit log.
type AuditRepository struct {
	db db.DBTX
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(conn db.DBTX) *AuditRepository {
	return &AuditRepository{db: conn}
}

// Record inserts one audit entry.
func (r *AuditRepository) Record(ctx context.Context, e *models.AuditEntry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("error encoding audit details: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO audit_log (user_id, action, entity, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		e.UserID, e.Action, e.Entity, e.EntityID, details).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("error writing audit entry: %w", err)
	}
	return nil
}

package store

import (
	"context"

	"saipov-admin/internal/models"
)

// RecordAction appends one row to the console-local action log. Entity
// state itself lives behind the remote commerce API; only who did what,
// to which entity, when, is kept here.
func (s *Store) RecordAction(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (actor_id, actor_name, action, entity_type, entity_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, entry, query,
		entry.ActorID, entry.ActorName, entry.Action, entry.EntityType, entry.EntityID, entry.Detail)
}

// RecentActions retrieves the newest audit rows, capped at limit.
func (s *Store) RecentActions(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []models.AuditEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM audit_log ORDER BY created_at DESC, id DESC LIMIT $1", limit)
	return entries, err
}

// ActionsByEntity retrieves the audit trail of one entity, newest first.
func (s *Store) ActionsByEntity(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM audit_log WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at DESC, id DESC",
		entityType, entityID)
	return entries, err
}

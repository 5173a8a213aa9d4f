package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/sususave/internal/models"
)

// AppendAudit adds an entry to the audit trail. Old and new values are
// stored as JSON.
func (s *SQLiteStore) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = nowUnix()
	}

	oldValue, err := encodeValue(entry.OldValue)
	if err != nil {
		return fmt.Errorf("failed to encode old value: %w", err)
	}
	newValue, err := encodeValue(entry.NewValue)
	if err != nil {
		return fmt.Errorf("failed to encode new value: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, entity_type, entity_id, action, old_value, new_value, actor, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action, oldValue, newValue,
		entry.Actor, entry.Details, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns audit entries, newest first. Empty entityType or
// entityID match everything; limit <= 0 means no limit.
func (s *SQLiteStore) ListAudit(ctx context.Context, entityType, entityID string, limit int) ([]*models.AuditEntry, error) {
	query := `SELECT id, entity_type, entity_id, action, old_value, new_value, actor, details, created_at
		FROM audit_log WHERE 1 = 1`
	var args []any
	if entityType != "" {
		query += ` AND entity_type = ?`
		args = append(args, entityType)
	}
	if entityID != "" {
		query += ` AND entity_id = ?`
		args = append(args, entityID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		e := &models.AuditEntry{}
		var oldValue, newValue string
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action, &oldValue, &newValue,
			&e.Actor, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if e.OldValue, err = decodeValue(oldValue); err != nil {
			return nil, fmt.Errorf("failed to decode old value: %w", err)
		}
		if e.NewValue, err = decodeValue(newValue); err != nil {
			return nil, fmt.Errorf("failed to decode new value: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return entries, nil
}

func encodeValue(v map[string]any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeValue(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

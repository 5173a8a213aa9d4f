package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/sususave/internal/models"
)

// CreateNotifications inserts a batch of in-app notifications in one transaction.
func (s *SQLiteStore) CreateNotifications(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	now := nowUnix()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO notifications (id, member_id, group_id, type, message, is_read, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare notification insert: %w", err)
		}
		defer stmt.Close()

		for _, n := range notifications {
			if n.ID == "" {
				n.ID = uuid.New().String()
			}
			if n.CreatedAt == 0 {
				n.CreatedAt = now
			}
			if _, err := stmt.ExecContext(ctx, n.ID, n.MemberID, n.GroupID, n.Type, n.Message,
				boolToInt(n.Read), n.CreatedAt); err != nil {
				return fmt.Errorf("failed to insert notification: %w", err)
			}
		}
		return nil
	})
}

// ListNotifications returns a member's notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, memberID string, unreadOnly bool) ([]*models.Notification, error) {
	query := `SELECT id, member_id, group_id, type, message, is_read, created_at
		FROM notifications WHERE member_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var read int
		if err := rows.Scan(&n.ID, &n.MemberID, &n.GroupID, &n.Type, &n.Message, &read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Read = read == 1
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationsRead marks all of a member's notifications read and
// returns how many changed.
func (s *SQLiteStore) MarkNotificationsRead(ctx context.Context, memberID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE member_id = ? AND is_read = 0`, memberID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(n), nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/internal/storage"
)

// CreateMember inserts a new member into the database.
func (s *SQLiteStore) CreateMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.CreatedAt == 0 {
		member.CreatedAt = nowUnix()
	}

	query := `
		INSERT INTO members (id, name, phone, kyc_verified, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		member.ID,
		member.Name,
		member.Phone,
		boolToInt(member.KYCVerified),
		member.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: phone already registered", storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}

// GetMember retrieves a member by ID.
func (s *SQLiteStore) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	query := `
		SELECT id, name, phone, kyc_verified, created_at
		FROM members
		WHERE id = ?
	`

	member, err := scanMember(s.db.QueryRowContext(ctx, query, memberID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: member %s", storage.ErrNotFound, memberID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// GetMembersByIDs retrieves multiple members by their IDs.
// Returns a map of member ID to Member object.
// Members that don't exist are omitted from the result.
func (s *SQLiteStore) GetMembersByIDs(ctx context.Context, ids []string) (map[string]*models.Member, error) {
	members := make(map[string]*models.Member, len(ids))
	if len(ids) == 0 {
		return members, nil
	}

	query := `
		SELECT id, name, phone, kyc_verified, created_at
		FROM members
		WHERE id IN (` + placeholders(len(ids)) + `)`

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get members by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members[member.ID] = member
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}

// SetKYCVerified records the outcome of an out-of-band identity check.
func (s *SQLiteStore) SetKYCVerified(ctx context.Context, memberID string, verified bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE members SET kyc_verified = ? WHERE id = ?`,
		boolToInt(verified), memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to update kyc status: %w", err)
	}
	return expectOneRow(res, storage.ErrNotFound, "member "+memberID)
}

func scanMember(row rowScanner) (*models.Member, error) {
	member := &models.Member{}
	var verified int
	if err := row.Scan(&member.ID, &member.Name, &member.Phone, &verified, &member.CreatedAt); err != nil {
		return nil, err
	}
	member.KYCVerified = verified == 1
	return member, nil
}

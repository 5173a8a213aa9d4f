package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/internal/storage"
)

const groupColumns = `id, code, name, contribution_amount, num_cycles, current_round, status, cash_only, creator_id, created_at`

// CreateGroup persists a new group and seats its creator as the first admin.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	// Generate IDs if not set
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.Code == "" {
		group.Code = generateCode()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = nowUnix()
	}
	if group.CurrentRound == 0 {
		group.CurrentRound = 1
	}
	if group.Status == "" {
		group.Status = models.GroupActive
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			group.ID, group.Code, group.Name, group.ContributionAmount, group.NumCycles,
			group.CurrentRound, string(group.Status), boolToInt(group.CashOnly), group.CreatorID, group.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO memberships (group_id, member_id, rotation_position, is_admin, is_active, joined_at)
			 VALUES (?, ?, 1, 1, 1, ?)`,
			group.ID, group.CreatorID, group.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert creator membership: %w", err)
		}
		return nil
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: group code %s", storage.ErrConflict, group.Code)
	}
	return err
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = ?`, groupID)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// GetGroupByCode retrieves a group by its join code (case-insensitive).
func (s *SQLiteStore) GetGroupByCode(ctx context.Context, code string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE code = ?`, strings.ToUpper(code))
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: group code %s", storage.ErrNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group by code: %w", err)
	}
	return group, nil
}

// ListGroupsByStatus returns every group in the given status, oldest first.
func (s *SQLiteStore) ListGroupsByStatus(ctx context.Context, status models.GroupStatus) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE status = ? ORDER BY created_at, id`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// SetGroupStatus changes a group's lifecycle status.
func (s *SQLiteStore) SetGroupStatus(ctx context.Context, groupID string, status models.GroupStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE groups SET status = ? WHERE id = ?`, string(status), groupID)
	if err != nil {
		return fmt.Errorf("failed to update group status: %w", err)
	}
	return expectOneRow(res, storage.ErrNotFound, "group "+groupID)
}

// AddMembership seats a member at the next rotation position.
func (s *SQLiteStore) AddMembership(ctx context.Context, groupID, memberID string) (*models.Membership, error) {
	membership := &models.Membership{
		GroupID:  groupID,
		MemberID: memberID,
		IsActive: true,
		JoinedAt: nowUnix(),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// Positions are dense at join time: count includes inactive seats so
		// a removed member's slot is never reused.
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM memberships WHERE group_id = ?`, groupID,
		).Scan(&count); err != nil {
			return fmt.Errorf("failed to count memberships: %w", err)
		}
		membership.RotationPosition = count + 1

		_, err := tx.ExecContext(ctx,
			`INSERT INTO memberships (group_id, member_id, rotation_position, is_admin, is_active, joined_at)
			 VALUES (?, ?, ?, 0, 1, ?)`,
			groupID, memberID, membership.RotationPosition, membership.JoinedAt,
		)
		if err != nil {
			return err
		}
		return nil
	})
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: member %s already in group %s", storage.ErrConflict, memberID, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add membership: %w", err)
	}
	return membership, nil
}

// GetMembership returns the membership of memberID in groupID.
func (s *SQLiteStore) GetMembership(ctx context.Context, groupID, memberID string) (*models.Membership, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT group_id, member_id, rotation_position, is_admin, is_active, joined_at
		 FROM memberships WHERE group_id = ? AND member_id = ?`,
		groupID, memberID,
	)
	membership, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: member %s in group %s", storage.ErrNotFound, memberID, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return membership, nil
}

// ListActiveMemberships returns the active memberships ordered by rotation position.
func (s *SQLiteStore) ListActiveMemberships(ctx context.Context, groupID string) ([]*models.Membership, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, member_id, rotation_position, is_admin, is_active, joined_at
		 FROM memberships WHERE group_id = ? AND is_active = 1 ORDER BY rotation_position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}
	return memberships, nil
}

// CountActiveMemberships counts active memberships of a group.
func (s *SQLiteStore) CountActiveMemberships(ctx context.Context, groupID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memberships WHERE group_id = ? AND is_active = 1`, groupID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active memberships: %w", err)
	}
	return count, nil
}

// DeactivateMembership marks a membership inactive without renumbering positions.
func (s *SQLiteStore) DeactivateMembership(ctx context.Context, groupID, memberID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE memberships SET is_active = 0 WHERE group_id = ? AND member_id = ?`,
		groupID, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate membership: %w", err)
	}
	return expectOneRow(res, storage.ErrNotFound, "member "+memberID+" in group "+groupID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	group := &models.Group{}
	var status string
	var cashOnly int
	err := row.Scan(&group.ID, &group.Code, &group.Name, &group.ContributionAmount, &group.NumCycles,
		&group.CurrentRound, &status, &cashOnly, &group.CreatorID, &group.CreatedAt)
	if err != nil {
		return nil, err
	}
	group.Status = models.GroupStatus(status)
	group.CashOnly = cashOnly == 1
	return group, nil
}

func scanMembership(row rowScanner) (*models.Membership, error) {
	m := &models.Membership{}
	var isAdmin, isActive int
	if err := row.Scan(&m.GroupID, &m.MemberID, &m.RotationPosition, &isAdmin, &isActive, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.IsAdmin = isAdmin == 1
	m.IsActive = isActive == 1
	return m, nil
}

// expectOneRow turns a zero-row update into a typed error.
func expectOneRow(res sql.Result, errNone error, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", errNone, what)
	}
	return nil
}

// generateCode creates an 8-character join code.
func generateCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

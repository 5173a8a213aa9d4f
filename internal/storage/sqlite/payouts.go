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

const payoutColumns = `id, group_id, round_number, recipient_id, amount, status, transaction_id,
	failure_kind, failure_reason, attempts, approved_by, paid_at, created_at, updated_at`

// CreatePayout inserts a payout row. A second payout for the same
// (group, round) is rejected with storage.ErrConflict.
func (s *SQLiteStore) CreatePayout(ctx context.Context, payout *models.Payout) error {
	if payout.ID == "" {
		payout.ID = uuid.New().String()
	}
	now := nowUnix()
	if payout.CreatedAt == 0 {
		payout.CreatedAt = now
	}
	payout.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payouts (`+payoutColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payout.ID, payout.GroupID, payout.Round, payout.RecipientID, payout.Amount, string(payout.Status),
		payout.TransactionID, string(payout.FailureKind), payout.FailureReason, payout.Attempts,
		payout.ApprovedBy, payout.PaidAt, payout.CreatedAt, payout.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: payout exists for group %s round %d", storage.ErrConflict, payout.GroupID, payout.Round)
	}
	if err != nil {
		return fmt.Errorf("failed to create payout: %w", err)
	}
	return nil
}

// GetPayout retrieves a payout by ID.
func (s *SQLiteStore) GetPayout(ctx context.Context, payoutID string) (*models.Payout, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE id = ?`, payoutID)
	payout, err := scanPayout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: payout %s", storage.ErrNotFound, payoutID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	return payout, nil
}

// GetPayoutByRound retrieves the payout for (group, round).
func (s *SQLiteStore) GetPayoutByRound(ctx context.Context, groupID string, round int) (*models.Payout, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE group_id = ? AND round_number = ?`,
		groupID, round,
	)
	payout, err := scanPayout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: payout for group %s round %d", storage.ErrNotFound, groupID, round)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payout by round: %w", err)
	}
	return payout, nil
}

// UpdatePayout writes the mutable payout fields if the stored row still has
// prevStatus. It refuses to write the paid status.
func (s *SQLiteStore) UpdatePayout(ctx context.Context, payout *models.Payout, prevStatus models.PayoutStatus) error {
	if payout.Status == models.PayoutPaid || prevStatus == models.PayoutPaid {
		return fmt.Errorf("%w: payout %s is paid", storage.ErrStale, payout.ID)
	}
	payout.UpdatedAt = nowUnix()

	res, err := s.db.ExecContext(ctx, `
		UPDATE payouts
		SET status = ?, transaction_id = ?, failure_kind = ?, failure_reason = ?, attempts = ?,
		    approved_by = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(payout.Status), payout.TransactionID, string(payout.FailureKind), payout.FailureReason,
		payout.Attempts, payout.ApprovedBy, payout.UpdatedAt,
		payout.ID, string(prevStatus),
	)
	if err != nil {
		return fmt.Errorf("failed to update payout: %w", err)
	}
	return expectOneRow(res, storage.ErrStale, "payout "+payout.ID)
}

// MarkPayoutPaid records a successful credit and advances the group round in
// one transaction.
func (s *SQLiteStore) MarkPayoutPaid(ctx context.Context, payout *models.Payout) (*models.Group, error) {
	now := nowUnix()
	if payout.PaidAt == 0 {
		payout.PaidAt = now
	}
	payout.UpdatedAt = now

	var group *models.Group
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE payouts
			SET status = ?, transaction_id = ?, failure_kind = '', failure_reason = '', attempts = ?,
			    approved_by = ?, paid_at = ?, updated_at = ?
			WHERE id = ? AND status <> ?`,
			string(models.PayoutPaid), payout.TransactionID, payout.Attempts, payout.ApprovedBy,
			payout.PaidAt, payout.UpdatedAt, payout.ID, string(models.PayoutPaid),
		)
		if err != nil {
			return fmt.Errorf("failed to mark payout paid: %w", err)
		}
		if err := expectOneRow(res, storage.ErrStale, "payout "+payout.ID); err != nil {
			return err
		}

		// The round only moves if the group is still on the payout's round.
		res, err = tx.ExecContext(ctx,
			`UPDATE groups SET current_round = current_round + 1 WHERE id = ? AND current_round = ?`,
			payout.GroupID, payout.Round,
		)
		if err != nil {
			return fmt.Errorf("failed to advance round: %w", err)
		}
		if err := expectOneRow(res, storage.ErrStale, fmt.Sprintf("group %s not on round %d", payout.GroupID, payout.Round)); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE groups SET status = ? WHERE id = ? AND current_round > num_cycles AND status = ?`,
			string(models.GroupCompleted), payout.GroupID, string(models.GroupActive),
		)
		if err != nil {
			return fmt.Errorf("failed to complete group: %w", err)
		}

		group, err = scanGroup(tx.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = ?`, payout.GroupID))
		if err != nil {
			return fmt.Errorf("failed to reload group: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	payout.Status = models.PayoutPaid
	payout.FailureKind = models.FailureNone
	payout.FailureReason = ""
	return group, nil
}

// ListFailedPayouts returns failed payouts of kind that have attempts left.
func (s *SQLiteStore) ListFailedPayouts(ctx context.Context, kind models.FailureKind, maxAttempts int) ([]*models.Payout, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+payoutColumns+` FROM payouts
		WHERE status = ? AND failure_kind = ? AND attempts < ?
		ORDER BY updated_at, created_at`,
		string(models.PayoutFailed), string(kind), maxAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed payouts: %w", err)
	}
	defer rows.Close()

	var payouts []*models.Payout
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		payouts = append(payouts, payout)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payouts: %w", err)
	}
	return payouts, nil
}

func scanPayout(row rowScanner) (*models.Payout, error) {
	p := &models.Payout{}
	var status, kind string
	err := row.Scan(&p.ID, &p.GroupID, &p.Round, &p.RecipientID, &p.Amount, &status, &p.TransactionID,
		&kind, &p.FailureReason, &p.Attempts, &p.ApprovedBy, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = models.PayoutStatus(status)
	p.FailureKind = models.FailureKind(kind)
	return p, nil
}

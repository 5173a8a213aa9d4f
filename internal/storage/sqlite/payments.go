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

const paymentColumns = `id, member_id, group_id, round_number, amount, status, channel, retry_count,
	transaction_id, failure_reason, settled_by, next_retry_at, paid_at, created_at, updated_at`

// CreatePayment inserts a payment row. A second pending or success row for
// the same (member, group, round) is rejected with storage.ErrConflict.
func (s *SQLiteStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	now := nowUnix()
	if payment.CreatedAt == 0 {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.MemberID, payment.GroupID, payment.Round, payment.Amount,
		string(payment.Status), string(payment.Channel), payment.RetryCount,
		payment.TransactionID, payment.FailureReason, payment.SettledBy,
		payment.NextRetryAt, payment.PaidAt, payment.CreatedAt, payment.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: open payment exists for member %s round %d", storage.ErrConflict, payment.MemberID, payment.Round)
	}
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetPayment retrieves a payment by ID.
func (s *SQLiteStore) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, paymentID)
	payment, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: payment %s", storage.ErrNotFound, paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// FindPayment returns the newest payment for (member, group, round) in one of statuses.
func (s *SQLiteStore) FindPayment(ctx context.Context, memberID, groupID string, round int, statuses ...models.PaymentStatus) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE member_id = ? AND group_id = ? AND round_number = ?`
	args := []any{memberID, groupID, round}
	if len(statuses) > 0 {
		query += ` AND status IN (` + placeholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT 1`

	payment, err := scanPayment(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: payment for member %s round %d", storage.ErrNotFound, memberID, round)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return payment, nil
}

// UpdatePayment writes the mutable payment fields if the stored row still
// has prevStatus and prevRetries.
func (s *SQLiteStore) UpdatePayment(ctx context.Context, payment *models.Payment, prevStatus models.PaymentStatus, prevRetries int) error {
	payment.UpdatedAt = nowUnix()

	res, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET status = ?, channel = ?, retry_count = ?, transaction_id = ?, failure_reason = ?,
		    settled_by = ?, next_retry_at = ?, paid_at = ?, updated_at = ?
		WHERE id = ? AND status = ? AND retry_count = ?`,
		string(payment.Status), string(payment.Channel), payment.RetryCount, payment.TransactionID,
		payment.FailureReason, payment.SettledBy, payment.NextRetryAt, payment.PaidAt, payment.UpdatedAt,
		payment.ID, string(prevStatus), prevRetries,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: payment %s", storage.ErrConflict, payment.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return expectOneRow(res, storage.ErrStale, "payment "+payment.ID)
}

// CountSuccessfulPayments counts success payments for (group, round).
func (s *SQLiteStore) CountSuccessfulPayments(ctx context.Context, groupID string, round int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE group_id = ? AND round_number = ? AND status = ?`,
		groupID, round, string(models.PaymentSuccess),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return count, nil
}

// ListRetryablePayments returns failed payments that still have retries left
// and whose backoff has elapsed.
func (s *SQLiteStore) ListRetryablePayments(ctx context.Context, maxRetries int, now int64) ([]*models.Payment, error) {
	return s.queryPayments(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE status = ? AND retry_count < ? AND next_retry_at <= ?
		ORDER BY next_retry_at, created_at`,
		string(models.PaymentFailed), maxRetries, now,
	)
}

// ListPaymentsByMember returns a member's payments, newest first.
func (s *SQLiteStore) ListPaymentsByMember(ctx context.Context, memberID string) ([]*models.Payment, error) {
	return s.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE member_id = ? ORDER BY created_at DESC, rowid DESC`,
		memberID,
	)
}

// ListPaymentsByRound returns every payment of a group's round, oldest first.
func (s *SQLiteStore) ListPaymentsByRound(ctx context.Context, groupID string, round int) ([]*models.Payment, error) {
	return s.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE group_id = ? AND round_number = ? ORDER BY created_at, rowid`,
		groupID, round,
	)
}

func (s *SQLiteStore) queryPayments(ctx context.Context, query string, args ...any) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	p := &models.Payment{}
	var status, channel string
	err := row.Scan(&p.ID, &p.MemberID, &p.GroupID, &p.Round, &p.Amount, &status, &channel, &p.RetryCount,
		&p.TransactionID, &p.FailureReason, &p.SettledBy, &p.NextRetryAt, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatus(status)
	p.Channel = models.PaymentChannel(channel)
	return p, nil
}

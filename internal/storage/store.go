// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/sususave/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint,
	// e.g. a second payout for the same (group, round).
	ErrConflict = errors.New("conflict")

	// ErrStale is returned by compare-and-set updates when the row changed
	// since it was read.
	ErrStale = errors.New("stale row")
)

// GroupStore persists groups and memberships.
type GroupStore interface {
	// CreateGroup persists a new group and seats the creator at rotation
	// position 1 as an admin, in one transaction.
	// The group.ID, Code, CreatedAt fields are populated by the store when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by ID. Returns ErrNotFound if missing.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// GetGroupByCode retrieves a group by its join code.
	GetGroupByCode(ctx context.Context, code string) (*models.Group, error)

	// ListGroupsByStatus returns every group in the given status.
	ListGroupsByStatus(ctx context.Context, status models.GroupStatus) ([]*models.Group, error)

	// SetGroupStatus changes a group's lifecycle status.
	SetGroupStatus(ctx context.Context, groupID string, status models.GroupStatus) error

	// AddMembership seats a member at the next rotation position
	// (membership count + 1). Returns ErrConflict if already seated.
	AddMembership(ctx context.Context, groupID, memberID string) (*models.Membership, error)

	// GetMembership returns the membership of memberID in groupID, active or not.
	GetMembership(ctx context.Context, groupID, memberID string) (*models.Membership, error)

	// ListActiveMemberships returns the active memberships ordered by rotation position.
	ListActiveMemberships(ctx context.Context, groupID string) ([]*models.Membership, error)

	// CountActiveMemberships counts active memberships of a group.
	CountActiveMemberships(ctx context.Context, groupID string) (int, error)

	// DeactivateMembership marks a membership inactive. Positions are not renumbered.
	DeactivateMembership(ctx context.Context, groupID, memberID string) error
}

// MemberStore persists members.
type MemberStore interface {
	CreateMember(ctx context.Context, member *models.Member) error
	GetMember(ctx context.Context, memberID string) (*models.Member, error)
	GetMembersByIDs(ctx context.Context, ids []string) (map[string]*models.Member, error)
	SetKYCVerified(ctx context.Context, memberID string, verified bool) error
}

// PaymentLedger is the authoritative record of contribution attempts.
//
// Implementations must reject a second pending or success row for the same
// (member, group, round) with ErrConflict.
type PaymentLedger interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)

	// FindPayment returns the newest payment for (member, group, round) whose
	// status is one of statuses. Returns ErrNotFound if none matches.
	FindPayment(ctx context.Context, memberID, groupID string, round int, statuses ...models.PaymentStatus) (*models.Payment, error)

	// UpdatePayment writes payment if the stored row still has prevStatus and
	// prevRetries. Returns ErrStale otherwise.
	UpdatePayment(ctx context.Context, payment *models.Payment, prevStatus models.PaymentStatus, prevRetries int) error

	// CountSuccessfulPayments counts success payments for (group, round).
	CountSuccessfulPayments(ctx context.Context, groupID string, round int) (int, error)

	// ListRetryablePayments returns failed payments with retry_count < maxRetries
	// whose next_retry_at is at or before now.
	ListRetryablePayments(ctx context.Context, maxRetries int, now int64) ([]*models.Payment, error)

	ListPaymentsByMember(ctx context.Context, memberID string) ([]*models.Payment, error)
	ListPaymentsByRound(ctx context.Context, groupID string, round int) ([]*models.Payment, error)
}

// PayoutLedger is the authoritative record of distributions.
//
// Implementations must reject a second payout for the same (group, round)
// with ErrConflict.
type PayoutLedger interface {
	CreatePayout(ctx context.Context, payout *models.Payout) error
	GetPayout(ctx context.Context, payoutID string) (*models.Payout, error)
	GetPayoutByRound(ctx context.Context, groupID string, round int) (*models.Payout, error)

	// UpdatePayout writes payout if the stored row still has prevStatus.
	// Paid payouts can only be written through MarkPayoutPaid.
	UpdatePayout(ctx context.Context, payout *models.Payout, prevStatus models.PayoutStatus) error

	// MarkPayoutPaid sets the payout to paid and advances the group's round by
	// exactly one in a single transaction. When the new round exceeds the
	// group's cycle count the group is marked completed.
	// Returns ErrStale if the payout was already paid.
	MarkPayoutPaid(ctx context.Context, payout *models.Payout) (*models.Group, error)

	// ListFailedPayouts returns failed payouts of kind with attempts < maxAttempts.
	ListFailedPayouts(ctx context.Context, kind models.FailureKind, maxAttempts int) ([]*models.Payout, error)
}

// AuditLog is the append-only audit trail.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
	ListAudit(ctx context.Context, entityType, entityID string, limit int) ([]*models.AuditEntry, error)
}

// Inbox persists in-app notifications.
type Inbox interface {
	CreateNotifications(ctx context.Context, notifications []*models.Notification) error
	ListNotifications(ctx context.Context, memberID string, unreadOnly bool) ([]*models.Notification, error)
	MarkNotificationsRead(ctx context.Context, memberID string) (int, error)
}

// Store combines every storage concern.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the engine or the service layer.
type Store interface {
	GroupStore
	MemberStore
	PaymentLedger
	PayoutLedger
	AuditLog
	Inbox

	// Close releases any resources held by the store.
	Close() error
}

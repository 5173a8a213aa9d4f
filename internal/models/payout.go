package models

import "github.com/shopspring/decimal"

// PayoutStatus is the lifecycle state of a distribution.
type PayoutStatus string

const (
	PayoutPending  PayoutStatus = "pending"
	PayoutApproved PayoutStatus = "approved"
	PayoutPaid     PayoutStatus = "paid"
	PayoutFailed   PayoutStatus = "failed"
)

// FailureKind classifies why a payout failed, which decides whether the
// payout sweep may retry it automatically.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureGateway    FailureKind = "gateway"
	FailureCompliance FailureKind = "compliance"
)

// Payout is the single distribution for (group, round).
type Payout struct {
	// ID is the unique identifier for the payout (UUID format).
	ID string

	// GroupID is the group paying out.
	GroupID string

	// Round is the round being paid out.
	Round int

	// RecipientID is the member at the round's rotation position.
	RecipientID string

	// Amount is success-payment count times contribution, fixed at creation.
	Amount decimal.Decimal

	// Status moves pending -> approved -> paid, or to failed.
	Status PayoutStatus

	// TransactionID is the gateway credit reference once paid.
	TransactionID string

	// FailureKind is set when Status is failed.
	FailureKind FailureKind

	// FailureReason holds the last failure message.
	FailureReason string

	// Attempts counts failed execution attempts.
	Attempts int

	// ApprovedBy is the admin who approved the payout; empty for the scheduler.
	ApprovedBy string

	// PaidAt is the Unix timestamp when the credit succeeded.
	PaidAt int64

	// CreatedAt is the Unix timestamp when the payout was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last transition.
	UpdatedAt int64
}

package models

import "github.com/shopspring/decimal"

// PaymentStatus is the lifecycle state of a contribution.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// PaymentChannel records how a contribution was actually settled.
type PaymentChannel string

const (
	ChannelElectronic PaymentChannel = "electronic"
	ChannelCash       PaymentChannel = "cash"
)

// Payment is one contribution attempt for (member, group, round).
//
// Retries mutate the same row; they never create a new one.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string

	// MemberID is the contributing member.
	MemberID string

	// GroupID is the group receiving the contribution.
	GroupID string

	// Round is the round this contribution counts toward.
	Round int

	// Amount is the group's contribution amount at the time the row was created.
	Amount decimal.Decimal

	// Status is pending until the first gateway response, then success or failed.
	Status PaymentStatus

	// Channel is electronic for gateway debits and cash for admin settlement.
	Channel PaymentChannel

	// RetryCount counts failed debit attempts, capped at the retry policy maximum.
	RetryCount int

	// TransactionID is the gateway transaction reference (or a synthetic CASH- id).
	TransactionID string

	// FailureReason holds the last gateway failure message.
	FailureReason string

	// SettledBy is the admin who settled the payment out of band.
	SettledBy string

	// NextRetryAt is the earliest Unix time the retry sweep may pick this row up.
	NextRetryAt int64

	// PaidAt is the Unix timestamp of the successful settlement.
	PaidAt int64

	// CreatedAt is the Unix timestamp when the row was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last transition.
	UpdatedAt int64
}

// IsTerminal reports whether no further automatic transitions are possible.
func (p *Payment) IsTerminal(maxRetries int) bool {
	switch p.Status {
	case PaymentSuccess:
		return true
	case PaymentFailed:
		return p.RetryCount >= maxRetries
	}
	return false
}

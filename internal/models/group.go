package models

import "github.com/shopspring/decimal"

// GroupStatus is the lifecycle state of a group.
type GroupStatus string

const (
	GroupActive    GroupStatus = "active"
	GroupCompleted GroupStatus = "completed"
	GroupSuspended GroupStatus = "suspended"
)

// Valid reports whether s is a known group status.
func (s GroupStatus) Valid() bool {
	switch s {
	case GroupActive, GroupCompleted, GroupSuspended:
		return true
	}
	return false
}

// Group represents a rotating-savings group (ROSCA).
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Code is the short join code shared with prospective members.
	Code string

	// Name is the display name of the group (e.g., "Market Women Susu").
	Name string

	// ContributionAmount is what every active member pays each round.
	ContributionAmount decimal.Decimal

	// NumCycles is the total number of rounds the group runs for.
	NumCycles int

	// CurrentRound starts at 1 and advances by one when a payout is paid.
	CurrentRound int

	// Status controls whether the engine processes the group at all.
	Status GroupStatus

	// CashOnly disables electronic debits. Payments are settled by an admin.
	CashOnly bool

	// CreatorID is the member who created the group. The creator is always an admin.
	CreatorID string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// IsActive reports whether the group is open for payments and payouts.
func (g *Group) IsActive() bool {
	return g.Status == GroupActive
}

// Membership is a member's seat in a group.
type Membership struct {
	// GroupID is the group this membership belongs to.
	GroupID string

	// MemberID is the member holding the seat.
	MemberID string

	// RotationPosition is the round in which this member receives the payout.
	// Unique per group, assigned at join time, never renumbered.
	RotationPosition int

	// IsAdmin allows approving payouts and settling cash payments.
	IsAdmin bool

	// IsActive is false once the member has been removed from the group.
	// Inactive members are not counted toward round completion.
	IsActive bool

	// JoinedAt is the Unix timestamp when the member joined.
	JoinedAt int64
}

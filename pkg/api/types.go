package api

import "github.com/shopspring/decimal"

// Group is a savings group.
type Group struct {
	ID                 string          `json:"id"`
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	ContributionAmount decimal.Decimal `json:"contributionAmount"`
	NumCycles          int             `json:"numCycles"`
	CurrentRound       int             `json:"currentRound"`
	Status             string          `json:"status"`
	CashOnly           bool            `json:"cashOnly"`
	CreatorID          string          `json:"creatorId"`
	CreatedAt          int64           `json:"createdAt"`
}

// Membership is a member's seat in a group.
type Membership struct {
	GroupID          string `json:"groupId"`
	MemberID         string `json:"memberId"`
	Name             string `json:"name,omitempty"`
	RotationPosition int    `json:"rotationPosition"`
	IsAdmin          bool   `json:"isAdmin"`
	IsActive         bool   `json:"isActive"`
	JoinedAt         int64  `json:"joinedAt"`
}

// Payment is one contribution attempt.
type Payment struct {
	ID            string          `json:"id"`
	MemberID      string          `json:"memberId"`
	GroupID       string          `json:"groupId"`
	Round         int             `json:"round"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Channel       string          `json:"channel"`
	RetryCount    int             `json:"retryCount"`
	TransactionID string          `json:"transactionId,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	SettledBy     string          `json:"settledBy,omitempty"`
	NextRetryAt   int64           `json:"nextRetryAt,omitempty"`
	PaidAt        int64           `json:"paidAt,omitempty"`
	CreatedAt     int64           `json:"createdAt"`
}

// Payout is the distribution of one round.
type Payout struct {
	ID            string          `json:"id"`
	GroupID       string          `json:"groupId"`
	Round         int             `json:"round"`
	RecipientID   string          `json:"recipientId"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transactionId,omitempty"`
	FailureKind   string          `json:"failureKind,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	Attempts      int             `json:"attempts"`
	ApprovedBy    string          `json:"approvedBy,omitempty"`
	PaidAt        int64           `json:"paidAt,omitempty"`
	CreatedAt     int64           `json:"createdAt"`
}

// RoundStatus reports contribution progress of a group's current round.
type RoundStatus struct {
	GroupID     string `json:"groupId"`
	Round       int    `json:"round"`
	Paid        int    `json:"paid"`
	Active      int    `json:"active"`
	Complete    bool   `json:"complete"`
	RecipientID string `json:"recipientId,omitempty"`
}

// Notification is an in-app message.
type Notification struct {
	ID        string `json:"id"`
	GroupID   string `json:"groupId"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt int64  `json:"createdAt"`
}

// AuditEntry is one recorded state transition.
type AuditEntry struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Action     string         `json:"action"`
	OldValue   map[string]any `json:"oldValue,omitempty"`
	NewValue   map[string]any `json:"newValue,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Details    string         `json:"details,omitempty"`
	CreatedAt  int64          `json:"createdAt"`
}

package api

import "github.com/shopspring/decimal"

// GroupService messages.

type CreateGroupRequest struct {
	Name               string          `json:"name"`
	ContributionAmount decimal.Decimal `json:"contributionAmount"`
	NumCycles          int             `json:"numCycles"`
	CashOnly           bool            `json:"cashOnly"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupResponse struct {
	Group   *Group        `json:"group"`
	Members []*Membership `json:"members"`
}

type JoinGroupRequest struct {
	Code string `json:"code"`
}

type JoinGroupResponse struct {
	Membership *Membership `json:"membership"`
}

type DeactivateMemberRequest struct {
	GroupID  string `json:"groupId"`
	MemberID string `json:"memberId"`
}

type DeactivateMemberResponse struct{}

type SetGroupStatusRequest struct {
	GroupID string `json:"groupId"`
	Status  string `json:"status"`
}

type SetGroupStatusResponse struct {
	Group *Group `json:"group"`
}

type GetRoundStatusRequest struct {
	GroupID string `json:"groupId"`
}

type GetRoundStatusResponse struct {
	Status *RoundStatus `json:"status"`
}

type ListAuditEntriesRequest struct {
	GroupID    string `json:"groupId"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Limit      int    `json:"limit"`
}

type ListAuditEntriesResponse struct {
	Entries []*AuditEntry `json:"entries"`
}

// PaymentService messages.

type InitiatePaymentRequest struct {
	GroupID string `json:"groupId"`
	// Round defaults to the group's current round.
	Round int `json:"round"`
}

type InitiatePaymentResponse struct {
	Payment *Payment `json:"payment"`
}

type RetryPaymentRequest struct {
	PaymentID string `json:"paymentId"`
}

type RetryPaymentResponse struct {
	Payment *Payment `json:"payment"`
}

type MarkCashPaidRequest struct {
	PaymentID string `json:"paymentId"`
}

type MarkCashPaidResponse struct {
	Payment *Payment `json:"payment"`
}

type GetDuePaymentRequest struct {
	GroupID string `json:"groupId"`
}

type GetDuePaymentResponse struct {
	// Payment is nil when the current round is already paid.
	Payment *Payment `json:"payment,omitempty"`
}

type ListPaymentsRequest struct{}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}

// PayoutService messages.

type GetCurrentPayoutRequest struct {
	GroupID string `json:"groupId"`
}

type GetCurrentPayoutResponse struct {
	Payout *Payout `json:"payout"`
}

type TriggerPayoutRequest struct {
	GroupID string `json:"groupId"`
}

type TriggerPayoutResponse struct {
	// Payout is nil while the round is incomplete or its rotation slot is empty.
	Payout *Payout `json:"payout,omitempty"`
}

type ApprovePayoutRequest struct {
	PayoutID string `json:"payoutId"`
}

type ApprovePayoutResponse struct {
	Payout *Payout `json:"payout"`
}

type ExecutePayoutRequest struct {
	PayoutID string `json:"payoutId"`
}

type ExecutePayoutResponse struct {
	Payout *Payout `json:"payout"`
}

// NotificationService messages.

type ListNotificationsRequest struct {
	UnreadOnly bool `json:"unreadOnly"`
}

type ListNotificationsResponse struct {
	Notifications []*Notification `json:"notifications"`
}

type MarkNotificationsReadRequest struct{}

type MarkNotificationsReadResponse struct {
	Updated int `json:"updated"`
}

package models

// AuditEntry is an append-only record of a state transition.
type AuditEntry struct {
	ID         string
	EntityType string // "payment", "payout", "group", "membership"
	EntityID   string
	Action     string
	OldValue   map[string]any
	NewValue   map[string]any
	Actor      string // empty for the scheduler
	Details    string
	CreatedAt  int64
}

// Notification is an in-app message shown to a member.
type Notification struct {
	ID        string
	MemberID  string
	GroupID   string
	Type      string // e.g. "payment_made"
	Message   string
	Read      bool
	CreatedAt int64
}

// Package audit records state transitions of payments, payouts and groups.
package audit

import (
	"context"
	"log/slog"

	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/internal/storage"
)

// Entity types.
const (
	EntityPayment    = "payment"
	EntityPayout     = "payout"
	EntityGroup      = "group"
	EntityMembership = "membership"
)

// Actions written by the engine.
const (
	ActionSuccess        = "success"
	ActionFailed         = "failed"
	ActionRetrySuccess   = "retry_success"
	ActionRetryFailed    = "retry_failed"
	ActionMarkedCashPaid = "marked_cash_paid"
	ActionCreate         = "create"
	ActionApprove        = "approve"
	ActionExecute        = "execute"
	ActionExecuteFailed  = "execute_failed"
	ActionJoin           = "join"
	ActionDeactivate     = "deactivate"
	ActionStatus         = "status"
)

// Recorder appends to the audit trail.
type Recorder interface {
	Record(ctx context.Context, entry *models.AuditEntry)
}

// StoreRecorder writes entries to a storage.AuditLog. A failed write is
// logged; the transition it describes has already been persisted.
type StoreRecorder struct {
	log storage.AuditLog
}

// NewStoreRecorder creates a recorder backed by log.
func NewStoreRecorder(log storage.AuditLog) *StoreRecorder {
	return &StoreRecorder{log: log}
}

// Record implements Recorder.
func (r *StoreRecorder) Record(ctx context.Context, entry *models.AuditEntry) {
	if err := r.log.AppendAudit(ctx, entry); err != nil {
		slog.Error("failed to write audit entry",
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"action", entry.Action,
			"error", err,
		)
	}
}

// Noop discards entries.
type Noop struct{}

// Record implements Recorder.
func (Noop) Record(context.Context, *models.AuditEntry) {}

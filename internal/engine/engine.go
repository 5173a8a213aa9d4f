// Package engine runs the contribution and payout lifecycles of a savings
// group: debiting members, detecting complete rounds, crediting the round's
// recipient and advancing the round.
//
// Exactly-once guarantees rest on the storage constraints (one open payment
// per member and round, one payout per round). Within a process the
// orchestrators additionally serialize work per member and per group so
// competing callers observe each other's results instead of racing into a
// constraint error.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/sususave/internal/audit"
	"github.com/mmynk/sususave/internal/gateway"
	"github.com/mmynk/sususave/internal/kyc"
	"github.com/mmynk/sususave/internal/metrics"
	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/internal/notifier"
	"github.com/mmynk/sususave/internal/storage"
)

// SystemActor identifies scheduler-driven transitions in the audit trail.
const SystemActor = ""

// DefaultMaxRetries caps payment retries and automatic payout attempts.
// A payment's retry counter never exceeds it.
const DefaultMaxRetries = 3

// Deps are the collaborators shared by both orchestrators.
type Deps struct {
	Store    storage.Store
	Gateway  gateway.Gateway
	Notifier notifier.Sink
	Feed     *notifier.Feed
	Audit    audit.Recorder
	KYC      kyc.Gate
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// Options tune retry behavior.
type Options struct {
	// MaxPaymentRetries is the retry counter ceiling of a payment.
	MaxPaymentRetries int
	// RetryBackoff is multiplied by the retry counter to schedule the next retry.
	RetryBackoff time.Duration
	// MaxPayoutAttempts bounds automatic re-execution of gateway-failed payouts.
	MaxPayoutAttempts int
}

func (o Options) withDefaults() Options {
	if o.MaxPaymentRetries <= 0 || o.MaxPaymentRetries > DefaultMaxRetries {
		o.MaxPaymentRetries = DefaultMaxRetries
	}
	if o.MaxPayoutAttempts <= 0 {
		o.MaxPayoutAttempts = DefaultMaxRetries
	}
	if o.RetryBackoff < 0 {
		o.RetryBackoff = 0
	}
	return o
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = notifier.LogSink{}
	}
	if d.Audit == nil {
		d.Audit = audit.Noop{}
	}
	if d.KYC == nil {
		d.KYC = kyc.NewStoreGate(d.Store, false)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// notify sends a message without letting delivery affect the caller.
func (d Deps) notify(ctx context.Context, phone, message string) {
	if err := d.Notifier.Notify(ctx, phone, message); err != nil {
		slog.Warn("notification failed", "to", phone, "error", err)
	}
}

// transfer calls move and, when the outcome is unknown and the gateway can
// be asked, checks whether the reference was applied anyway.
func (d Deps) transfer(ctx context.Context, reference string, move func(context.Context) (string, error)) (string, error) {
	txID, err := move(ctx)
	if err == nil || !gateway.IsTransient(err) {
		return txID, err
	}

	rec, ok := d.Gateway.(gateway.Reconciler)
	if !ok {
		return "", err
	}
	reconciled, applied, lookupErr := rec.Lookup(ctx, reference)
	if lookupErr != nil {
		slog.Warn("reconciliation lookup failed", "reference", reference, "error", lookupErr)
		return "", err
	}
	if !applied {
		return "", err
	}
	slog.Warn("gateway response lost but transfer was applied", "reference", reference, "transaction_id", reconciled)
	return reconciled, nil
}

// requireAdmin checks that actor is an active admin of group.
func (d Deps) requireAdmin(ctx context.Context, op, groupID, actor string) error {
	m, err := d.Store.GetMembership(ctx, groupID, actor)
	if err != nil {
		if isNotFound(err) {
			return newError(Permission, op, ErrNotAdmin)
		}
		return storeError(op, err)
	}
	if !m.IsActive || !m.IsAdmin {
		return newError(Permission, op, ErrNotAdmin)
	}
	return nil
}

func (d Deps) record(ctx context.Context, entityType, entityID, action, actor, details string, oldValue, newValue map[string]any) {
	d.Audit.Record(ctx, &models.AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		OldValue:   oldValue,
		NewValue:   newValue,
		Actor:      actor,
		Details:    details,
	})
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/sususave/internal/audit"
	"github.com/mmynk/sususave/internal/gateway"
	"github.com/mmynk/sususave/internal/metrics"
	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/internal/notifier"
	"github.com/mmynk/sususave/internal/rotation"
	"github.com/mmynk/sususave/internal/storage"
)

// PayoutOrchestrator detects complete rounds and pays the round's recipient.
type PayoutOrchestrator struct {
	deps  Deps
	opts  Options
	locks *keyedMutex
}

// NewPayoutOrchestrator creates a PayoutOrchestrator. Share one instance
// between every caller in a process.
func NewPayoutOrchestrator(deps Deps, opts Options) *PayoutOrchestrator {
	return &PayoutOrchestrator{
		deps:  deps.withDefaults(),
		opts:  opts.withDefaults(),
		locks: newKeyedMutex(),
	}
}

// MaxAttempts returns the ceiling for automatic re-execution.
func (o *PayoutOrchestrator) MaxAttempts() int {
	return o.opts.MaxPayoutAttempts
}

// RoundStatus summarizes contribution progress for a round.
type RoundStatus struct {
	GroupID   string
	Round     int
	Paid      int
	Active    int
	Complete  bool
	Recipient *models.Membership // nil when the rotation slot is empty
}

// IsRoundComplete reports whether every active member has a successful
// payment for round. It is a point-in-time read.
func (o *PayoutOrchestrator) IsRoundComplete(ctx context.Context, groupID string, round int) (bool, error) {
	const op = "check round"

	paid, err := o.deps.Store.CountSuccessfulPayments(ctx, groupID, round)
	if err != nil {
		return false, storeError(op, err)
	}
	active, err := o.deps.Store.CountActiveMemberships(ctx, groupID)
	if err != nil {
		return false, storeError(op, err)
	}
	return rotation.RoundComplete(paid, active), nil
}

// RoundStatus reports progress of the group's current round.
func (o *PayoutOrchestrator) RoundStatus(ctx context.Context, groupID string) (*RoundStatus, error) {
	const op = "round status"

	group, err := o.deps.Store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(op, err)
	}
	memberships, err := o.deps.Store.ListActiveMemberships(ctx, groupID)
	if err != nil {
		return nil, storeError(op, err)
	}
	paid, err := o.deps.Store.CountSuccessfulPayments(ctx, groupID, group.CurrentRound)
	if err != nil {
		return nil, storeError(op, err)
	}

	status := &RoundStatus{
		GroupID:  groupID,
		Round:    group.CurrentRound,
		Paid:     paid,
		Active:   len(memberships),
		Complete: rotation.RoundComplete(paid, len(memberships)),
	}
	if m, ok := rotation.Resolve(memberships, group.CurrentRound); ok {
		status.Recipient = m
	}
	return status, nil
}

// EnsurePayout returns the payout of (group, round), creating it when the
// round is complete and its rotation slot is occupied. It returns nil, nil
// when no payout is due. A round of 0 means the group's current round.
func (o *PayoutOrchestrator) EnsurePayout(ctx context.Context, groupID string, round int) (*models.Payout, error) {
	const op = "ensure payout"

	unlock := o.locks.Lock(groupKey(groupID))
	defer unlock()

	group, err := o.deps.Store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if round == 0 {
		round = group.CurrentRound
	}

	existing, err := o.deps.Store.GetPayoutByRound(ctx, groupID, round)
	if err == nil {
		return existing, nil
	}
	if !isNotFound(err) {
		return nil, storeError(op, err)
	}

	if !group.IsActive() {
		return nil, newError(Validation, op, ErrGroupInactive)
	}
	if round < 1 || round > group.CurrentRound {
		return nil, newError(Validation, op, fmt.Errorf("%w: %d", ErrInvalidRound, round))
	}

	memberships, err := o.deps.Store.ListActiveMemberships(ctx, groupID)
	if err != nil {
		return nil, storeError(op, err)
	}
	paid, err := o.deps.Store.CountSuccessfulPayments(ctx, groupID, round)
	if err != nil {
		return nil, storeError(op, err)
	}
	if !rotation.RoundComplete(paid, len(memberships)) {
		return nil, nil
	}

	recipient, ok := rotation.Resolve(memberships, round)
	if !ok {
		slog.Warn("round complete but no active member holds its rotation position",
			"group_id", groupID, "round", round)
		return nil, nil
	}

	payout := &models.Payout{
		GroupID:     groupID,
		Round:       round,
		RecipientID: recipient.MemberID,
		Amount:      rotation.PayoutAmount(paid, group.ContributionAmount),
		Status:      models.PayoutPending,
	}
	err = o.deps.Store.CreatePayout(ctx, payout)
	if errors.Is(err, storage.ErrConflict) {
		existing, err = o.deps.Store.GetPayoutByRound(ctx, groupID, round)
		if err != nil {
			return nil, storeError(op, err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, storeError(op, err)
	}

	slog.Info("payout created",
		"payout_id", payout.ID,
		"group_id", groupID,
		"round", round,
		"recipient_id", payout.RecipientID,
		"amount", payout.Amount.StringFixed(2),
	)
	o.deps.record(ctx, audit.EntityPayout, payout.ID, audit.ActionCreate, SystemActor, "", nil, snapshotPayout(payout))
	return payout, nil
}

// Approve moves a pending payout to approved and executes it. An empty
// approverID is the scheduler; any other approver must be a group admin.
func (o *PayoutOrchestrator) Approve(ctx context.Context, payoutID, approverID string) (*models.Payout, error) {
	const op = "approve payout"

	payout, err := o.loadPayout(ctx, op, payoutID)
	if err != nil {
		return nil, err
	}
	defer o.locks.Lock(groupKey(payout.GroupID))()

	payout, err = o.deps.Store.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if approverID != SystemActor {
		if err := o.deps.requireAdmin(ctx, op, payout.GroupID, approverID); err != nil {
			return nil, err
		}
	}
	if payout.Status == models.PayoutPaid {
		return nil, newError(Validation, op, ErrPayoutPaid)
	}
	group, err := o.deps.Store.GetGroup(ctx, payout.GroupID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if !group.IsActive() {
		return nil, newError(Validation, op, ErrGroupInactive)
	}

	if payout.Status == models.PayoutPending {
		old := snapshotPayout(payout)
		payout.Status = models.PayoutApproved
		payout.ApprovedBy = approverID
		if err := o.deps.Store.UpdatePayout(ctx, payout, models.PayoutPending); err != nil {
			return nil, o.lostUpdate(op, err)
		}
		o.deps.record(ctx, audit.EntityPayout, payout.ID, audit.ActionApprove, approverID, "", old, snapshotPayout(payout))
		slog.Info("payout approved", "payout_id", payout.ID, "approved_by", approverID)
	}

	return o.execute(ctx, op, payout)
}

// Execute credits the recipient of a payout. It is a no-op for a paid
// payout. An empty actorID is the scheduler; any other actor must be a
// group admin, which is how a failed payout is re-triggered by hand.
func (o *PayoutOrchestrator) Execute(ctx context.Context, payoutID, actorID string) (*models.Payout, error) {
	const op = "execute payout"

	payout, err := o.loadPayout(ctx, op, payoutID)
	if err != nil {
		return nil, err
	}
	defer o.locks.Lock(groupKey(payout.GroupID))()

	payout, err = o.deps.Store.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if payout.Status == models.PayoutPaid {
		return payout, nil
	}
	if actorID != SystemActor {
		if err := o.deps.requireAdmin(ctx, op, payout.GroupID, actorID); err != nil {
			return nil, err
		}
	}
	return o.execute(ctx, op, payout)
}

// Current returns the payout of the group's current round.
func (o *PayoutOrchestrator) Current(ctx context.Context, groupID string) (*models.Payout, error) {
	const op = "current payout"

	group, err := o.deps.Store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(op, err)
	}
	payout, err := o.deps.Store.GetPayoutByRound(ctx, groupID, group.CurrentRound)
	if err != nil {
		return nil, storeError(op, err)
	}
	return payout, nil
}

// ProcessGroup runs one payout pass over a group: create the payout if the
// current round is complete, then approve and execute it. Failed payouts
// are left for RetryFailed.
func (o *PayoutOrchestrator) ProcessGroup(ctx context.Context, groupID string) (*models.Payout, error) {
	payout, err := o.EnsurePayout(ctx, groupID, 0)
	if err != nil || payout == nil {
		return nil, err
	}

	switch payout.Status {
	case models.PayoutPending:
		return o.Approve(ctx, payout.ID, SystemActor)
	case models.PayoutApproved:
		return o.Execute(ctx, payout.ID, SystemActor)
	}
	return payout, nil
}

// RetryFailed re-executes a payout that failed at the gateway and still has
// automatic attempts left. Compliance failures are never retried here.
func (o *PayoutOrchestrator) RetryFailed(ctx context.Context, payout *models.Payout) (*models.Payout, error) {
	const op = "retry payout"

	if payout.FailureKind != models.FailureGateway {
		return nil, newError(Terminal, op, fmt.Errorf("%w: failure kind %q", ErrNotRetryable, payout.FailureKind))
	}
	if payout.Attempts >= o.opts.MaxPayoutAttempts {
		return nil, newError(Terminal, op, ErrRetriesExhausted)
	}
	return o.Execute(ctx, payout.ID, SystemActor)
}

// loadPayout reads a payout to learn which group lock to take.
func (o *PayoutOrchestrator) loadPayout(ctx context.Context, op, payoutID string) (*models.Payout, error) {
	payout, err := o.deps.Store.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, storeError(op, err)
	}
	return payout, nil
}

// execute runs the compliance gate and the credit. The group lock is held.
// Once the checks pass the payout reaches a recorded outcome even if ctx
// is cancelled.
func (o *PayoutOrchestrator) execute(ctx context.Context, op string, payout *models.Payout) (*models.Payout, error) {
	group, err := o.deps.Store.GetGroup(ctx, payout.GroupID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if !group.IsActive() {
		return nil, newError(Validation, op, ErrGroupInactive)
	}
	if group.CurrentRound != payout.Round {
		return nil, newError(Validation, op, ErrRoundMoved)
	}

	ctx = context.WithoutCancel(ctx)

	prevStatus := payout.Status
	old := snapshotPayout(payout)

	verified, err := o.deps.KYC.IsVerified(ctx, payout.RecipientID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if !verified {
		payout.Status = models.PayoutFailed
		payout.FailureKind = models.FailureCompliance
		payout.FailureReason = ErrKYCRequired.Error()
		if err := o.deps.Store.UpdatePayout(ctx, payout, prevStatus); err != nil {
			return nil, o.lostUpdate(op, err)
		}
		o.deps.Metrics.Payout(metrics.OutcomeCompliance)
		o.deps.record(ctx, audit.EntityPayout, payout.ID, audit.ActionExecuteFailed, SystemActor,
			"compliance: "+ErrKYCRequired.Error(), old, snapshotPayout(payout))
		slog.Warn("payout blocked by kyc", "payout_id", payout.ID, "recipient_id", payout.RecipientID)
		return payout, newError(Compliance, op, ErrKYCRequired)
	}

	recipient, err := o.deps.Store.GetMember(ctx, payout.RecipientID)
	if err != nil {
		return nil, storeError(op, err)
	}

	reference := PayoutReference(payout.GroupID, payout.Round, payout.ID)
	payout.Attempts++
	slog.Info("crediting recipient", "payout_id", payout.ID, "recipient_id", payout.RecipientID, "attempt", payout.Attempts)

	txID, creditErr := o.deps.transfer(ctx, reference, func(ctx context.Context) (string, error) {
		return o.deps.Gateway.Credit(ctx, recipient.Phone, payout.Amount, reference)
	})
	if creditErr != nil {
		payout.Status = models.PayoutFailed
		payout.FailureKind = models.FailureGateway
		payout.FailureReason = creditErr.Error()
		if err := o.deps.Store.UpdatePayout(ctx, payout, prevStatus); err != nil {
			return nil, o.lostUpdate(op, err)
		}

		outcome := metrics.OutcomeFailed
		if gateway.IsDeclined(creditErr) {
			outcome = metrics.OutcomeDeclined
		}
		o.deps.Metrics.Payout(outcome)
		o.deps.record(ctx, audit.EntityPayout, payout.ID, audit.ActionExecuteFailed, SystemActor,
			creditErr.Error(), old, snapshotPayout(payout))
		slog.Warn("payout failed", "payout_id", payout.ID, "attempts", payout.Attempts, "error", creditErr)
		return payout, gatewayError(op, creditErr)
	}

	payout.TransactionID = txID
	payout.PaidAt = o.deps.Now().Unix()
	updated, err := o.deps.Store.MarkPayoutPaid(ctx, payout)
	if err != nil {
		return nil, o.lostUpdate(op, err)
	}

	o.deps.Metrics.Payout(metrics.OutcomeSuccess)
	o.deps.record(ctx, audit.EntityPayout, payout.ID, audit.ActionExecute, SystemActor, "", old, snapshotPayout(payout))
	o.deps.notify(ctx, recipient.Phone, notifier.PayoutReceived(payout.Amount, updated.Name, txID))
	slog.Info("payout paid",
		"payout_id", payout.ID,
		"group_id", payout.GroupID,
		"round", payout.Round,
		"transaction_id", txID,
		"next_round", updated.CurrentRound,
	)

	if updated.Status == models.GroupCompleted {
		o.deps.record(ctx, audit.EntityGroup, updated.ID, audit.ActionStatus, SystemActor, "all cycles paid",
			map[string]any{"status": string(models.GroupActive)}, map[string]any{"status": string(updated.Status)})
		slog.Info("group completed", "group_id", updated.ID, "cycles", updated.NumCycles)
	}
	return payout, nil
}

func (o *PayoutOrchestrator) lostUpdate(op string, err error) error {
	if errors.Is(err, storage.ErrStale) {
		return newError(Validation, op, fmt.Errorf("payout changed concurrently: %w", err))
	}
	return storeError(op, err)
}

func snapshotPayout(p *models.Payout) map[string]any {
	return map[string]any{
		"status":         string(p.Status),
		"round":          p.Round,
		"recipient_id":   p.RecipientID,
		"amount":         p.Amount.StringFixed(2),
		"transaction_id": p.TransactionID,
		"failure_kind":   string(p.FailureKind),
		"attempts":       p.Attempts,
	}
}

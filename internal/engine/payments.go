package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/sususave/internal/audit"
	"github.com/mmynk/sususave/internal/gateway"
	"github.com/mmynk/sususave/internal/metrics"
	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/internal/notifier"
	"github.com/mmynk/sususave/internal/storage"
)

// PaymentOrchestrator debits members for their contributions.
type PaymentOrchestrator struct {
	deps  Deps
	opts  Options
	locks *keyedMutex
}

// NewPaymentOrchestrator creates a PaymentOrchestrator. Share one instance
// between every caller in a process.
func NewPaymentOrchestrator(deps Deps, opts Options) *PaymentOrchestrator {
	return &PaymentOrchestrator{
		deps:  deps.withDefaults(),
		opts:  opts.withDefaults(),
		locks: newKeyedMutex(),
	}
}

// MaxRetries returns the retry counter ceiling.
func (o *PaymentOrchestrator) MaxRetries() int {
	return o.opts.MaxPaymentRetries
}

// Initiate debits memberID for round of groupID on behalf of actorID
// (the member itself, or SystemActor for the sweep). A round of 0 means
// the group's current round.
//
// A pending row left for the round (e.g. by OpenDue) is reused; a failed
// row is not, so a new attempt gets a fresh record.
//
// Once the pending row exists the call runs to a recorded outcome even if
// ctx is cancelled.
func (o *PaymentOrchestrator) Initiate(ctx context.Context, memberID, groupID string, round int, actorID string) (*models.Payment, error) {
	const op = "initiate payment"

	unlock := o.locks.Lock(memberKey(memberID, groupID))
	defer unlock()

	group, err := o.checkPayer(ctx, op, memberID, groupID)
	if err != nil {
		return nil, err
	}
	if group.CashOnly {
		return nil, newError(Validation, op, ErrCashOnly)
	}
	if round == 0 {
		round = group.CurrentRound
	}
	if round < 1 || round > group.CurrentRound {
		return nil, newError(Validation, op, fmt.Errorf("%w: %d", ErrInvalidRound, round))
	}

	ctx = context.WithoutCancel(ctx)
	payment, err := o.openPayment(ctx, op, group, memberID, round, models.ChannelElectronic)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentSuccess {
		return nil, newError(Validation, op, ErrAlreadyPaid)
	}

	member, err := o.deps.Store.GetMember(ctx, memberID)
	if err != nil {
		return nil, storeError(op, err)
	}

	reference := PaymentReference(group.ID, round, payment.ID, 0)
	slog.Info("debiting member", "payment_id", payment.ID, "member_id", memberID, "group_id", groupID, "round", round)

	prevRetries := payment.RetryCount
	old := snapshotPayment(payment)

	txID, debitErr := o.deps.transfer(ctx, reference, func(ctx context.Context) (string, error) {
		return o.deps.Gateway.Debit(ctx, member.Phone, payment.Amount, reference)
	})
	if debitErr != nil {
		payment.Status = models.PaymentFailed
		payment.RetryCount = min(prevRetries+1, o.opts.MaxPaymentRetries)
		payment.FailureReason = debitErr.Error()
		payment.NextRetryAt = o.nextRetryAt(payment.RetryCount)
		if err := o.deps.Store.UpdatePayment(ctx, payment, models.PaymentPending, prevRetries); err != nil {
			return nil, o.lostUpdate(op, payment.ID, err)
		}
		o.onFailed(ctx, group, member, payment, audit.ActionFailed, actorID, old, debitErr)
		return payment, gatewayError(op, debitErr)
	}

	o.markSucceeded(payment, txID)
	if err := o.deps.Store.UpdatePayment(ctx, payment, models.PaymentPending, prevRetries); err != nil {
		return nil, o.lostUpdate(op, payment.ID, err)
	}
	o.onPaid(ctx, group, member, payment, audit.ActionSuccess, actorID, old)
	return payment, nil
}

// Retry re-issues the debit of a failed payment. The same row moves to
// success or stays failed with its counter incremented.
func (o *PaymentOrchestrator) Retry(ctx context.Context, paymentID string) (*models.Payment, error) {
	const op = "retry payment"

	payment, err := o.deps.Store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, storeError(op, err)
	}

	unlock := o.locks.Lock(memberKey(payment.MemberID, payment.GroupID))
	defer unlock()

	// Re-read under the lock.
	payment, err = o.deps.Store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if payment.Status != models.PaymentFailed {
		return nil, newError(Terminal, op, fmt.Errorf("%w: status %s", ErrNotRetryable, payment.Status))
	}
	if payment.RetryCount >= o.opts.MaxPaymentRetries {
		return nil, newError(Terminal, op, ErrRetriesExhausted)
	}

	group, err := o.deps.Store.GetGroup(ctx, payment.GroupID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if !group.IsActive() {
		return nil, newError(Validation, op, ErrGroupInactive)
	}

	// Another attempt for the same round may have succeeded since.
	paid, err := o.deps.Store.FindPayment(ctx, payment.MemberID, payment.GroupID, payment.Round, models.PaymentSuccess)
	if err == nil {
		o.supersede(ctx, payment, paid)
		return nil, newError(Terminal, op, ErrAlreadyPaid)
	}
	if !isNotFound(err) {
		return nil, storeError(op, err)
	}

	member, err := o.deps.Store.GetMember(ctx, payment.MemberID)
	if err != nil {
		return nil, storeError(op, err)
	}

	// Claim the round's open slot so no other attempt can debit concurrently.
	// From here on the row must reach failed or success.
	ctx = context.WithoutCancel(ctx)
	attempt := payment.RetryCount
	old := snapshotPayment(payment)
	payment.Status = models.PaymentPending
	if err := o.deps.Store.UpdatePayment(ctx, payment, models.PaymentFailed, attempt); err != nil {
		if errors.Is(err, storage.ErrConflict) || errors.Is(err, storage.ErrStale) {
			return nil, newError(Validation, op, ErrPaymentInProgress)
		}
		return nil, storeError(op, err)
	}

	reference := PaymentReference(payment.GroupID, payment.Round, payment.ID, attempt)
	slog.Info("retrying debit", "payment_id", payment.ID, "member_id", payment.MemberID, "attempt", attempt)

	txID, debitErr := o.deps.transfer(ctx, reference, func(ctx context.Context) (string, error) {
		return o.deps.Gateway.Debit(ctx, member.Phone, payment.Amount, reference)
	})
	if debitErr != nil {
		payment.Status = models.PaymentFailed
		payment.RetryCount = min(attempt+1, o.opts.MaxPaymentRetries)
		payment.FailureReason = debitErr.Error()
		payment.NextRetryAt = o.nextRetryAt(payment.RetryCount)
		if err := o.deps.Store.UpdatePayment(ctx, payment, models.PaymentPending, attempt); err != nil {
			return nil, o.lostUpdate(op, payment.ID, err)
		}
		o.onFailed(ctx, group, member, payment, audit.ActionRetryFailed, SystemActor, old, debitErr)
		return payment, gatewayError(op, debitErr)
	}

	o.markSucceeded(payment, txID)
	if err := o.deps.Store.UpdatePayment(ctx, payment, models.PaymentPending, attempt); err != nil {
		return nil, o.lostUpdate(op, payment.ID, err)
	}
	o.onPaid(ctx, group, member, payment, audit.ActionRetrySuccess, SystemActor, old)
	return payment, nil
}

// MarkSettled records an out-of-band cash settlement by a group admin.
func (o *PaymentOrchestrator) MarkSettled(ctx context.Context, paymentID, settlerID string) (*models.Payment, error) {
	const op = "mark payment settled"

	payment, err := o.deps.Store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, storeError(op, err)
	}

	unlock := o.locks.Lock(memberKey(payment.MemberID, payment.GroupID))
	defer unlock()

	payment, err = o.deps.Store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if err := o.deps.requireAdmin(ctx, op, payment.GroupID, settlerID); err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentSuccess {
		return nil, newError(Validation, op, ErrAlreadyPaid)
	}

	group, err := o.deps.Store.GetGroup(ctx, payment.GroupID)
	if err != nil {
		return nil, storeError(op, err)
	}
	member, err := o.deps.Store.GetMember(ctx, payment.MemberID)
	if err != nil {
		return nil, storeError(op, err)
	}

	prevStatus, prevRetries := payment.Status, payment.RetryCount
	old := snapshotPayment(payment)
	now := o.deps.Now()

	payment.Status = models.PaymentSuccess
	payment.Channel = models.ChannelCash
	payment.TransactionID = CashTransactionID(now.Unix(), payment.ID)
	payment.SettledBy = settlerID
	payment.PaidAt = now.Unix()
	payment.FailureReason = ""
	payment.NextRetryAt = 0

	if err := o.deps.Store.UpdatePayment(ctx, payment, prevStatus, prevRetries); err != nil {
		switch {
		case errors.Is(err, storage.ErrConflict):
			// Another row for the round is open or paid.
			return nil, newError(Validation, op, ErrPaymentInProgress)
		case errors.Is(err, storage.ErrStale):
			return nil, newError(Validation, op, ErrPaymentInProgress)
		}
		return nil, storeError(op, err)
	}

	slog.Info("payment settled in cash", "payment_id", payment.ID, "settled_by", settlerID)
	o.onPaid(ctx, group, member, payment, audit.ActionMarkedCashPaid, settlerID, old)
	return payment, nil
}

// OpenDue returns the member's open payment for the group's current round,
// creating a pending one if none exists. It returns nil when the member has
// already paid. Cash-only groups get cash-channel rows for admins to settle.
func (o *PaymentOrchestrator) OpenDue(ctx context.Context, memberID, groupID string) (*models.Payment, error) {
	const op = "open due payment"

	unlock := o.locks.Lock(memberKey(memberID, groupID))
	defer unlock()

	group, err := o.checkPayer(ctx, op, memberID, groupID)
	if err != nil {
		return nil, err
	}

	channel := models.ChannelElectronic
	if group.CashOnly {
		channel = models.ChannelCash
	}
	payment, err := o.openPayment(ctx, op, group, memberID, group.CurrentRound, channel)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentSuccess {
		return nil, nil
	}
	return payment, nil
}

// History returns a member's payments, newest first.
func (o *PaymentOrchestrator) History(ctx context.Context, memberID string) ([]*models.Payment, error) {
	payments, err := o.deps.Store.ListPaymentsByMember(ctx, memberID)
	if err != nil {
		return nil, storeError("payment history", err)
	}
	return payments, nil
}

// checkPayer loads the group and verifies memberID can pay into it.
func (o *PaymentOrchestrator) checkPayer(ctx context.Context, op, memberID, groupID string) (*models.Group, error) {
	group, err := o.deps.Store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if !group.IsActive() {
		return nil, newError(Validation, op, ErrGroupInactive)
	}

	membership, err := o.deps.Store.GetMembership(ctx, groupID, memberID)
	if err != nil {
		if isNotFound(err) {
			return nil, newError(Validation, op, ErrNotMember)
		}
		return nil, storeError(op, err)
	}
	if !membership.IsActive {
		return nil, newError(Validation, op, ErrNotMember)
	}
	return group, nil
}

// openPayment returns the pending or success payment of the round, creating
// a pending one when neither exists.
func (o *PaymentOrchestrator) openPayment(ctx context.Context, op string, group *models.Group, memberID string, round int, channel models.PaymentChannel) (*models.Payment, error) {
	find := func() (*models.Payment, error) {
		return o.deps.Store.FindPayment(ctx, memberID, group.ID, round, models.PaymentPending, models.PaymentSuccess)
	}

	existing, err := find()
	if err == nil {
		return existing, nil
	}
	if !isNotFound(err) {
		return nil, storeError(op, err)
	}

	payment := &models.Payment{
		MemberID: memberID,
		GroupID:  group.ID,
		Round:    round,
		Amount:   group.ContributionAmount,
		Status:   models.PaymentPending,
		Channel:  channel,
	}
	err = o.deps.Store.CreatePayment(ctx, payment)
	if errors.Is(err, storage.ErrConflict) {
		// Lost a race with another process; use its row.
		existing, err = find()
		if err != nil {
			return nil, storeError(op, err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, storeError(op, err)
	}
	return payment, nil
}

// supersede exhausts a failed row whose round was paid by another row.
func (o *PaymentOrchestrator) supersede(ctx context.Context, payment, paid *models.Payment) {
	prevRetries := payment.RetryCount
	payment.RetryCount = o.opts.MaxPaymentRetries
	payment.FailureReason = "superseded by payment " + paid.ID
	payment.NextRetryAt = 0
	if err := o.deps.Store.UpdatePayment(ctx, payment, models.PaymentFailed, prevRetries); err != nil {
		slog.Warn("failed to retire superseded payment", "payment_id", payment.ID, "error", err)
	}
}

func (o *PaymentOrchestrator) markSucceeded(payment *models.Payment, txID string) {
	payment.Status = models.PaymentSuccess
	payment.TransactionID = txID
	payment.PaidAt = o.deps.Now().Unix()
	payment.FailureReason = ""
	payment.NextRetryAt = 0
}

func (o *PaymentOrchestrator) nextRetryAt(retryCount int) int64 {
	return o.deps.Now().Add(o.opts.RetryBackoff * time.Duration(retryCount)).Unix()
}

// lostUpdate handles a compare-and-set failure after the gateway answered.
func (o *PaymentOrchestrator) lostUpdate(op, paymentID string, err error) error {
	slog.Error("payment row changed during debit", "payment_id", paymentID, "error", err)
	if errors.Is(err, storage.ErrStale) || errors.Is(err, storage.ErrConflict) {
		return newError(Validation, op, fmt.Errorf("%w: %v", ErrPaymentInProgress, err))
	}
	return storeError(op, err)
}

func (o *PaymentOrchestrator) onPaid(ctx context.Context, group *models.Group, member *models.Member, payment *models.Payment, action, actor string, old map[string]any) {
	o.deps.Metrics.Payment(metrics.OutcomeSuccess)
	o.deps.record(ctx, audit.EntityPayment, payment.ID, action, actor, "", old, snapshotPayment(payment))
	o.deps.notify(ctx, member.Phone, notifier.PaymentConfirmed(payment.Amount, group.Name, payment.TransactionID))

	slog.Info("payment succeeded",
		"payment_id", payment.ID,
		"member_id", payment.MemberID,
		"group_id", payment.GroupID,
		"round", payment.Round,
		"transaction_id", payment.TransactionID,
	)

	if o.deps.Feed == nil {
		return
	}
	paid, err := o.deps.Store.CountSuccessfulPayments(ctx, group.ID, payment.Round)
	if err != nil {
		slog.Warn("failed to count payments for feed", "group_id", group.ID, "error", err)
		return
	}
	active, err := o.deps.Store.ListActiveMemberships(ctx, group.ID)
	if err != nil {
		slog.Warn("failed to list members for feed", "group_id", group.ID, "error", err)
		return
	}
	if err := o.deps.Feed.PaymentMade(ctx, group.ID, payment.MemberID, active, paid, payment.Round); err != nil {
		slog.Warn("failed to publish payment to feed", "group_id", group.ID, "error", err)
	}
}

func (o *PaymentOrchestrator) onFailed(ctx context.Context, group *models.Group, member *models.Member, payment *models.Payment, action, actor string, old map[string]any, cause error) {
	outcome := metrics.OutcomeFailed
	if gateway.IsDeclined(cause) {
		outcome = metrics.OutcomeDeclined
	}
	o.deps.Metrics.Payment(outcome)
	o.deps.record(ctx, audit.EntityPayment, payment.ID, action, actor, cause.Error(), old, snapshotPayment(payment))
	o.deps.notify(ctx, member.Phone,
		notifier.PaymentFailed(payment.Amount, group.Name, payment.RetryCount, o.opts.MaxPaymentRetries))

	slog.Warn("payment failed",
		"payment_id", payment.ID,
		"member_id", payment.MemberID,
		"group_id", payment.GroupID,
		"round", payment.Round,
		"retry_count", payment.RetryCount,
		"error", cause,
	)
}

func snapshotPayment(p *models.Payment) map[string]any {
	return map[string]any{
		"status":         string(p.Status),
		"channel":        string(p.Channel),
		"retry_count":    p.RetryCount,
		"transaction_id": p.TransactionID,
		"amount":         p.Amount.StringFixed(2),
	}
}

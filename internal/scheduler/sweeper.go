// Package scheduler drives the engine on a timetable: a daily sweep that
// debits due contributions, a periodic retry sweep and a periodic payout
// sweep. A failure on one member, payment or group is logged and the sweep
// moves on.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/sususave/internal/engine"
	"github.com/mmynk/sususave/internal/metrics"
	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/internal/storage"
)

// Sweep names used in logs, metrics and the CLI.
const (
	SweepPayments = "payments"
	SweepRetries  = "retries"
	SweepPayouts  = "payouts"
)

// Report counts what a sweep did.
type Report struct {
	Sweep     string
	Succeeded int
	Failed    int
	Skipped   int
	Opened    int
	Duration  time.Duration
}

func (r Report) String() string {
	return fmt.Sprintf("%s: %d succeeded, %d failed, %d skipped, %d opened in %s",
		r.Sweep, r.Succeeded, r.Failed, r.Skipped, r.Opened, r.Duration.Round(time.Millisecond))
}

// Sweeper runs one pass of each sweep on demand.
type Sweeper struct {
	store    storage.Store
	payments *engine.PaymentOrchestrator
	payouts  *engine.PayoutOrchestrator
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewSweeper creates a Sweeper over the shared orchestrators.
func NewSweeper(store storage.Store, payments *engine.PaymentOrchestrator, payouts *engine.PayoutOrchestrator, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		store:    store,
		payments: payments,
		payouts:  payouts,
		metrics:  m,
		now:      time.Now,
	}
}

// DuePayments initiates the current-round contribution of every active
// member of every active group who has no pending or successful payment.
// Cash-only groups get an open cash row for an admin to settle instead.
func (s *Sweeper) DuePayments(ctx context.Context) (Report, error) {
	report := Report{Sweep: SweepPayments}
	defer s.finish(&report, s.now())

	groups, err := s.store.ListGroupsByStatus(ctx, models.GroupActive)
	if err != nil {
		return report, fmt.Errorf("failed to list active groups: %w", err)
	}

	for _, group := range groups {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		memberships, err := s.store.ListActiveMemberships(ctx, group.ID)
		if err != nil {
			slog.Error("due payment sweep: failed to list members", "group_id", group.ID, "error", err)
			s.count(&report, metrics.OutcomeFailed)
			continue
		}

		for _, m := range memberships {
			s.duePayment(ctx, &report, group, m.MemberID)
		}
	}
	return report, nil
}

func (s *Sweeper) duePayment(ctx context.Context, report *Report, group *models.Group, memberID string) {
	_, err := s.store.FindPayment(ctx, memberID, group.ID, group.CurrentRound, models.PaymentPending, models.PaymentSuccess)
	if err == nil {
		s.count(report, metrics.OutcomeSkipped)
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		slog.Error("due payment sweep: lookup failed", "group_id", group.ID, "member_id", memberID, "error", err)
		s.count(report, metrics.OutcomeFailed)
		return
	}

	if group.CashOnly {
		if _, err := s.payments.OpenDue(ctx, memberID, group.ID); err != nil {
			slog.Error("due payment sweep: failed to open cash payment", "group_id", group.ID, "member_id", memberID, "error", err)
			s.count(report, metrics.OutcomeFailed)
			return
		}
		s.count(report, metrics.OutcomeOpened)
		return
	}

	if _, err := s.payments.Initiate(ctx, memberID, group.ID, group.CurrentRound, engine.SystemActor); err != nil {
		s.logItem(SweepPayments, err, "group_id", group.ID, "member_id", memberID)
		s.count(report, outcomeOf(err))
		return
	}
	s.count(report, metrics.OutcomeSuccess)
}

// RetryPayments retries every failed payment that has retries left and
// whose backoff has elapsed.
func (s *Sweeper) RetryPayments(ctx context.Context) (Report, error) {
	report := Report{Sweep: SweepRetries}
	defer s.finish(&report, s.now())

	due, err := s.store.ListRetryablePayments(ctx, s.payments.MaxRetries(), s.now().Unix())
	if err != nil {
		return report, fmt.Errorf("failed to list retryable payments: %w", err)
	}

	for _, p := range due {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if _, err := s.payments.Retry(ctx, p.ID); err != nil {
			s.logItem(SweepRetries, err, "payment_id", p.ID, "member_id", p.MemberID, "group_id", p.GroupID)
			s.count(&report, outcomeOf(err))
			continue
		}
		s.count(&report, metrics.OutcomeSuccess)
	}
	return report, nil
}

// Payouts creates and executes the payout of every active group whose
// current round is complete, then re-executes gateway-failed payouts that
// still have attempts left.
func (s *Sweeper) Payouts(ctx context.Context) (Report, error) {
	report := Report{Sweep: SweepPayouts}
	defer s.finish(&report, s.now())

	groups, err := s.store.ListGroupsByStatus(ctx, models.GroupActive)
	if err != nil {
		return report, fmt.Errorf("failed to list active groups: %w", err)
	}

	// Payouts executed in the first pass wait for the next sweep before
	// being retried.
	touched := make(map[string]bool)
	for _, group := range groups {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		payout, err := s.payouts.ProcessGroup(ctx, group.ID)
		if payout != nil {
			touched[payout.ID] = true
		}
		switch {
		case err != nil:
			s.logItem(SweepPayouts, err, "group_id", group.ID)
			s.count(&report, outcomeOf(err))
		case payout != nil && payout.Status == models.PayoutPaid && payout.Round == group.CurrentRound:
			s.count(&report, metrics.OutcomeSuccess)
		}
	}

	failed, err := s.store.ListFailedPayouts(ctx, models.FailureGateway, s.payouts.MaxAttempts())
	if err != nil {
		return report, fmt.Errorf("failed to list failed payouts: %w", err)
	}
	for _, p := range failed {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if touched[p.ID] {
			continue
		}
		if _, err := s.payouts.RetryFailed(ctx, p); err != nil {
			s.logItem(SweepPayouts, err, "payout_id", p.ID, "group_id", p.GroupID)
			s.count(&report, outcomeOf(err))
			continue
		}
		s.count(&report, metrics.OutcomeSuccess)
	}
	return report, nil
}

// RunAll runs the three sweeps in order and returns their reports.
func (s *Sweeper) RunAll(ctx context.Context) ([]Report, error) {
	var reports []Report
	for _, sweep := range []func(context.Context) (Report, error){s.DuePayments, s.RetryPayments, s.Payouts} {
		r, err := sweep(ctx)
		reports = append(reports, r)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func (s *Sweeper) count(report *Report, outcome string) {
	switch outcome {
	case metrics.OutcomeSuccess:
		report.Succeeded++
	case metrics.OutcomeSkipped:
		report.Skipped++
	case metrics.OutcomeOpened:
		report.Opened++
	default:
		report.Failed++
	}
	s.metrics.SweepItem(report.Sweep, outcome)
}

func (s *Sweeper) finish(report *Report, started time.Time) {
	report.Duration = s.now().Sub(started)
	s.metrics.ObserveSweep(report.Sweep, report.Duration)
	slog.Info("sweep finished",
		"sweep", report.Sweep,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"opened", report.Opened,
		"duration", report.Duration,
	)
}

// logItem logs a per-item failure. Caller-side errors are expected during
// sweeps and logged at a lower level than infrastructure ones.
func (s *Sweeper) logItem(sweep string, err error, attrs ...any) {
	attrs = append(attrs, "sweep", sweep, "kind", engine.KindOf(err).String(), "error", err)
	switch engine.KindOf(err) {
	case engine.Internal:
		slog.Error("sweep item failed", attrs...)
	case engine.Validation, engine.Terminal, engine.NotFound:
		slog.Info("sweep item skipped", attrs...)
	default:
		slog.Warn("sweep item failed", attrs...)
	}
}

func outcomeOf(err error) string {
	switch engine.KindOf(err) {
	case engine.Validation, engine.Terminal, engine.NotFound:
		return metrics.OutcomeSkipped
	case engine.GatewayDeclined:
		return metrics.OutcomeDeclined
	case engine.Compliance:
		return metrics.OutcomeCompliance
	}
	return metrics.OutcomeFailed
}

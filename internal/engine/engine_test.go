package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/sususave/internal/audit"
	"github.com/mmynk/sususave/internal/gateway"
	"github.com/mmynk/sususave/internal/kyc"
	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/internal/notifier"
	"github.com/mmynk/sususave/internal/storage"
	"github.com/mmynk/sususave/internal/storage/sqlite"
)

type recordingSink struct {
	mu       sync.Mutex
	messages map[string][]string
}

func (r *recordingSink) Notify(_ context.Context, phone, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.messages == nil {
		r.messages = make(map[string][]string)
	}
	r.messages[phone] = append(r.messages[phone], message)
	return nil
}

func (r *recordingSink) last(phone string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[phone]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

type harness struct {
	ctx      context.Context
	store    *sqlite.SQLiteStore
	gw       *gateway.Mock
	sms      *recordingSink
	deps     Deps
	payments *PaymentOrchestrator
	payouts  *PayoutOrchestrator
	group    *models.Group
	members  []*models.Member
}

type harnessOption func(*models.Group)

func cashOnly(g *models.Group) { g.CashOnly = true }

func newHarness(t *testing.T, n int, opts ...harnessOption) *harness {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := &harness{
		ctx:   ctx,
		store: store,
		gw:    gateway.NewMock(decimal.NewFromInt(1000)),
		sms:   &recordingSink{},
	}

	for i := 0; i < n; i++ {
		m := &models.Member{
			Name:        fmt.Sprintf("Member %d", i+1),
			Phone:       fmt.Sprintf("+2332000000%02d", i+1),
			KYCVerified: true,
		}
		require.NoError(t, store.CreateMember(ctx, m))
		h.members = append(h.members, m)
	}

	h.group = &models.Group{
		Name:               "Market Women",
		ContributionAmount: decimal.NewFromInt(100),
		NumCycles:          n,
		CreatorID:          h.members[0].ID,
	}
	for _, opt := range opts {
		opt(h.group)
	}
	require.NoError(t, store.CreateGroup(ctx, h.group))
	for _, m := range h.members[1:] {
		_, err := store.AddMembership(ctx, h.group.ID, m.ID)
		require.NoError(t, err)
	}

	h.deps = Deps{
		Store:    store,
		Gateway:  h.gw,
		Notifier: h.sms,
		Feed:     notifier.NewFeed(store),
		Audit:    audit.NewStoreRecorder(store),
		KYC:      kyc.NewStoreGate(store, true),
	}
	h.payments = NewPaymentOrchestrator(h.deps, Options{})
	h.payouts = NewPayoutOrchestrator(h.deps, Options{})
	return h
}

func (h *harness) payAll(t *testing.T) {
	t.Helper()
	for _, m := range h.members {
		_, err := h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, SystemActor)
		require.NoError(t, err)
	}
}

func (h *harness) reloadGroup(t *testing.T) *models.Group {
	t.Helper()
	g, err := h.store.GetGroup(h.ctx, h.group.ID)
	require.NoError(t, err)
	return g
}

func TestFullRoundPaysPositionOne(t *testing.T) {
	h := newHarness(t, 3)
	h.payAll(t)

	complete, err := h.payouts.IsRoundComplete(h.ctx, h.group.ID, 1)
	require.NoError(t, err)
	assert.True(t, complete)

	payout, err := h.payouts.EnsurePayout(h.ctx, h.group.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, payout)
	assert.Equal(t, h.members[0].ID, payout.RecipientID)
	assert.True(t, payout.Amount.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, models.PayoutPending, payout.Status)

	paid, err := h.payouts.Approve(h.ctx, payout.ID, h.members[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutPaid, paid.Status)
	assert.NotEmpty(t, paid.TransactionID)
	assert.Equal(t, h.members[0].ID, paid.ApprovedBy)

	assert.Equal(t, 2, h.reloadGroup(t).CurrentRound)

	// 1000 - 100 + 300
	assert.True(t, h.gw.Balance(h.members[0].Phone).Equal(decimal.NewFromInt(1200)))
	assert.Contains(t, h.sms.last(h.members[0].Phone), "Congratulations! You received GHS 300.00 from Market Women")

	entries, err := h.store.ListAudit(h.ctx, audit.EntityPayout, payout.ID, 0)
	require.NoError(t, err)
	var actions []string
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.ElementsMatch(t, []string{audit.ActionCreate, audit.ActionApprove, audit.ActionExecute}, actions)

	t.Run("execute on paid payout is a no-op", func(t *testing.T) {
		again, err := h.payouts.Execute(h.ctx, payout.ID, SystemActor)
		require.NoError(t, err)
		assert.Equal(t, models.PayoutPaid, again.Status)
		assert.Equal(t, 2, h.reloadGroup(t).CurrentRound)
	})

	t.Run("approve on paid payout is rejected", func(t *testing.T) {
		_, err := h.payouts.Approve(h.ctx, payout.ID, h.members[0].ID)
		assert.ErrorIs(t, err, ErrPayoutPaid)
		assert.Equal(t, Validation, KindOf(err))
	})

	t.Run("ensure payout is idempotent", func(t *testing.T) {
		again, err := h.payouts.EnsurePayout(h.ctx, h.group.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, payout.ID, again.ID)
	})
}

func TestExhaustedRetriesBlockRound(t *testing.T) {
	h := newHarness(t, 3)
	h.payAll(t)
	payout, err := h.payouts.ProcessGroup(h.ctx, h.group.ID)
	require.NoError(t, err)
	require.Equal(t, models.PayoutPaid, payout.Status)
	require.Equal(t, 2, h.reloadGroup(t).CurrentRound)

	for _, m := range h.members[:2] {
		_, err := h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, SystemActor)
		require.NoError(t, err)
	}

	broke := h.members[2]
	h.gw.SetBalance(broke.Phone, decimal.Zero)

	failed, err := h.payments.Initiate(h.ctx, broke.ID, h.group.ID, 0, SystemActor)
	require.Error(t, err)
	assert.Equal(t, GatewayDeclined, KindOf(err))
	assert.ErrorIs(t, err, ErrPaymentRequired)
	assert.ErrorIs(t, err, gateway.ErrInsufficientFunds)
	assert.Equal(t, 1, failed.RetryCount)
	assert.Contains(t, h.sms.last(broke.Phone), "Attempt 1/3")

	for want := 2; want <= 3; want++ {
		p, err := h.payments.Retry(h.ctx, failed.ID)
		require.Error(t, err)
		assert.Equal(t, GatewayDeclined, KindOf(err))
		assert.Equal(t, want, p.RetryCount)
		assert.Equal(t, failed.ID, p.ID)
	}

	_, err = h.payments.Retry(h.ctx, failed.ID)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, Terminal, KindOf(err))

	p, err := h.store.GetPayment(h.ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.RetryCount)
	assert.Equal(t, models.PaymentFailed, p.Status)

	rows, err := h.store.ListPaymentsByRound(h.ctx, h.group.ID, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 3, "retries must not create rows")

	complete, err := h.payouts.IsRoundComplete(h.ctx, h.group.ID, 2)
	require.NoError(t, err)
	assert.False(t, complete)

	payout, err = h.payouts.EnsurePayout(h.ctx, h.group.ID, 2)
	require.NoError(t, err)
	assert.Nil(t, payout)
}

func TestInitiateTwiceIsRejected(t *testing.T) {
	h := newHarness(t, 2)
	m := h.members[1]

	first, err := h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, SystemActor)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, first.Status)
	assert.Contains(t, h.sms.last(m.Phone), "Payment confirmed! You paid GHS 100.00 to Market Women")

	_, err = h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, SystemActor)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Equal(t, Validation, KindOf(err))

	history, err := h.payments.History(h.ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// The other member sees the in-app update, the payer does not.
	others, err := h.store.ListNotifications(h.ctx, h.members[0].ID, true)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, "A member just paid! 1 of 2 members have paid for Round 1", others[0].Message)

	own, err := h.store.ListNotifications(h.ctx, m.ID, false)
	require.NoError(t, err)
	assert.Empty(t, own)
}

func TestUnverifiedRecipientFailsCompliance(t *testing.T) {
	h := newHarness(t, 2)
	require.NoError(t, h.store.SetKYCVerified(h.ctx, h.members[0].ID, false))
	h.payAll(t)

	payout, err := h.payouts.EnsurePayout(h.ctx, h.group.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, payout)

	failed, err := h.payouts.Execute(h.ctx, payout.ID, SystemActor)
	assert.ErrorIs(t, err, ErrKYCRequired)
	assert.Equal(t, Compliance, KindOf(err))
	assert.Equal(t, models.PayoutFailed, failed.Status)
	assert.Equal(t, models.FailureCompliance, failed.FailureKind)
	assert.Equal(t, 1, h.reloadGroup(t).CurrentRound)

	entries, err := h.store.ListAudit(h.ctx, audit.EntityPayout, payout.ID, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionExecuteFailed, entries[0].Action)
	assert.True(t, strings.HasPrefix(entries[0].Details, "compliance"))

	t.Run("not retried automatically", func(t *testing.T) {
		_, err := h.payouts.RetryFailed(h.ctx, failed)
		assert.ErrorIs(t, err, ErrNotRetryable)
	})

	t.Run("manual re-trigger after verification", func(t *testing.T) {
		require.NoError(t, h.store.SetKYCVerified(h.ctx, h.members[0].ID, true))

		_, err := h.payouts.Execute(h.ctx, payout.ID, h.members[1].ID)
		assert.Equal(t, Permission, KindOf(err))

		paid, err := h.payouts.Execute(h.ctx, payout.ID, h.members[0].ID)
		require.NoError(t, err)
		assert.Equal(t, models.PayoutPaid, paid.Status)
		assert.Equal(t, 2, h.reloadGroup(t).CurrentRound)
	})
}

func TestConcurrentEnsurePayoutCreatesOne(t *testing.T) {
	h := newHarness(t, 3)
	h.payAll(t)

	// Separate orchestrators do not share locks; the storage constraint decides.
	orchestrators := []*PayoutOrchestrator{
		h.payouts,
		NewPayoutOrchestrator(h.deps, Options{}),
		NewPayoutOrchestrator(h.deps, Options{}),
	}

	const callers = 6
	ids := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := orchestrators[i%len(orchestrators)].EnsurePayout(h.ctx, h.group.ID, 1)
			errs[i] = err
			if p != nil {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.NotEmpty(t, ids[0])
}

func TestConcurrentInitiateDebitsOnce(t *testing.T) {
	h := newHarness(t, 2)
	m := h.members[1]

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, SystemActor); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.True(t, h.gw.Balance(m.Phone).Equal(decimal.NewFromInt(900)))
}

func TestInitiateValidation(t *testing.T) {
	t.Run("not a member", func(t *testing.T) {
		h := newHarness(t, 1)
		outsider := &models.Member{Name: "Outsider", Phone: "+233209999999"}
		require.NoError(t, h.store.CreateMember(h.ctx, outsider))

		_, err := h.payments.Initiate(h.ctx, outsider.ID, h.group.ID, 0, SystemActor)
		assert.ErrorIs(t, err, ErrNotMember)
		assert.Equal(t, Validation, KindOf(err))
	})

	t.Run("deactivated member", func(t *testing.T) {
		h := newHarness(t, 2)
		require.NoError(t, h.store.DeactivateMembership(h.ctx, h.group.ID, h.members[1].ID))

		_, err := h.payments.Initiate(h.ctx, h.members[1].ID, h.group.ID, 0, SystemActor)
		assert.ErrorIs(t, err, ErrNotMember)
	})

	t.Run("cash-only group", func(t *testing.T) {
		h := newHarness(t, 2, cashOnly)
		_, err := h.payments.Initiate(h.ctx, h.members[1].ID, h.group.ID, 0, SystemActor)
		assert.ErrorIs(t, err, ErrCashOnly)
		assert.Equal(t, Validation, KindOf(err))
		assert.Empty(t, h.gw.Transactions())
	})

	t.Run("suspended group", func(t *testing.T) {
		h := newHarness(t, 2)
		require.NoError(t, h.store.SetGroupStatus(h.ctx, h.group.ID, models.GroupSuspended))
		_, err := h.payments.Initiate(h.ctx, h.members[1].ID, h.group.ID, 0, SystemActor)
		assert.ErrorIs(t, err, ErrGroupInactive)
	})

	t.Run("future round", func(t *testing.T) {
		h := newHarness(t, 2)
		_, err := h.payments.Initiate(h.ctx, h.members[1].ID, h.group.ID, 2, SystemActor)
		assert.ErrorIs(t, err, ErrInvalidRound)
	})

	t.Run("unknown group", func(t *testing.T) {
		h := newHarness(t, 1)
		_, err := h.payments.Initiate(h.ctx, h.members[0].ID, "missing", 0, SystemActor)
		assert.Equal(t, NotFound, KindOf(err))
	})
}

func TestTransportFailures(t *testing.T) {
	t.Run("lost response is reconciled", func(t *testing.T) {
		h := newHarness(t, 2)
		m := h.members[1]
		h.gw.LoseNextResponse(m.Phone)

		p, err := h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, SystemActor)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentSuccess, p.Status)
		assert.NotEmpty(t, p.TransactionID)
		assert.True(t, h.gw.Balance(m.Phone).Equal(decimal.NewFromInt(900)))
	})

	t.Run("unapplied timeout is transient and retryable", func(t *testing.T) {
		h := newHarness(t, 2)
		m := h.members[1]
		h.gw.FailNext(m.Phone, gateway.ErrTransport)

		p, err := h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, SystemActor)
		assert.Equal(t, GatewayTransient, KindOf(err))
		assert.True(t, KindOf(err).Retryable())
		assert.Equal(t, models.PaymentFailed, p.Status)

		p, err = h.payments.Retry(h.ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentSuccess, p.Status)
		assert.Equal(t, 1, p.RetryCount)

		entries, err := h.store.ListAudit(h.ctx, audit.EntityPayment, p.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, audit.ActionRetrySuccess, entries[0].Action)
	})
}

func TestRetryPreconditions(t *testing.T) {
	h := newHarness(t, 2)
	m := h.members[1]

	p, err := h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, SystemActor)
	require.NoError(t, err)

	_, err = h.payments.Retry(h.ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotRetryable)
	assert.Equal(t, Terminal, KindOf(err))

	_, err = h.payments.Retry(h.ctx, "missing")
	assert.Equal(t, NotFound, KindOf(err))
}

func TestRetrySupersededByLaterPayment(t *testing.T) {
	h := newHarness(t, 2)
	m := h.members[1]

	h.gw.FailNext(m.Phone, gateway.ErrInsufficientFunds)
	failed, err := h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, SystemActor)
	require.Error(t, err)

	// A fresh initiation pays the round.
	_, err = h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, SystemActor)
	require.NoError(t, err)

	_, err = h.payments.Retry(h.ctx, failed.ID)
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	retired, err := h.store.GetPayment(h.ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, retired.RetryCount)

	due, err := h.store.ListRetryablePayments(h.ctx, 3, 1<<40)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestMarkSettled(t *testing.T) {
	h := newHarness(t, 2, cashOnly)
	admin, member := h.members[0], h.members[1]

	due, err := h.payments.OpenDue(h.ctx, member.ID, h.group.ID)
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, models.ChannelCash, due.Channel)
	assert.Equal(t, models.PaymentPending, due.Status)

	again, err := h.payments.OpenDue(h.ctx, member.ID, h.group.ID)
	require.NoError(t, err)
	assert.Equal(t, due.ID, again.ID)

	_, err = h.payments.MarkSettled(h.ctx, due.ID, member.ID)
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.Equal(t, Permission, KindOf(err))

	settled, err := h.payments.MarkSettled(h.ctx, due.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, settled.Status)
	assert.Equal(t, models.ChannelCash, settled.Channel)
	assert.Equal(t, admin.ID, settled.SettledBy)
	assert.True(t, strings.HasPrefix(settled.TransactionID, "CASH-"))
	assert.True(t, strings.HasSuffix(settled.TransactionID, due.ID))

	_, err = h.payments.MarkSettled(h.ctx, due.ID, admin.ID)
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	none, err := h.payments.OpenDue(h.ctx, member.ID, h.group.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	entries, err := h.store.ListAudit(h.ctx, audit.EntityPayment, due.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionMarkedCashPaid, entries[0].Action)
	assert.Equal(t, admin.ID, entries[0].Actor)
}

func TestMarkSettledAfterExhaustedRetries(t *testing.T) {
	h := newHarness(t, 2)
	m := h.members[1]
	h.gw.SetBalance(m.Phone, decimal.Zero)

	p, _ := h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, SystemActor)
	for i := 0; i < 2; i++ {
		h.payments.Retry(h.ctx, p.ID)
	}

	settled, err := h.payments.MarkSettled(h.ctx, p.ID, h.members[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, settled.Status)
	assert.Equal(t, 3, settled.RetryCount)
}

func TestEmptyRotationSlotSkipsPayout(t *testing.T) {
	h := newHarness(t, 3)
	require.NoError(t, h.store.DeactivateMembership(h.ctx, h.group.ID, h.members[0].ID))

	for _, m := range h.members[1:] {
		_, err := h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, SystemActor)
		require.NoError(t, err)
	}

	complete, err := h.payouts.IsRoundComplete(h.ctx, h.group.ID, 1)
	require.NoError(t, err)
	assert.True(t, complete)

	payout, err := h.payouts.EnsurePayout(h.ctx, h.group.ID, 1)
	require.NoError(t, err)
	assert.Nil(t, payout)

	status, err := h.payouts.RoundStatus(h.ctx, h.group.ID)
	require.NoError(t, err)
	assert.True(t, status.Complete)
	assert.Nil(t, status.Recipient)
}

func TestPayoutGatewayFailureIsRetried(t *testing.T) {
	h := newHarness(t, 2)
	h.payAll(t)
	recipient := h.members[0]
	h.gw.FailNext(recipient.Phone, gateway.ErrTransport)

	payout, err := h.payouts.ProcessGroup(h.ctx, h.group.ID)
	assert.Equal(t, GatewayTransient, KindOf(err))
	require.NotNil(t, payout)
	assert.Equal(t, models.PayoutFailed, payout.Status)
	assert.Equal(t, models.FailureGateway, payout.FailureKind)
	assert.Equal(t, 1, payout.Attempts)
	assert.Equal(t, 1, h.reloadGroup(t).CurrentRound)

	// ProcessGroup leaves failed payouts alone.
	same, err := h.payouts.ProcessGroup(h.ctx, h.group.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutFailed, same.Status)

	paid, err := h.payouts.RetryFailed(h.ctx, payout)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutPaid, paid.Status)
	assert.Equal(t, 2, paid.Attempts)
	assert.Equal(t, 2, h.reloadGroup(t).CurrentRound)

	current, err := h.payouts.Current(h.ctx, h.group.ID)
	assert.Nil(t, current)
	assert.Equal(t, NotFound, KindOf(err))
}

func TestPayoutAmountFixedAtCreation(t *testing.T) {
	h := newHarness(t, 2)
	h.payAll(t)

	payout, err := h.payouts.EnsurePayout(h.ctx, h.group.ID, 1)
	require.NoError(t, err)

	// A member joining later does not change the amount.
	late := &models.Member{Name: "Late", Phone: "+233200000099", KYCVerified: true}
	require.NoError(t, h.store.CreateMember(h.ctx, late))
	_, err = h.store.AddMembership(h.ctx, h.group.ID, late.ID)
	require.NoError(t, err)

	again, err := h.payouts.EnsurePayout(h.ctx, h.group.ID, 1)
	require.NoError(t, err)
	assert.True(t, again.Amount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, payout.ID, again.ID)
}

func TestGroupCompletesAfterLastCycle(t *testing.T) {
	h := newHarness(t, 2)

	for round := 1; round <= 2; round++ {
		h.payAll(t)
		payout, err := h.payouts.ProcessGroup(h.ctx, h.group.ID)
		require.NoError(t, err)
		require.Equal(t, models.PayoutPaid, payout.Status)
		assert.Equal(t, h.members[round-1].ID, payout.RecipientID)
	}

	g := h.reloadGroup(t)
	assert.Equal(t, 3, g.CurrentRound)
	assert.Equal(t, models.GroupCompleted, g.Status)

	_, err := h.payments.Initiate(h.ctx, h.members[0].ID, h.group.ID, 0, SystemActor)
	assert.ErrorIs(t, err, ErrGroupInactive)
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("same")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Empty(t, k.locks)
}

// cancelingGateway applies the transfer, then cancels the caller's context
// and reports the outcome as unknown, like a client hanging up mid-call.
type cancelingGateway struct {
	*gateway.Mock
	cancel context.CancelFunc
}

func (g *cancelingGateway) Debit(ctx context.Context, phone string, amount decimal.Decimal, reference string) (string, error) {
	if _, err := g.Mock.Debit(ctx, phone, amount, reference); err != nil {
		return "", err
	}
	g.cancel()
	return "", fmt.Errorf("%w: caller went away", gateway.ErrTransport)
}

func (g *cancelingGateway) Credit(ctx context.Context, phone string, amount decimal.Decimal, reference string) (string, error) {
	if _, err := g.Mock.Credit(ctx, phone, amount, reference); err != nil {
		return "", err
	}
	g.cancel()
	return "", fmt.Errorf("%w: caller went away", gateway.ErrTransport)
}

func (h *harness) useGateway(gw gateway.Gateway, opts Options) {
	h.deps.Gateway = gw
	h.payments = NewPaymentOrchestrator(h.deps, opts)
	h.payouts = NewPayoutOrchestrator(h.deps, opts)
}

func TestCancelledDebitStillRecordsOutcome(t *testing.T) {
	h := newHarness(t, 2)
	m := h.members[1]
	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	h.useGateway(&cancelingGateway{Mock: h.gw, cancel: cancel}, Options{})

	p, err := h.payments.Initiate(ctx, m.ID, h.group.ID, 0, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, p.Status)
	assert.NotEmpty(t, p.TransactionID)

	stored, err := h.store.GetPayment(h.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, stored.Status)
	assert.True(t, h.gw.Balance(m.Phone).Equal(decimal.NewFromInt(900)))
}

func TestCancelledRetryStillRecordsOutcome(t *testing.T) {
	h := newHarness(t, 2)
	m := h.members[1]
	h.gw.FailNext(m.Phone, gateway.ErrInsufficientFunds)

	failed, err := h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, m.ID)
	require.Error(t, err)
	require.Equal(t, models.PaymentFailed, failed.Status)

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	h.useGateway(&cancelingGateway{Mock: h.gw, cancel: cancel}, Options{})

	p, err := h.payments.Retry(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, p.Status)

	_, err = h.store.FindPayment(h.ctx, m.ID, h.group.ID, 1, models.PaymentPending)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCancelledCreditStillPays(t *testing.T) {
	h := newHarness(t, 2)
	h.payAll(t)

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	h.useGateway(&cancelingGateway{Mock: h.gw, cancel: cancel}, Options{})

	payout, err := h.payouts.ProcessGroup(ctx, h.group.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutPaid, payout.Status)
	assert.NotEmpty(t, payout.TransactionID)
	assert.Equal(t, 2, h.reloadGroup(t).CurrentRound)
}

func TestRetryCounterCappedAtThree(t *testing.T) {
	h := newHarness(t, 2)
	h.useGateway(h.gw, Options{MaxPaymentRetries: 5})
	assert.Equal(t, DefaultMaxRetries, h.payments.MaxRetries())

	m := h.members[1]
	h.gw.SetBalance(m.Phone, decimal.Zero)

	p, err := h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, m.ID)
	require.Error(t, err)
	for p.RetryCount < DefaultMaxRetries {
		p, err = h.payments.Retry(h.ctx, p.ID)
		require.Error(t, err)
		require.NotNil(t, p)
	}

	_, err = h.payments.Retry(h.ctx, p.ID)
	assert.ErrorIs(t, err, ErrRetriesExhausted)

	stored, err := h.store.GetPayment(h.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRetries, stored.RetryCount)
}

func TestInitiateRecordsActingMember(t *testing.T) {
	h := newHarness(t, 2)
	m := h.members[1]

	p, err := h.payments.Initiate(h.ctx, m.ID, h.group.ID, 0, m.ID)
	require.NoError(t, err)

	entries, err := h.store.ListAudit(h.ctx, audit.EntityPayment, p.ID, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionSuccess, entries[0].Action)
	assert.Equal(t, m.ID, entries[0].Actor)
}

func TestSuspendedGroupBlocksPayout(t *testing.T) {
	h := newHarness(t, 2)
	h.payAll(t)
	recipient := h.members[0]
	before := h.gw.Balance(recipient.Phone)

	payout, err := h.payouts.EnsurePayout(h.ctx, h.group.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, payout)
	require.NoError(t, h.store.SetGroupStatus(h.ctx, h.group.ID, models.GroupSuspended))

	_, err = h.payouts.Approve(h.ctx, payout.ID, recipient.ID)
	assert.ErrorIs(t, err, ErrGroupInactive)

	_, err = h.payouts.Execute(h.ctx, payout.ID, recipient.ID)
	assert.ErrorIs(t, err, ErrGroupInactive)

	stored, err := h.store.GetPayout(h.ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutPending, stored.Status)
	assert.True(t, h.gw.Balance(recipient.Phone).Equal(before))
	assert.Equal(t, 1, h.reloadGroup(t).CurrentRound)
}

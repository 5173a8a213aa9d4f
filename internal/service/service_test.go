package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/sususave/internal/audit"
	"github.com/mmynk/sususave/internal/auth"
	"github.com/mmynk/sususave/internal/engine"
	"github.com/mmynk/sususave/internal/gateway"
	"github.com/mmynk/sususave/internal/kyc"
	"github.com/mmynk/sususave/internal/middleware"
	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/internal/notifier"
	"github.com/mmynk/sususave/internal/storage"
	"github.com/mmynk/sususave/internal/storage/sqlite"
	"github.com/mmynk/sususave/pkg/api"
	"github.com/mmynk/sususave/pkg/api/apiconnect"
)

type testServer struct {
	store         *sqlite.SQLiteStore
	gw            *gateway.Mock
	groups        apiconnect.GroupServiceClient
	payments      apiconnect.PaymentServiceClient
	payouts       apiconnect.PayoutServiceClient
	notifications apiconnect.NotificationServiceClient
	tokens        map[string]string // member name -> bearer token
	ids           map[string]string // member name -> member ID
}

// setupTestServer starts every service behind the auth and logging
// interceptors and registers the named members.
func setupTestServer(t *testing.T, names ...string) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	gw := gateway.NewMock(decimal.NewFromInt(1000))
	deps := engine.Deps{
		Store:   store,
		Gateway: gw,
		Feed:    notifier.NewFeed(store),
		Audit:   audit.NewStoreRecorder(store),
		KYC:     kyc.NewStoreGate(store, true),
	}
	payments := engine.NewPaymentOrchestrator(deps, engine.Options{})
	payouts := engine.NewPayoutOrchestrator(deps, engine.Options{})
	groups := engine.NewGroupManager(deps)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	interceptors := connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor())

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewGroupServiceHandler(NewGroupService(store, groups, payouts), interceptors))
	mux.Handle(apiconnect.NewPaymentServiceHandler(NewPaymentService(store, payments), interceptors))
	mux.Handle(apiconnect.NewPayoutServiceHandler(NewPayoutService(store, payouts), interceptors))
	mux.Handle(apiconnect.NewNotificationServiceHandler(NewNotificationService(store), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	ts := &testServer{
		store:         store,
		gw:            gw,
		groups:        apiconnect.NewGroupServiceClient(http.DefaultClient, server.URL),
		payments:      apiconnect.NewPaymentServiceClient(http.DefaultClient, server.URL),
		payouts:       apiconnect.NewPayoutServiceClient(http.DefaultClient, server.URL),
		notifications: apiconnect.NewNotificationServiceClient(http.DefaultClient, server.URL),
		tokens:        make(map[string]string),
		ids:           make(map[string]string),
	}

	for i, name := range names {
		member := &models.Member{
			Name:        name,
			Phone:       fmt.Sprintf("+2335500000%02d", i+1),
			KYCVerified: true,
		}
		if err := store.CreateMember(context.Background(), member); err != nil {
			t.Fatalf("failed to create member %s: %v", name, err)
		}
		token, err := jwtManager.Generate(member)
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}
		ts.tokens[name] = token
		ts.ids[name] = member.ID
	}
	return ts
}

func as[T any](ts *testServer, name string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+ts.tokens[name])
	return req
}

// createGroup has the first name create a group and the rest join it.
func (ts *testServer) createGroup(t *testing.T, cashOnly bool, names ...string) *api.Group {
	t.Helper()
	ctx := context.Background()

	resp, err := ts.groups.CreateGroup(ctx, as(ts, names[0], &api.CreateGroupRequest{
		Name:               "Makola Market",
		ContributionAmount: decimal.NewFromInt(50),
		NumCycles:          len(names),
		CashOnly:           cashOnly,
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	group := resp.Msg.Group

	for _, name := range names[1:] {
		if _, err := ts.groups.JoinGroup(ctx, as(ts, name, &api.JoinGroupRequest{Code: strings.ToLower(group.Code)})); err != nil {
			t.Fatalf("JoinGroup(%s) failed: %v", name, err)
		}
	}
	return group
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Errorf("code = %v, want %v (err: %v)", got, want, err)
	}
}

func TestUnauthenticatedCallsAreRejected(t *testing.T) {
	ts := setupTestServer(t, "alice")
	ctx := context.Background()

	_, err := ts.payments.ListPayments(ctx, connect.NewRequest(&api.ListPaymentsRequest{}))
	assertCode(t, err, connect.CodeUnauthenticated)

	req := connect.NewRequest(&api.ListPaymentsRequest{})
	req.Header().Set("Authorization", "Bearer forged")
	_, err = ts.payments.ListPayments(ctx, req)
	assertCode(t, err, connect.CodeUnauthenticated)
}

func TestGroupLifecycle(t *testing.T) {
	ts := setupTestServer(t, "alice", "bob", "carol", "dave")
	ctx := context.Background()
	group := ts.createGroup(t, false, "alice", "bob", "carol")

	if group.CurrentRound != 1 || group.Status != "active" {
		t.Errorf("new group round=%d status=%s, want 1 active", group.CurrentRound, group.Status)
	}
	if !group.ContributionAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("contribution = %s, want 50", group.ContributionAmount)
	}

	resp, err := ts.groups.GetGroup(ctx, as(ts, "bob", &api.GetGroupRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(resp.Msg.Members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(resp.Msg.Members))
	}
	for i, want := range []string{"alice", "bob", "carol"} {
		m := resp.Msg.Members[i]
		if m.Name != want || m.RotationPosition != i+1 {
			t.Errorf("member %d = %s at %d, want %s at %d", i, m.Name, m.RotationPosition, want, i+1)
		}
	}

	// Outsiders cannot read the group.
	_, err = ts.groups.GetGroup(ctx, as(ts, "dave", &api.GetGroupRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodePermissionDenied)

	// Joining twice is a state error.
	_, err = ts.groups.JoinGroup(ctx, as(ts, "bob", &api.JoinGroupRequest{Code: group.Code}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	// Only admins deactivate.
	_, err = ts.groups.DeactivateMember(ctx, as(ts, "bob", &api.DeactivateMemberRequest{GroupID: group.ID, MemberID: ts.ids["carol"]}))
	assertCode(t, err, connect.CodePermissionDenied)

	if _, err := ts.groups.DeactivateMember(ctx, as(ts, "alice", &api.DeactivateMemberRequest{GroupID: group.ID, MemberID: ts.ids["carol"]})); err != nil {
		t.Fatalf("DeactivateMember failed: %v", err)
	}

	status, err := ts.groups.GetRoundStatus(ctx, as(ts, "alice", &api.GetRoundStatusRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetRoundStatus failed: %v", err)
	}
	if status.Msg.Status.Active != 2 || status.Msg.Status.RecipientID != ts.ids["alice"] {
		t.Errorf("round status = %+v, want 2 active and alice as recipient", status.Msg.Status)
	}

	// Suspension blocks contributions until resumed.
	if _, err := ts.groups.SetGroupStatus(ctx, as(ts, "alice", &api.SetGroupStatusRequest{GroupID: group.ID, Status: "suspended"})); err != nil {
		t.Fatalf("SetGroupStatus failed: %v", err)
	}
	_, err = ts.payments.InitiatePayment(ctx, as(ts, "bob", &api.InitiatePaymentRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	_, err = ts.groups.SetGroupStatus(ctx, as(ts, "alice", &api.SetGroupStatusRequest{GroupID: group.ID, Status: "deleted"}))
	assertCode(t, err, connect.CodeInvalidArgument)

	audits, err := ts.groups.ListAuditEntries(ctx, as(ts, "alice", &api.ListAuditEntriesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("ListAuditEntries failed: %v", err)
	}
	if len(audits.Msg.Entries) != 2 {
		t.Fatalf("expected create and status entries, got %d", len(audits.Msg.Entries))
	}
	if audits.Msg.Entries[0].Action != audit.ActionStatus || audits.Msg.Entries[1].Action != audit.ActionCreate {
		t.Errorf("unexpected audit order: %s, %s", audits.Msg.Entries[0].Action, audits.Msg.Entries[1].Action)
	}

	_, err = ts.groups.ListAuditEntries(ctx, as(ts, "bob", &api.ListAuditEntriesRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodePermissionDenied)
}

func TestRoundPaysOut(t *testing.T) {
	ts := setupTestServer(t, "alice", "bob")
	ctx := context.Background()
	group := ts.createGroup(t, false, "alice", "bob")

	_, err := ts.payouts.GetCurrentPayout(ctx, as(ts, "alice", &api.GetCurrentPayoutRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodeNotFound)

	// Nothing to pay out yet.
	trigger, err := ts.payouts.TriggerPayout(ctx, as(ts, "alice", &api.TriggerPayoutRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("TriggerPayout failed: %v", err)
	}
	if trigger.Msg.Payout != nil {
		t.Fatalf("expected no payout before the round is complete, got %+v", trigger.Msg.Payout)
	}

	for _, name := range []string{"alice", "bob"} {
		resp, err := ts.payments.InitiatePayment(ctx, as(ts, name, &api.InitiatePaymentRequest{GroupID: group.ID}))
		if err != nil {
			t.Fatalf("InitiatePayment(%s) failed: %v", name, err)
		}
		if resp.Msg.Payment.Status != "success" || !strings.HasPrefix(resp.Msg.Payment.TransactionID, "MOMO") {
			t.Errorf("payment = %+v, want success with a MOMO transaction", resp.Msg.Payment)
		}
	}

	_, err = ts.payments.InitiatePayment(ctx, as(ts, "bob", &api.InitiatePaymentRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	trigger, err = ts.payouts.TriggerPayout(ctx, as(ts, "alice", &api.TriggerPayoutRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("TriggerPayout failed: %v", err)
	}
	payout := trigger.Msg.Payout
	if payout == nil || payout.Status != "pending" || payout.RecipientID != ts.ids["alice"] {
		t.Fatalf("payout = %+v, want pending for alice", payout)
	}
	if !payout.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("payout amount = %s, want 100", payout.Amount)
	}

	_, err = ts.payouts.ApprovePayout(ctx, as(ts, "bob", &api.ApprovePayoutRequest{PayoutID: payout.ID}))
	assertCode(t, err, connect.CodePermissionDenied)

	approved, err := ts.payouts.ApprovePayout(ctx, as(ts, "alice", &api.ApprovePayoutRequest{PayoutID: payout.ID}))
	if err != nil {
		t.Fatalf("ApprovePayout failed: %v", err)
	}
	if approved.Msg.Payout.Status != "paid" {
		t.Errorf("payout status = %s, want paid", approved.Msg.Payout.Status)
	}

	got, err := ts.groups.GetGroup(ctx, as(ts, "bob", &api.GetGroupRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if got.Msg.Group.CurrentRound != 2 {
		t.Errorf("current round = %d, want 2", got.Msg.Group.CurrentRound)
	}

	// Bob was told when alice paid.
	inbox, err := ts.notifications.ListNotifications(ctx, as(ts, "bob", &api.ListNotificationsRequest{UnreadOnly: true}))
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(inbox.Msg.Notifications) != 1 || !strings.Contains(inbox.Msg.Notifications[0].Message, "1 of 2 members") {
		t.Errorf("bob's inbox = %+v", inbox.Msg.Notifications)
	}

	read, err := ts.notifications.MarkNotificationsRead(ctx, as(ts, "bob", &api.MarkNotificationsReadRequest{}))
	if err != nil {
		t.Fatalf("MarkNotificationsRead failed: %v", err)
	}
	if read.Msg.Updated != 1 {
		t.Errorf("updated = %d, want 1", read.Msg.Updated)
	}

	history, err := ts.payments.ListPayments(ctx, as(ts, "bob", &api.ListPaymentsRequest{}))
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(history.Msg.Payments) != 1 {
		t.Errorf("expected 1 payment in bob's history, got %d", len(history.Msg.Payments))
	}
}

func TestDeclinedPaymentAndRetry(t *testing.T) {
	ts := setupTestServer(t, "alice", "bob")
	ctx := context.Background()
	group := ts.createGroup(t, false, "alice", "bob")

	ts.gw.FailNext("+233550000002", gateway.ErrInsufficientFunds)
	_, err := ts.payments.InitiatePayment(ctx, as(ts, "bob", &api.InitiatePaymentRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	history, err := ts.payments.ListPayments(ctx, as(ts, "bob", &api.ListPaymentsRequest{}))
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(history.Msg.Payments) != 1 || history.Msg.Payments[0].Status != "failed" {
		t.Fatalf("history = %+v, want one failed payment", history.Msg.Payments)
	}
	failed := history.Msg.Payments[0]

	// Only the payer may retry.
	_, err = ts.payments.RetryPayment(ctx, as(ts, "alice", &api.RetryPaymentRequest{PaymentID: failed.ID}))
	assertCode(t, err, connect.CodePermissionDenied)

	retried, err := ts.payments.RetryPayment(ctx, as(ts, "bob", &api.RetryPaymentRequest{PaymentID: failed.ID}))
	if err != nil {
		t.Fatalf("RetryPayment failed: %v", err)
	}
	if retried.Msg.Payment.Status != "success" || retried.Msg.Payment.RetryCount != 1 {
		t.Errorf("retried payment = %+v, want success with retry count 1", retried.Msg.Payment)
	}

	_, err = ts.payments.RetryPayment(ctx, as(ts, "bob", &api.RetryPaymentRequest{PaymentID: failed.ID}))
	assertCode(t, err, connect.CodeFailedPrecondition)
}

func TestCashOnlyGroup(t *testing.T) {
	ts := setupTestServer(t, "alice", "bob")
	ctx := context.Background()
	group := ts.createGroup(t, true, "alice", "bob")

	_, err := ts.payments.InitiatePayment(ctx, as(ts, "bob", &api.InitiatePaymentRequest{GroupID: group.ID}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	due, err := ts.payments.GetDuePayment(ctx, as(ts, "bob", &api.GetDuePaymentRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetDuePayment failed: %v", err)
	}
	if due.Msg.Payment == nil || due.Msg.Payment.Channel != "cash" || due.Msg.Payment.Status != "pending" {
		t.Fatalf("due payment = %+v, want pending cash", due.Msg.Payment)
	}

	_, err = ts.payments.MarkCashPaid(ctx, as(ts, "bob", &api.MarkCashPaidRequest{PaymentID: due.Msg.Payment.ID}))
	assertCode(t, err, connect.CodePermissionDenied)

	settled, err := ts.payments.MarkCashPaid(ctx, as(ts, "alice", &api.MarkCashPaidRequest{PaymentID: due.Msg.Payment.ID}))
	if err != nil {
		t.Fatalf("MarkCashPaid failed: %v", err)
	}
	if settled.Msg.Payment.Status != "success" || !strings.HasPrefix(settled.Msg.Payment.TransactionID, "CASH-") {
		t.Errorf("settled payment = %+v", settled.Msg.Payment)
	}
	if settled.Msg.Payment.SettledBy != ts.ids["alice"] {
		t.Errorf("settled by = %s, want alice", settled.Msg.Payment.SettledBy)
	}

	due, err = ts.payments.GetDuePayment(ctx, as(ts, "bob", &api.GetDuePaymentRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetDuePayment failed: %v", err)
	}
	if due.Msg.Payment != nil {
		t.Errorf("expected nothing due after settlement, got %+v", due.Msg.Payment)
	}
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want connect.Code
	}{
		{"plain", errors.New("disk full"), connect.CodeInternal},
		{"store not found", fmt.Errorf("lookup: %w", storage.ErrNotFound), connect.CodeNotFound},
		{"bad input", &engine.Error{Kind: engine.Validation, Op: "initiate", Err: engine.ErrInvalidRound}, connect.CodeInvalidArgument},
		{"already paid", &engine.Error{Kind: engine.Validation, Op: "initiate", Err: engine.ErrAlreadyPaid}, connect.CodeFailedPrecondition},
		{"not admin", &engine.Error{Kind: engine.Permission, Op: "approve", Err: engine.ErrNotAdmin}, connect.CodePermissionDenied},
		{"exhausted", &engine.Error{Kind: engine.Terminal, Op: "retry", Err: engine.ErrRetriesExhausted}, connect.CodeFailedPrecondition},
		{"kyc", &engine.Error{Kind: engine.Compliance, Op: "execute", Err: engine.ErrKYCRequired}, connect.CodeFailedPrecondition},
		{"timeout", &engine.Error{Kind: engine.GatewayTransient, Op: "initiate", Err: gateway.ErrTransport}, connect.CodeUnavailable},
		{"passthrough", connect.NewError(connect.CodeAborted, errors.New("x")), connect.CodeAborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toConnectError(tt.err).Code(); got != tt.want {
				t.Errorf("toConnectError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/sususave/internal/engine"
	"github.com/mmynk/sususave/internal/storage"
	"github.com/mmynk/sususave/pkg/api"
	"github.com/mmynk/sususave/pkg/api/apiconnect"
)

// PaymentService implements the Connect PaymentService.
type PaymentService struct {
	apiconnect.UnimplementedPaymentServiceHandler
	store    storage.Store
	payments *engine.PaymentOrchestrator
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(store storage.Store, payments *engine.PaymentOrchestrator) *PaymentService {
	return &PaymentService{store: store, payments: payments}
}

// InitiatePayment debits the caller's contribution for a round.
func (s *PaymentService) InitiatePayment(ctx context.Context, req *connect.Request[api.InitiatePaymentRequest]) (*connect.Response[api.InitiatePaymentResponse], error) {
	memberID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("InitiatePayment request received", "group_id", req.Msg.GroupID, "member_id", memberID, "round", req.Msg.Round)

	payment, err := s.payments.Initiate(ctx, memberID, req.Msg.GroupID, req.Msg.Round, memberID)
	if err != nil {
		slog.Warn("InitiatePayment failed", "group_id", req.Msg.GroupID, "member_id", memberID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("InitiatePayment successful", "payment_id", payment.ID, "transaction_id", payment.TransactionID)
	return connect.NewResponse(&api.InitiatePaymentResponse{Payment: toAPIPayment(payment)}), nil
}

// RetryPayment re-issues a failed debit of the caller's own payment.
func (s *PaymentService) RetryPayment(ctx context.Context, req *connect.Request[api.RetryPaymentRequest]) (*connect.Response[api.RetryPaymentResponse], error) {
	memberID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("RetryPayment request received", "payment_id", req.Msg.PaymentID)

	existing, err := s.store.GetPayment(ctx, req.Msg.PaymentID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if existing.MemberID != memberID {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("payment belongs to another member"))
	}

	payment, err := s.payments.Retry(ctx, req.Msg.PaymentID)
	if err != nil {
		slog.Warn("RetryPayment failed", "payment_id", req.Msg.PaymentID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("RetryPayment successful", "payment_id", payment.ID, "retry_count", payment.RetryCount)
	return connect.NewResponse(&api.RetryPaymentResponse{Payment: toAPIPayment(payment)}), nil
}

// MarkCashPaid records a cash settlement. The caller must be a group admin.
func (s *PaymentService) MarkCashPaid(ctx context.Context, req *connect.Request[api.MarkCashPaidRequest]) (*connect.Response[api.MarkCashPaidResponse], error) {
	adminID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("MarkCashPaid request received", "payment_id", req.Msg.PaymentID, "admin_id", adminID)

	payment, err := s.payments.MarkSettled(ctx, req.Msg.PaymentID, adminID)
	if err != nil {
		slog.Warn("MarkCashPaid failed", "payment_id", req.Msg.PaymentID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("MarkCashPaid successful", "payment_id", payment.ID, "transaction_id", payment.TransactionID)
	return connect.NewResponse(&api.MarkCashPaidResponse{Payment: toAPIPayment(payment)}), nil
}

// GetDuePayment returns the caller's open payment for the group's current
// round, creating it if needed.
func (s *PaymentService) GetDuePayment(ctx context.Context, req *connect.Request[api.GetDuePaymentRequest]) (*connect.Response[api.GetDuePaymentResponse], error) {
	memberID, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.OpenDue(ctx, memberID, req.Msg.GroupID)
	if err != nil {
		slog.Warn("GetDuePayment failed", "group_id", req.Msg.GroupID, "member_id", memberID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetDuePaymentResponse{Payment: toAPIPayment(payment)}), nil
}

// ListPayments returns the caller's payment history, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, req *connect.Request[api.ListPaymentsRequest]) (*connect.Response[api.ListPaymentsResponse], error) {
	memberID, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	payments, err := s.payments.History(ctx, memberID)
	if err != nil {
		slog.Error("ListPayments failed", "member_id", memberID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.Payment, len(payments))
	for i, p := range payments {
		out[i] = toAPIPayment(p)
	}
	slog.Info("ListPayments successful", "member_id", memberID, "count", len(out))
	return connect.NewResponse(&api.ListPaymentsResponse{Payments: out}), nil
}

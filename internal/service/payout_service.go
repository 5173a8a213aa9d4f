package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/sususave/internal/engine"
	"github.com/mmynk/sususave/internal/storage"
	"github.com/mmynk/sususave/pkg/api"
	"github.com/mmynk/sususave/pkg/api/apiconnect"
)

// PayoutService implements the Connect PayoutService.
type PayoutService struct {
	apiconnect.UnimplementedPayoutServiceHandler
	store   storage.Store
	payouts *engine.PayoutOrchestrator
}

// NewPayoutService creates a new PayoutService.
func NewPayoutService(store storage.Store, payouts *engine.PayoutOrchestrator) *PayoutService {
	return &PayoutService{store: store, payouts: payouts}
}

// GetCurrentPayout returns the payout of the group's current round.
func (s *PayoutService) GetCurrentPayout(ctx context.Context, req *connect.Request[api.GetCurrentPayoutRequest]) (*connect.Response[api.GetCurrentPayoutResponse], error) {
	memberID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.store, req.Msg.GroupID, memberID, false); err != nil {
		return nil, err
	}

	payout, err := s.payouts.Current(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetCurrentPayoutResponse{Payout: toAPIPayout(payout)}), nil
}

// TriggerPayout creates the current round's payout if the round is
// complete. Admin only; the payout sweep does the same on its schedule.
func (s *PayoutService) TriggerPayout(ctx context.Context, req *connect.Request[api.TriggerPayoutRequest]) (*connect.Response[api.TriggerPayoutResponse], error) {
	adminID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("TriggerPayout request received", "group_id", req.Msg.GroupID, "admin_id", adminID)

	if _, err := requireMember(ctx, s.store, req.Msg.GroupID, adminID, true); err != nil {
		return nil, err
	}

	payout, err := s.payouts.EnsurePayout(ctx, req.Msg.GroupID, 0)
	if err != nil {
		slog.Warn("TriggerPayout failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	if payout == nil {
		slog.Info("TriggerPayout: round not ready", "group_id", req.Msg.GroupID)
	}
	return connect.NewResponse(&api.TriggerPayoutResponse{Payout: toAPIPayout(payout)}), nil
}

// ApprovePayout approves a pending payout and executes it.
func (s *PayoutService) ApprovePayout(ctx context.Context, req *connect.Request[api.ApprovePayoutRequest]) (*connect.Response[api.ApprovePayoutResponse], error) {
	adminID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ApprovePayout request received", "payout_id", req.Msg.PayoutID, "admin_id", adminID)

	payout, err := s.payouts.Approve(ctx, req.Msg.PayoutID, adminID)
	if err != nil {
		slog.Warn("ApprovePayout failed", "payout_id", req.Msg.PayoutID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("ApprovePayout successful", "payout_id", payout.ID, "status", payout.Status)
	return connect.NewResponse(&api.ApprovePayoutResponse{Payout: toAPIPayout(payout)}), nil
}

// ExecutePayout re-triggers a failed or approved payout.
func (s *PayoutService) ExecutePayout(ctx context.Context, req *connect.Request[api.ExecutePayoutRequest]) (*connect.Response[api.ExecutePayoutResponse], error) {
	adminID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ExecutePayout request received", "payout_id", req.Msg.PayoutID, "admin_id", adminID)

	payout, err := s.payouts.Execute(ctx, req.Msg.PayoutID, adminID)
	if err != nil {
		slog.Warn("ExecutePayout failed", "payout_id", req.Msg.PayoutID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("ExecutePayout successful", "payout_id", payout.ID, "status", payout.Status)
	return connect.NewResponse(&api.ExecutePayoutResponse{Payout: toAPIPayout(payout)}), nil
}

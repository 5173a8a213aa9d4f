package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/sususave/internal/storage"
	"github.com/mmynk/sususave/pkg/api"
	"github.com/mmynk/sususave/pkg/api/apiconnect"
)

// NotificationService implements the Connect NotificationService.
type NotificationService struct {
	apiconnect.UnimplementedNotificationServiceHandler
	inbox storage.Inbox
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(inbox storage.Inbox) *NotificationService {
	return &NotificationService{inbox: inbox}
}

// ListNotifications returns the caller's inbox, newest first.
func (s *NotificationService) ListNotifications(ctx context.Context, req *connect.Request[api.ListNotificationsRequest]) (*connect.Response[api.ListNotificationsResponse], error) {
	memberID, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	notifications, err := s.inbox.ListNotifications(ctx, memberID, req.Msg.UnreadOnly)
	if err != nil {
		slog.Error("ListNotifications failed", "member_id", memberID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.Notification, len(notifications))
	for i, n := range notifications {
		out[i] = toAPINotification(n)
	}
	return connect.NewResponse(&api.ListNotificationsResponse{Notifications: out}), nil
}

// MarkNotificationsRead marks the caller's whole inbox read.
func (s *NotificationService) MarkNotificationsRead(ctx context.Context, req *connect.Request[api.MarkNotificationsReadRequest]) (*connect.Response[api.MarkNotificationsReadResponse], error) {
	memberID, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := s.inbox.MarkNotificationsRead(ctx, memberID)
	if err != nil {
		slog.Error("MarkNotificationsRead failed", "member_id", memberID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("MarkNotificationsRead successful", "member_id", memberID, "updated", updated)
	return connect.NewResponse(&api.MarkNotificationsReadResponse{Updated: updated}), nil
}

// Package service implements the Connect RPC services on top of the engine.
//
// Handlers identify the acting member from the request context populated
// by middleware.RequireAuth. Reads go straight to storage; every state
// change goes through the engine.
package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/sususave/internal/middleware"
	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/internal/storage"
)

var (
	errNotGroupMember = errors.New("caller is not a member of this group")
	errNotGroupAdmin  = errors.New("caller is not an admin of this group")
)

// actor returns the authenticated member ID.
func actor(ctx context.Context) (string, error) {
	memberID := middleware.GetMemberID(ctx)
	if memberID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errUnauthenticated)
	}
	return memberID, nil
}

// requireMember checks that memberID holds a seat in groupID. Former members
// keep read access to the group's history.
func requireMember(ctx context.Context, store storage.GroupStore, groupID, memberID string, admin bool) (*models.Membership, error) {
	m, err := store.GetMembership(ctx, groupID, memberID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodePermissionDenied, errNotGroupMember)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if admin && (!m.IsAdmin || !m.IsActive) {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotGroupAdmin)
	}
	return m, nil
}

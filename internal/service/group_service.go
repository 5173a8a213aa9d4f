package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/sususave/internal/audit"
	"github.com/mmynk/sususave/internal/engine"
	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/internal/storage"
	"github.com/mmynk/sususave/pkg/api"
	"github.com/mmynk/sususave/pkg/api/apiconnect"
)

const defaultAuditLimit = 50

// GroupService implements the Connect GroupService.
type GroupService struct {
	apiconnect.UnimplementedGroupServiceHandler
	store   storage.Store
	groups  *engine.GroupManager
	payouts *engine.PayoutOrchestrator
}

// NewGroupService creates a new GroupService.
func NewGroupService(store storage.Store, groups *engine.GroupManager, payouts *engine.PayoutOrchestrator) *GroupService {
	return &GroupService{store: store, groups: groups, payouts: payouts}
}

// CreateGroup creates a group with the caller as its first admin.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	memberID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"contribution", req.Msg.ContributionAmount.String(),
		"num_cycles", req.Msg.NumCycles,
	)

	group, err := s.groups.Create(ctx, memberID, &models.Group{
		Name:               req.Msg.Name,
		ContributionAmount: req.Msg.ContributionAmount,
		NumCycles:          req.Msg.NumCycles,
		CashOnly:           req.Msg.CashOnly,
	})
	if err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("CreateGroup successful", "group_id", group.ID, "code", group.Code)
	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroup returns a group and its active members in rotation order.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	memberID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	if _, err := requireMember(ctx, s.store, req.Msg.GroupID, memberID, false); err != nil {
		return nil, err
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	memberships, err := s.store.ListActiveMemberships(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	ids := make([]string, len(memberships))
	for i, m := range memberships {
		ids[i] = m.MemberID
	}
	members, err := s.store.GetMembersByIDs(ctx, ids)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]*api.Membership, len(memberships))
	for i, m := range memberships {
		out[i] = toAPIMembership(m, members[m.MemberID])
	}

	slog.Info("GetGroup successful", "group_id", group.ID, "members", len(out))
	return connect.NewResponse(&api.GetGroupResponse{Group: toAPIGroup(group), Members: out}), nil
}

// JoinGroup seats the caller in the group with the given join code.
func (s *GroupService) JoinGroup(ctx context.Context, req *connect.Request[api.JoinGroupRequest]) (*connect.Response[api.JoinGroupResponse], error) {
	memberID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("JoinGroup request received", "code", req.Msg.Code, "member_id", memberID)

	membership, err := s.groups.Join(ctx, memberID, req.Msg.Code)
	if err != nil {
		slog.Warn("JoinGroup failed", "code", req.Msg.Code, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("JoinGroup successful", "group_id", membership.GroupID, "position", membership.RotationPosition)
	return connect.NewResponse(&api.JoinGroupResponse{Membership: toAPIMembership(membership, nil)}), nil
}

// DeactivateMember removes a member from the group. Admin only.
func (s *GroupService) DeactivateMember(ctx context.Context, req *connect.Request[api.DeactivateMemberRequest]) (*connect.Response[api.DeactivateMemberResponse], error) {
	actorID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("DeactivateMember request received", "group_id", req.Msg.GroupID, "member_id", req.Msg.MemberID)

	if err := s.groups.Deactivate(ctx, req.Msg.GroupID, req.Msg.MemberID, actorID); err != nil {
		slog.Warn("DeactivateMember failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("DeactivateMember successful", "group_id", req.Msg.GroupID, "member_id", req.Msg.MemberID)
	return connect.NewResponse(&api.DeactivateMemberResponse{}), nil
}

// SetGroupStatus suspends or resumes a group. Admin only.
func (s *GroupService) SetGroupStatus(ctx context.Context, req *connect.Request[api.SetGroupStatusRequest]) (*connect.Response[api.SetGroupStatusResponse], error) {
	actorID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("SetGroupStatus request received", "group_id", req.Msg.GroupID, "status", req.Msg.Status)

	group, err := s.groups.SetStatus(ctx, req.Msg.GroupID, models.GroupStatus(req.Msg.Status), actorID)
	if err != nil {
		slog.Warn("SetGroupStatus failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("SetGroupStatus successful", "group_id", group.ID, "status", group.Status)
	return connect.NewResponse(&api.SetGroupStatusResponse{Group: toAPIGroup(group)}), nil
}

// GetRoundStatus reports how many members have paid the current round.
func (s *GroupService) GetRoundStatus(ctx context.Context, req *connect.Request[api.GetRoundStatusRequest]) (*connect.Response[api.GetRoundStatusResponse], error) {
	memberID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.store, req.Msg.GroupID, memberID, false); err != nil {
		return nil, err
	}

	status, err := s.payouts.RoundStatus(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("GetRoundStatus failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetRoundStatusResponse{Status: toAPIRoundStatus(status)}), nil
}

// ListAuditEntries lists the audit trail of the group or one of its
// payments, payouts or memberships. Admin only.
func (s *GroupService) ListAuditEntries(ctx context.Context, req *connect.Request[api.ListAuditEntriesRequest]) (*connect.Response[api.ListAuditEntriesResponse], error) {
	actorID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ListAuditEntries request received",
		"group_id", req.Msg.GroupID,
		"entity_type", req.Msg.EntityType,
		"entity_id", req.Msg.EntityID,
	)

	if _, err := requireMember(ctx, s.store, req.Msg.GroupID, actorID, true); err != nil {
		return nil, err
	}

	entityType, entityID := req.Msg.EntityType, req.Msg.EntityID
	if entityType == "" {
		entityType, entityID = audit.EntityGroup, req.Msg.GroupID
	}
	if err := s.checkEntityInGroup(ctx, req.Msg.GroupID, entityType, entityID); err != nil {
		return nil, err
	}

	limit := req.Msg.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	entries, err := s.store.ListAudit(ctx, entityType, entityID, limit)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]*api.AuditEntry, len(entries))
	for i, e := range entries {
		out[i] = toAPIAuditEntry(e)
	}
	return connect.NewResponse(&api.ListAuditEntriesResponse{Entries: out}), nil
}

// checkEntityInGroup keeps admins to their own group's trail.
func (s *GroupService) checkEntityInGroup(ctx context.Context, groupID, entityType, entityID string) error {
	var owner string
	switch entityType {
	case audit.EntityGroup:
		owner = entityID
	case audit.EntityPayment:
		p, err := s.store.GetPayment(ctx, entityID)
		if err != nil {
			return toConnectError(err)
		}
		owner = p.GroupID
	case audit.EntityPayout:
		p, err := s.store.GetPayout(ctx, entityID)
		if err != nil {
			return toConnectError(err)
		}
		owner = p.GroupID
	case audit.EntityMembership:
		if strings.HasSuffix(entityID, "|group:"+groupID) {
			owner = groupID
		}
	default:
		return connect.NewError(connect.CodeInvalidArgument, errors.New("unknown entity type "+entityType))
	}
	if owner != groupID {
		return connect.NewError(connect.CodePermissionDenied, errors.New("entity does not belong to this group"))
	}
	return nil
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/sususave/internal/audit"
	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/internal/storage"
)

// GroupManager applies membership and lifecycle changes to groups.
type GroupManager struct {
	deps Deps
}

// NewGroupManager creates a GroupManager.
func NewGroupManager(deps Deps) *GroupManager {
	return &GroupManager{deps: deps.withDefaults()}
}

// Create persists a new group with creatorID seated at rotation position 1
// as an admin.
func (g *GroupManager) Create(ctx context.Context, creatorID string, group *models.Group) (*models.Group, error) {
	const op = "create group"

	group.Name = strings.TrimSpace(group.Name)
	if group.Name == "" {
		return nil, newError(Validation, op, errors.New("group name is required"))
	}
	if !group.ContributionAmount.IsPositive() {
		return nil, newError(Validation, op, errors.New("contribution amount must be positive"))
	}
	if group.NumCycles < 1 {
		return nil, newError(Validation, op, errors.New("number of cycles must be at least 1"))
	}
	if _, err := g.deps.Store.GetMember(ctx, creatorID); err != nil {
		return nil, storeError(op, err)
	}

	group.CreatorID = creatorID
	if err := g.deps.Store.CreateGroup(ctx, group); err != nil {
		return nil, storeError(op, err)
	}

	g.deps.record(ctx, audit.EntityGroup, group.ID, audit.ActionCreate, creatorID, "", nil, snapshotGroup(group))
	slog.Info("group created", "group_id", group.ID, "code", group.Code, "creator_id", creatorID)
	return group, nil
}

// Join seats memberID at the next rotation position of the group with the
// given join code.
func (g *GroupManager) Join(ctx context.Context, memberID, code string) (*models.Membership, error) {
	const op = "join group"

	group, err := g.deps.Store.GetGroupByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, storeError(op, err)
	}
	if !group.IsActive() {
		return nil, newError(Validation, op, ErrGroupInactive)
	}
	if _, err := g.deps.Store.GetMember(ctx, memberID); err != nil {
		return nil, storeError(op, err)
	}

	membership, err := g.deps.Store.AddMembership(ctx, group.ID, memberID)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, newError(Validation, op, ErrAlreadyMember)
		}
		return nil, storeError(op, err)
	}

	g.deps.record(ctx, audit.EntityMembership, memberKey(memberID, group.ID), audit.ActionJoin, memberID, "",
		nil, map[string]any{"rotation_position": membership.RotationPosition})
	slog.Info("member joined group", "group_id", group.ID, "member_id", memberID, "position", membership.RotationPosition)
	return membership, nil
}

// Deactivate removes memberID from round-completion counting. Rotation
// positions are not renumbered.
func (g *GroupManager) Deactivate(ctx context.Context, groupID, memberID, actorID string) error {
	const op = "deactivate member"

	if err := g.deps.requireAdmin(ctx, op, groupID, actorID); err != nil {
		return err
	}
	membership, err := g.deps.Store.GetMembership(ctx, groupID, memberID)
	if err != nil {
		return storeError(op, err)
	}
	if !membership.IsActive {
		return newError(Validation, op, ErrNotMember)
	}
	if err := g.deps.Store.DeactivateMembership(ctx, groupID, memberID); err != nil {
		return storeError(op, err)
	}

	g.deps.record(ctx, audit.EntityMembership, memberKey(memberID, groupID), audit.ActionDeactivate, actorID, "",
		map[string]any{"is_active": true}, map[string]any{"is_active": false})
	slog.Info("member deactivated", "group_id", groupID, "member_id", memberID, "by", actorID)
	return nil
}

// SetStatus suspends or resumes a group. Completed groups stay completed.
func (g *GroupManager) SetStatus(ctx context.Context, groupID string, status models.GroupStatus, actorID string) (*models.Group, error) {
	const op = "set group status"

	if status != models.GroupActive && status != models.GroupSuspended {
		return nil, newError(Validation, op, fmt.Errorf("status must be %q or %q, got %q", models.GroupActive, models.GroupSuspended, status))
	}
	if err := g.deps.requireAdmin(ctx, op, groupID, actorID); err != nil {
		return nil, err
	}
	group, err := g.deps.Store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if group.Status == models.GroupCompleted {
		return nil, newError(Terminal, op, ErrGroupCompleted)
	}
	if group.Status == status {
		return group, nil
	}

	old := snapshotGroup(group)
	if err := g.deps.Store.SetGroupStatus(ctx, groupID, status); err != nil {
		return nil, storeError(op, err)
	}
	group.Status = status

	g.deps.record(ctx, audit.EntityGroup, groupID, audit.ActionStatus, actorID, "", old, snapshotGroup(group))
	slog.Info("group status changed", "group_id", groupID, "status", status, "by", actorID)
	return group, nil
}

func snapshotGroup(g *models.Group) map[string]any {
	return map[string]any{
		"status":              string(g.Status),
		"current_round":       g.CurrentRound,
		"num_cycles":          g.NumCycles,
		"contribution_amount": g.ContributionAmount.StringFixed(2),
		"cash_only":           g.CashOnly,
	}
}

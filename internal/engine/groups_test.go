package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/sususave/internal/audit"
	"github.com/mmynk/sususave/internal/models"
)

func TestCreateGroupValidation(t *testing.T) {
	h := newHarness(t, 1)
	groups := NewGroupManager(h.deps)
	creator := h.members[0].ID

	tests := []struct {
		name  string
		group models.Group
	}{
		{"blank name", models.Group{Name: "  ", ContributionAmount: decimal.NewFromInt(10), NumCycles: 2}},
		{"zero amount", models.Group{Name: "G", ContributionAmount: decimal.Zero, NumCycles: 2}},
		{"negative amount", models.Group{Name: "G", ContributionAmount: decimal.NewFromInt(-5), NumCycles: 2}},
		{"no cycles", models.Group{Name: "G", ContributionAmount: decimal.NewFromInt(10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.group
			_, err := groups.Create(h.ctx, creator, &g)
			assert.Equal(t, Validation, KindOf(err))
		})
	}

	_, err := groups.Create(h.ctx, "nobody", &models.Group{Name: "G", ContributionAmount: decimal.NewFromInt(10), NumCycles: 2})
	assert.Equal(t, NotFound, KindOf(err))
}

func TestCreateAndJoinGroup(t *testing.T) {
	h := newHarness(t, 3)
	groups := NewGroupManager(h.deps)

	group, err := groups.Create(h.ctx, h.members[0].ID, &models.Group{
		Name:               " Adum Traders ",
		ContributionAmount: decimal.NewFromInt(20),
		NumCycles:          3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Adum Traders", group.Name)
	assert.Equal(t, 1, group.CurrentRound)
	assert.Equal(t, models.GroupActive, group.Status)
	assert.Len(t, group.Code, 8)

	creator, err := h.store.GetMembership(h.ctx, group.ID, h.members[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, creator.RotationPosition)
	assert.True(t, creator.IsAdmin)

	m2, err := groups.Join(h.ctx, h.members[1].ID, group.Code)
	require.NoError(t, err)
	assert.Equal(t, 2, m2.RotationPosition)
	assert.False(t, m2.IsAdmin)

	_, err = groups.Join(h.ctx, h.members[1].ID, group.Code)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = groups.Join(h.ctx, h.members[2].ID, "NOPE1234")
	assert.Equal(t, NotFound, KindOf(err))

	entries, err := h.store.ListAudit(h.ctx, audit.EntityGroup, group.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCreate, entries[0].Action)
}

func TestDeactivateMember(t *testing.T) {
	h := newHarness(t, 3)
	groups := NewGroupManager(h.deps)
	admin, member := h.members[0].ID, h.members[2].ID

	err := groups.Deactivate(h.ctx, h.group.ID, member, h.members[1].ID)
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.Equal(t, Permission, KindOf(err))

	require.NoError(t, groups.Deactivate(h.ctx, h.group.ID, member, admin))

	active, err := h.store.CountActiveMemberships(h.ctx, h.group.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, active)

	err = groups.Deactivate(h.ctx, h.group.ID, member, admin)
	assert.ErrorIs(t, err, ErrNotMember)

	// A deactivated member cannot contribute.
	_, err = h.payments.Initiate(h.ctx, member, h.group.ID, 0, SystemActor)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestSuspendAndResumeGroup(t *testing.T) {
	h := newHarness(t, 2)
	groups := NewGroupManager(h.deps)
	admin := h.members[0].ID

	_, err := groups.SetStatus(h.ctx, h.group.ID, models.GroupSuspended, h.members[1].ID)
	assert.Equal(t, Permission, KindOf(err))

	_, err = groups.SetStatus(h.ctx, h.group.ID, models.GroupCompleted, admin)
	assert.Equal(t, Validation, KindOf(err))

	group, err := groups.SetStatus(h.ctx, h.group.ID, models.GroupSuspended, admin)
	require.NoError(t, err)
	assert.Equal(t, models.GroupSuspended, group.Status)

	_, err = h.payments.Initiate(h.ctx, h.members[1].ID, h.group.ID, 0, SystemActor)
	assert.ErrorIs(t, err, ErrGroupInactive)

	group, err = groups.SetStatus(h.ctx, h.group.ID, models.GroupActive, admin)
	require.NoError(t, err)
	assert.Equal(t, models.GroupActive, group.Status)

	_, err = h.payments.Initiate(h.ctx, h.members[1].ID, h.group.ID, 0, SystemActor)
	assert.NoError(t, err)
}

func TestCompletedGroupCannotResume(t *testing.T) {
	h := newHarness(t, 1)
	groups := NewGroupManager(h.deps)
	h.payAll(t)

	_, err := h.payouts.ProcessGroup(h.ctx, h.group.ID)
	require.NoError(t, err)
	require.Equal(t, models.GroupCompleted, h.reloadGroup(t).Status)

	_, err = groups.SetStatus(h.ctx, h.group.ID, models.GroupSuspended, h.members[0].ID)
	assert.ErrorIs(t, err, ErrGroupCompleted)
	assert.Equal(t, Terminal, KindOf(err))
}

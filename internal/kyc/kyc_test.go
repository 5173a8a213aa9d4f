package kyc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/internal/storage"
)

type fakeMembers struct {
	storage.MemberStore
	members map[string]*models.Member
}

func (f *fakeMembers) GetMember(_ context.Context, id string) (*models.Member, error) {
	m, ok := f.members[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return m, nil
}

func TestStoreGate(t *testing.T) {
	members := &fakeMembers{members: map[string]*models.Member{
		"ama":  {ID: "ama", KYCVerified: true},
		"kofi": {ID: "kofi", KYCVerified: false},
	}}
	ctx := context.Background()

	t.Run("required", func(t *testing.T) {
		g := NewStoreGate(members, true)
		ok, err := g.IsVerified(ctx, "ama")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = g.IsVerified(ctx, "kofi")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = g.IsVerified(ctx, "ghost")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("not required", func(t *testing.T) {
		g := NewStoreGate(members, false)
		ok, err := g.IsVerified(ctx, "kofi")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

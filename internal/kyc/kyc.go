// Package kyc answers whether a member may receive money.
package kyc

import (
	"context"
	"fmt"

	"github.com/mmynk/sususave/internal/storage"
)

// Gate reports whether a member passes the identity check.
type Gate interface {
	IsVerified(ctx context.Context, memberID string) (bool, error)
}

// StoreGate reads the verification flag recorded on the member. When
// require is false every member passes.
type StoreGate struct {
	members storage.MemberStore
	require bool
}

// NewStoreGate creates a gate over members.
func NewStoreGate(members storage.MemberStore, require bool) *StoreGate {
	return &StoreGate{members: members, require: require}
}

// IsVerified implements Gate.
func (g *StoreGate) IsVerified(ctx context.Context, memberID string) (bool, error) {
	if !g.require {
		return true, nil
	}
	member, err := g.members.GetMember(ctx, memberID)
	if err != nil {
		return false, fmt.Errorf("failed to load member for kyc: %w", err)
	}
	return member.KYCVerified, nil
}

// Required reports whether verification is enforced.
func (g *StoreGate) Required() bool {
	return g.require
}

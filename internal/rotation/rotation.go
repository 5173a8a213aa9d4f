// Package rotation holds the pure rules that decide who is paid in a round
// and when a round is complete.
package rotation

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/sususave/internal/models"
)

// Resolve returns the active membership whose rotation position equals round.
// The second return value is false when the slot is empty, e.g. after the
// member seated there was deactivated.
func Resolve(memberships []*models.Membership, round int) (*models.Membership, bool) {
	for _, m := range memberships {
		if m.RotationPosition == round && m.IsActive {
			return m, true
		}
	}
	return nil, false
}

// RoundComplete reports whether successCount covers every active member.
// A group with no active members is never complete.
func RoundComplete(successCount, activeCount int) bool {
	if activeCount <= 0 {
		return false
	}
	return successCount >= activeCount
}

// PayoutAmount is the pooled contribution for a round.
func PayoutAmount(successCount int, contribution decimal.Decimal) decimal.Decimal {
	return contribution.Mul(decimal.NewFromInt(int64(successCount)))
}

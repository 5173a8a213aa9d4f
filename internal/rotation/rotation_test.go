package rotation

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/sususave/internal/models"
)

func TestResolve(t *testing.T) {
	memberships := []*models.Membership{
		{MemberID: "ama", RotationPosition: 1, IsActive: true},
		{MemberID: "kofi", RotationPosition: 2, IsActive: false},
		{MemberID: "esi", RotationPosition: 3, IsActive: true},
	}

	tests := []struct {
		name   string
		round  int
		want   string
		wantOK bool
	}{
		{name: "first slot", round: 1, want: "ama", wantOK: true},
		{name: "deactivated slot is empty", round: 2, wantOK: false},
		{name: "third slot", round: 3, want: "esi", wantOK: true},
		{name: "beyond last position", round: 4, wantOK: false},
		{name: "round zero", round: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(memberships, tt.round)
			if ok != tt.wantOK {
				t.Fatalf("Resolve(%d) ok = %v, want %v", tt.round, ok, tt.wantOK)
			}
			if ok && got.MemberID != tt.want {
				t.Errorf("Resolve(%d) = %s, want %s", tt.round, got.MemberID, tt.want)
			}
		})
	}
}

func TestRoundComplete(t *testing.T) {
	tests := []struct {
		success, active int
		want            bool
	}{
		{3, 3, true},
		{4, 3, true},
		{2, 3, false},
		{0, 0, false},
	}
	for _, tt := range tests {
		if got := RoundComplete(tt.success, tt.active); got != tt.want {
			t.Errorf("RoundComplete(%d, %d) = %v, want %v", tt.success, tt.active, got, tt.want)
		}
	}
}

func TestPayoutAmount(t *testing.T) {
	got := PayoutAmount(3, decimal.RequireFromString("100.50"))
	if !got.Equal(decimal.RequireFromString("301.50")) {
		t.Errorf("PayoutAmount = %s, want 301.50", got)
	}
}

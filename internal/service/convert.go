package service

import (
	"github.com/mmynk/sususave/internal/engine"
	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/pkg/api"
)

func toAPIGroup(g *models.Group) *api.Group {
	return &api.Group{
		ID:                 g.ID,
		Code:               g.Code,
		Name:               g.Name,
		ContributionAmount: g.ContributionAmount,
		NumCycles:          g.NumCycles,
		CurrentRound:       g.CurrentRound,
		Status:             string(g.Status),
		CashOnly:           g.CashOnly,
		CreatorID:          g.CreatorID,
		CreatedAt:          g.CreatedAt,
	}
}

func toAPIMembership(m *models.Membership, member *models.Member) *api.Membership {
	out := &api.Membership{
		GroupID:          m.GroupID,
		MemberID:         m.MemberID,
		RotationPosition: m.RotationPosition,
		IsAdmin:          m.IsAdmin,
		IsActive:         m.IsActive,
		JoinedAt:         m.JoinedAt,
	}
	if member != nil {
		out.Name = member.Name
	}
	return out
}

func toAPIPayment(p *models.Payment) *api.Payment {
	if p == nil {
		return nil
	}
	return &api.Payment{
		ID:            p.ID,
		MemberID:      p.MemberID,
		GroupID:       p.GroupID,
		Round:         p.Round,
		Amount:        p.Amount,
		Status:        string(p.Status),
		Channel:       string(p.Channel),
		RetryCount:    p.RetryCount,
		TransactionID: p.TransactionID,
		FailureReason: p.FailureReason,
		SettledBy:     p.SettledBy,
		NextRetryAt:   p.NextRetryAt,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
}

func toAPIPayout(p *models.Payout) *api.Payout {
	if p == nil {
		return nil
	}
	return &api.Payout{
		ID:            p.ID,
		GroupID:       p.GroupID,
		Round:         p.Round,
		RecipientID:   p.RecipientID,
		Amount:        p.Amount,
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		FailureKind:   string(p.FailureKind),
		FailureReason: p.FailureReason,
		Attempts:      p.Attempts,
		ApprovedBy:    p.ApprovedBy,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
}

func toAPIRoundStatus(s *engine.RoundStatus) *api.RoundStatus {
	out := &api.RoundStatus{
		GroupID:  s.GroupID,
		Round:    s.Round,
		Paid:     s.Paid,
		Active:   s.Active,
		Complete: s.Complete,
	}
	if s.Recipient != nil {
		out.RecipientID = s.Recipient.MemberID
	}
	return out
}

func toAPINotification(n *models.Notification) *api.Notification {
	return &api.Notification{
		ID:        n.ID,
		GroupID:   n.GroupID,
		Type:      n.Type,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func toAPIAuditEntry(e *models.AuditEntry) *api.AuditEntry {
	return &api.AuditEntry{
		ID:         e.ID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		OldValue:   e.OldValue,
		NewValue:   e.NewValue,
		Actor:      e.Actor,
		Details:    e.Details,
		CreatedAt:  e.CreatedAt,
	}
}

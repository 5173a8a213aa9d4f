package notifier

import (
	"context"

	"github.com/mmynk/sususave/internal/models"
	"github.com/mmynk/sususave/internal/storage"
)

// TypePaymentMade tags in-app notifications about a member's contribution.
const TypePaymentMade = "payment_made"

// Feed writes in-app notifications.
type Feed struct {
	inbox storage.Inbox
}

// NewFeed creates a Feed backed by inbox.
func NewFeed(inbox storage.Inbox) *Feed {
	return &Feed{inbox: inbox}
}

// PaymentMade tells every active member except the payer how far the round has got.
func (f *Feed) PaymentMade(ctx context.Context, groupID, payerID string, active []*models.Membership, paid, round int) error {
	message := MemberPaid(paid, len(active), round)

	var batch []*models.Notification
	for _, m := range active {
		if m.MemberID == payerID {
			continue
		}
		batch = append(batch, &models.Notification{
			MemberID: m.MemberID,
			GroupID:  groupID,
			Type:     TypePaymentMade,
			Message:  message,
		})
	}
	return f.inbox.CreateNotifications(ctx, batch)
}

package engine

import "fmt"

// PaymentReference is the idempotency reference of a debit. Retries append
// the attempt number so each attempt is distinguishable downstream.
func PaymentReference(groupID string, round int, paymentID string, retry int) string {
	ref := fmt.Sprintf("Group:%s|Round:%d|Payment:%s", groupID, round, paymentID)
	if retry > 0 {
		ref += fmt.Sprintf("|Retry:%d", retry)
	}
	return ref
}

// PayoutReference is the idempotency reference of a credit. It is stable
// across attempts so the provider can refuse to pay the same round twice.
func PayoutReference(groupID string, round int, payoutID string) string {
	return fmt.Sprintf("Payout:Group:%s|Round:%d|Payout:%s", groupID, round, payoutID)
}

// CashTransactionID is the synthetic reference of an out-of-band settlement.
func CashTransactionID(unix int64, paymentID string) string {
	return fmt.Sprintf("CASH-%d-%s", unix, paymentID)
}

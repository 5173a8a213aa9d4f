package notifier

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is printed in front of every amount.
const Currency = "GHS"

// PaymentConfirmed is sent to a member after a successful contribution.
func PaymentConfirmed(amount decimal.Decimal, groupName, txID string) string {
	return fmt.Sprintf("Payment confirmed! You paid %s %s to %s. TxnID: %s. Thank you!",
		Currency, amount.StringFixed(2), groupName, txID)
}

// PaymentFailed is sent after a declined debit.
func PaymentFailed(amount decimal.Decimal, groupName string, attempt, maxAttempts int) string {
	return fmt.Sprintf("Payment of %s %s to %s failed. Attempt %d/%d. Please ensure sufficient funds.",
		Currency, amount.StringFixed(2), groupName, attempt, maxAttempts)
}

// PayoutReceived is sent to the recipient of a round.
func PayoutReceived(amount decimal.Decimal, groupName, txID string) string {
	return fmt.Sprintf("Congratulations! You received %s %s from %s. TxnID: %s. Funds in your wallet.",
		Currency, amount.StringFixed(2), groupName, txID)
}

// MemberPaid is the in-app message other members see after a contribution.
func MemberPaid(paid, total, round int) string {
	return fmt.Sprintf("A member just paid! %d of %d members have paid for Round %d", paid, total, round)
}

// Package gateway defines the money movement boundary: debiting a payer's
// mobile money wallet and crediting a recipient's.
package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds means the payer's wallet cannot cover the debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAccount means the phone reference has no usable wallet.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrTransport means the call did not produce a definite answer
	// (network failure, timeout, 5xx). The downstream may or may not have
	// applied the transfer.
	ErrTransport = errors.New("transport failure")
)

// Gateway moves money. Both calls block until the provider answers or the
// context/timeout expires, and return the provider's transaction id.
//
// reference is an idempotency key: a provider that has already applied a
// transfer with the same reference returns the original transaction id.
type Gateway interface {
	Debit(ctx context.Context, phone string, amount decimal.Decimal, reference string) (string, error)
	Credit(ctx context.Context, phone string, amount decimal.Decimal, reference string) (string, error)
}

// Reconciler is implemented by gateways that can report what happened to a
// reference after an ambiguous failure.
type Reconciler interface {
	// Lookup returns the transaction id for a successfully applied reference.
	// found is false when the provider has no successful record of it.
	Lookup(ctx context.Context, reference string) (txID string, found bool, err error)
}

// IsDeclined reports whether err is a definite refusal by the provider.
func IsDeclined(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInvalidAccount)
}

// IsTransient reports whether err left the outcome unknown.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransport)
}

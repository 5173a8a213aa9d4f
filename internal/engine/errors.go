package engine

import (
	"errors"
	"fmt"

	"github.com/mmynk/sususave/internal/gateway"
	"github.com/mmynk/sususave/internal/storage"
)

// Kind classifies engine errors so callers can tell caller-correctable
// failures from ones worth retrying.
type Kind int

const (
	// Internal is an infrastructure failure (storage, encoding).
	Internal Kind = iota
	// Validation means the request can never succeed as issued.
	Validation
	// NotFound means a referenced group, member, payment or payout is missing.
	NotFound
	// Permission means the actor lacks the admin role for the operation.
	Permission
	// Terminal means the row reached a state the operation cannot leave.
	Terminal
	// GatewayDeclined means the provider refused the transfer.
	GatewayDeclined
	// GatewayTransient means the provider outcome is unknown (timeout, network).
	GatewayTransient
	// Compliance means the recipient failed the identity gate.
	Compliance
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Permission:
		return "permission"
	case Terminal:
		return "terminal"
	case GatewayDeclined:
		return "gateway_declined"
	case GatewayTransient:
		return "gateway_transient"
	case Compliance:
		return "compliance"
	default:
		return "internal"
	}
}

// Retryable reports whether a later attempt may succeed without outside action.
func (k Kind) Retryable() bool {
	return k == GatewayDeclined || k == GatewayTransient
}

var (
	ErrNotMember         = errors.New("member is not active in group")
	ErrNotAdmin          = errors.New("actor is not a group admin")
	ErrCashOnly          = errors.New("group is cash-only; use cash settlement")
	ErrGroupInactive     = errors.New("group is not active")
	ErrInvalidRound      = errors.New("round is outside the group's schedule")
	ErrAlreadyPaid       = errors.New("already paid for this round")
	ErrPaymentInProgress = errors.New("a payment for this round is in progress")
	ErrNotRetryable      = errors.New("payment is not in a retryable state")
	ErrRetriesExhausted  = errors.New("retry limit reached; settle in cash")
	ErrPaymentRequired   = errors.New("payment required")
	ErrPayoutPaid        = errors.New("payout already paid")
	ErrRoundMoved        = errors.New("group has moved past the payout's round")
	ErrKYCRequired       = errors.New("recipient has not passed KYC verification")
	ErrAlreadyMember     = errors.New("member already holds a seat in this group")
	ErrGroupCompleted    = errors.New("group has completed all cycles")
)

// Error is returned by every orchestrator operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// storeError classifies a storage failure.
func storeError(op string, err error) *Error {
	if errors.Is(err, storage.ErrNotFound) {
		return newError(NotFound, op, err)
	}
	return newError(Internal, op, err)
}

// gatewayError classifies a money movement failure.
func gatewayError(op string, err error) *Error {
	if gateway.IsDeclined(err) {
		return newError(GatewayDeclined, op, fmt.Errorf("%w: %w", ErrPaymentRequired, err))
	}
	return newError(GatewayTransient, op, err)
}

package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/sususave/internal/engine"
	"github.com/mmynk/sususave/internal/storage"
)

var errUnauthenticated = errors.New("no authenticated member on request")

// stateErrors are caller mistakes about the current state of a row rather
// than about the request itself.
var stateErrors = []error{
	engine.ErrAlreadyPaid,
	engine.ErrPaymentInProgress,
	engine.ErrGroupInactive,
	engine.ErrAlreadyMember,
	engine.ErrNotMember,
	engine.ErrPayoutPaid,
	engine.ErrRoundMoved,
	engine.ErrCashOnly,
}

// toConnectError maps an engine or storage error to a Connect status.
func toConnectError(err error) *connect.Error {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, storage.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}

	switch engine.KindOf(err) {
	case engine.Validation:
		for _, target := range stateErrors {
			if errors.Is(err, target) {
				return connect.NewError(connect.CodeFailedPrecondition, err)
			}
		}
		return connect.NewError(connect.CodeInvalidArgument, err)
	case engine.NotFound:
		return connect.NewError(connect.CodeNotFound, err)
	case engine.Permission:
		return connect.NewError(connect.CodePermissionDenied, err)
	case engine.Terminal, engine.Compliance, engine.GatewayDeclined:
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case engine.GatewayTransient:
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

package connect

import (
	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/cuebox/internal/app/actions"
	"github.com/osa030/cuebox/internal/app/controller"
	"github.com/osa030/cuebox/internal/app/playdata"
	"github.com/osa030/cuebox/internal/app/trigger"
	"github.com/osa030/cuebox/internal/domain/rundown"
)

// toConnectError maps domain errors onto connect codes.
func toConnectError(err error) error {
	return connect.NewError(codeOf(err), err)
}

func codeOf(err error) connect.Code {
	switch {
	case errors.Is(err, rundown.ErrGroupNotFound),
		errors.Is(err, rundown.ErrPartNotFound),
		errors.Is(err, trigger.ErrTriggerNotFound):
		return connect.CodeNotFound
	case errors.Is(err, controller.ErrRejected):
		return connect.CodePermissionDenied
	case errors.Is(err, actions.ErrInvalidPauseTime),
		errors.Is(err, controller.ErrUnsupportedOp):
		return connect.CodeInvalidArgument
	case errors.Is(err, playdata.ErrInvalidConfiguration),
		errors.Is(err, actions.ErrPartDisabled),
		errors.Is(err, actions.ErrGroupDisabled),
		errors.Is(err, controller.ErrNothingToUndo),
		errors.Is(err, controller.ErrNothingToRedo):
		return connect.CodeFailedPrecondition
	case errors.Is(err, controller.ErrClosed):
		return connect.CodeUnavailable
	default:
		return connect.CodeInternal
	}
}

func invalidArgument(msg string) error {
	return connect.NewError(connect.CodeInvalidArgument, errors.New(msg))
}

package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning callback to fsm.Callback. A non-nil
// error is stored on the event so that FSM.Event returns it.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// IsNoTransition reports whether err only says that the event left the
// state unchanged.
func IsNoTransition(err error) bool {
	var nt fsm.NoTransitionError
	return errors.As(err, &nt)
}

// IsRejected reports whether err means the event is not allowed from the
// current state or is not defined at all.
func IsRejected(err error) bool {
	var invalid fsm.InvalidEventError
	var unknown fsm.UnknownEventError
	return errors.As(err, &invalid) || errors.As(err, &unknown)
}

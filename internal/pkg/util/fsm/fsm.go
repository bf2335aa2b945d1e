// Package fsm holds small helpers around github.com/looplab/fsm callbacks.
package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning callback to a fsm.Callback. A returned error
// is recorded on the event and surfaces from FSM.Event.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// Guard adapts a predicate to a before_<event> callback. A false result cancels
// the transition; a non-nil error cancels it with that error.
func Guard(fn func(ctx context.Context, event *fsm.Event) (bool, error)) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		ok, err := fn(ctx, event)
		if err != nil {
			event.Cancel(err)
			return
		}
		if !ok {
			event.Cancel()
		}
	}
}

// Arg returns the i-th event argument as T.
func Arg[T any](event *fsm.Event, i int) (T, bool) {
	var zero T
	if i >= len(event.Args) {
		return zero, false
	}
	v, ok := event.Args[i].(T)
	return v, ok
}

// IsBenign reports whether err only means that nothing happened: the transition
// was cancelled without a cause, or the machine is already in the target state.
func IsBenign(err error) bool {
	if err == nil {
		return true
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return true
	}
	var canceled fsm.CanceledError
	if errors.As(err, &canceled) {
		return canceled.Err == nil
	}
	return false
}

package resolution

import "errors"

var (
	// ErrNoResolve is returned by resolvers that have no resolve behaviour
	// for their kind. The engine removes the action.
	ErrNoResolve = errors.New("resolution: kind has no resolve behaviour")
	// ErrNoUpdate is returned by resolvers that have no update behaviour.
	ErrNoUpdate = errors.New("resolution: kind has no update behaviour")
	// ErrInvalidAction marks an action whose character or target no longer
	// exists.
	ErrInvalidAction = errors.New("resolution: invalid action")
	// ErrNotFound is returned for action ids the queue does not hold.
	ErrNotFound = errors.New("resolution: action not found")
	// ErrNotCancellable is returned when cancelling a non-cancellable action
	// without force.
	ErrNotCancellable = errors.New("resolution: action cannot be cancelled")
	// ErrNoTargets is returned when a battle has neither targets nor a siege.
	ErrNoTargets = errors.New("resolution: battle has no targets")
)

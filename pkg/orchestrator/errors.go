package orchestrator

import "github.com/pkg/errors"

var (
	// ErrInvalidMaxTurns is a configuration error: the turn budget must
	// not be negative. Raised before any iteration, never retried.
	ErrInvalidMaxTurns = errors.New("max turns must not be negative")

	// ErrMissingModelCaller and ErrMissingDelegate are configuration
	// errors for absent required collaborators.
	ErrMissingModelCaller = errors.New("orchestrator has no model caller")
	ErrMissingDelegate    = errors.New("orchestrator has no execution delegate")

	// ErrMissingInstruction is a configuration error for an empty task.
	ErrMissingInstruction = errors.New("run instruction must not be empty")

	// ErrRunConsumed indicates Run was called twice on the same
	// orchestrator. A run object is single-use; a fresh run requires
	// fresh History and RunState instances.
	ErrRunConsumed = errors.New("orchestrator run already consumed")

	// ErrNilOutcome indicates the delegate returned neither an outcome
	// nor an error, which breaks its contract.
	ErrNilOutcome = errors.New("execution delegate returned nil outcome")
)

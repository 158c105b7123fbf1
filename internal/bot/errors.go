package bot

import "errors"

// Error kinds surfaced by the conversational flows. Handlers wrap these with
// context; the dispatch boundary inspects them with errors.Is.
var (
	// ErrValidation marks recoverable bad input; the flow re-prompts and
	// stays in the same state.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing assignment or template; the flow aborts
	// without mutating session state.
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks a failed storage operation; the session is not
	// advanced past the failed step.
	ErrPersistence = errors.New("persistence failed")

	// ErrUnrecognized marks an event that matches no known payload or state.
	ErrUnrecognized = errors.New("unrecognized input")
)

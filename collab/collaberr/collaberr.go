// Package collaberr defines the error taxonomy shared by every component of
// the collaboration core, in order of severity: UserVisibleValidation,
// AgentLimitReached, PersistenceFailure, HookError, Fatal. Everything that
// is not Fatal is meant to be surfaced to the model as prose.
package collaberr

import (
	"errors"
	"fmt"
)

// Kind tags which branch of the taxonomy an error belongs to.
type Kind int

const (
	// KindUserVisibleValidation is returned to the model as prose and never
	// aborts the run (e.g. "members must be non-empty").
	KindUserVisibleValidation Kind = iota
	// KindAgentLimitReached may trigger one reap-and-retry; if still
	// failing it is surfaced as a validation error.
	KindAgentLimitReached
	// KindPersistenceFailure is an atomic-write or lock-acquisition
	// failure; callers roll back any in-memory mutation and report it as a
	// validation error to the model.
	KindPersistenceFailure
	// KindHookError is a hook parse/timeout/spawn failure, attached to a
	// hook result's error field rather than aborting the triggering
	// operation by itself.
	KindHookError
	// KindFatal never reaches the model; it propagates to the caller and is
	// not retryable.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindUserVisibleValidation:
		return "user_visible_validation"
	case KindAgentLimitReached:
		return "agent_limit_reached"
	case KindPersistenceFailure:
		return "persistence_failure"
	case KindHookError:
		return "hook_error"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a taxonomy-tagged error. Kind determines how a tool handler
// presents it: every Kind except KindFatal is rendered back to the model as
// plain text (the Message field); KindFatal propagates wrapped and opaque.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// RespondToModel reports whether err should be rendered back to the model as
// prose rather than propagated as an opaque failure.
func RespondToModel(err error) (string, bool) {
	var ce *Error
	if !errors.As(err, &ce) {
		return "", false
	}
	if ce.Kind == KindFatal {
		return "", false
	}
	return ce.Message, true
}

// Validation builds a KindUserVisibleValidation error with the given
// message, e.g. "Agent depth limit reached. Solve the task yourself."
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindUserVisibleValidation, Message: fmt.Sprintf(format, args...)}
}

// AgentLimitReached wraps err as a KindAgentLimitReached error.
func AgentLimitReached(err error) *Error {
	return &Error{Kind: KindAgentLimitReached, Message: "agent limit reached", Err: err}
}

// Persistence wraps err as a KindPersistenceFailure error with a
// model-visible message describing what failed.
func Persistence(message string, err error) *Error {
	return &Error{Kind: KindPersistenceFailure, Message: message, Err: err}
}

// Hook wraps err as a KindHookError, attached to a hook result rather than
// aborting the triggering operation on its own.
func Hook(message string, err error) *Error {
	return &Error{Kind: KindHookError, Message: message, Err: err}
}

// Fatalf builds a KindFatal error that propagates to the caller unmodified
// and is never shown to the model.
func Fatalf(format string, args ...any) *Error {
	return &Error{Kind: KindFatal, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an arbitrary error as KindFatal, for failures that indicate a
// programming error rather than bad input, such as serialization of a
// well-typed value failing.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindFatal, Message: "internal error", Err: err}
}

// ErrDepthLimitReached is the canonical depth-guard validation error text
// used verbatim by every spawn/resume tool handler.
var ErrDepthLimitReached = Validation("Agent depth limit reached. Solve the task yourself.")

package plugin

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to test for them.
var (
	// ErrInvalidConfig indicates invocation parameters or plugin settings are out of range.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInterrupted indicates a run stopped early because its context was cancelled.
	ErrInterrupted = errors.New("interrupted")

	// ErrMethodNotFound indicates the plugin has no method with the requested name.
	ErrMethodNotFound = errors.New("method not found")

	// ErrPluginNotFound indicates no plugin with the requested name is registered.
	ErrPluginNotFound = errors.New("plugin not found")
)

// Error kinds.
const (
	KindValidation    = "validation"
	KindInterrupted   = "interrupted"
	KindExecution     = "execution"
	KindNotFound      = "not_found"
	KindConfiguration = "configuration"
)

// Error is the structured error returned by plugins and the host. It records
// the operation that failed and the category of the failure.
//
//	err := &plugin.Error{Op: "prefattach.Run", Kind: plugin.KindValidation, Err: plugin.ErrInvalidConfig}
type Error struct {
	// Op is the failing operation, such as "split-nodes.split".
	Op string

	// Kind is one of the Kind constants.
	Kind string

	// Err is the underlying error.
	Err error

	// Context holds optional debugging values such as parameter values.
	Context map[string]any
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case len(e.Context) > 0:
		return fmt.Sprintf("%s (%s): %v %v", e.Op, e.Kind, e.Err, e.Context)
	default:
		return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind, and by Op when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind && (t.Op == "" || e.Op == t.Op)
}

// With returns a copy of e with the given context values merged in.
func (e *Error) With(kv map[string]any) *Error {
	out := *e
	out.Context = make(map[string]any, len(e.Context)+len(kv))
	for k, v := range e.Context {
		out.Context[k] = v
	}
	for k, v := range kv {
		out.Context[k] = v
	}
	return &out
}

// NewValidationError reports rejected input. err is joined with
// ErrInvalidConfig so callers can match either.
func NewValidationError(op string, err error) *Error {
	if !errors.Is(err, ErrInvalidConfig) {
		err = fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &Error{Op: op, Kind: KindValidation, Err: err}
}

// NewInterruptedError reports a cancelled run. cause is usually ctx.Err() and
// stays reachable through errors.Is alongside ErrInterrupted.
func NewInterruptedError(op string, cause error) *Error {
	if cause == nil {
		cause = context.Canceled
	}
	return &Error{Op: op, Kind: KindInterrupted, Err: fmt.Errorf("%w: %w", ErrInterrupted, cause)}
}

// NewExecutionError reports a failure while running.
func NewExecutionError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindExecution, Err: err}
}

// NewNotFoundError reports a missing plugin or method.
func NewNotFoundError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindNotFound, Err: err}
}

// NewConfigurationError reports an unusable plugin or host setup.
func NewConfigurationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Err: err}
}

// IsInterrupted reports whether err is an interruption.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, &Error{Kind: KindValidation}) || errors.Is(err, ErrInvalidConfig)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

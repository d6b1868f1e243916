// Package errors implements the closed error taxonomy of spec.md §7: one
// CoreError type whose Kind selects among five closed kinds, with
// Retriable/Surfaces helpers. There are no separate transient, permanent or
// degraded error types.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the closed taxonomy from spec.md §7.
type Kind int

const (
	KindUser Kind = iota
	KindConfig
	KindTransientProvider
	KindIntegrity
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "UserError"
	case KindConfig:
		return "ConfigError"
	case KindTransientProvider:
		return "TransientProviderError"
	case KindIntegrity:
		return "IntegrityError"
	default:
		return "InternalError"
	}
}

// CoreError is the base error type every layer of the core returns.
type CoreError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Err }

// New constructs a CoreError of the given kind.
func New(kind Kind, message string, cause error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Err: cause}
}

func UserError(message string, cause error) *CoreError {
	return New(KindUser, message, cause)
}

func ConfigError(message string, cause error) *CoreError {
	return New(KindConfig, message, cause)
}

func TransientProviderError(message string, cause error) *CoreError {
	return New(KindTransientProvider, message, cause)
}

func IntegrityError(message string, cause error) *CoreError {
	return New(KindIntegrity, message, cause)
}

func InternalError(message string, cause error) *CoreError {
	return New(KindInternal, message, cause)
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// Retriable reports whether the caller may retry err with backoff. Only
// TransientProviderError is retriable by definition (spec.md §7); everything
// else is terminal for the turn that produced it.
func Retriable(err error) bool {
	return Is(err, KindTransientProvider)
}

// Surfaces reports whether err must be surfaced to the user/stream rather
// than locally recovered, per the propagation policy table in spec.md §7.
func Surfaces(err error) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case KindTransientProvider, KindIntegrity, KindInternal:
			return true
		}
	}
	return false
}

// Package apperr defines the error kinds shared by domain, storage and
// transport layers. Callers branch on the kind, never on message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	KindUnknown        Kind = "unknown"
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindNotFound       Kind = "not_found"
	KindTransientStore Kind = "transient_store"
	KindStoreConfig    Kind = "store_config"
)

// Error is a classified error with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string // field -> failed rule, validation only
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil && e.Kind != KindValidation && e.Kind != KindConflict && e.Kind != KindNotFound {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Kind sentinels for errors.Is checks.
var (
	ErrValidation     = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict       = &Error{Kind: KindConflict, Message: "conflict"}
	ErrNotFound       = &Error{Kind: KindNotFound, Message: "not found"}
	ErrTransientStore = &Error{Kind: KindTransientStore, Message: "datastore temporarily unavailable"}
	ErrStoreConfig    = &Error{Kind: KindStoreConfig, Message: "datastore misconfigured"}
)

// Validation creates a validation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationFields creates a validation error carrying per-field failures.
func ValidationFields(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found error for the named entity.
func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %q not found", entity, id)}
}

// Transient wraps a retryable datastore failure.
func Transient(op string, cause error) *Error {
	return &Error{Kind: KindTransientStore, Message: op + ": datastore temporarily unavailable", Cause: cause}
}

// StoreConfig wraps a datastore failure caused by configuration (credentials, database name).
func StoreConfig(op string, cause error) *Error {
	return &Error{Kind: KindStoreConfig, Message: op + ": datastore misconfigured", Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

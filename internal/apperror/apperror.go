// Package apperror defines the closed set of failures the billing services
// report to their callers.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindAlreadyExists    Kind = "already_exists"
	KindInvalidOperation Kind = "invalid_operation"
	KindValidation       Kind = "validation_error"
	KindStorage          Kind = "storage_error"
)

// Sentinels match every error of their kind under errors.Is.
var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrAlreadyExists    = &Error{Kind: KindAlreadyExists}
	ErrInvalidOperation = &Error{Kind: KindInvalidOperation}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrStorage          = &Error{Kind: KindStorage}
)

type Error struct {
	Kind    Kind
	Message string

	Entity string
	ID     any
	Field  string
	Value  any
	Op     string

	cause error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is compares by kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func NotFound(entity string, id any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s with id %v not found", entity, id),
		Entity:  entity,
		ID:      id,
	}
}

func AlreadyExists(entity, field string, value any) *Error {
	return &Error{
		Kind:    KindAlreadyExists,
		Message: fmt.Sprintf("%s with %s=%v already exists", entity, field, value),
		Entity:  entity,
		Field:   field,
		Value:   value,
	}
}

func InvalidOperation(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidOperation, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationField is Validation bound to a named input field.
func ValidationField(field string, cause error) *Error {
	return &Error{Kind: KindValidation, Message: cause.Error(), Field: field, cause: cause}
}

// Storage hides the driver error behind a generic message; the cause stays
// reachable through errors.Unwrap for logging.
func Storage(op string, cause error) *Error {
	return &Error{
		Kind:    KindStorage,
		Message: "Failed to " + op,
		Op:      op,
		cause:   cause,
	}
}

// Wrap passes taxonomy errors through unchanged and turns anything else into
// a storage failure for op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return Storage(op, err)
}

// KindOf returns the taxonomy kind of err, or "" for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func IsStorage(err error) bool {
	return KindOf(err) == KindStorage
}

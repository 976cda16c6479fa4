package pages

import (
	"errors"
	"fmt"
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// NotFoundError reports an operation on a slug without a record or content.
type NotFoundError struct {
	Slug string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("page not found: %s", e.Slug)
}

// PersistenceError reports a failed read or write against a store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsPersistence reports whether err is or wraps a *PersistenceError.
func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

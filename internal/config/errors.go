package config

import (
	"errors"
	"fmt"

	"github.com/dshills/sitecfg/internal/config/storage"
)

// Errors returned by configuration operations.
var (
	// ErrInvalidArgument indicates a malformed call, such as Set without a value.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSettingNotFound indicates the setting path resolves to nothing.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrTypeMismatch indicates the value type doesn't match the expected type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrAlreadyInitialized indicates Init was called more than once.
	ErrAlreadyInitialized = errors.New("config already initialized")
)

// TypeError is returned when a type conversion fails.
type TypeError struct {
	// Path is the setting path.
	Path string
	// Expected is the expected type name.
	Expected string
	// Actual is the actual type name.
	Actual string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("type error for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// Is implements error matching for TypeError.
func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// PersistError is returned when the in-memory change succeeded but writing
// it to storage did not. The in-memory tree keeps the change.
type PersistError struct {
	// Area is the storage area that was written.
	Area storage.Area
	// Err is the backend error.
	Err error
}

// Error implements the error interface.
func (e *PersistError) Error() string {
	return fmt.Sprintf("persist config to %s storage: %v", e.Area, e.Err)
}

// Unwrap returns the backend error.
func (e *PersistError) Unwrap() error {
	return e.Err
}

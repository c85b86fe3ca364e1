package engine

import (
	"errors"
	"fmt"
)

// Error taxonomy for engine operations. Callers classify failures with
// errors.Is against these sentinels; leaf package errors are wrapped into
// one of them at the engine boundary.
var (
	// ErrValidation indicates rejected input: blank required fields, bad
	// enum values, out-of-range paging.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a referenced entity does not exist (or, for
	// similarity queries, has no embedding).
	ErrNotFound = errors.New("not found")

	// ErrInvalidDevice indicates a device name outside the supported set.
	ErrInvalidDevice = errors.New("invalid device")

	// ErrDeviceUnavailable indicates a supported device this host lacks.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrEncoding indicates the embedding backend failed.
	ErrEncoding = errors.New("encoding failed")

	// ErrIndexBuild indicates an index rebuild failed or could not start.
	ErrIndexBuild = errors.New("index build error")

	// ErrConflict indicates the operation collides with one in flight.
	ErrConflict = errors.New("conflicting operation in progress")
)

// validationErr wraps a formatted message in ErrValidation.
func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFoundErr wraps a formatted message in ErrNotFound.
func notFoundErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is an ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict reports whether err is an ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

package main

import (
	"errors"

	"github.com/Txm04/author-retrieval/internal/engine"
)

// Exit codes for the ar CLI.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (runtime failure)
	ExitConfigError = 2 // Configuration error (bad env, unreadable paths)
	ExitValidation  = 3 // Rejected input (blank fields, bad enum, paging)
	ExitNotFound    = 4 // Referenced entity does not exist
	ExitDeviceError = 5 // Invalid or unavailable compute device
	ExitConflict    = 6 // Conflicting operation in progress
)

// exitCodeFor maps an engine error onto an exit code.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrValidation):
		return ExitValidation
	case errors.Is(err, engine.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, engine.ErrInvalidDevice), errors.Is(err, engine.ErrDeviceUnavailable):
		return ExitDeviceError
	case errors.Is(err, engine.ErrConflict):
		return ExitConflict
	default:
		return ExitError
	}
}

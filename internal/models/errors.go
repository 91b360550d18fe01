package models

import "errors"

var (
	// ErrNotFound is returned for operations on unknown gallery ids,
	// monitors or media-server paths.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for missing or malformed caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCapabilityUnavailable is returned when a required model or backend
	// is not loaded.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
)

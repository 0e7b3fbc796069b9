package repository

import "errors"

var (
	// ErrInvalidOperation is returned for calls that contradict the
	// current state, such as enabling an enabled mod.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrCollision is returned when a target folder name is taken.
	ErrCollision = errors.New("folder name collision")

	// ErrNotFound is returned for unknown entry IDs.
	ErrNotFound = errors.New("entry not found")

	// ErrContractViolation is returned when the repository finds its watch
	// source out of step with its folder. It indicates a defect, not a
	// user error.
	ErrContractViolation = errors.New("repository contract violation")

	// ErrClosed is returned by operations on a closed repository.
	ErrClosed = errors.New("repository closed")
)

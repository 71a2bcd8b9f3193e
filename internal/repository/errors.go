package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict means the attempt row changed since it was loaded.
	ErrVersionConflict = errors.New("attempt was modified concurrently")
	// ErrAssignmentClosed means a save that required an open assignment found it closed.
	ErrAssignmentClosed = errors.New("assignment closed before the attempt was saved")
	// ErrDuplicateAttempt means a uniqueness rule on attempts rejected the insert.
	ErrDuplicateAttempt = errors.New("attempt already exists")
	// ErrNotOpen means a conditional open->closed update found the assignment not open.
	ErrNotOpen = errors.New("assignment is not open")
)

package service

import "errors"

// Operation outcomes surfaced to clients. Store failures are wrapped with
// %w instead so callers can distinguish a rejected operation from a
// persistence problem worth retrying.
var (
	// ErrHandleTaken is returned when registering an existing handle.
	ErrHandleTaken = errors.New("handle already taken")

	// ErrNotFound is returned for unknown users, requests or contact rows.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateRequest is returned when a pending contact request
	// already exists for the ordered (from, to) pair.
	ErrDuplicateRequest = errors.New("contact request already pending")
)

package miner

import "errors"

var (
	// ErrConfigConflict is returned when window options contradict each other.
	ErrConfigConflict = errors.New("conflicting traversal options")
	// ErrInvalidWindow is returned for malformed window values.
	ErrInvalidWindow = errors.New("invalid traversal window")
	// ErrUnsupportedOrder is returned for an unknown traversal order.
	ErrUnsupportedOrder = errors.New("unsupported traversal order")
	// ErrCommitNotFound is returned when a commit named in the window does not resolve.
	ErrCommitNotFound = errors.New("commit not found")
)

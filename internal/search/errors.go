package search

import "errors"

var (
	// ErrUnsupportedCondition is returned when a heuristic cannot compile a
	// precondition shape. It is a modeling error and fatal to the search.
	ErrUnsupportedCondition = errors.New("unsupported condition")
	// ErrNoTargets is returned when a search is started without goals.
	ErrNoTargets = errors.New("no targets")
	// ErrExpansion wraps failures of parallel node expansion.
	ErrExpansion = errors.New("node expansion failed")
)

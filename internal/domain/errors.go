package domain

import "errors"

var (
	// ErrEmptyQuery signals a retrieval request with no query text.
	ErrEmptyQuery = errors.New("query text is empty")
	// ErrInvalidFilter signals a filter value that cannot be interpreted.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrStrategyConflict signals a duplicate extraction-strategy registration.
	// This is a startup configuration bug, never a request-time condition.
	ErrStrategyConflict = errors.New("extraction strategy already registered")
	// ErrNoStrategy signals a data-source kind with no registered strategy.
	ErrNoStrategy = errors.New("no extraction strategy registered")
	// ErrUpstream signals an unreachable or failing backing store.
	ErrUpstream = errors.New("upstream store error")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
)

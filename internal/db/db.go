// Package db defines the narrow contract the retrieval pipeline has with
// the vector index, independent of the backing engine.
package db

import (
	"context"
	"time"
)

// Store is the read-only vector index facade.
type Store interface {
	Pinger
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks index connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher provides read queries over per-user FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchSorted(ctx context.Context, q *SortQuery) (*SearchResult, error)
}

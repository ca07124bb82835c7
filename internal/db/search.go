package db

import "github.com/pensieve-cloud/pensieve/internal/domain/retrieval/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	Filters   filter.Expression
	Vector    []float32
	K         int
}

// SortQuery is the input for a time-ordered scroll over one index.
type SortQuery struct {
	IndexName string
	Filters   filter.Expression
	SortBy    string
	Desc      bool
	Limit     int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

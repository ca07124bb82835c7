// Package retrieval holds the request-scoped types of the retrieval
// pipeline: the validated query request, the vector hit, and the final
// content chunk handed back to the caller.
package retrieval

import (
	"fmt"
	"time"

	"github.com/pensieve-cloud/pensieve/internal/domain"
	"github.com/pensieve-cloud/pensieve/internal/domain/retrieval/filter"
	"github.com/pensieve-cloud/pensieve/internal/domain/source"
)

// Request parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length.
	MaxQueryLength = 4096
	// DefaultLimit caps similarity results when the caller does not ask
	// for a specific amount.
	DefaultLimit = 100
	// MaxLimit is the hard cap on similarity results.
	MaxLimit = 100
	// DefaultRecent is the number of chat messages returned by a recent
	// lookup when the caller does not specify one.
	DefaultRecent = 1
	// MaxRecent is the hard cap on recent chat messages.
	MaxRecent = 100
)

// Request is a validated retrieval query scoped to one requester.
type Request struct {
	query       string
	requesterID string
	filters     filter.Expression
	limit       int
}

// NewRequest validates and normalizes retrieval parameters.
// Limit defaults to DefaultLimit and is clamped to MaxLimit.
func NewRequest(query, requesterID string, filters filter.Expression, limit int) (Request, error) {
	if query == "" {
		return Request{}, domain.ErrEmptyQuery
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if requesterID == "" {
		return Request{}, fmt.Errorf("requester id is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Request{
		query:       query,
		requesterID: requesterID,
		filters:     filters,
		limit:       limit,
	}, nil
}

// Query returns the query text.
func (r *Request) Query() string { return r.query }

// RequesterID returns the user whose collection is searched.
func (r *Request) RequesterID() string { return r.requesterID }

// Filters returns the structured filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// Limit returns the maximum number of vector hits to consider.
func (r *Request) Limit() int { return r.limit }

// Hit is one record from the vector index: provenance and join keys, but
// not the content itself. Score is only meaningful for similarity queries;
// time-ordered scrolls leave it at zero.
type Hit struct {
	ChunkID        string
	Source         source.Kind
	IngestedAt     time.Time
	ContentAt      time.Time
	Metadata       map[string]string
	ConversationID string
	MessageID      string
	Score          float64
}

// Chunk is a fully resolved result: authoritative content plus the
// provenance carried by its vector hit.
type Chunk struct {
	Content    string
	Source     source.Kind
	IngestedAt time.Time
	ContentAt  time.Time
	Metadata   map[string]string
}

// Record is one authoritative content row keyed by its join id.
type Record struct {
	ID      string
	Content string
}

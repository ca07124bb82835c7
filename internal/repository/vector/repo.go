// Package vector adapts the Redis FT.SEARCH plumbing into the retrieval
// pipeline's view of the vector index: typed hits scoped to one user's
// collection.
package vector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pensieve-cloud/pensieve/internal/db"
	"github.com/pensieve-cloud/pensieve/internal/domain"
	"github.com/pensieve-cloud/pensieve/internal/domain/retrieval"
	"github.com/pensieve-cloud/pensieve/internal/domain/retrieval/filter"
	"github.com/pensieve-cloud/pensieve/internal/domain/source"
)

// Reserved payload fields. Everything else in a hit passes through as
// metadata verbatim.
const (
	fieldChunkID        = "chunk_id"
	fieldDataSource     = "data_input_source"
	fieldIngestionTime  = "ingestion_timestamp"
	fieldContentTime    = "content_timestamp"
	fieldConversationID = "conversation_id"
	fieldMessageID      = "message_id"
)

// store is the consumer interface for index queries (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchSorted(ctx context.Context, q *db.SortQuery) (*db.SearchResult, error)
}

// Client issues read queries against per-user vector collections.
type Client struct {
	store  store
	model  string
	logger *zap.Logger
}

// New creates a vector search client bound to one embedding model namespace.
func New(s store, model string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{store: s, model: model, logger: logger}
}

// CollectionName derives the per-user collection: one user, one embedding
// model version. Changing the model implies a new namespace.
func (c *Client) CollectionName(requesterID string) string {
	return requesterID + "__" + strings.ReplaceAll(c.model, "/", "_")
}

// SearchSimilar runs a similarity search over the requester's collection.
// Hits below threshold are excluded; ordering is descending similarity.
func (c *Client) SearchSimilar(
	ctx context.Context, requesterID string,
	vector []float32, filters filter.Expression, limit int, threshold float64,
) ([]retrieval.Hit, error) {
	collection := c.CollectionName(requesterID)

	sr, err := c.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: indexName(collection),
		Filters:   filters,
		Vector:    vector,
		K:         limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search similar %s: %w", domain.ErrUpstream, collection, err)
	}

	hits := c.parseEntries(sr, collection)
	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= threshold {
			kept = append(kept, h)
		}
	}
	return kept, nil
}

// ScrollLatest returns the limit most recent hits for one conversation,
// ordered by content timestamp descending. Not similarity-ranked.
func (c *Client) ScrollLatest(
	ctx context.Context, requesterID, conversationID string, limit int,
) ([]retrieval.Hit, error) {
	collection := c.CollectionName(requesterID)

	cond, err := filter.NewMatch(fieldConversationID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: conversation filter: %w", domain.ErrInvalidFilter, err)
	}
	expr, err := filter.NewExpression([]filter.Condition{cond})
	if err != nil {
		return nil, fmt.Errorf("%w: conversation filter: %w", domain.ErrInvalidFilter, err)
	}

	sr, err := c.store.SearchSorted(ctx, &db.SortQuery{
		IndexName: indexName(collection),
		Filters:   expr,
		SortBy:    fieldContentTime,
		Desc:      true,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scroll latest %s: %w", domain.ErrUpstream, collection, err)
	}

	return c.parseEntries(sr, collection), nil
}

func indexName(collection string) string {
	return collection + ":idx"
}

// parseEntries converts raw index entries into typed hits. Entries with a
// missing chunk id or an unknown data source are malformed index records
// and are skipped with a warning.
func (c *Client) parseEntries(sr *db.SearchResult, collection string) []retrieval.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	hits := make([]retrieval.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		hit, err := parseEntry(entry)
		if err != nil {
			c.logger.Warn("skipping malformed vector index entry",
				zap.String("collection", collection),
				zap.String("key", entry.Key),
				zap.Error(err),
			)
			continue
		}
		hits = append(hits, hit)
	}
	return hits
}

func parseEntry(entry db.SearchEntry) (retrieval.Hit, error) {
	chunkID := entry.Fields[fieldChunkID]
	if chunkID == "" {
		return retrieval.Hit{}, fmt.Errorf("missing %s", fieldChunkID)
	}

	kind, err := source.Parse(entry.Fields[fieldDataSource])
	if err != nil {
		return retrieval.Hit{}, err
	}

	metadata := make(map[string]string)
	for k, v := range entry.Fields {
		switch k {
		case fieldChunkID, fieldDataSource, fieldIngestionTime, fieldContentTime:
			// provenance fields carried on the hit itself
		default:
			metadata[k] = v
		}
	}

	return retrieval.Hit{
		ChunkID:        chunkID,
		Source:         kind,
		IngestedAt:     parseEpoch(entry.Fields[fieldIngestionTime]),
		ContentAt:      parseEpoch(entry.Fields[fieldContentTime]),
		Metadata:       metadata,
		ConversationID: entry.Fields[fieldConversationID],
		MessageID:      entry.Fields[fieldMessageID],
		Score:          entry.Score,
	}, nil
}

// parseEpoch decodes an epoch-seconds payload field. Malformed values map
// to the zero time rather than dropping the hit.
func parseEpoch(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

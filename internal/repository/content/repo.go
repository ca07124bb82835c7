// Package content adapts the relational store that owns ingested text:
// chunk rows for typed/ingested sources and message rows for chat. The
// vector index only points here; these tables decide what exists.
package content

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pensieve-cloud/pensieve/internal/domain"
	"github.com/pensieve-cloud/pensieve/internal/domain/retrieval"
)

const (
	fetchChunksQuery = `
		SELECT uuid, chunk_content FROM chunked_data
		WHERE uuid = ANY($1)`

	fetchMessagesQuery = `
		SELECT message_id, content FROM messages
		WHERE message_id = ANY($1)`
)

// querier is the consumer interface over the pgx pool (ISP).
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store reads authoritative content in batches.
type Store struct {
	q querier
}

// New creates a content store over a pgx pool (or anything that can Query).
func New(q querier) *Store {
	return &Store{q: q}
}

// FetchChunks loads chunk content for all ids in one round trip.
func (s *Store) FetchChunks(ctx context.Context, ids []string) ([]retrieval.Record, error) {
	return s.fetch(ctx, fetchChunksQuery, "chunks", ids)
}

// FetchMessages loads chat message content for all ids in one round trip.
func (s *Store) FetchMessages(ctx context.Context, ids []string) ([]retrieval.Record, error) {
	return s.fetch(ctx, fetchMessagesQuery, "messages", ids)
}

func (s *Store) fetch(ctx context.Context, query, what string, ids []string) ([]retrieval.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", domain.ErrUpstream, what, err)
	}
	defer rows.Close()

	records := make([]retrieval.Record, 0, len(ids))
	for rows.Next() {
		var r retrieval.Record
		if err := rows.Scan(&r.ID, &r.Content); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", domain.ErrUpstream, what, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", domain.ErrUpstream, what, err)
	}
	return records, nil
}

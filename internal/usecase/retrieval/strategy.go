package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domret "github.com/pensieve-cloud/pensieve/internal/domain/retrieval"
	"github.com/pensieve-cloud/pensieve/internal/domain/source"
	"github.com/pensieve-cloud/pensieve/internal/logger"
)

// Strategy resolves a batch of same-kind vector hits into final content
// by joining against the kind's authoritative store. Strategies differ
// only in the join key and the store they query.
type Strategy interface {
	Kind() source.Kind
	Extract(ctx context.Context, hits []domret.Hit) ([]domret.Chunk, error)
}

// chunkStrategy joins chunk ids against the chunk store. One instance per
// chunk-backed kind.
type chunkStrategy struct {
	kind  source.Kind
	store ChunkStore
}

// NewChunkStrategy creates a chunk-store-backed strategy for kind.
func NewChunkStrategy(kind source.Kind, store ChunkStore) Strategy {
	return &chunkStrategy{kind: kind, store: store}
}

func (s *chunkStrategy) Kind() source.Kind { return s.kind }

func (s *chunkStrategy) Extract(ctx context.Context, hits []domret.Hit) ([]domret.Chunk, error) {
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ChunkID)
	}

	records, err := s.store.FetchChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", s.kind, err)
	}

	contentByID := recordMap(records)
	lg := logger.FromContext(ctx)

	chunks := make([]domret.Chunk, 0, len(hits))
	for _, hit := range hits {
		content, ok := contentByID[hit.ChunkID]
		if !ok {
			// The index may be stale; the chunk store decides existence.
			lg.Warn("chunk in vector index missing from chunk store, skipping",
				zap.String("chunk_id", hit.ChunkID),
				zap.String("data_source", hit.Source.String()),
			)
			continue
		}
		chunks = append(chunks, resolved(hit, content))
	}
	return chunks, nil
}

// messageStrategy joins message ids against the chat message store.
type messageStrategy struct {
	store MessageStore
}

// NewMessageStrategy creates the chat strategy.
func NewMessageStrategy(store MessageStore) Strategy {
	return &messageStrategy{store: store}
}

func (s *messageStrategy) Kind() source.Kind { return source.Chat }

func (s *messageStrategy) Extract(ctx context.Context, hits []domret.Hit) ([]domret.Chunk, error) {
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.MessageID != "" {
			ids = append(ids, hit.MessageID)
		}
	}

	records, err := s.store.FetchMessages(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", source.Chat, err)
	}

	contentByID := recordMap(records)
	lg := logger.FromContext(ctx)

	chunks := make([]domret.Chunk, 0, len(hits))
	for _, hit := range hits {
		content, ok := contentByID[hit.MessageID]
		if hit.MessageID == "" || !ok {
			lg.Warn("message in vector index missing from message store, skipping",
				zap.String("message_id", hit.MessageID),
				zap.String("conversation_id", hit.ConversationID),
			)
			continue
		}
		chunks = append(chunks, resolved(hit, content))
	}
	return chunks, nil
}

// resolved carries a hit's provenance onto its authoritative content.
func resolved(hit domret.Hit, content string) domret.Chunk {
	return domret.Chunk{
		Content:    content,
		Source:     hit.Source,
		IngestedAt: hit.IngestedAt,
		ContentAt:  hit.ContentAt,
		Metadata:   hit.Metadata,
	}
}

func recordMap(records []domret.Record) map[string]string {
	m := make(map[string]string, len(records))
	for _, r := range records {
		m[r.ID] = r.Content
	}
	return m
}

package retrieval

import (
	"context"

	"github.com/pensieve-cloud/pensieve/internal/domain"
	domret "github.com/pensieve-cloud/pensieve/internal/domain/retrieval"
	"github.com/pensieve-cloud/pensieve/internal/domain/retrieval/filter"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorIndex is the read contract with the per-user vector collections.
type VectorIndex interface {
	SearchSimilar(
		ctx context.Context, requesterID string,
		vector []float32, filters filter.Expression, limit int, threshold float64,
	) ([]domret.Hit, error)

	ScrollLatest(
		ctx context.Context, requesterID, conversationID string, limit int,
	) ([]domret.Hit, error)
}

// ChunkStore reads authoritative chunk content in batches.
type ChunkStore interface {
	FetchChunks(ctx context.Context, ids []string) ([]domret.Record, error)
}

// MessageStore reads authoritative chat messages in batches.
type MessageStore interface {
	FetchMessages(ctx context.Context, ids []string) ([]domret.Record, error)
}

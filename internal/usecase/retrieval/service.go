// Package retrieval orchestrates the query pipeline: embed the query,
// search the requester's vector collection, then resolve hits into
// authoritative content through per-source extraction strategies.
package retrieval

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pensieve-cloud/pensieve/internal/domain"
	domret "github.com/pensieve-cloud/pensieve/internal/domain/retrieval"
	"github.com/pensieve-cloud/pensieve/internal/domain/source"
)

// Service is the retrieval orchestrator.
type Service struct {
	embed     Embedder
	index     VectorIndex
	registry  *Registry
	threshold float64
}

// New creates a retrieval service. threshold is the minimum similarity a
// vector hit must meet to count as a match.
func New(embed Embedder, index VectorIndex, registry *Registry, threshold float64) *Service {
	return &Service{embed: embed, index: index, registry: registry, threshold: threshold}
}

// Fetch returns the content chunks most relevant to the request. Zero
// matches is a normal outcome and yields an empty result, not an error.
//
// Chunks from one source kind keep their similarity order; kinds are
// concatenated in order of their first appearance in the ranked hit list.
func (s *Service) Fetch(ctx context.Context, req domret.Request) ([]domret.Chunk, error) {
	if req.Query() == "" {
		return nil, domain.ErrEmptyQuery
	}

	embRes, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	hits, err := s.index.SearchSimilar(
		ctx, req.RequesterID(), embRes.Embedding, req.Filters(), req.Limit(), s.threshold,
	)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	order, partitions := partition(hits)

	// Resolve every strategy up front so a registry gap surfaces before
	// any store work starts.
	strategies := make([]Strategy, len(order))
	for i, kind := range order {
		strat, err := s.registry.Resolve(kind)
		if err != nil {
			return nil, err
		}
		strategies[i] = strat
	}

	// Partitions address disjoint data and share no mutable state, so
	// they extract concurrently.
	results := make([][]domret.Chunk, len(order))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range order {
		batch := partitions[kind]
		strat := strategies[i]
		g.Go(func() error {
			chunks, err := strat.Extract(gctx, batch)
			if err != nil {
				return err
			}
			results[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	chunks := make([]domret.Chunk, 0, total)
	for _, r := range results {
		chunks = append(chunks, r...)
	}
	return chunks, nil
}

// FetchRecent returns the most recent chat messages of one conversation,
// newest first. It bypasses embedding and similarity entirely.
func (s *Service) FetchRecent(
	ctx context.Context, requesterID, conversationID string, maxMessages int,
) ([]domret.Chunk, error) {
	if requesterID == "" {
		return nil, fmt.Errorf("requester id is required")
	}
	if conversationID == "" {
		return nil, fmt.Errorf("conversation id is required")
	}
	if maxMessages <= 0 {
		maxMessages = domret.DefaultRecent
	}
	if maxMessages > domret.MaxRecent {
		maxMessages = domret.MaxRecent
	}

	hits, err := s.index.ScrollLatest(ctx, requesterID, conversationID, maxMessages)
	if err != nil {
		return nil, fmt.Errorf("scroll latest: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	strat, err := s.registry.Resolve(source.Chat)
	if err != nil {
		return nil, err
	}
	return strat.Extract(ctx, hits)
}

// FetchLatest returns the single most recent chat message of one
// conversation, or nil when the conversation has none.
func (s *Service) FetchLatest(
	ctx context.Context, requesterID, conversationID string,
) (*domret.Chunk, error) {
	chunks, err := s.FetchRecent(ctx, requesterID, conversationID, 1)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	return &chunks[0], nil
}

// partition groups hits by source kind, preserving each hit's relative
// order and recording the order in which kinds first appear.
func partition(hits []domret.Hit) ([]source.Kind, map[source.Kind][]domret.Hit) {
	order := make([]source.Kind, 0, 4)
	partitions := make(map[source.Kind][]domret.Hit, 4)
	for _, hit := range hits {
		if _, ok := partitions[hit.Source]; !ok {
			order = append(order, hit.Source)
		}
		partitions[hit.Source] = append(partitions[hit.Source], hit)
	}
	return order, partitions
}

package retrieval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pensieve-cloud/pensieve/internal/domain"
	domret "github.com/pensieve-cloud/pensieve/internal/domain/retrieval"
	"github.com/pensieve-cloud/pensieve/internal/domain/retrieval/filter"
	"github.com/pensieve-cloud/pensieve/internal/domain/source"
)

// --- Mocks ---

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 3}, nil
}

type mockIndex struct {
	hits          []domret.Hit
	err           error
	scrollHits    []domret.Hit
	scrollErr     error
	searchCalled  bool
	scrollCalled  bool
	lastThreshold float64
	lastLimit     int
	lastConvID    string
}

func (m *mockIndex) SearchSimilar(
	_ context.Context, _ string,
	_ []float32, _ filter.Expression, limit int, threshold float64,
) ([]domret.Hit, error) {
	m.searchCalled = true
	m.lastLimit = limit
	m.lastThreshold = threshold
	return m.hits, m.err
}

func (m *mockIndex) ScrollLatest(
	_ context.Context, _, conversationID string, limit int,
) ([]domret.Hit, error) {
	m.scrollCalled = true
	m.lastConvID = conversationID
	m.lastLimit = limit
	return m.scrollHits, m.scrollErr
}

// Strategies for independent partitions run concurrently, so the store
// mocks guard their bookkeeping.
type mockChunkStore struct {
	mu      sync.Mutex
	records []domret.Record
	err     error
	lastIDs []string
	calls   int
}

func (m *mockChunkStore) FetchChunks(_ context.Context, ids []string) ([]domret.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastIDs = ids
	return m.records, m.err
}

type mockMessageStore struct {
	mu      sync.Mutex
	records []domret.Record
	err     error
	lastIDs []string
	calls   int
}

func (m *mockMessageStore) FetchMessages(_ context.Context, ids []string) ([]domret.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastIDs = ids
	return m.records, m.err
}

// --- Helpers ---

func testHit(chunkID string, kind source.Kind, score float64) domret.Hit {
	return domret.Hit{
		ChunkID:    chunkID,
		Source:     kind,
		IngestedAt: time.Unix(1704067200, 0),
		ContentAt:  time.Unix(1704067100, 0),
		Metadata:   map[string]string{"origin": "test"},
		Score:      score,
	}
}

func chatHit(messageID, conversationID string) domret.Hit {
	return domret.Hit{
		ChunkID:        messageID,
		Source:         source.Chat,
		ConversationID: conversationID,
		MessageID:      messageID,
		ContentAt:      time.Unix(1704067100, 0),
		Metadata:       map[string]string{"message_id": messageID},
	}
}

func mustRequest(t *testing.T, query string) domret.Request {
	t.Helper()
	req, err := domret.NewRequest(query, "user-1", filter.Expression{}, 0)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return req
}

func testRegistry(t *testing.T, chunks ChunkStore, messages MessageStore) *Registry {
	t.Helper()
	r, err := DefaultRegistry(chunks, messages)
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	return r
}

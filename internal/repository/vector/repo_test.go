package vector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pensieve-cloud/pensieve/internal/db"
	"github.com/pensieve-cloud/pensieve/internal/domain"
	"github.com/pensieve-cloud/pensieve/internal/domain/retrieval/filter"
	"github.com/pensieve-cloud/pensieve/internal/domain/source"
)

type mockStore struct {
	searchKNNFn    func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchSortedFn func(ctx context.Context, q *db.SortQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchSorted(ctx context.Context, q *db.SortQuery) (*db.SearchResult, error) {
	if m.searchSortedFn != nil {
		return m.searchSortedFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func chunkEntry(key, chunkID, src string, score float64) db.SearchEntry {
	return db.SearchEntry{
		Key:   key,
		Score: score,
		Fields: map[string]string{
			"chunk_id":            chunkID,
			"data_input_source":   src,
			"ingestion_timestamp": "1704067200",
			"content_timestamp":   "1704067100.5",
			"origin_url":          "https://example.com",
		},
	}
}

func TestCollectionName_SlashesReplaced(t *testing.T) {
	c := New(&mockStore{}, "intfloat/multilingual-e5-large", nil)
	got := c.CollectionName("user-1")
	want := "user-1__intfloat_multilingual-e5-large"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSearchSimilar_ThresholdApplied(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			if q.IndexName != "u1__m:idx" {
				t.Errorf("unexpected index name %q", q.IndexName)
			}
			return &db.SearchResult{Total: 3, Entries: []db.SearchEntry{
				chunkEntry("u1__m:a", "a", "user_typed", 0.92),
				chunkEntry("u1__m:b", "b", "web_page", 0.80),
				chunkEntry("u1__m:c", "c", "pdf", 0.41),
			}}, nil
		},
	}
	c := New(ms, "m", nil)

	hits, err := c.SearchSimilar(context.Background(), "u1", []float32{0.1}, filter.Expression{}, 10, 0.7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits above threshold, got %d", len(hits))
	}
	for _, h := range hits {
		if h.Score < 0.7 {
			t.Errorf("hit %s below threshold: %f", h.ChunkID, h.Score)
		}
	}
	if hits[0].ChunkID != "a" || hits[1].ChunkID != "b" {
		t.Errorf("similarity order not preserved: %+v", hits)
	}
}

func TestSearchSimilar_HitParsing(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
			return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
				chunkEntry("u1__m:a", "a", "meet_transcript", 0.9),
			}}, nil
		},
	}
	c := New(ms, "m", nil)

	hits, err := c.SearchSimilar(context.Background(), "u1", []float32{0.1}, filter.Expression{}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := hits[0]
	if h.Source != source.MeetTranscript {
		t.Errorf("expected meet_transcript, got %s", h.Source)
	}
	if !h.IngestedAt.Equal(time.Unix(1704067200, 0)) {
		t.Errorf("unexpected ingestion time %v", h.IngestedAt)
	}
	if h.ContentAt.Unix() != 1704067100 {
		t.Errorf("unexpected content time %v", h.ContentAt)
	}
	if h.Metadata["origin_url"] != "https://example.com" {
		t.Errorf("metadata passthrough lost: %v", h.Metadata)
	}
	if _, ok := h.Metadata["chunk_id"]; ok {
		t.Error("chunk_id must not leak into metadata")
	}
}

func TestSearchSimilar_MalformedEntrySkipped(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
			return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
				chunkEntry("u1__m:a", "a", "user_typed", 0.9),
				{Key: "u1__m:bad", Score: 0.8, Fields: map[string]string{
					"chunk_id":          "bad",
					"data_input_source": "carrier_pigeon",
				}},
			}}, nil
		},
	}
	c := New(ms, "m", nil)

	hits, err := c.SearchSimilar(context.Background(), "u1", []float32{0.1}, filter.Expression{}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "a" {
		t.Fatalf("expected only the well-formed hit, got %+v", hits)
	}
}

func TestSearchSimilar_UpstreamError(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
			return nil, &db.Error{Op: db.OpSearch, Err: errors.New("connection refused")}
		},
	}
	c := New(ms, "m", nil)

	_, err := c.SearchSimilar(context.Background(), "u1", []float32{0.1}, filter.Expression{}, 10, 0.5)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestScrollLatest_ConversationFilterAndOrder(t *testing.T) {
	ms := &mockStore{
		searchSortedFn: func(_ context.Context, q *db.SortQuery) (*db.SearchResult, error) {
			if q.SortBy != "content_timestamp" || !q.Desc {
				t.Errorf("expected content_timestamp DESC, got %s desc=%v", q.SortBy, q.Desc)
			}
			conds := q.Filters.Conditions()
			if len(conds) != 1 || conds[0].Key() != "conversation_id" || conds[0].Match() != "c1" {
				t.Errorf("expected conversation_id=c1 filter, got %+v", conds)
			}
			if q.Limit != 2 {
				t.Errorf("expected limit 2, got %d", q.Limit)
			}
			entries := []db.SearchEntry{
				chunkEntry("u1__m:m5", "m5", "chat", 0),
				chunkEntry("u1__m:m4", "m4", "chat", 0),
			}
			entries[0].Fields["message_id"] = "m5"
			entries[1].Fields["message_id"] = "m4"
			return &db.SearchResult{Total: 2, Entries: entries}, nil
		},
	}
	c := New(ms, "m", nil)

	hits, err := c.ScrollLatest(context.Background(), "u1", "c1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].MessageID != "m5" || hits[1].MessageID != "m4" {
		t.Errorf("expected newest first, got %+v", hits)
	}
	if hits[0].Score != 0 {
		t.Errorf("scroll hits must not carry similarity scores")
	}
}

func TestScrollLatest_UpstreamError(t *testing.T) {
	ms := &mockStore{
		searchSortedFn: func(_ context.Context, _ *db.SortQuery) (*db.SearchResult, error) {
			return nil, &db.Error{Op: db.OpSearch, Err: errors.New("timeout")}
		},
	}
	c := New(ms, "m", nil)

	_, err := c.ScrollLatest(context.Background(), "u1", "c1", 5)
	if !errors.Is(err, domain.ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

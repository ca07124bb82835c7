package retrieval_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/pensieve-cloud/pensieve/internal/domain"
	"github.com/pensieve-cloud/pensieve/internal/domain/retrieval"
	"github.com/pensieve-cloud/pensieve/internal/domain/retrieval/filter"
)

func TestNewRequest(t *testing.T) {
	filters, err := filter.FromMap(map[string]any{"conversation_id": "conv-1"})
	if err != nil {
		t.Fatalf("FromMap returned error: %v", err)
	}

	req, err := retrieval.NewRequest("what did we decide?", "user-1", filters, 25)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}
	if req.Query() != "what did we decide?" {
		t.Fatalf("query = %q", req.Query())
	}
	if req.RequesterID() != "user-1" {
		t.Fatalf("requester = %q", req.RequesterID())
	}
	if req.Limit() != 25 {
		t.Fatalf("limit = %d, want 25", req.Limit())
	}
	if req.Filters().IsEmpty() {
		t.Fatalf("filters were dropped")
	}
}

func TestNewRequestEmptyQuery(t *testing.T) {
	_, err := retrieval.NewRequest("", "user-1", filter.Expression{}, 10)
	if !errors.Is(err, domain.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestNewRequestQueryTooLong(t *testing.T) {
	query := strings.Repeat("q", retrieval.MaxQueryLength+1)
	if _, err := retrieval.NewRequest(query, "user-1", filter.Expression{}, 10); err == nil {
		t.Fatalf("expected query length limit to be enforced")
	}
}

func TestNewRequestMissingRequester(t *testing.T) {
	if _, err := retrieval.NewRequest("query", "", filter.Expression{}, 10); err == nil {
		t.Fatalf("expected missing requester to be rejected")
	}
}

func TestNewRequestLimitNormalization(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero defaults", 0, retrieval.DefaultLimit},
		{"negative defaults", -5, retrieval.DefaultLimit},
		{"clamped to max", retrieval.MaxLimit + 50, retrieval.MaxLimit},
		{"in range kept", 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := retrieval.NewRequest("query", "user-1", filter.Expression{}, tt.limit)
			if err != nil {
				t.Fatalf("NewRequest returned error: %v", err)
			}
			if req.Limit() != tt.want {
				t.Fatalf("limit = %d, want %d", req.Limit(), tt.want)
			}
		})
	}
}

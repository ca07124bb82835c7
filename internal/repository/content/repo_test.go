package content

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pensieve-cloud/pensieve/internal/domain"
	"github.com/pensieve-cloud/pensieve/internal/domain/retrieval"
)

// fakeRows implements pgx.Rows over a fixed set of (id, content) pairs.
type fakeRows struct {
	records []retrieval.Record
	idx     int
	scanErr error
	rowsErr error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.rowsErr }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool {
	if r.idx >= len(r.records) {
		return false
	}
	r.idx++
	return true
}
func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	rec := r.records[r.idx-1]
	*(dest[0].(*string)) = rec.ID
	*(dest[1].(*string)) = rec.Content
	return nil
}
func (r *fakeRows) Values() ([]any, error) { return nil, nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

type fakeQuerier struct {
	rows    *fakeRows
	err     error
	lastSQL string
	lastIDs []string
	calls   int
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.calls++
	q.lastSQL = sql
	if len(args) == 1 {
		if ids, ok := args[0].([]string); ok {
			q.lastIDs = ids
		}
	}
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func TestFetchChunks_Batched(t *testing.T) {
	fq := &fakeQuerier{rows: &fakeRows{records: []retrieval.Record{
		{ID: "a", Content: "alpha"},
		{ID: "b", Content: "beta"},
	}}}
	s := New(fq)

	records, err := s.FetchChunks(context.Background(), []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fq.calls != 1 {
		t.Fatalf("expected one round trip, got %d", fq.calls)
	}
	if len(fq.lastIDs) != 3 {
		t.Errorf("expected all ids in one query, got %v", fq.lastIDs)
	}
	if len(records) != 2 || records[0].Content != "alpha" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestFetchMessages_UsesMessageQuery(t *testing.T) {
	fq := &fakeQuerier{rows: &fakeRows{}}
	s := New(fq)

	if _, err := s.FetchMessages(context.Background(), []string{"m1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fq.lastSQL != fetchMessagesQuery {
		t.Errorf("expected message query, got %q", fq.lastSQL)
	}
}

func TestFetch_EmptyIDsSkipsRoundTrip(t *testing.T) {
	fq := &fakeQuerier{rows: &fakeRows{}}
	s := New(fq)

	records, err := s.FetchChunks(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records != nil {
		t.Errorf("expected nil records, got %+v", records)
	}
	if fq.calls != 0 {
		t.Errorf("expected no query for empty ids, got %d calls", fq.calls)
	}
}

func TestFetch_QueryErrorWrapsUpstream(t *testing.T) {
	fq := &fakeQuerier{err: errors.New("connection refused")}
	s := New(fq)

	_, err := s.FetchChunks(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestFetch_RowsErrWrapsUpstream(t *testing.T) {
	fq := &fakeQuerier{rows: &fakeRows{rowsErr: errors.New("broken pipe")}}
	s := New(fq)

	_, err := s.FetchMessages(context.Background(), []string{"m1"})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

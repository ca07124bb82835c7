package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/pensieve-cloud/pensieve/internal/db"
	"github.com/pensieve-cloud/pensieve/internal/domain/retrieval/filter"
)

// Hash field names reserved by the index layout. The embedding lives in
// __vector; the KNN distance is aliased to __score at query time.
const (
	vectorField = "__vector"
	scoreField  = "__score"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH. Entry scores
// are cosine similarities in [0,1], descending.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	filterStr := buildFilter(q.Filters)

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB AS %s]", q.K, vectorField, scoreField)
	var queryStr string
	if filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	} else {
		queryStr = fmt.Sprintf("*=>%s", knnPart)
	}

	args := []string{
		q.IndexName, queryStr,
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw, true)
}

// SearchSorted runs a time-ordered scroll via FT.SEARCH with SORTBY.
// Entries carry no similarity score.
func (s *Store) SearchSorted(ctx context.Context, q *db.SortQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.SortBy == "" {
		return nil, fmt.Errorf("sort field is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	queryStr := buildFilter(q.Filters)
	if queryStr == "" {
		queryStr = "*"
	}

	order := "ASC"
	if q.Desc {
		order = "DESC"
	}

	args := []string{
		q.IndexName, queryStr,
		"SORTBY", q.SortBy, order,
		"LIMIT", "0", strconv.Itoa(q.Limit),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw, false)
}

// --- Result parsing ---

// parseSearchResult decodes the RESP2 FT.SEARCH reply:
// [total, key1, fields1, key2, fields2, ...].
func parseSearchResult(raw []rueidis.RedisMessage, scored bool) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		}

		if distStr, ok := entry.Fields[scoreField]; ok {
			if scored {
				if d, err := strconv.ParseFloat(distStr, 64); err == nil {
					entry.Score = max(0, 1.0-d) // cosine distance → similarity, clamped to [0,1]
				}
			}
			delete(entry.Fields, scoreField)
		}
		delete(entry.Fields, vectorField)

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

// parseFieldPairs converts [k1, v1, k2, v2, ...] into a map.
func parseFieldPairs(raw []rueidis.RedisMessage) map[string]string {
	fields := make(map[string]string, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		k, err := raw[i].ToString()
		if err != nil {
			continue
		}
		v, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		fields[k] = v
	}
	return fields
}

// --- Filter building ---

// buildFilter translates filter.Expression into an FT.SEARCH pre-filter
// query string. Conditions are AND-combined by whitespace.
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	parts := make([]string, 0, len(expr.Conditions()))
	for _, cond := range expr.Conditions() {
		parts = append(parts, buildCondition(cond))
	}

	return strings.Join(parts, " ")
}

func buildCondition(cond filter.Condition) string {
	switch {
	case cond.IsMatch():
		return buildTagFilter(cond.Key(), cond.Match())
	case cond.IsAnyOf():
		return buildTagAnyFilter(cond.Key(), cond.AnyOf())
	case cond.IsRange():
		return buildNumericFilter(cond.Key(), *cond.Range())
	}
	return ""
}

func buildTagFilter(key, value string) string {
	return fmt.Sprintf("@%s:{%s}", key, tagEscaper.Replace(value))
}

func buildTagAnyFilter(key string, values []string) string {
	escaped := make([]string, 0, len(values))
	for _, v := range values {
		escaped = append(escaped, tagEscaper.Replace(v))
	}
	return fmt.Sprintf("@%s:{%s}", key, strings.Join(escaped, "|"))
}

func buildNumericFilter(key string, r filter.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.GT() != nil {
		minBound = fmt.Sprintf("(%g", *r.GT())
	} else if r.GTE() != nil {
		minBound = fmt.Sprintf("%g", *r.GTE())
	}

	if r.LT() != nil {
		maxBound = fmt.Sprintf("(%g", *r.LT())
	} else if r.LTE() != nil {
		maxBound = fmt.Sprintf("%g", *r.LTE())
	}

	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

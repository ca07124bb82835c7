// Package filter models the structured predicate a caller can attach to a
// retrieval request: per-key equality, any-of, and numeric range conditions,
// combined with logical AND.
package filter

import (
	"fmt"
	"sort"
	"time"

	"github.com/pensieve-cloud/pensieve/internal/domain"
)

// MaxConditions is the maximum number of conditions per expression.
const MaxConditions = 32

// Expression is a conjunction of per-key conditions. The zero value means
// "no filter": every stored vector is eligible.
type Expression struct {
	conditions []Condition
}

// NewExpression validates and creates an Expression.
func NewExpression(conditions []Condition) (Expression, error) {
	if len(conditions) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Expression{conditions: conditions}, nil
}

// Conditions returns the AND-combined conditions.
func (e Expression) Conditions() []Condition { return e.conditions }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.conditions) == 0 }

// Condition is a single filter clause: exact match, any-of, or numeric range.
type Condition struct {
	key       string
	match     string
	anyOf     []string
	rangeExpr *Range
}

// NewMatch creates an exact match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// NewAnyOf creates a match-any condition over literal values.
func NewAnyOf(key string, values []string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("at least one value is required for key %q", key)
	}
	return Condition{key: key, anyOf: values}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// AnyOf returns the match-any values.
func (c Condition) AnyOf() []string { return c.anyOf }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is an exact match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsAnyOf reports whether this is a match-any condition.
func (c Condition) IsAnyOf() bool { return len(c.anyOf) > 0 }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// Range is a numeric range with gt/gte/lt/lte boundaries. Timestamp bounds
// are normalized to epoch seconds before they land here.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeBounds validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeBounds(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

// FromMap translates a free-form metadata filter map into an Expression.
//
// Per key: nil values are skipped entirely; a map value becomes a range
// condition with string bounds parsed as RFC 3339 timestamps (an unparsable
// bound is dropped, not the whole filter); a slice becomes a match-any
// condition; any other scalar becomes an exact match. A value that is none
// of these is a validation error. A nil or empty input means "no filter".
func FromMap(raw map[string]any) (Expression, error) {
	if len(raw) == 0 {
		return Expression{}, nil
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	conditions := make([]Condition, 0, len(raw))
	for _, key := range keys {
		value := raw[key]
		if value == nil {
			continue
		}

		var (
			cond Condition
			ok   bool
			err  error
		)
		switch v := value.(type) {
		case map[string]any:
			cond, ok, err = rangeCondition(key, v)
		case []any:
			cond, err = anyOfCondition(key, v)
			ok = true
		default:
			cond, err = scalarCondition(key, value)
			ok = true
		}
		if err != nil {
			return Expression{}, fmt.Errorf("%w: key %q: %w", domain.ErrInvalidFilter, key, err)
		}
		if !ok {
			continue
		}
		conditions = append(conditions, cond)
	}

	return NewExpression(conditions)
}

// rangeCondition builds a range from a {gt, gte, lt, lte} map. Bounds that
// fail to parse are skipped; ok is false when no bound survives.
func rangeCondition(key string, bounds map[string]any) (Condition, bool, error) {
	var gt, gte, lt, lte *float64
	for name, bound := range bounds {
		f, err := toEpoch(bound)
		if err != nil {
			continue
		}
		switch name {
		case "gt":
			gt = &f
		case "gte":
			gte = &f
		case "lt":
			lt = &f
		case "lte":
			lte = &f
		}
	}
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Condition{}, false, nil
	}

	r, err := NewRangeBounds(gt, gte, lt, lte)
	if err != nil {
		return Condition{}, false, err
	}
	cond, err := NewRange(key, r)
	if err != nil {
		return Condition{}, false, err
	}
	return cond, true, nil
}

func anyOfCondition(key string, values []any) (Condition, error) {
	literals := make([]string, 0, len(values))
	for _, v := range values {
		s, err := toLiteral(v)
		if err != nil {
			return Condition{}, err
		}
		literals = append(literals, s)
	}
	return NewAnyOf(key, literals)
}

func scalarCondition(key string, value any) (Condition, error) {
	s, err := toLiteral(value)
	if err != nil {
		return Condition{}, err
	}
	return NewMatch(key, s)
}

// toLiteral renders a scalar filter value as its index representation.
func toLiteral(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case float64:
		return fmt.Sprintf("%g", v), nil
	case float32:
		return fmt.Sprintf("%g", v), nil
	case int:
		return fmt.Sprintf("%d", v), nil
	case int32:
		return fmt.Sprintf("%d", v), nil
	case int64:
		return fmt.Sprintf("%d", v), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

// toEpoch parses a range bound: numbers are already epoch seconds, strings
// are parsed as RFC 3339 timestamps.
func toEpoch(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", v, err)
		}
		return float64(t.UnixNano()) / float64(time.Second), nil
	default:
		return 0, fmt.Errorf("unsupported bound type %T", value)
	}
}

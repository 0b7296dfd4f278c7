// Package filter compiles generic metadata filter maps into a backend
// neutral condition list. The Qdrant backend renders it as a native filter;
// the embedded backends evaluate it directly against payloads. Both paths
// share Compile so every search strategy sees identical semantics.
package filter

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"huda/internal/domain"
)

// Op is the kind of a single condition.
type Op string

const (
	OpMatch Op = "match"
	OpAny   Op = "any"
	OpRange Op = "range"
)

var rangeKeys = map[string]struct{}{"gte": {}, "lte": {}, "gt": {}, "lt": {}}

// Range bounds a numeric payload field. Nil bounds are open.
type Range struct {
	GTE *float64 `json:"gte,omitempty"`
	LTE *float64 `json:"lte,omitempty"`
	GT  *float64 `json:"gt,omitempty"`
	LT  *float64 `json:"lt,omitempty"`
}

// Condition is one per-key constraint.
type Condition struct {
	Key    string
	Op     Op
	Value  any
	Values []any
	Range  *Range
}

// Filter is a conjunction of conditions.
type Filter struct {
	Must []Condition
}

// Compile translates a filter map. Range objects become range conditions,
// lists become membership, anything else equality. An empty map compiles to
// nil, which matches every document.
func Compile(m map[string]any) (*Filter, error) {
	if len(m) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := &Filter{Must: make([]Condition, 0, len(keys))}
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			return nil, domain.Validationf("filter key must not be empty")
		}
		cond, err := compileCondition(key, m[key])
		if err != nil {
			return nil, err
		}
		f.Must = append(f.Must, cond)
	}
	return f, nil
}

func compileCondition(key string, value any) (Condition, error) {
	if obj, ok := value.(map[string]any); ok {
		r, err := compileRange(key, obj)
		if err != nil {
			return Condition{}, err
		}
		return Condition{Key: key, Op: OpRange, Range: r}, nil
	}
	if values, ok := asList(value); ok {
		if len(values) == 0 {
			return Condition{}, domain.Validationf("filter %q: membership list is empty", key)
		}
		for _, v := range values {
			if !isLiteral(v) {
				return Condition{}, domain.Validationf("filter %q: unsupported list element %T", key, v)
			}
		}
		return Condition{Key: key, Op: OpAny, Values: values}, nil
	}
	if !isLiteral(value) {
		return Condition{}, domain.Validationf("filter %q: unsupported value %T", key, value)
	}
	return Condition{Key: key, Op: OpMatch, Value: value}, nil
}

func compileRange(key string, obj map[string]any) (*Range, error) {
	if len(obj) == 0 {
		return nil, domain.Validationf("filter %q: range object is empty", key)
	}
	r := &Range{}
	for k, v := range obj {
		if _, ok := rangeKeys[k]; !ok {
			return nil, domain.Validationf("filter %q: unknown range bound %q", key, k)
		}
		if v == nil {
			continue
		}
		n, ok := Number(v)
		if !ok {
			return nil, domain.Validationf("filter %q: range bound %q must be numeric, got %T", key, k, v)
		}
		switch k {
		case "gte":
			r.GTE = &n
		case "lte":
			r.LTE = &n
		case "gt":
			r.GT = &n
		case "lt":
			r.LT = &n
		}
	}
	return r, nil
}

// Qdrant renders the filter in Qdrant's REST filter shape.
func (f *Filter) Qdrant() map[string]any {
	if f == nil || len(f.Must) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(f.Must))
	for _, c := range f.Must {
		switch c.Op {
		case OpRange:
			must = append(must, map[string]any{"key": c.Key, "range": c.Range})
		case OpAny:
			must = append(must, map[string]any{"key": c.Key, "match": map[string]any{"any": c.Values}})
		default:
			must = append(must, map[string]any{"key": c.Key, "match": map[string]any{"value": c.Value}})
		}
	}
	return map[string]any{"must": must}
}

// Match evaluates the filter against a payload. A nil filter matches all.
func (f *Filter) Match(payload map[string]any) bool {
	if f == nil {
		return true
	}
	for _, c := range f.Must {
		if !c.match(payload) {
			return false
		}
	}
	return true
}

func (c Condition) match(payload map[string]any) bool {
	v, ok := lookup(payload, c.Key)
	if !ok || v == nil {
		return false
	}
	candidates := []any{v}
	if list, isList := asList(v); isList {
		candidates = list
	}
	for _, candidate := range candidates {
		switch c.Op {
		case OpRange:
			if c.Range.contains(candidate) {
				return true
			}
		case OpAny:
			for _, want := range c.Values {
				if Equal(candidate, want) {
					return true
				}
			}
		default:
			if Equal(candidate, c.Value) {
				return true
			}
		}
	}
	return false
}

func (r *Range) contains(v any) bool {
	n, ok := Number(v)
	if !ok {
		return false
	}
	if r.GTE != nil && n < *r.GTE {
		return false
	}
	if r.GT != nil && n <= *r.GT {
		return false
	}
	if r.LTE != nil && n > *r.LTE {
		return false
	}
	if r.LT != nil && n >= *r.LT {
		return false
	}
	return true
}

// lookup resolves dotted keys ("meta.source") through nested maps.
func lookup(payload map[string]any, key string) (any, bool) {
	if v, ok := payload[key]; ok {
		return v, true
	}
	parts := strings.Split(key, ".")
	if len(parts) == 1 {
		return nil, false
	}
	var cur any = payload
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Equal compares two payload literals, treating all numeric kinds alike.
func Equal(a, b any) bool {
	if na, ok := Number(a); ok {
		nb, ok := Number(b)
		return ok && na == nb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return reflect.DeepEqual(a, b)
}

// Number converts any numeric value (including json.Number) to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func isLiteral(v any) bool {
	if _, ok := Number(v); ok {
		return true
	}
	switch v.(type) {
	case string, bool:
		return true
	}
	return false
}

// asList reports whether v is a slice or array (other than []byte) and
// returns its elements.
func asList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, false
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func (c Condition) String() string {
	switch c.Op {
	case OpRange:
		return fmt.Sprintf("%s in range", c.Key)
	case OpAny:
		return fmt.Sprintf("%s in %v", c.Key, c.Values)
	}
	return fmt.Sprintf("%s = %v", c.Key, c.Value)
}

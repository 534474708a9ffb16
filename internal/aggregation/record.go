package aggregation

import (
	"reflect"
	"strings"
)

// Record is one schema-less document flowing through a pipeline.
type Record = map[string]any

// Get resolves a dotted path. Arrays met along the way fan out, so
// "modules.title" on a record with a modules array yields every title.
func Get(r Record, path string) (any, bool) {
	if r == nil || path == "" {
		return nil, false
	}
	return getPath(r, strings.Split(path, "."))
}

func getPath(v any, parts []string) (any, bool) {
	if len(parts) == 0 {
		return v, true
	}
	if m, ok := v.(map[string]any); ok {
		next, ok := m[parts[0]]
		if !ok {
			return nil, false
		}
		return getPath(next, parts[1:])
	}
	items, ok := asSlice(v)
	if !ok {
		return nil, false
	}
	out := make([]any, 0, len(items))
	for _, it := range items {
		if got, ok := getPath(it, parts); ok {
			out = append(out, got)
		}
	}
	return out, true
}

// Set writes v at a dotted path, creating intermediate documents.
func Set(r Record, path string, v any) {
	if r == nil || path == "" {
		return
	}
	parts := strings.Split(path, ".")
	cur := r
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = Record{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

// Delete removes the value at a dotted path if present.
func Delete(r Record, path string) {
	if r == nil || path == "" {
		return
	}
	parts := strings.Split(path, ".")
	cur := r
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

// Clone deep-copies r. Nested slices come back as []any.
func Clone(r Record) Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Clone(t)
	case []byte:
		return append([]byte(nil), t...)
	}
	items, ok := asSlice(v)
	if !ok {
		return v
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = cloneValue(it)
	}
	return out
}

// asSlice reports whether v is a slice or array other than []byte and
// returns its elements.
func asSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil, []byte, string:
		return nil, false
	case []any:
		return t, true
	case []Record:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Elements returns v as a list: the elements of a slice, a single scalar as a
// one-element list, nothing for nil.
func Elements(v any) []any {
	if v == nil {
		return nil
	}
	if items, ok := asSlice(v); ok {
		return items
	}
	return []any{v}
}

package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/yungbote/coursemart-backend/internal/aggregation"
)

// MemStore keeps ordered collections in memory. Natural order is insertion
// order. Safe for concurrent use.
type MemStore struct {
	mu          sync.RWMutex
	collections map[string][]aggregation.Record
}

func NewMemStore() *MemStore {
	return &MemStore{collections: map[string][]aggregation.Record{}}
}

// Insert appends copies of docs to collection.
func (s *MemStore) Insert(collection string, docs ...aggregation.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.collections[collection] = append(s.collections[collection], aggregation.Clone(d))
	}
}

// Update applies fn to the record with the given id. It reports whether the
// record exists.
func (s *MemStore) Update(collection, id string, fn func(aggregation.Record)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.collections[collection] {
		if aggregation.Equal(d["_id"], id) {
			fn(d)
			return true
		}
	}
	return false
}

// Remove deletes the record with the given id.
func (s *MemStore) Remove(collection, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	for i, d := range docs {
		if aggregation.Equal(d["_id"], id) {
			s.collections[collection] = append(docs[:i:i], docs[i+1:]...)
			return true
		}
	}
	return false
}

func (s *MemStore) FindByID(ctx context.Context, collection, id string) (aggregation.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.collections[collection] {
		if aggregation.Equal(d["_id"], id) {
			return aggregation.Clone(d), true, nil
		}
	}
	return nil, false, nil
}

func (s *MemStore) Scan(ctx context.Context, collection string, q aggregation.ScanQuery) ([]aggregation.Record, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	matched := make([]aggregation.Record, 0)
	for _, d := range s.collections[collection] {
		if matchesScan(d, q) {
			matched = append(matched, d)
		}
	}
	s.mu.RUnlock()

	if q.Sort != nil {
		field, desc := q.Sort.Field, q.Sort.Desc
		sort.SliceStable(matched, func(i, j int) bool {
			a, _ := aggregation.Get(matched[i], field)
			b, _ := aggregation.Get(matched[j], field)
			if desc {
				return aggregation.Compare(a, b) > 0
			}
			return aggregation.Compare(a, b) < 0
		})
	}

	total := int64(len(matched))
	if q.Skip >= len(matched) {
		return []aggregation.Record{}, total, nil
	}
	window := matched[q.Skip:]
	if q.Limit > 0 && q.Limit < len(window) {
		window = window[:q.Limit]
	}
	out := make([]aggregation.Record, len(window))
	for i, d := range window {
		out[i] = aggregation.Clone(d)
	}
	return out, total, nil
}

func (s *MemStore) Lookup(ctx context.Context, collection, field string, values []any) ([]aggregation.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(values))
	for _, v := range values {
		if k, ok := aggregation.ValueKey(v); ok {
			want[k] = struct{}{}
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]aggregation.Record, 0)
	for _, d := range s.collections[collection] {
		fv, _ := aggregation.Get(d, field)
		for _, el := range aggregation.Elements(fv) {
			k, ok := aggregation.ValueKey(el)
			if !ok {
				continue
			}
			if _, hit := want[k]; hit {
				out = append(out, aggregation.Clone(d))
				break
			}
		}
	}
	return out, nil
}

func matchesScan(d aggregation.Record, q aggregation.ScanQuery) bool {
	for field, want := range q.Equals {
		v, ok := aggregation.Get(d, field)
		if !ok || !aggregation.Equal(v, want) {
			return false
		}
	}
	if q.Search != nil {
		v, ok := aggregation.Get(d, q.Search.Field)
		s, isStr := v.(string)
		if !ok || !isStr {
			return false
		}
		if !strings.Contains(strings.ToLower(s), strings.ToLower(q.Search.Term)) {
			return false
		}
	}
	return true
}

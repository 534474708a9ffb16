package aggregation

import (
	"context"
	"fmt"
	"sort"
)

// join is a left outer join: every parent keeps its place and receives an
// array, possibly empty, of the targets matching its local key. All parents
// are resolved with a single store lookup.
func (e *Executor) join(ctx context.Context, collection string, st Join, b *batch) error {
	rel, err := e.registry.Relation(st.Relation)
	if err != nil {
		return err
	}
	if st.Via == "" && rel.From != collection {
		return fmt.Errorf("%w: %q starts at %q, not %q", ErrRelationMismatch, rel.Name, rel.From, collection)
	}
	localPath := rel.LocalKey
	if st.Via != "" {
		localPath = st.Via + "." + rel.LocalKey
	}
	as := st.As
	if as == "" {
		as = rel.To
	}

	parentKeys := make([][]string, len(b.docs))
	values := make([]any, 0, len(b.docs))
	seen := make(map[string]struct{}, len(b.docs))
	for i, doc := range b.docs {
		v, _ := Get(doc, localPath)
		for _, el := range Elements(v) {
			k, ok := ValueKey(el)
			if !ok {
				continue
			}
			parentKeys[i] = append(parentKeys[i], k)
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				values = append(values, el)
			}
		}
	}

	if len(values) == 0 {
		for _, doc := range b.docs {
			Set(doc, as, []any{})
		}
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	targets, err := e.store.Lookup(ctx, rel.To, rel.ForeignKey, values)
	if err != nil {
		e.log.Warn("join lookup failed", "relation", rel.Name, "error", err)
		return fmt.Errorf("join %s: %w", rel.Name, err)
	}

	byKey := make(map[string][]int, len(targets))
	for ti, t := range targets {
		fv, _ := Get(t, rel.ForeignKey)
		for _, el := range Elements(fv) {
			k, ok := ValueKey(el)
			if !ok {
				continue
			}
			if n := len(byKey[k]); n > 0 && byKey[k][n-1] == ti {
				continue
			}
			byKey[k] = append(byKey[k], ti)
		}
	}

	groups := make([][]Record, len(targets))
	if len(st.Pipeline) == 0 {
		for ti, t := range targets {
			groups[ti] = []Record{t}
		}
	} else {
		sub := &batch{docs: targets, origin: make([]int, len(targets))}
		for ti := range targets {
			sub.origin[ti] = ti
		}
		out, err := e.run(ctx, rel.To, st.Pipeline, sub)
		if err != nil {
			return err
		}
		for i, d := range out.docs {
			groups[out.origin[i]] = append(groups[out.origin[i]], d)
		}
	}

	used := make([]bool, len(targets))
	for i, doc := range b.docs {
		matched := matchTargets(parentKeys[i], byKey)
		arr := make([]any, 0, len(matched))
		for _, ti := range matched {
			for _, d := range groups[ti] {
				if used[ti] {
					d = Clone(d)
				}
				arr = append(arr, d)
			}
			used[ti] = true
		}
		Set(doc, as, arr)
	}
	return nil
}

// matchTargets returns the distinct target indexes matching any of keys, in
// target order.
func matchTargets(keys []string, byKey map[string][]int) []int {
	if len(keys) == 0 {
		return nil
	}
	set := make(map[int]struct{})
	for _, k := range keys {
		for _, ti := range byKey[k] {
			set[ti] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for ti := range set {
		out = append(out, ti)
	}
	sort.Ints(out)
	return out
}

package aggregation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

type Filter struct {
	// Equals holds field equality criteria.
	Equals map[string]any
	// Refs holds raw identifier strings keyed by field. They are validated
	// before any store access and then matched by equality.
	Refs map[string]string
	// Search is the case-insensitive substring criterion, if any.
	Search *Search
}

type ListQuery struct {
	Collection string
	Filter     Filter
	Sort       *Sort
	// SortFields is the sort allow-list. Empty accepts any field; otherwise
	// a sort on an unlisted field is dropped.
	SortFields []string
	Page       int
	Limit      int
	// Relations run over the page items, typically joins and projections.
	Relations []Stage
}

type Page struct {
	Items      []Record `json:"items"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalCount int64    `json:"totalCount"`
	TotalPages int      `json:"totalPages"`
}

// Paginate returns one page of q.Collection with q.Relations resolved. A page
// past the end yields no items and is not an error.
func (e *Executor) Paginate(ctx context.Context, q ListQuery) (*Page, error) {
	equals, err := resolveFilter(q.Filter)
	if err != nil {
		return nil, err
	}
	page, limit := NormalizePage(q.Page, q.Limit)

	scan := ScanQuery{
		Equals: equals,
		Sort:   allowedSort(q.Sort, q.SortFields),
		Skip:   skipFor(page, limit),
		Limit:  limit,
	}
	if q.Filter.Search != nil && strings.TrimSpace(q.Filter.Search.Term) != "" {
		scan.Search = &Search{Field: q.Filter.Search.Field, Term: strings.TrimSpace(q.Filter.Search.Term)}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, total, err := e.store.Scan(ctx, q.Collection, scan)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", q.Collection, err)
	}

	items := []Record{}
	if len(records) > 0 {
		items, err = e.Run(ctx, Pipeline{Collection: q.Collection, Stages: q.Relations}, records)
		if err != nil {
			return nil, err
		}
	}
	return &Page{
		Items:      items,
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		TotalPages: TotalPages(total, limit),
	}, nil
}

// NormalizePage applies the page and limit defaults to values below 1.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return page, limit
}

func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func skipFor(page, limit int) int {
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

func resolveFilter(f Filter) (map[string]any, error) {
	equals := make(map[string]any, len(f.Equals)+len(f.Refs))
	for k, v := range f.Equals {
		equals[k] = v
	}
	fields := make([]string, 0, len(f.Refs))
	for field := range f.Refs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		raw := strings.TrimSpace(f.Refs[field])
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, &IdentifierError{Field: field, Value: f.Refs[field]}
		}
		equals[field] = id.String()
	}
	return equals, nil
}

func allowedSort(s *Sort, allowed []string) *Sort {
	if s == nil || strings.TrimSpace(s.Field) == "" {
		return nil
	}
	if len(allowed) == 0 {
		return &Sort{Field: strings.TrimSpace(s.Field), Desc: s.Desc}
	}
	for _, f := range allowed {
		if f == s.Field {
			return &Sort{Field: f, Desc: s.Desc}
		}
	}
	return nil
}

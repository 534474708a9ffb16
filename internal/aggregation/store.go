package aggregation

import "context"

// Store is the persistence engine as seen by the executor. Every record
// returned must be a fresh copy the caller may mutate.
type Store interface {
	// FindByID returns the record of collection whose _id equals id.
	FindByID(ctx context.Context, collection, id string) (Record, bool, error)
	// Scan returns one window of the records matching q plus the total number
	// of matches ignoring Skip and Limit.
	Scan(ctx context.Context, collection string, q ScanQuery) ([]Record, int64, error)
	// Lookup returns, in natural order, the records whose field equals one of
	// values or, for array fields, contains one of them.
	Lookup(ctx context.Context, collection, field string, values []any) ([]Record, error)
}

type ScanQuery struct {
	Equals map[string]any
	Search *Search
	Sort   *Sort
	Skip   int
	// Limit of 0 returns every match.
	Limit int
}

// Search is a case-insensitive substring match on a text field.
type Search struct {
	Field string
	Term  string
}

type Sort struct {
	Field string
	Desc  bool
}

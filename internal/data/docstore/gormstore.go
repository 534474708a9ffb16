package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/coursemart-backend/internal/aggregation"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
)

// ArrayField exposes a child table as an array-valued field of its owner.
// The array holds ValueColumn of every child row whose OwnerColumn equals
// the owner's id, ordered by creation.
type ArrayField struct {
	Field       string
	Table       string
	OwnerColumn string
	ValueColumn string
}

type collection struct {
	name    string
	table   string
	columns map[string]string
	arrays  map[string]ArrayField
	model   func() any
	find    func(q *gorm.DB) ([]aggregation.Record, error)
}

// GormStore serves aggregation collections from gorm models. Records are the
// JSON form of the model, so hidden fields never leave the store.
type GormStore struct {
	db          *gorm.DB
	log         *logger.Logger
	collections map[string]*collection
}

func NewGormStore(db *gorm.DB, baseLog *logger.Logger) *GormStore {
	return &GormStore{
		db:          db,
		log:         baseLog.With("store", "GormStore"),
		collections: map[string]*collection{},
	}
}

// Register exposes model T as collection name. Filterable fields are the
// model's JSON names.
func Register[T any](s *GormStore, name string, arrays ...ArrayField) error {
	stmt := &gorm.Statement{DB: s.db}
	if err := stmt.Parse(new(T)); err != nil {
		return fmt.Errorf("parse model for %s: %w", name, err)
	}
	cols := map[string]string{}
	for _, f := range stmt.Schema.Fields {
		if f.DBName == "" {
			continue
		}
		jsonName := strings.Split(f.Tag.Get("json"), ",")[0]
		if jsonName == "" || jsonName == "-" {
			continue
		}
		cols[jsonName] = f.DBName
	}
	c := &collection{
		name:    name,
		table:   stmt.Schema.Table,
		columns: cols,
		arrays:  map[string]ArrayField{},
		model:   func() any { return new(T) },
		find: func(q *gorm.DB) ([]aggregation.Record, error) {
			var rows []T
			if err := q.Find(&rows).Error; err != nil {
				return nil, err
			}
			return toRecords(rows)
		},
	}
	for _, a := range arrays {
		c.arrays[a.Field] = a
	}
	s.collections[name] = c
	return nil
}

func (s *GormStore) collection(name string) (*collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("docstore: unknown collection %q", name)
	}
	return c, nil
}

func (s *GormStore) FindByID(ctx context.Context, collection, id string) (aggregation.Record, bool, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, false, err
	}
	recs, err := c.find(s.db.WithContext(ctx).Model(c.model()).Where("id = ?", id).Limit(1))
	if err != nil {
		return nil, false, err
	}
	if len(recs) == 0 {
		return nil, false, nil
	}
	if err := s.hydrate(ctx, c, recs); err != nil {
		return nil, false, err
	}
	return recs[0], true, nil
}

func (s *GormStore) Scan(ctx context.Context, collection string, q aggregation.ScanQuery) ([]aggregation.Record, int64, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, 0, err
	}
	filtered := func() (*gorm.DB, error) {
		tx := s.db.WithContext(ctx).Model(c.model())
		return s.applyFilter(tx, c, q)
	}
	if _, err := filtered(); err != nil {
		return nil, 0, err
	}

	var (
		total int64
		recs  []aggregation.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tx, _ := filtered()
		return tx.WithContext(gctx).Count(&total).Error
	})
	g.Go(func() error {
		tx, _ := filtered()
		tx = tx.WithContext(gctx)
		// An unknown sort field sorts every record equally, as in MemStore.
		if q.Sort != nil {
			if col, ok := c.columns[q.Sort.Field]; ok {
				dir := "ASC"
				if q.Sort.Desc {
					dir = "DESC"
				}
				tx = tx.Order(fmt.Sprintf("%s %s", col, dir))
			} else {
				s.log.Debug("ignoring unknown sort field", "collection", c.name, "field", q.Sort.Field)
			}
		}
		tx = tx.Order("created_at ASC").Order("id ASC")
		if q.Skip > 0 {
			tx = tx.Offset(q.Skip)
		}
		if q.Limit > 0 {
			tx = tx.Limit(q.Limit)
		}
		var err error
		recs, err = c.find(tx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if err := s.hydrate(ctx, c, recs); err != nil {
		return nil, 0, err
	}
	if recs == nil {
		recs = []aggregation.Record{}
	}
	return recs, total, nil
}

func (s *GormStore) Lookup(ctx context.Context, collection, field string, values []any) ([]aggregation.Record, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return []aggregation.Record{}, nil
	}
	tx := s.db.WithContext(ctx).Model(c.model())
	if a, ok := c.arrays[field]; ok {
		sub := s.db.Table(a.Table).Select(a.OwnerColumn).Where(fmt.Sprintf("%s IN ?", a.ValueColumn), values)
		tx = tx.Where("id IN (?)", sub)
	} else {
		col, ok := c.columns[field]
		if !ok {
			return nil, fmt.Errorf("docstore: %s has no field %q", c.name, field)
		}
		tx = tx.Where(fmt.Sprintf("%s IN ?", col), values)
	}
	recs, err := c.find(tx.Order("created_at ASC").Order("id ASC"))
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, c, recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []aggregation.Record{}
	}
	return recs, nil
}

func (s *GormStore) applyFilter(tx *gorm.DB, c *collection, q aggregation.ScanQuery) (*gorm.DB, error) {
	fields := make([]string, 0, len(q.Equals))
	for f := range q.Equals {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		v := q.Equals[f]
		if a, ok := c.arrays[f]; ok {
			sub := s.db.Table(a.Table).Select(a.OwnerColumn).Where(fmt.Sprintf("%s = ?", a.ValueColumn), v)
			tx = tx.Where("id IN (?)", sub)
			continue
		}
		col, ok := c.columns[f]
		if !ok {
			return nil, fmt.Errorf("docstore: %s has no filterable field %q", c.name, f)
		}
		if v == nil {
			tx = tx.Where(fmt.Sprintf("%s IS NULL", col))
			continue
		}
		tx = tx.Where(fmt.Sprintf("%s = ?", col), v)
	}
	if q.Search != nil {
		col, ok := c.columns[q.Search.Field]
		if !ok {
			return nil, fmt.Errorf("docstore: %s has no searchable field %q", c.name, q.Search.Field)
		}
		pattern := "%" + escapeLike(strings.ToLower(q.Search.Term)) + "%"
		tx = tx.Where(fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '\\'", col), pattern)
	}
	return tx, nil
}

// hydrate fills array fields from their child tables.
func (s *GormStore) hydrate(ctx context.Context, c *collection, recs []aggregation.Record) error {
	if len(c.arrays) == 0 || len(recs) == 0 {
		return nil
	}
	ids := make([]any, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r["_id"])
	}
	for _, a := range c.arrays {
		type pair struct {
			Owner string
			Value string
		}
		var rows []pair
		err := s.db.WithContext(ctx).
			Table(a.Table).
			Select(fmt.Sprintf("%s AS owner, %s AS value", a.OwnerColumn, a.ValueColumn)).
			Where(fmt.Sprintf("%s IN ?", a.OwnerColumn), ids).
			Order("created_at ASC").
			Order(a.ValueColumn + " ASC").
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("hydrate %s.%s: %w", c.name, a.Field, err)
		}
		byOwner := map[string][]any{}
		for _, p := range rows {
			byOwner[p.Owner] = append(byOwner[p.Owner], p.Value)
		}
		for _, r := range recs {
			owner, _ := r["_id"].(string)
			vals := byOwner[owner]
			if vals == nil {
				vals = []any{}
			}
			r[a.Field] = vals
		}
	}
	return nil
}

func toRecords[T any](rows []T) ([]aggregation.Record, error) {
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	out := []aggregation.Record{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

package aggregation

// Kind identifies a stage variant.
type Kind string

const (
	KindJoin      Kind = "join"
	KindUnwind    Kind = "unwind"
	KindAggregate Kind = "aggregate"
	KindProject   Kind = "project"
)

// Stage is one step of a Pipeline. The executor switches on the concrete type.
type Stage interface {
	Kind() Kind
}

// Pipeline is an ordered list of stages applied to records of Collection.
type Pipeline struct {
	Collection string
	Stages     []Stage
}

// Join attaches, under As, the records of a registered relation whose foreign
// key matches the local key of each parent. Parents without matches get an
// empty array. Pipeline runs on the matched records before they are attached.
// Via resolves the local key inside an embedded document (e.g. an unwound
// earlier join) instead of the parent itself.
type Join struct {
	Relation string
	As       string
	Via      string
	Pipeline []Stage
}

func (Join) Kind() Kind { return KindJoin }

// Unwind emits one record per element of the array at Path. When the array is
// empty, PreserveEmpty keeps the parent with Path absent; otherwise the parent
// is dropped.
type Unwind struct {
	Path          string
	PreserveEmpty bool
}

func (Unwind) Kind() Kind { return KindUnwind }

type AggregateOp string

const (
	OpCount         AggregateOp = "count"
	OpFilteredCount AggregateOp = "filteredCount"
	OpSum           AggregateOp = "sum"
	OpAverage       AggregateOp = "average"
)

// Predicate matches an element whose Field equals Equals. A nil Equals matches
// a missing or null field.
type Predicate struct {
	Field  string
	Equals any
}

// Aggregate writes a scalar computed over the array at Source into Into.
type Aggregate struct {
	Into   string
	Source string
	Op     AggregateOp
	Field  string
	Where  *Predicate
}

func (Aggregate) Kind() Kind { return KindAggregate }

func Count(into, source string) Aggregate {
	return Aggregate{Into: into, Source: source, Op: OpCount}
}

func FilteredCount(into, source string, where Predicate) Aggregate {
	return Aggregate{Into: into, Source: source, Op: OpFilteredCount, Where: &where}
}

func Sum(into, source, field string) Aggregate {
	return Aggregate{Into: into, Source: source, Op: OpSum, Field: field}
}

func Average(into, source, field string) Aggregate {
	return Aggregate{Into: into, Source: source, Op: OpAverage, Field: field}
}

// Field is one output field of an inclusion projection. From defaults to As.
// Index, when set, takes that element of the array at From (negative counts
// from the end).
type Field struct {
	As    string
	From  string
	Index *int
}

func Keep(path string) Field { return Field{As: path} }

func Rename(as, from string) Field { return Field{As: as, From: from} }

func ElemAt(as, from string, index int) Field {
	return Field{As: as, From: from, Index: &index}
}

// Project reshapes each record. With Include set only the listed fields (and
// _id, unless excluded) survive; Exclude then removes paths. Credentials are
// always removed.
type Project struct {
	Include []Field
	Exclude []string
}

func (Project) Kind() Kind { return KindProject }

func Include(fields ...Field) Project { return Project{Include: fields} }

func Exclude(paths ...string) Project { return Project{Exclude: paths} }

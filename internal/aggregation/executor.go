package aggregation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/coursemart-backend/internal/platform/logger"
)

const tracerName = "github.com/yungbote/coursemart-backend/internal/aggregation"

// Executor interprets pipelines against a Store. It holds no per-request
// state and is shared by all callers.
type Executor struct {
	store    Store
	registry *Registry
	log      *logger.Logger
	tracer   trace.Tracer
}

func NewExecutor(store Store, registry *Registry, baseLog *logger.Logger) *Executor {
	return &Executor{
		store:    store,
		registry: registry,
		log:      baseLog.With("component", "AggregationExecutor"),
		tracer:   otel.Tracer(tracerName),
	}
}

func (e *Executor) Store() Store { return e.store }

// batch carries the records between stages. origin[i] is the index of the
// input record docs[i] descends from, so a join can regroup the output of
// its sub-pipeline per matched target.
type batch struct {
	docs   []Record
	origin []int
}

func newBatch(docs []Record) *batch {
	b := &batch{docs: make([]Record, len(docs)), origin: make([]int, len(docs))}
	for i, d := range docs {
		b.docs[i] = Clone(d)
		b.origin[i] = i
	}
	return b
}

// Run applies p to roots and returns the resulting documents. roots are not
// modified. On error no documents are returned.
func (e *Executor) Run(ctx context.Context, p Pipeline, roots []Record) ([]Record, error) {
	out, err := e.run(ctx, p.Collection, p.Stages, newBatch(roots))
	if err != nil {
		return nil, err
	}
	for _, d := range out.docs {
		StripSensitive(d)
	}
	return out.docs, nil
}

// FindOne fetches the record of p.Collection with the given id and runs p on
// it. ErrNotFound is returned when the record is absent or the pipeline drops it.
func (e *Executor) FindOne(ctx context.Context, p Pipeline, id string) (Record, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return nil, &IdentifierError{Field: "id", Value: id}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, found, err := e.store.FindByID(ctx, p.Collection, strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", p.Collection, err)
	}
	if !found {
		return nil, ErrNotFound
	}
	docs, err := e.Run(ctx, p, []Record{root})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (e *Executor) run(ctx context.Context, collection string, stages []Stage, b *batch) (*batch, error) {
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := e.runStage(ctx, collection, st, b)
		if err != nil {
			return nil, err
		}
		b = next
	}
	return b, nil
}

func (e *Executor) runStage(ctx context.Context, collection string, st Stage, b *batch) (_ *batch, err error) {
	ctx, span := e.tracer.Start(ctx, "aggregation."+string(st.Kind()), trace.WithAttributes(
		attribute.String("aggregation.collection", collection),
		attribute.Int("aggregation.docs", len(b.docs)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	switch s := st.(type) {
	case Join:
		return b, e.join(ctx, collection, s, b)
	case *Join:
		return b, e.join(ctx, collection, *s, b)
	case Unwind:
		return unwind(s, b), nil
	case *Unwind:
		return unwind(*s, b), nil
	case Aggregate:
		return b, aggregate(s, b)
	case *Aggregate:
		return b, aggregate(*s, b)
	case Project:
		project(s, b)
		return b, nil
	case *Project:
		project(*s, b)
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownStage, st)
	}
}

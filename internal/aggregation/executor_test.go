package aggregation_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/coursemart-backend/internal/aggregation"
	"github.com/yungbote/coursemart-backend/internal/data/docstore"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
)

type Record = aggregation.Record

// countingStore counts round-trips and can be told to fail lookups.
type countingStore struct {
	aggregation.Store
	finds, scans, lookups atomic.Int32
	failLookup            error
}

func (s *countingStore) FindByID(ctx context.Context, c, id string) (Record, bool, error) {
	s.finds.Add(1)
	return s.Store.FindByID(ctx, c, id)
}

func (s *countingStore) Scan(ctx context.Context, c string, q aggregation.ScanQuery) ([]Record, int64, error) {
	s.scans.Add(1)
	return s.Store.Scan(ctx, c, q)
}

func (s *countingStore) Lookup(ctx context.Context, c, f string, v []any) ([]Record, error) {
	s.lookups.Add(1)
	if s.failLookup != nil {
		return nil, s.failLookup
	}
	return s.Store.Lookup(ctx, c, f, v)
}

func newExecutor(t *testing.T, mem *docstore.MemStore) (*aggregation.Executor, *countingStore) {
	t.Helper()
	reg, err := aggregation.DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	cs := &countingStore{Store: mem}
	return aggregation.NewExecutor(cs, reg, logger.Nop()), cs
}

func id() string { return uuid.NewString() }

func arr(t *testing.T, doc Record, path string) []any {
	t.Helper()
	v, ok := aggregation.Get(doc, path)
	if !ok {
		t.Fatalf("%s missing in %v", path, doc)
	}
	items, ok := v.([]any)
	if !ok {
		t.Fatalf("%s is %T, want []any", path, v)
	}
	return items
}

func TestJoinKeepsParentsWithoutMatches(t *testing.T) {
	mem := docstore.NewMemStore()
	u1, u2 := id(), id()
	mem.Insert("users", Record{"_id": u1, "name": "ann"}, Record{"_id": u2, "name": "bob"})
	mem.Insert("enrollments", Record{"_id": id(), "student_id": u1, "progress": 10})
	ex, _ := newExecutor(t, mem)

	out, err := ex.Run(context.Background(), aggregation.Pipeline{
		Collection: "users",
		Stages:     []aggregation.Stage{aggregation.Join{Relation: "user_enrollments", As: "enrollments"}},
	}, mustScan(t, mem, "users"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Run: len=%d want 2", len(out))
	}
	if n := len(arr(t, out[0], "enrollments")); n != 1 {
		t.Fatalf("ann enrollments: %d", n)
	}
	if n := len(arr(t, out[1], "enrollments")); n != 0 {
		t.Fatalf("bob enrollments: %d", n)
	}
}

func TestJoinMatchesArrayFieldsInTargetOrder(t *testing.T) {
	mem := docstore.NewMemStore()
	l1, l2, l3 := id(), id(), id()
	c1 := id()
	mem.Insert("lessons",
		Record{"_id": l1, "title": "one", "course_id": c1},
		Record{"_id": l2, "title": "two", "course_id": c1},
		Record{"_id": l3, "title": "three", "course_id": c1},
	)
	mem.Insert("courses", Record{"_id": c1, "title": "go"})
	mem.Insert("instructors", Record{"_id": id(), "user_id": id(), "courses": []any{id(), c1}})
	u := Record{"_id": id(), "watch_history": []any{l3, l1, l3}}
	ex, cs := newExecutor(t, mem)

	out, err := ex.Run(context.Background(), aggregation.Pipeline{
		Collection: "users",
		Stages: []aggregation.Stage{aggregation.Join{
			Relation: "user_watch_history",
			As:       "history",
			Pipeline: []aggregation.Stage{
				aggregation.Join{
					Relation: "lesson_course",
					As:       "course",
					Pipeline: []aggregation.Stage{
						aggregation.Join{Relation: "course_instructor_mapping", As: "mapping"},
					},
				},
			},
		}},
	}, []Record{u})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	history := arr(t, out[0], "history")
	if len(history) != 2 {
		t.Fatalf("history len=%d want 2 (deduplicated)", len(history))
	}
	if history[0].(Record)["title"] != "one" || history[1].(Record)["title"] != "three" {
		t.Fatalf("history not in lesson order: %v", history)
	}
	for _, h := range history {
		course := arr(t, h.(Record), "course")
		if len(course) != 1 || len(arr(t, course[0].(Record), "mapping")) != 1 {
			t.Fatalf("nested join missing: %v", h)
		}
	}
	if got := cs.lookups.Load(); got != 3 {
		t.Fatalf("lookups=%d want one per join stage", got)
	}
	if _, ok := u["history"]; ok {
		t.Fatalf("Run mutated its input")
	}
}

func TestJoinSkipsStoreWithoutLocalValues(t *testing.T) {
	mem := docstore.NewMemStore()
	ex, cs := newExecutor(t, mem)
	out, err := ex.Run(context.Background(), aggregation.Pipeline{
		Collection: "courses",
		Stages:     []aggregation.Stage{aggregation.Join{Relation: "course_category", As: "category"}},
	}, []Record{{"_id": id()}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cs.lookups.Load() != 0 {
		t.Fatalf("expected no lookup")
	}
	if len(arr(t, out[0], "category")) != 0 {
		t.Fatalf("expected empty category array")
	}
}

func TestJoinRejectsRelationFromOtherCollection(t *testing.T) {
	ex, _ := newExecutor(t, docstore.NewMemStore())
	_, err := ex.Run(context.Background(), aggregation.Pipeline{
		Collection: "users",
		Stages:     []aggregation.Stage{aggregation.Join{Relation: "course_category"}},
	}, []Record{{"_id": id()}})
	if !errors.Is(err, aggregation.ErrRelationMismatch) {
		t.Fatalf("err=%v want ErrRelationMismatch", err)
	}
	_, err = ex.Run(context.Background(), aggregation.Pipeline{
		Collection: "users",
		Stages:     []aggregation.Stage{aggregation.Join{Relation: "nope"}},
	}, []Record{{"_id": id()}})
	if !errors.Is(err, aggregation.ErrUnknownRelation) {
		t.Fatalf("err=%v want ErrUnknownRelation", err)
	}
}

func TestJoinViaEmbeddedDocument(t *testing.T) {
	mem := docstore.NewMemStore()
	instructorUser, course := id(), id()
	mem.Insert("users", Record{"_id": instructorUser, "name": "ivy", "password": "x"})
	mem.Insert("instructors", Record{"_id": id(), "user_id": instructorUser, "courses": []any{course}})
	ex, _ := newExecutor(t, mem)

	out, err := ex.Run(context.Background(), aggregation.Pipeline{
		Collection: "courses",
		Stages: []aggregation.Stage{
			aggregation.Join{Relation: "course_instructor_mapping", As: "mapping"},
			aggregation.Unwind{Path: "mapping", PreserveEmpty: true},
			aggregation.Join{Relation: "instructor_user", Via: "mapping", As: "instructorInfo"},
			aggregation.Include(aggregation.ElemAt("instructor", "instructorInfo", 0)),
		},
	}, []Record{{"_id": course}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	inst, ok := out[0]["instructor"].(Record)
	if !ok || inst["name"] != "ivy" {
		t.Fatalf("instructor not resolved: %v", out[0])
	}
	if _, leaked := inst["password"]; leaked {
		t.Fatalf("password leaked: %v", inst)
	}
}

func TestUnwindPreserveEmpty(t *testing.T) {
	mem := docstore.NewMemStore()
	cat := id()
	mem.Insert("categories", Record{"_id": cat, "name": "dev"})
	courses := []Record{
		{"_id": id(), "title": "a", "category_id": cat},
		{"_id": id(), "title": "b", "category_id": id()},
	}
	ex, _ := newExecutor(t, mem)

	stages := func(preserve bool) aggregation.Pipeline {
		return aggregation.Pipeline{Collection: "courses", Stages: []aggregation.Stage{
			aggregation.Join{Relation: "course_category", As: "category"},
			aggregation.Unwind{Path: "category", PreserveEmpty: preserve},
		}}
	}

	kept, err := ex.Run(context.Background(), stages(true), courses)
	if err != nil {
		t.Fatalf("Run(preserve): %v", err)
	}
	if len(kept) != 2 {
		t.Fatalf("preserve: len=%d want 2", len(kept))
	}
	if _, ok := kept[1]["category"]; ok {
		t.Fatalf("preserve: category should be absent, got %v", kept[1]["category"])
	}
	if c, _ := kept[0]["category"].(Record); c["name"] != "dev" {
		t.Fatalf("preserve: category not unwound: %v", kept[0])
	}

	dropped, err := ex.Run(context.Background(), stages(false), courses)
	if err != nil {
		t.Fatalf("Run(drop): %v", err)
	}
	if len(dropped) != 1 || dropped[0]["title"] != "a" {
		t.Fatalf("drop: unexpected result %v", dropped)
	}
}

func TestUnwindInsideJoinOnlyDropsScopedRecords(t *testing.T) {
	mem := docstore.NewMemStore()
	u, c := id(), id()
	mem.Insert("courses", Record{"_id": c, "title": "go"})
	mem.Insert("enrollments",
		Record{"_id": id(), "student_id": u, "course_id": c},
		Record{"_id": id(), "student_id": u, "course_id": id()},
	)
	ex, _ := newExecutor(t, mem)

	out, err := ex.Run(context.Background(), aggregation.Pipeline{
		Collection: "users",
		Stages: []aggregation.Stage{aggregation.Join{
			Relation: "user_enrollments",
			As:       "enrollments",
			Pipeline: []aggregation.Stage{
				aggregation.Join{Relation: "enrollment_course", As: "course"},
				aggregation.Unwind{Path: "course"},
			},
		}},
	}, []Record{{"_id": u}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("user dropped: %v", out)
	}
	if n := len(arr(t, out[0], "enrollments")); n != 1 {
		t.Fatalf("enrollments=%d want 1", n)
	}
}

func TestAggregateStatistics(t *testing.T) {
	ex, _ := newExecutor(t, docstore.NewMemStore())
	stages := []aggregation.Stage{
		aggregation.Count("stats.total", "enrollments"),
		aggregation.FilteredCount("stats.completed", "enrollments", aggregation.Predicate{Field: "completed", Equals: true}),
		aggregation.FilteredCount("stats.inProgress", "enrollments", aggregation.Predicate{Field: "completed", Equals: false}),
		aggregation.Sum("stats.sum", "enrollments", "progress"),
		aggregation.Average("stats.avg", "enrollments", "progress"),
	}
	out, err := ex.Run(context.Background(), aggregation.Pipeline{Collection: "users", Stages: stages}, []Record{
		{"_id": id(), "enrollments": []any{
			Record{"progress": 0, "completed": false},
			Record{"progress": 50.0, "completed": false},
			Record{"progress": int64(100), "completed": true},
		}},
		{"_id": id(), "enrollments": []any{}},
		{"_id": id()},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	full := out[0]["stats"].(Record)
	if full["total"] != 3 || full["completed"] != 1 || full["inProgress"] != 2 {
		t.Fatalf("counts: %v", full)
	}
	if full["sum"] != 150.0 || full["avg"] != 50.0 {
		t.Fatalf("sum/avg: %v", full)
	}
	for _, doc := range out[1:] {
		s := doc["stats"].(Record)
		if s["total"] != 0 || s["completed"] != 0 || s["avg"] != 0.0 || s["sum"] != 0.0 {
			t.Fatalf("empty stats: %v", s)
		}
	}
}

func TestAggregateNestedSum(t *testing.T) {
	ex, _ := newExecutor(t, docstore.NewMemStore())
	out, err := ex.Run(context.Background(), aggregation.Pipeline{Collection: "courses", Stages: []aggregation.Stage{
		aggregation.Count("totalModules", "modules"),
		aggregation.Sum("totalLessons", "modules", "lessonCount"),
	}}, []Record{{"_id": id(), "modules": []any{
		Record{"lessonCount": 2}, Record{"lessonCount": 0}, Record{"lessonCount": 3},
	}}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out[0]["totalModules"] != 3 || out[0]["totalLessons"] != 5.0 {
		t.Fatalf("totals: %v", out[0])
	}
}

func TestAggregateMalformedInput(t *testing.T) {
	ex, _ := newExecutor(t, docstore.NewMemStore())
	cases := []Record{
		{"_id": id(), "enrollments": []any{Record{"progress": "half"}}},
		{"_id": id(), "enrollments": "not-an-array"},
	}
	for _, doc := range cases {
		out, err := ex.Run(context.Background(), aggregation.Pipeline{Collection: "users", Stages: []aggregation.Stage{
			aggregation.Average("avg", "enrollments", "progress"),
		}}, []Record{doc})
		if !errors.Is(err, aggregation.ErrMalformed) || out != nil {
			t.Fatalf("doc %v: err=%v out=%v", doc, err, out)
		}
	}
}

func TestSafeDivide(t *testing.T) {
	cases := []struct{ num, den, want float64 }{
		{150, 3, 50},
		{0, 0, 0},
		{10, 0, 0},
		{1, 4, 0.25},
	}
	for _, tc := range cases {
		if got := aggregation.SafeDivide(tc.num, tc.den); got != tc.want {
			t.Fatalf("SafeDivide(%v,%v)=%v want %v", tc.num, tc.den, got, tc.want)
		}
	}
}

func TestProjectReshapesAndStripsCredentials(t *testing.T) {
	ex, _ := newExecutor(t, docstore.NewMemStore())
	out, err := ex.Run(context.Background(), aggregation.Pipeline{Collection: "enrollments", Stages: []aggregation.Stage{
		aggregation.Include(
			aggregation.Keep("progress"),
			aggregation.Rename("course.thumbnail_url", "courseDetails.thumbnail"),
			aggregation.Rename("course.title", "courseDetails.title"),
			aggregation.ElemAt("course.instructor", "courseDetails.instructorInfo", 0),
			aggregation.ElemAt("course.missing", "courseDetails.none", 0),
		),
	}}, []Record{{
		"_id":      "e1",
		"progress": 40,
		"secret":   "dropped",
		"courseDetails": Record{
			"title":          "go",
			"thumbnail":      "http://img",
			"instructorInfo": []any{Record{"name": "ivy", "refresh_token": "t", "profile": Record{"password": "p"}}},
		},
	}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	doc := out[0]
	if doc["_id"] != "e1" || doc["progress"] != 40 {
		t.Fatalf("kept fields: %v", doc)
	}
	if _, ok := doc["secret"]; ok {
		t.Fatalf("unlisted field survived: %v", doc)
	}
	course := doc["course"].(Record)
	if course["thumbnail_url"] != "http://img" || course["title"] != "go" {
		t.Fatalf("renamed fields: %v", course)
	}
	if _, ok := course["missing"]; ok {
		t.Fatalf("out-of-range ElemAt should be omitted")
	}
	inst := course["instructor"].(Record)
	if _, ok := inst["refresh_token"]; ok {
		t.Fatalf("refresh_token leaked: %v", inst)
	}
	if _, ok := inst["profile"].(Record)["password"]; ok {
		t.Fatalf("nested password leaked: %v", inst)
	}
}

func TestRunStripsCredentialsWithoutProjection(t *testing.T) {
	ex, _ := newExecutor(t, docstore.NewMemStore())
	out, err := ex.Run(context.Background(), aggregation.Pipeline{Collection: "users"}, []Record{{
		"_id": id(), "password": "x", "refreshToken": "y",
		"friends": []any{Record{"password_hash": "z"}},
	}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := out[0]["password"]; ok {
		t.Fatalf("password leaked")
	}
	if _, ok := out[0]["refreshToken"]; ok {
		t.Fatalf("refreshToken leaked")
	}
	if _, ok := out[0]["friends"].([]any)[0].(Record)["password_hash"]; ok {
		t.Fatalf("nested password_hash leaked")
	}
}

func TestRunAbortsOnCancelAndStoreFailure(t *testing.T) {
	mem := docstore.NewMemStore()
	u := id()
	mem.Insert("enrollments", Record{"_id": id(), "student_id": u})
	ex, cs := newExecutor(t, mem)
	p := aggregation.Pipeline{Collection: "users", Stages: []aggregation.Stage{
		aggregation.Join{Relation: "user_enrollments"},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := ex.Run(ctx, p, []Record{{"_id": u}})
	if !errors.Is(err, context.Canceled) || out != nil {
		t.Fatalf("canceled: err=%v out=%v", err, out)
	}
	if cs.lookups.Load() != 0 {
		t.Fatalf("store touched after cancel")
	}

	boom := errors.New("boom")
	cs.failLookup = boom
	out, err = ex.Run(context.Background(), p, []Record{{"_id": u}})
	if !errors.Is(err, boom) || out != nil {
		t.Fatalf("store failure: err=%v out=%v", err, out)
	}
}

func TestFindOne(t *testing.T) {
	mem := docstore.NewMemStore()
	u := id()
	mem.Insert("users", Record{"_id": u, "name": "ann"})
	ex, cs := newExecutor(t, mem)
	p := aggregation.Pipeline{Collection: "users"}

	if _, err := ex.FindOne(context.Background(), p, "not-a-uuid"); !errors.Is(err, aggregation.ErrInvalidIdentifier) {
		t.Fatalf("invalid id: err=%v", err)
	}
	if cs.finds.Load() != 0 {
		t.Fatalf("store touched for invalid id")
	}
	if _, err := ex.FindOne(context.Background(), p, id()); !errors.Is(err, aggregation.ErrNotFound) {
		t.Fatalf("absent: err=%v", err)
	}
	doc, err := ex.FindOne(context.Background(), p, u)
	if err != nil || doc["name"] != "ann" {
		t.Fatalf("FindOne: doc=%v err=%v", doc, err)
	}
}

func mustScan(t *testing.T, s aggregation.Store, collection string) []Record {
	t.Helper()
	docs, _, err := s.Scan(context.Background(), collection, aggregation.ScanQuery{})
	if err != nil {
		t.Fatalf("Scan(%s): %v", collection, err)
	}
	return docs
}

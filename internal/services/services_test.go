package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	ag "github.com/yungbote/coursemart-backend/internal/aggregation"
	"github.com/yungbote/coursemart-backend/internal/data/docstore"
	"github.com/yungbote/coursemart-backend/internal/data/repos"
	"github.com/yungbote/coursemart-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"github.com/yungbote/coursemart-backend/internal/platform/apierr"
	"github.com/yungbote/coursemart-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursemart-backend/internal/readmodels"
)

type env struct {
	db    *gorm.DB
	svc   Services
	cache *recordingCache
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	store, err := docstore.NewMarketplaceStore(db, log)
	if err != nil {
		t.Fatalf("NewMarketplaceStore: %v", err)
	}
	reg, err := ag.DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	c := &recordingCache{pages: map[string]*ag.Page{}}
	svc := New(db, log, ag.NewExecutor(store, reg, log), c, repos.New(db, log), AuthConfig{
		SecretKey:  "test-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	return &env{db: db, svc: svc, cache: c}
}

func as(u *types.User) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: u.ID, Role: u.Role})
}

func statusOf(err error) int {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

func publish(t *testing.T, db *gorm.DB, c *types.Course) {
	t.Helper()
	if err := db.Model(&types.Course{}).Where("id = ?", c.ID).Update("published", true).Error; err != nil {
		t.Fatalf("publish: %v", err)
	}
}

type recordingCache struct {
	mu          sync.Mutex
	pages       map[string]*ag.Page
	invalidated []string
}

func (c *recordingCache) Get(_ context.Context, key string) (*ag.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pages[key]
	return p, ok
}

func (c *recordingCache) Set(_ context.Context, key string, page *ag.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[key] = page
}

func (c *recordingCache) Invalidate(_ context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, prefix)
	for k := range c.pages {
		if strings.HasPrefix(k, prefix) {
			delete(c.pages, k)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.svc.Auth.Register(ctx, RegisterInput{
		Username: " Alice ", Name: "Alice", Email: "Alice@Example.com", Password: "s3cret!", Role: types.RoleInstructor,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Username != "alice" || u.Email != "alice@example.com" || u.Role != types.RoleInstructor {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.Password == "s3cret!" {
		t.Fatalf("password stored in clear")
	}
	if _, err := e.svc.Auth.Register(ctx, RegisterInput{
		Username: "alice", Name: "Other", Email: "other@example.com", Password: "x",
	}); statusOf(err) != http.StatusConflict {
		t.Fatalf("duplicate username: err=%v", err)
	}

	if _, _, err := e.svc.Auth.Login(ctx, "alice", "wrong"); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("bad password: err=%v", err)
	}
	_, tokens, err := e.svc.Auth.Login(ctx, "ALICE@example.com", "s3cret!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tokens.ExpiresIn != 60 {
		t.Fatalf("ExpiresIn=%d", tokens.ExpiresIn)
	}

	authed, err := e.svc.Auth.SetContextFromToken(ctx, tokens.AccessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if rd := ctxutil.GetRequestData(authed); rd == nil || rd.UserID != u.ID || rd.Role != types.RoleInstructor {
		t.Fatalf("request data: %+v", rd)
	}
	if _, err := e.svc.Auth.SetContextFromToken(ctx, tokens.RefreshToken); err == nil {
		t.Fatalf("refresh token accepted as access token")
	}

	if _, err := e.svc.Auth.Refresh(ctx, tokens.AccessToken); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("access token accepted as refresh token: err=%v", err)
	}
	rotated, err := e.svc.Auth.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := e.svc.Auth.Refresh(ctx, tokens.RefreshToken); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("rotated refresh token reused: err=%v", err)
	}

	if err := e.svc.Auth.Logout(authed); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := e.svc.Auth.Refresh(ctx, rotated.RefreshToken); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: err=%v", err)
	}
}

func TestCourseLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, ctx, e.db, "owner", types.RoleInstructor)
	rival := testutil.SeedUser(t, ctx, e.db, "rival", types.RoleInstructor)
	student := testutil.SeedUser(t, ctx, e.db, "student", types.RoleStudent)
	cat := testutil.SeedCategory(t, ctx, e.db, "Programming", owner.ID)

	in := CourseInput{
		Title: "Go in Practice", Description: "Learn Go.", Price: 25,
		CategoryID: cat.ID.String(), Thumbnail: "https://cdn.example.com/go.png",
	}
	if _, err := e.svc.Course.Create(as(student), in); statusOf(err) != http.StatusForbidden {
		t.Fatalf("student create: err=%v", err)
	}
	bad := in
	bad.CategoryID = uuid.NewString()
	if _, err := e.svc.Course.Create(as(owner), bad); statusOf(err) != http.StatusNotFound {
		t.Fatalf("missing category: err=%v", err)
	}

	doc, err := e.svc.Course.Create(as(owner), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id, _ := doc["_id"].(string)
	if name, _ := ag.Get(doc, "instructor.user.name"); name != owner.Name {
		t.Fatalf("instructor not populated: %v", doc["instructor"])
	}
	if name, _ := ag.Get(doc, "category.name"); name != "Programming" {
		t.Fatalf("category not populated: %v", doc["category"])
	}
	if n, _ := ag.Get(doc, "ratingStats.reviewCount"); !ag.Equal(n, 0) {
		t.Fatalf("reviewCount=%v", n)
	}

	if _, err := e.svc.Course.GetByID(ctx, "not-an-id"); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("invalid id: err=%v", err)
	}
	if _, err := e.svc.Course.GetByID(ctx, id); statusOf(err) != http.StatusNotFound {
		t.Fatalf("unpublished course must be hidden: err=%v", err)
	}
	if _, err := e.svc.Course.TogglePublish(as(rival), id); statusOf(err) != http.StatusForbidden {
		t.Fatalf("rival publish: err=%v", err)
	}
	if _, err := e.svc.Course.TogglePublish(as(owner), id); err != nil {
		t.Fatalf("TogglePublish: %v", err)
	}
	if _, err := e.svc.Course.GetByID(ctx, id); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got, err := e.svc.Course.GetByTitle(ctx, "  Go in Practice "); err != nil || got["_id"] != id {
		t.Fatalf("GetByTitle: %v %v", got, err)
	}

	page, err := e.svc.Course.List(ctx, readmodels.ListParams{Query: "practice", Refs: map[string]string{"category_id": cat.ID.String()}})
	if err != nil || page.TotalCount != 1 {
		t.Fatalf("List: page=%+v err=%v", page, err)
	}
	if _, err := e.svc.Course.List(ctx, readmodels.ListParams{Refs: map[string]string{"instructor_id": "nope"}}); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("invalid instructor id: err=%v", err)
	}
	if len(e.cache.pages) != 1 {
		t.Fatalf("expected one cached page, got %d", len(e.cache.pages))
	}

	price := 30.0
	updated, err := e.svc.Course.Update(as(owner), id, CourseUpdate{Price: &price})
	if err != nil || !ag.Equal(updated["price"], 30) {
		t.Fatalf("Update: %v %v", updated, err)
	}
	if len(e.cache.pages) != 0 {
		t.Fatalf("update must invalidate the listing cache")
	}
	if _, err := e.svc.Course.Update(as(owner), id, CourseUpdate{}); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("empty update: err=%v", err)
	}

	if err := e.svc.Course.Delete(as(rival), id); statusOf(err) != http.StatusForbidden {
		t.Fatalf("rival delete: err=%v", err)
	}
	if err := e.svc.Course.Delete(as(owner), id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := e.svc.Course.List(ctx, readmodels.ListParams{}); statusOf(err) != http.StatusNotFound {
		t.Fatalf("empty listing: err=%v", err)
	}
}

func TestCategoryRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, ctx, e.db, "owner", types.RoleInstructor)
	other := testutil.SeedUser(t, ctx, e.db, "other", types.RoleInstructor)
	student := testutil.SeedUser(t, ctx, e.db, "student", types.RoleStudent)

	if _, err := e.svc.Category.List(ctx, readmodels.ListParams{}); statusOf(err) != http.StatusNotFound {
		t.Fatalf("empty list: err=%v", err)
	}
	in := CategoryInput{Name: "Design", Description: "Visual design"}
	if _, err := e.svc.Category.Create(as(student), in); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("student create: err=%v", err)
	}
	doc, err := e.svc.Category.Create(as(owner), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if name, _ := ag.Get(doc, "createdBy.username"); name != "owner" {
		t.Fatalf("createdBy: %v", doc["createdBy"])
	}
	if _, err := e.svc.Category.Create(as(other), in); statusOf(err) != http.StatusConflict {
		t.Fatalf("duplicate: err=%v", err)
	}

	id, _ := doc["_id"].(string)
	rename := "UX"
	if _, err := e.svc.Category.Update(as(other), id, CategoryUpdate{Name: &rename}); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("non-creator update: err=%v", err)
	}
	if got, err := e.svc.Category.Update(as(owner), id, CategoryUpdate{Name: &rename}); err != nil || got["name"] != "UX" {
		t.Fatalf("Update: %v %v", got, err)
	}
	if got, err := e.svc.Category.GetByName(ctx, "UX"); err != nil || got["_id"] != id {
		t.Fatalf("GetByName: %v %v", got, err)
	}
	if err := e.svc.Category.Delete(as(owner), id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := e.svc.Category.GetByID(ctx, id); statusOf(err) != http.StatusNotFound {
		t.Fatalf("deleted category: err=%v", err)
	}
}

func TestCurriculumPositions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, ctx, e.db, "owner", types.RoleInstructor)
	rival := testutil.SeedUser(t, ctx, e.db, "rival", types.RoleInstructor)
	course := testutil.SeedCourse(t, ctx, e.db, "Course", 10, testutil.SeedInstructor(t, ctx, e.db, owner.ID), nil)

	m, err := e.svc.Curriculum.AddModule(as(owner), course.ID.String(), ModuleInput{Title: "Basics", Position: 1})
	if err != nil {
		t.Fatalf("AddModule: %v", err)
	}
	if _, err := e.svc.Curriculum.AddModule(as(owner), course.ID.String(), ModuleInput{Title: "Again", Position: 1}); statusOf(err) != http.StatusConflict {
		t.Fatalf("duplicate module position: err=%v", err)
	}
	if _, err := e.svc.Curriculum.AddModule(as(rival), course.ID.String(), ModuleInput{Title: "Mine", Position: 2}); statusOf(err) != http.StatusForbidden {
		t.Fatalf("rival module: err=%v", err)
	}
	l, err := e.svc.Curriculum.AddLesson(as(owner), m.ID.String(), LessonInput{Title: "Hello", Position: 1})
	if err != nil {
		t.Fatalf("AddLesson: %v", err)
	}
	if l.CourseID != course.ID {
		t.Fatalf("lesson course id not denormalized")
	}
	if _, err := e.svc.Curriculum.AddLesson(as(owner), m.ID.String(), LessonInput{Title: "Dup", Position: 1}); statusOf(err) != http.StatusConflict {
		t.Fatalf("duplicate lesson position: err=%v", err)
	}
}

func TestEnrollmentProgressAndReviews(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, ctx, e.db, "owner", types.RoleInstructor)
	student := testutil.SeedUser(t, ctx, e.db, "student", types.RoleStudent)
	stranger := testutil.SeedUser(t, ctx, e.db, "stranger", types.RoleStudent)
	course := testutil.SeedCourse(t, ctx, e.db, "Course", 10, testutil.SeedInstructor(t, ctx, e.db, owner.ID), nil)

	if _, err := e.svc.Enrollment.Enroll(as(student), course.ID.String()); statusOf(err) != http.StatusNotFound {
		t.Fatalf("enroll unpublished: err=%v", err)
	}
	publish(t, e.db, course)
	enrollment, err := e.svc.Enrollment.Enroll(as(student), course.ID.String())
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if _, err := e.svc.Enrollment.Enroll(as(student), course.ID.String()); statusOf(err) != http.StatusConflict {
		t.Fatalf("re-enroll: err=%v", err)
	}

	over := 150.0
	if _, err := e.svc.Enrollment.UpdateProgress(as(student), enrollment.ID.String(), &over, nil); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("progress out of range: err=%v", err)
	}
	half := 50.0
	if _, err := e.svc.Enrollment.UpdateProgress(as(stranger), enrollment.ID.String(), &half, nil); statusOf(err) != http.StatusForbidden {
		t.Fatalf("stranger progress: err=%v", err)
	}
	done := true
	got, err := e.svc.Enrollment.UpdateProgress(as(student), enrollment.ID.String(), nil, &done)
	if err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if !got.Completed || got.Progress != 0 {
		t.Fatalf("completed must not touch progress: %+v", got)
	}

	if _, err := e.svc.Review.Add(as(stranger), course.ID.String(), 5, "great"); statusOf(err) != http.StatusForbidden {
		t.Fatalf("review without enrollment: err=%v", err)
	}
	if _, err := e.svc.Review.Add(as(student), course.ID.String(), 6, "great"); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("rating out of range: err=%v", err)
	}
	if _, err := e.svc.Review.Add(as(student), course.ID.String(), 4, "good"); err != nil {
		t.Fatalf("Review.Add: %v", err)
	}
	if _, err := e.svc.Review.Add(as(student), course.ID.String(), 5, "again"); statusOf(err) != http.StatusConflict {
		t.Fatalf("duplicate review: err=%v", err)
	}
	detail, err := e.svc.Course.GetByID(ctx, course.ID.String())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if avg, _ := ag.Get(detail, "ratingStats.averageRating"); !ag.Equal(avg, 4) {
		t.Fatalf("averageRating=%v", avg)
	}
}

func TestOrderCompletionEnrollsBuyer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, ctx, e.db, "owner", types.RoleInstructor)
	buyer := testutil.SeedUser(t, ctx, e.db, "buyer", types.RoleStudent)
	other := testutil.SeedUser(t, ctx, e.db, "other", types.RoleStudent)
	inst := testutil.SeedInstructor(t, ctx, e.db, owner.ID)
	c1 := testutil.SeedCourse(t, ctx, e.db, "One", 10, inst, nil)
	c2 := testutil.SeedCourse(t, ctx, e.db, "Two", 15.5, inst, nil)
	draft := testutil.SeedCourse(t, ctx, e.db, "Draft", 5, inst, nil)
	publish(t, e.db, c1)
	publish(t, e.db, c2)

	if _, err := e.svc.Order.Create(as(buyer), []string{c1.ID.String(), draft.ID.String()}); statusOf(err) != http.StatusNotFound {
		t.Fatalf("order with unpublished course: err=%v", err)
	}
	if _, err := e.svc.Order.Create(as(buyer), nil); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("empty order: err=%v", err)
	}
	order, err := e.svc.Order.Create(as(buyer), []string{c1.ID.String(), c2.ID.String(), c1.ID.String()})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if order.TotalAmount != 25.5 || len(order.Items) != 2 || order.Status != types.OrderStatusPending {
		t.Fatalf("unexpected order: %+v", order)
	}

	if _, _, err := e.svc.Order.Complete(as(other), order.ID.String(), PaymentInput{Method: "card"}); statusOf(err) != http.StatusForbidden {
		t.Fatalf("foreign complete: err=%v", err)
	}
	completed, payment, err := e.svc.Order.Complete(as(buyer), order.ID.String(), PaymentInput{
		Method: "card", TransactionID: "tx_1", Metadata: map[string]any{"last4": "4242"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completed.Status != types.OrderStatusCompleted || payment.Amount != 25.5 || payment.OrderID != order.ID {
		t.Fatalf("completed=%+v payment=%+v", completed, payment)
	}
	var enrolled int64
	if err := e.db.Model(&types.Enrollment{}).Where("student_id = ?", buyer.ID).Count(&enrolled).Error; err != nil || enrolled != 2 {
		t.Fatalf("enrollments=%d err=%v", enrolled, err)
	}

	if _, _, err := e.svc.Order.Complete(as(buyer), order.ID.String(), PaymentInput{Method: "card"}); statusOf(err) != http.StatusConflict {
		t.Fatalf("second completion: err=%v", err)
	}
	if _, err := e.svc.Order.Cancel(as(buyer), order.ID.String()); statusOf(err) != http.StatusConflict {
		t.Fatalf("cancel completed: err=%v", err)
	}
}

func TestUserAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, ctx, e.db, "owner", types.RoleInstructor)
	student := testutil.SeedUser(t, ctx, e.db, "student", types.RoleStudent)
	inst := testutil.SeedInstructor(t, ctx, e.db, owner.ID)
	course := testutil.SeedCourse(t, ctx, e.db, "Course", 10, inst, nil)
	lesson := testutil.SeedLesson(t, ctx, e.db, testutil.SeedModule(t, ctx, e.db, course.ID, 1), 1)

	if _, err := e.svc.User.Progress(as(student)); statusOf(err) != http.StatusNotFound {
		t.Fatalf("progress without enrollments: err=%v", err)
	}
	testutil.SeedEnrollment(t, ctx, e.db, student.ID, course.ID, 33.333, false)

	doc, err := e.svc.User.CurrentUser(as(student))
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if n, _ := ag.Get(doc, "user.enrollmentStats.totalEnrollments"); !ag.Equal(n, 1) {
		t.Fatalf("totalEnrollments=%v", n)
	}
	entries, err := e.svc.User.Progress(as(student))
	if err != nil || len(entries) != 1 || !ag.Equal(entries[0]["progress"], 33.33) {
		t.Fatalf("Progress: %v %v", entries, err)
	}

	if err := e.svc.User.RecordWatch(as(student), uuid.NewString()); statusOf(err) != http.StatusNotFound {
		t.Fatalf("watch missing lesson: err=%v", err)
	}
	if err := e.svc.User.RecordWatch(as(student), lesson.ID.String()); err != nil {
		t.Fatalf("RecordWatch: %v", err)
	}
	history, err := e.svc.User.WatchHistory(as(student))
	if err != nil {
		t.Fatalf("WatchHistory: %v", err)
	}
	if items, _ := history["watchHistory"].([]any); len(items) != 1 {
		t.Fatalf("watchHistory: %v", history)
	}

	taken := "owner@example.com"
	if _, err := e.svc.User.UpdateAccount(as(student), AccountUpdate{Email: &taken}); statusOf(err) != http.StatusConflict {
		t.Fatalf("email conflict: err=%v", err)
	}
	if _, err := e.svc.User.UpdateAccount(as(student), AccountUpdate{}); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("empty update: err=%v", err)
	}
	name := "Renamed Student"
	if u, err := e.svc.User.UpdateAccount(as(student), AccountUpdate{Name: &name}); err != nil || u.Name != name {
		t.Fatalf("UpdateAccount: %+v %v", u, err)
	}

	if err := e.svc.User.DeleteAccount(as(student)); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := e.svc.User.CurrentUser(as(student)); statusOf(err) != http.StatusNotFound {
		t.Fatalf("deleted user: err=%v", err)
	}
}

func TestListingKeyIgnoresRefOrder(t *testing.T) {
	a := listingKey(courseListPrefix, readmodels.ListParams{Refs: map[string]string{"a": "1", "b": "2"}, Page: 2})
	b := listingKey(courseListPrefix, readmodels.ListParams{Refs: map[string]string{"b": "2", "a": "1", "c": ""}, Page: 2})
	if a != b {
		t.Fatalf("keys differ: %q %q", a, b)
	}
	if !strings.HasPrefix(a, courseListPrefix+":") {
		t.Fatalf("key %q lacks prefix", a)
	}
}

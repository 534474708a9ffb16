package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	ag "github.com/yungbote/coursemart-backend/internal/aggregation"
	"github.com/yungbote/coursemart-backend/internal/data/cache"
	"github.com/yungbote/coursemart-backend/internal/data/docstore"
	"github.com/yungbote/coursemart-backend/internal/data/repos"
	"github.com/yungbote/coursemart-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/coursemart-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursemart-backend/internal/http/middleware"
	"github.com/yungbote/coursemart-backend/internal/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := httpH.RegisterValidators(); err != nil {
		t.Fatalf("RegisterValidators: %v", err)
	}
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
	svc := services.New(db, log, ag.NewExecutor(store, reg, log), cache.Noop(), repos.New(db, log), services.AuthConfig{
		SecretKey: "router-test",
		AccessTTL: time.Minute,
	})
	return NewRouter(RouterConfig{
		Log:               log,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, svc.Auth),
		AuthHandler:       httpH.NewAuthHandler(svc.Auth),
		UserHandler:       httpH.NewUserHandler(svc.User),
		CourseHandler:     httpH.NewCourseHandler(svc.Course),
		CategoryHandler:   httpH.NewCategoryHandler(svc.Category),
		CurriculumHandler: httpH.NewCurriculumHandler(svc.Curriculum),
		EnrollmentHandler: httpH.NewEnrollmentHandler(svc.Enrollment, svc.Review),
		OrderHandler:      httpH.NewOrderHandler(svc.Order),
		HealthHandler:     httpH.NewHealthHandler(db),
	})
}

type client struct {
	t     *testing.T
	r     *gin.Engine
	token string
}

func (c *client) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.r.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "text/plain; charset=utf-8" {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			c.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func (c *client) login(username, role string) {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/api/auth/register", map[string]any{
		"username": username, "name": "Test User", "email": username + "@example.com",
		"password": "password1", "role": role,
	})
	if status != http.StatusCreated {
		c.t.Fatalf("register %s: %d %v", username, status, body)
	}
	status, body = c.do(http.MethodPost, "/api/auth/login", map[string]any{
		"identifier": username, "password": "password1",
	})
	if status != http.StatusOK {
		c.t.Fatalf("login %s: %d %v", username, status, body)
	}
	c.token, _ = body["access_token"].(string)
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthcheck(t *testing.T) {
	c := &client{t: t, r: newTestRouter(t)}
	status, body := c.do(http.MethodGet, "/healthcheck", nil)
	if status != http.StatusOK || body["status"] != "ok" || body["database"] != "up" {
		t.Fatalf("healthcheck: %d %v", status, body)
	}
}

func TestMarketplaceFlow(t *testing.T) {
	r := newTestRouter(t)
	tutor := &client{t: t, r: r}
	tutor.login("tutor", "Instructor")
	student := &client{t: t, r: r}
	student.login("student", "Student")
	anon := &client{t: t, r: r}

	if status, body := anon.do(http.MethodGet, "/api/users/me", nil); status != http.StatusUnauthorized || errorCode(body) != "unauthorized" {
		t.Fatalf("anonymous me: %d %v", status, body)
	}
	if status, body := anon.do(http.MethodPost, "/api/auth/register", map[string]any{
		"username": "Bad Name!", "name": "x", "email": "x@example.com", "password": "password1",
	}); status != http.StatusBadRequest {
		t.Fatalf("invalid username accepted: %d %v", status, body)
	}

	status, body := tutor.do(http.MethodPost, "/api/categories", map[string]any{
		"name": "Backend", "description": "Servers, APIs and data.",
	})
	if status != http.StatusCreated {
		t.Fatalf("create category: %d %v", status, body)
	}
	categoryID, _ := body["category"].(map[string]any)["_id"].(string)

	if status, body := student.do(http.MethodPost, "/api/categories", map[string]any{
		"name": "Other", "description": "Other things.",
	}); status != http.StatusUnauthorized {
		t.Fatalf("student category: %d %v", status, body)
	}
	if status, body := tutor.do(http.MethodPost, "/api/courses", map[string]any{
		"title": "Bad", "description": "<script>", "price": 1, "category_id": categoryID,
		"thumbnail": "https://cdn.example.com/a.png",
	}); status != http.StatusBadRequest {
		t.Fatalf("description pattern not enforced: %d %v", status, body)
	}

	status, body = tutor.do(http.MethodPost, "/api/courses", map[string]any{
		"title": "Go APIs", "description": "Build APIs in Go.", "price": 20, "category_id": categoryID,
		"thumbnail": "https://cdn.example.com/go.png",
	})
	if status != http.StatusCreated {
		t.Fatalf("create course: %d %v", status, body)
	}
	courseID, _ := body["course"].(map[string]any)["_id"].(string)

	if status, _ := anon.do(http.MethodGet, "/api/courses/"+courseID, nil); status != http.StatusNotFound {
		t.Fatalf("unpublished course visible: %d", status)
	}
	if status, body := student.do(http.MethodPatch, "/api/courses/"+courseID+"/publish", nil); status != http.StatusForbidden {
		t.Fatalf("student publish: %d %v", status, body)
	}
	if status, body := tutor.do(http.MethodPatch, "/api/courses/"+courseID+"/publish", nil); status != http.StatusOK {
		t.Fatalf("publish: %d %v", status, body)
	}
	if status, body := anon.do(http.MethodGet, "/api/courses/abc", nil); status != http.StatusBadRequest || errorCode(body) != "invalid_identifier" {
		t.Fatalf("invalid id: %d %v", status, body)
	}

	status, body = anon.do(http.MethodGet, "/api/courses?query=go&sortBy=price&sortType=desc&categoryId="+categoryID, nil)
	if status != http.StatusOK || body["totalCount"] != 1.0 || body["page"] != 1.0 {
		t.Fatalf("list courses: %d %v", status, body)
	}
	if status, body := anon.do(http.MethodGet, "/api/courses?categoryId=nope", nil); status != http.StatusBadRequest {
		t.Fatalf("invalid category filter: %d %v", status, body)
	}

	status, body = student.do(http.MethodPost, "/api/orders", map[string]any{"course_ids": []string{courseID}})
	if status != http.StatusCreated {
		t.Fatalf("create order: %d %v", status, body)
	}
	orderID, _ := body["order"].(map[string]any)["_id"].(string)
	if status, body := student.do(http.MethodPost, "/api/orders/"+orderID+"/complete", map[string]any{
		"payment_method": "card",
	}); status != http.StatusOK {
		t.Fatalf("complete order: %d %v", status, body)
	}

	status, body = student.do(http.MethodGet, "/api/users/me/progress", nil)
	if status != http.StatusOK {
		t.Fatalf("progress: %d %v", status, body)
	}
	if entries, _ := body["progress"].([]any); len(entries) != 1 {
		t.Fatalf("progress entries: %v", body)
	}
	if status, body := student.do(http.MethodPost, "/api/courses/"+courseID+"/reviews", map[string]any{
		"rating": 5, "review": "Great course",
	}); status != http.StatusCreated {
		t.Fatalf("review: %d %v", status, body)
	}

	status, body = anon.do(http.MethodGet, "/api/courses/"+courseID, nil)
	if status != http.StatusOK {
		t.Fatalf("get course: %d %v", status, body)
	}
	course, _ := body["course"].(map[string]any)
	stats, _ := course["ratingStats"].(map[string]any)
	if stats["reviewCount"] != 1.0 || stats["averageRating"] != 5.0 {
		t.Fatalf("rating stats: %v", course)
	}

	status, body = student.do(http.MethodGet, "/api/users/me", nil)
	if status != http.StatusOK {
		t.Fatalf("me: %d %v", status, body)
	}
	me, _ := body["user"].(map[string]any)
	if _, leaked := me["password"]; leaked {
		t.Fatalf("password exposed: %v", me)
	}
}

package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/coursemart-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursemart-backend/internal/http/middleware"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	AuthHandler       *httpH.AuthHandler
	UserHandler       *httpH.UserHandler
	CourseHandler     *httpH.CourseHandler
	CategoryHandler   *httpH.CategoryHandler
	CurriculumHandler *httpH.CurriculumHandler
	EnrollmentHandler *httpH.EnrollmentHandler
	OrderHandler      *httpH.OrderHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.TraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/register", cfg.AuthHandler.Register)
			api.POST("/auth/login", cfg.AuthHandler.Login)
			api.POST("/auth/refresh", cfg.AuthHandler.Refresh)
		}

		// Catalog (public)
		if cfg.CourseHandler != nil {
			api.GET("/courses", cfg.CourseHandler.ListCourses)
			api.GET("/courses/:id", cfg.CourseHandler.GetCourse)
			api.POST("/courses/search", cfg.CourseHandler.SearchByTitle)
		}
		if cfg.CategoryHandler != nil {
			api.GET("/categories", cfg.CategoryHandler.ListCategories)
			api.GET("/categories/:id", cfg.CategoryHandler.GetCategory)
			api.POST("/categories/search", cfg.CategoryHandler.SearchByName)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.POST("/auth/logout", cfg.AuthHandler.Logout)
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/users/me", cfg.UserHandler.GetMe)
			protected.GET("/users/me/history", cfg.UserHandler.GetWatchHistory)
			protected.GET("/users/me/progress", cfg.UserHandler.GetProgress)
			protected.PATCH("/users/me", cfg.UserHandler.UpdateMe)
			protected.DELETE("/users/me", cfg.UserHandler.DeleteMe)
			protected.POST("/lessons/:id/watch", cfg.UserHandler.RecordWatch)
		}

		// Course
		if cfg.CourseHandler != nil {
			protected.POST("/courses", cfg.CourseHandler.CreateCourse)
			protected.PATCH("/courses/:id", cfg.CourseHandler.UpdateCourse)
			protected.PATCH("/courses/:id/thumbnail", cfg.CourseHandler.UpdateThumbnail)
			protected.PATCH("/courses/:id/publish", cfg.CourseHandler.TogglePublish)
			protected.DELETE("/courses/:id", cfg.CourseHandler.DeleteCourse)
		}

		// Module / Lesson
		if cfg.CurriculumHandler != nil {
			protected.POST("/courses/:id/modules", cfg.CurriculumHandler.AddModule)
			protected.POST("/modules/:id/lessons", cfg.CurriculumHandler.AddLesson)
		}

		// Category
		if cfg.CategoryHandler != nil {
			protected.POST("/categories", cfg.CategoryHandler.CreateCategory)
			protected.PATCH("/categories/:id", cfg.CategoryHandler.UpdateCategory)
			protected.DELETE("/categories/:id", cfg.CategoryHandler.DeleteCategory)
		}

		// Enrollment / Review
		if cfg.EnrollmentHandler != nil {
			protected.POST("/courses/:id/enroll", cfg.EnrollmentHandler.Enroll)
			protected.PATCH("/enrollments/:id/progress", cfg.EnrollmentHandler.UpdateProgress)
			protected.POST("/courses/:id/reviews", cfg.EnrollmentHandler.AddReview)
		}

		// Order
		if cfg.OrderHandler != nil {
			protected.POST("/orders", cfg.OrderHandler.CreateOrder)
			protected.POST("/orders/:id/complete", cfg.OrderHandler.CompleteOrder)
			protected.POST("/orders/:id/cancel", cfg.OrderHandler.CancelOrder)
		}
	}

	return r
}

package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/coursemart-backend/internal/aggregation"
	"github.com/yungbote/coursemart-backend/internal/data/cache"
	"github.com/yungbote/coursemart-backend/internal/data/docstore"
	"github.com/yungbote/coursemart-backend/internal/data/repos"
	httpserver "github.com/yungbote/coursemart-backend/internal/http"
	httpH "github.com/yungbote/coursemart-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursemart-backend/internal/http/middleware"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
	"github.com/yungbote/coursemart-backend/internal/services"
)

// Clients holds the shared read path: the aggregation executor over the
// document store, the repositories and the listing cache.
type Clients struct {
	Executor *aggregation.Executor
	Repos    repos.Repos
	Cache    cache.ListingCache
}

func wireClients(log *logger.Logger, cfg Config, db *gorm.DB) (Clients, error) {
	store, err := docstore.NewMarketplaceStore(db, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init document store: %w", err)
	}
	reg, err := aggregation.DefaultRegistry()
	if err != nil {
		return Clients{}, fmt.Errorf("load relation registry: %w", err)
	}

	listingCache := cache.Noop()
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisListingCache(cfg.Redis, log)
		if err != nil {
			log.Warn("listing cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			listingCache = rc
		}
	}

	return Clients{
		Executor: aggregation.NewExecutor(store, reg, log),
		Repos:    repos.New(db, log),
		Cache:    listingCache,
	}, nil
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, c Clients) services.Services {
	return services.New(db, log, c.Executor, c.Cache, c.Repos, cfg.Auth)
}

func wireRouter(db *gorm.DB, log *logger.Logger, cfg Config, s services.Services) (*gin.Engine, error) {
	if err := httpH.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return httpserver.NewRouter(httpserver.RouterConfig{
		Log:         log,
		ServiceName: serviceName,
		CORSOrigins: cfg.CORSOrigins,

		AuthMiddleware: httpMW.NewAuthMiddleware(log, s.Auth),

		AuthHandler:       httpH.NewAuthHandler(s.Auth),
		UserHandler:       httpH.NewUserHandler(s.User),
		CourseHandler:     httpH.NewCourseHandler(s.Course),
		CategoryHandler:   httpH.NewCategoryHandler(s.Category),
		CurriculumHandler: httpH.NewCurriculumHandler(s.Curriculum),
		EnrollmentHandler: httpH.NewEnrollmentHandler(s.Enrollment, s.Review),
		OrderHandler:      httpH.NewOrderHandler(s.Order),
		HealthHandler:     httpH.NewHealthHandler(db),
	}), nil
}

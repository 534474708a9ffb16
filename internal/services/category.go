package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	ag "github.com/yungbote/coursemart-backend/internal/aggregation"
	"github.com/yungbote/coursemart-backend/internal/data/cache"
	"github.com/yungbote/coursemart-backend/internal/data/repos"
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"github.com/yungbote/coursemart-backend/internal/platform/apierr"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
	"github.com/yungbote/coursemart-backend/internal/readmodels"
)

type CategoryInput struct {
	Name        string
	Description string
}

type CategoryUpdate struct {
	Name        *string
	Description *string
}

type CategoryService interface {
	List(ctx context.Context, p readmodels.ListParams) (*ag.Page, error)
	GetByID(ctx context.Context, id string) (ag.Record, error)
	GetByName(ctx context.Context, name string) (ag.Record, error)
	Create(ctx context.Context, in CategoryInput) (ag.Record, error)
	Update(ctx context.Context, id string, in CategoryUpdate) (ag.Record, error)
	Delete(ctx context.Context, id string) error
}

type categoryService struct {
	db           *gorm.DB
	log          *logger.Logger
	exec         *ag.Executor
	cache        cache.ListingCache
	userRepo     repos.UserRepo
	categoryRepo repos.CategoryRepo
}

func NewCategoryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	exec *ag.Executor,
	listingCache cache.ListingCache,
	userRepo repos.UserRepo,
	categoryRepo repos.CategoryRepo,
) CategoryService {
	if listingCache == nil {
		listingCache = cache.Noop()
	}
	return &categoryService{
		db:           db,
		log:          baseLog.With("service", "CategoryService"),
		exec:         exec,
		cache:        listingCache,
		userRepo:     userRepo,
		categoryRepo: categoryRepo,
	}
}

func (cs *categoryService) List(ctx context.Context, p readmodels.ListParams) (*ag.Page, error) {
	page, err := cs.exec.Paginate(ctx, readmodels.CategoryListing(p))
	if err != nil {
		return nil, readError(err, "No categories found.")
	}
	if page.TotalCount == 0 {
		return nil, apierr.NotFound("No categories found.")
	}
	return page, nil
}

func (cs *categoryService) GetByID(ctx context.Context, id string) (ag.Record, error) {
	doc, err := cs.exec.FindOne(ctx, readmodels.CategoryDetail(), strings.TrimSpace(id))
	if err != nil {
		var idErr *ag.IdentifierError
		if errors.As(err, &idErr) {
			return nil, apierr.InvalidIdentifier("Invalid category ID.")
		}
		return nil, readError(err, "Category not found.")
	}
	return doc, nil
}

func (cs *categoryService) GetByName(ctx context.Context, name string) (ag.Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.Invalid("Name is required.")
	}
	detail := readmodels.CategoryDetail()
	page, err := cs.exec.Paginate(ctx, ag.ListQuery{
		Collection: detail.Collection,
		Filter:     ag.Filter{Equals: map[string]any{"name": name}},
		Limit:      1,
		Relations:  detail.Stages,
	})
	if err != nil {
		return nil, readError(err, "Category not found.")
	}
	if len(page.Items) == 0 {
		return nil, apierr.NotFound("Category not found.")
	}
	return page.Items[0], nil
}

func (cs *categoryService) Create(ctx context.Context, in CategoryInput) (ag.Record, error) {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	if name == "" || description == "" {
		return nil, apierr.Invalid("Name and description both the fields are required.")
	}
	u, err := loadCaller(ctx, cs.userRepo)
	if err != nil {
		return nil, err
	}
	if !u.IsInstructor() {
		return nil, apierr.Unauthorized("You are not authorized to create a category. Only instructors can create categories.")
	}
	exists, err := cs.categoryRepo.NameExists(ctx, nil, name, uuid.Nil)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("check category name: %w", err))
	}
	if exists {
		return nil, apierr.Conflict("Category already exists.")
	}
	created, err := cs.categoryRepo.Create(ctx, nil, &types.Category{
		Name:        name,
		Description: description,
		CreatedBy:   u.ID,
	})
	if err != nil {
		return nil, writeError(err, "Category already exists.")
	}
	cs.log.Info("category created", "category_id", created.ID, "user_id", u.ID)
	return cs.GetByID(ctx, created.ID.String())
}

func (cs *categoryService) Update(ctx context.Context, id string, in CategoryUpdate) (ag.Record, error) {
	category, err := cs.owned(ctx, id, "update")
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name != "" && name != category.Name {
			exists, err := cs.categoryRepo.NameExists(ctx, nil, name, category.ID)
			if err != nil {
				return nil, apierr.Internal(fmt.Errorf("check category name: %w", err))
			}
			if exists {
				return nil, apierr.Conflict("Category already exists.")
			}
			fields["name"] = name
		}
	}
	if in.Description != nil {
		if description := strings.TrimSpace(*in.Description); description != "" {
			fields["description"] = description
		}
	}
	if in.Name == nil && in.Description == nil {
		return nil, apierr.Invalid("At least one field is required to update.")
	}
	if err := cs.categoryRepo.UpdateFields(ctx, nil, category.ID, fields); err != nil {
		return nil, writeError(err, "Category already exists.")
	}
	// Course listings embed category names.
	cs.cache.Invalidate(ctx, courseListPrefix)
	return cs.GetByID(ctx, category.ID.String())
}

func (cs *categoryService) Delete(ctx context.Context, id string) error {
	category, err := cs.owned(ctx, id, "delete")
	if err != nil {
		return err
	}
	if err := cs.categoryRepo.Delete(ctx, nil, category.ID); err != nil {
		return apierr.From(fmt.Errorf("delete category: %w", err))
	}
	cs.cache.Invalidate(ctx, courseListPrefix)
	cs.log.Info("category deleted", "category_id", category.ID)
	return nil
}

func (cs *categoryService) owned(ctx context.Context, rawID, action string) (*types.Category, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, apierr.InvalidIdentifier("Invalid category ID.")
	}
	u, err := loadCaller(ctx, cs.userRepo)
	if err != nil {
		return nil, err
	}
	category, err := cs.categoryRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load category: %w", err))
	}
	if category == nil {
		return nil, apierr.NotFound("Category not found.")
	}
	if category.CreatedBy != u.ID {
		return nil, apierr.Unauthorized(fmt.Sprintf(
			"You are not authorized to %s this category. Only the creator of the category can %s it.", action, action))
	}
	return category, nil
}

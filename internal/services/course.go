package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
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

const courseListPrefix = "courses:list"

type CourseInput struct {
	Title       string
	Description string
	Price       float64
	CategoryID  string
	Thumbnail   string
}

// CourseUpdate holds the course fields to change; nil leaves a field as is.
type CourseUpdate struct {
	Title       *string
	Description *string
	Price       *float64
	CategoryID  *string
}

type CourseService interface {
	List(ctx context.Context, p readmodels.ListParams) (*ag.Page, error)
	GetByID(ctx context.Context, id string) (ag.Record, error)
	GetByTitle(ctx context.Context, title string) (ag.Record, error)
	Create(ctx context.Context, in CourseInput) (ag.Record, error)
	Update(ctx context.Context, id string, in CourseUpdate) (ag.Record, error)
	UpdateThumbnail(ctx context.Context, id, thumbnail string) (ag.Record, error)
	TogglePublish(ctx context.Context, id string) (ag.Record, error)
	Delete(ctx context.Context, id string) error
}

type courseService struct {
	db             *gorm.DB
	log            *logger.Logger
	exec           *ag.Executor
	cache          cache.ListingCache
	userRepo       repos.UserRepo
	instructorRepo repos.InstructorRepo
	courseRepo     repos.CourseRepo
	categoryRepo   repos.CategoryRepo
	curriculumRepo repos.CurriculumRepo
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	exec *ag.Executor,
	listingCache cache.ListingCache,
	userRepo repos.UserRepo,
	instructorRepo repos.InstructorRepo,
	courseRepo repos.CourseRepo,
	categoryRepo repos.CategoryRepo,
	curriculumRepo repos.CurriculumRepo,
) CourseService {
	if listingCache == nil {
		listingCache = cache.Noop()
	}
	return &courseService{
		db:             db,
		log:            baseLog.With("service", "CourseService"),
		exec:           exec,
		cache:          listingCache,
		userRepo:       userRepo,
		instructorRepo: instructorRepo,
		courseRepo:     courseRepo,
		categoryRepo:   categoryRepo,
		curriculumRepo: curriculumRepo,
	}
}

func (cs *courseService) List(ctx context.Context, p readmodels.ListParams) (*ag.Page, error) {
	key := listingKey(courseListPrefix, p)
	if page, ok := cs.cache.Get(ctx, key); ok {
		return page, nil
	}
	page, err := cs.exec.Paginate(ctx, readmodels.CourseListing(p))
	if err != nil {
		return nil, readError(err, "No courses found.")
	}
	if page.TotalCount == 0 {
		return nil, apierr.NotFound("No courses found.")
	}
	cs.cache.Set(ctx, key, page)
	return page, nil
}

func (cs *courseService) GetByID(ctx context.Context, id string) (ag.Record, error) {
	doc, err := cs.exec.FindOne(ctx, readmodels.CourseDetail(), strings.TrimSpace(id))
	if err != nil {
		var idErr *ag.IdentifierError
		if errors.As(err, &idErr) {
			return nil, apierr.InvalidIdentifier("Invalid course ID.")
		}
		return nil, readError(err, "Course not found.")
	}
	if published, _ := doc["published"].(bool); !published {
		return nil, apierr.NotFound("Course not published yet.")
	}
	return doc, nil
}

func (cs *courseService) GetByTitle(ctx context.Context, title string) (ag.Record, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apierr.Invalid("Title is required.")
	}
	detail := readmodels.CourseDetail()
	page, err := cs.exec.Paginate(ctx, ag.ListQuery{
		Collection: detail.Collection,
		Filter:     ag.Filter{Equals: map[string]any{"title": title}},
		Limit:      1,
		Relations:  detail.Stages,
	})
	if err != nil {
		return nil, readError(err, "Course not found.")
	}
	if len(page.Items) == 0 {
		return nil, apierr.NotFound("Course not found.")
	}
	doc := page.Items[0]
	if published, _ := doc["published"].(bool); !published {
		return nil, apierr.NotFound("Course not published yet.")
	}
	return doc, nil
}

func (cs *courseService) Create(ctx context.Context, in CourseInput) (ag.Record, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" || strings.TrimSpace(in.CategoryID) == "" {
		return nil, apierr.Invalid("All fields are required.")
	}
	if in.Price < 0 {
		return nil, apierr.Invalid("Price cannot be negative.")
	}
	u, err := loadCaller(ctx, cs.userRepo)
	if err != nil {
		return nil, err
	}
	if !u.IsInstructor() {
		return nil, apierr.Forbidden("You are not authorized to create a course. Only instructors can create courses.")
	}
	categoryID, err := cs.requireCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Thumbnail) == "" {
		return nil, apierr.Invalid("Thumbnail is required.")
	}

	var course *types.Course
	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		instructor, err := cs.instructorRepo.EnsureForUser(ctx, tx, u.ID)
		if err != nil {
			return fmt.Errorf("ensure instructor: %w", err)
		}
		course, err = cs.courseRepo.Create(ctx, tx, &types.Course{
			Title:        strings.TrimSpace(in.Title),
			Description:  strings.TrimSpace(in.Description),
			Price:        in.Price,
			Thumbnail:    strings.TrimSpace(in.Thumbnail),
			CategoryID:   &categoryID,
			InstructorID: instructor.ID,
		})
		if err != nil {
			return fmt.Errorf("create course: %w", err)
		}
		if err := cs.instructorRepo.LinkCourse(ctx, tx, instructor.ID, course.ID); err != nil {
			return fmt.Errorf("link course: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apierr.From(err)
	}
	cs.cache.Invalidate(ctx, courseListPrefix)
	cs.log.Info("course created", "course_id", course.ID, "user_id", u.ID)
	return cs.detail(ctx, course.ID)
}

func (cs *courseService) Update(ctx context.Context, id string, in CourseUpdate) (ag.Record, error) {
	course, err := cs.owned(ctx, id, "update")
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, apierr.Invalid("Price cannot be negative.")
		}
		fields["price"] = *in.Price
	}
	if in.CategoryID != nil {
		categoryID, err := cs.requireCategory(ctx, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		fields["category_id"] = categoryID
	}
	if len(fields) == 0 {
		return nil, apierr.Invalid("At least one field is required to update.")
	}
	if err := cs.courseRepo.UpdateFields(ctx, nil, course.ID, fields); err != nil {
		return nil, apierr.From(fmt.Errorf("update course: %w", err))
	}
	cs.cache.Invalidate(ctx, courseListPrefix)
	return cs.detail(ctx, course.ID)
}

func (cs *courseService) UpdateThumbnail(ctx context.Context, id, thumbnail string) (ag.Record, error) {
	course, err := cs.owned(ctx, id, "update")
	if err != nil {
		return nil, err
	}
	thumbnail = strings.TrimSpace(thumbnail)
	if thumbnail == "" {
		return nil, apierr.Invalid("Thumbnail is required.")
	}
	if err := cs.courseRepo.UpdateFields(ctx, nil, course.ID, map[string]any{"thumbnail": thumbnail}); err != nil {
		return nil, apierr.From(fmt.Errorf("update thumbnail: %w", err))
	}
	cs.cache.Invalidate(ctx, courseListPrefix)
	return cs.detail(ctx, course.ID)
}

func (cs *courseService) TogglePublish(ctx context.Context, id string) (ag.Record, error) {
	course, err := cs.owned(ctx, id, "update")
	if err != nil {
		return nil, err
	}
	if err := cs.courseRepo.UpdateFields(ctx, nil, course.ID, map[string]any{"published": !course.Published}); err != nil {
		return nil, apierr.From(fmt.Errorf("toggle publish: %w", err))
	}
	cs.cache.Invalidate(ctx, courseListPrefix)
	return cs.detail(ctx, course.ID)
}

func (cs *courseService) Delete(ctx context.Context, id string) error {
	course, err := cs.owned(ctx, id, "delete")
	if err != nil {
		return err
	}
	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := cs.instructorRepo.UnlinkCourse(ctx, tx, course.ID); err != nil {
			return fmt.Errorf("unlink course: %w", err)
		}
		if err := cs.curriculumRepo.DeleteByCourse(ctx, tx, course.ID); err != nil {
			return fmt.Errorf("delete curriculum: %w", err)
		}
		if err := cs.courseRepo.Delete(ctx, tx, course.ID); err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		return nil
	})
	if err != nil {
		return apierr.From(err)
	}
	cs.cache.Invalidate(ctx, courseListPrefix)
	cs.log.Info("course deleted", "course_id", course.ID)
	return nil
}

// detail renders a course without the published check, for its owner.
func (cs *courseService) detail(ctx context.Context, id uuid.UUID) (ag.Record, error) {
	doc, err := cs.exec.FindOne(ctx, readmodels.CourseDetail(), id.String())
	if err != nil {
		return nil, readError(err, "Course not found.")
	}
	return doc, nil
}

func (cs *courseService) requireCategory(ctx context.Context, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apierr.InvalidIdentifier("Invalid category ID.")
	}
	category, err := cs.categoryRepo.GetByID(ctx, nil, id)
	if err != nil {
		return uuid.Nil, apierr.Internal(fmt.Errorf("load category: %w", err))
	}
	if category == nil {
		return uuid.Nil, apierr.NotFound("Category not found. Create a new category first or select other as category.")
	}
	return category.ID, nil
}

// owned loads a course the caller teaches, resolved through the caller's
// instructor mapping.
func (cs *courseService) owned(ctx context.Context, rawID, action string) (*types.Course, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, apierr.InvalidIdentifier("Invalid course ID.")
	}
	return ownedCourse(ctx, cs.userRepo, cs.instructorRepo, cs.courseRepo, id, action)
}

func ownedCourse(
	ctx context.Context,
	userRepo repos.UserRepo,
	instructorRepo repos.InstructorRepo,
	courseRepo repos.CourseRepo,
	courseID uuid.UUID,
	action string,
) (*types.Course, error) {
	u, err := loadCaller(ctx, userRepo)
	if err != nil {
		return nil, err
	}
	course, err := courseRepo.GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load course: %w", err))
	}
	if course == nil {
		return nil, apierr.NotFound("Course not found.")
	}
	mapping, err := instructorRepo.GetByUserID(ctx, nil, u.ID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load instructor: %w", err))
	}
	if mapping == nil || mapping.ID != course.InstructorID {
		return nil, apierr.Forbidden(fmt.Sprintf(
			"You are not authorized to %s this course. Only the instructor who created the course can %s it.", action, action))
	}
	return course, nil
}

// listingKey is stable for equal params regardless of map order.
func listingKey(prefix string, p readmodels.ListParams) string {
	refs := make([]string, 0, len(p.Refs))
	for k, v := range p.Refs {
		if v != "" {
			refs = append(refs, k+"="+v)
		}
	}
	sort.Strings(refs)
	return cache.Key(prefix,
		strings.ToLower(strings.TrimSpace(p.Query)),
		p.SortBy, strings.ToLower(p.SortType),
		p.Page, p.Limit,
		strings.Join(refs, ","),
	)
}

package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	ag "github.com/yungbote/coursemart-backend/internal/aggregation"
	"github.com/yungbote/coursemart-backend/internal/data/repos"
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"github.com/yungbote/coursemart-backend/internal/platform/apierr"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
	"github.com/yungbote/coursemart-backend/internal/readmodels"
)

// AccountUpdate holds the account fields to change; nil leaves a field as is.
type AccountUpdate struct {
	Username *string
	Name     *string
	Email    *string
}

type UserService interface {
	CurrentUser(ctx context.Context) (ag.Record, error)
	WatchHistory(ctx context.Context) (ag.Record, error)
	Progress(ctx context.Context) ([]ag.Record, error)
	UpdateAccount(ctx context.Context, in AccountUpdate) (*types.User, error)
	DeleteAccount(ctx context.Context) error
	RecordWatch(ctx context.Context, lessonID string) error
}

type userService struct {
	db             *gorm.DB
	log            *logger.Logger
	exec           *ag.Executor
	userRepo       repos.UserRepo
	watchRepo      repos.WatchHistoryRepo
	enrollmentRepo repos.EnrollmentRepo
	curriculumRepo repos.CurriculumRepo
}

func NewUserService(
	db *gorm.DB,
	baseLog *logger.Logger,
	exec *ag.Executor,
	userRepo repos.UserRepo,
	watchRepo repos.WatchHistoryRepo,
	enrollmentRepo repos.EnrollmentRepo,
	curriculumRepo repos.CurriculumRepo,
) UserService {
	return &userService{
		db:             db,
		log:            baseLog.With("service", "UserService"),
		exec:           exec,
		userRepo:       userRepo,
		watchRepo:      watchRepo,
		enrollmentRepo: enrollmentRepo,
		curriculumRepo: curriculumRepo,
	}
}

func (us *userService) CurrentUser(ctx context.Context) (ag.Record, error) {
	id, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := us.exec.FindOne(ctx, readmodels.CurrentUser(), id.String())
	if err != nil {
		return nil, readError(err, "User not found.")
	}
	return ag.Record{"user": doc}, nil
}

func (us *userService) WatchHistory(ctx context.Context) (ag.Record, error) {
	id, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := us.exec.FindOne(ctx, readmodels.WatchHistory(), id.String())
	if err != nil {
		return nil, readError(err, "User not found.")
	}
	return readmodels.WatchHistoryDocument(doc), nil
}

func (us *userService) Progress(ctx context.Context) ([]ag.Record, error) {
	id, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := us.exec.FindOne(ctx, readmodels.Progress(), id.String())
	if err != nil {
		return nil, readError(err, "User not found.")
	}
	entries := readmodels.ProgressEntries(doc)
	if len(entries) == 0 {
		return nil, apierr.NotFound("User is not enrolled in any course.")
	}
	return entries, nil
}

func (us *userService) UpdateAccount(ctx context.Context, in AccountUpdate) (*types.User, error) {
	u, err := loadCaller(ctx, us.userRepo)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	var username, email string
	if in.Username != nil {
		username = strings.ToLower(strings.TrimSpace(*in.Username))
		if username != "" && username != u.Username {
			fields["username"] = username
		}
	}
	if in.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*in.Email))
		if email != "" && email != u.Email {
			fields["email"] = email
		}
	}
	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name != "" {
			fields["name"] = name
		}
	}
	if in.Username == nil && in.Email == nil && in.Name == nil {
		return nil, apierr.Invalid("At least one field is required to update.")
	}

	usernameTaken, emailTaken, err := us.userRepo.Taken(ctx, nil, username, email, u.ID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("check identity: %w", err))
	}
	if emailTaken {
		return nil, apierr.Conflict("Email already exists.")
	}
	if usernameTaken {
		return nil, apierr.Conflict("Username already exists.")
	}

	if err := us.userRepo.UpdateFields(ctx, nil, u.ID, fields); err != nil {
		return nil, writeError(err, "Username or email already exists.")
	}
	updated, err := us.userRepo.GetByID(ctx, nil, u.ID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("reload user: %w", err))
	}
	return updated, nil
}

// DeleteAccount removes the caller with their enrollments and watch history.
func (us *userService) DeleteAccount(ctx context.Context) error {
	u, err := loadCaller(ctx, us.userRepo)
	if err != nil {
		return err
	}
	err = us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := us.enrollmentRepo.DeleteByStudent(ctx, tx, u.ID); err != nil {
			return fmt.Errorf("delete enrollments: %w", err)
		}
		if err := us.watchRepo.DeleteByUser(ctx, tx, u.ID); err != nil {
			return fmt.Errorf("delete watch history: %w", err)
		}
		if err := us.userRepo.Delete(ctx, tx, u.ID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return apierr.From(err)
	}
	us.log.Info("account deleted", "user_id", u.ID)
	return nil
}

func (us *userService) RecordWatch(ctx context.Context, lessonID string) error {
	u, err := loadCaller(ctx, us.userRepo)
	if err != nil {
		return err
	}
	id, err := parseID(lessonID, "lesson")
	if err != nil {
		return err
	}
	lesson, err := us.curriculumRepo.GetLesson(ctx, nil, id)
	if err != nil {
		return apierr.Internal(fmt.Errorf("load lesson: %w", err))
	}
	if lesson == nil {
		return apierr.NotFound("Lesson not found.")
	}
	if err := us.watchRepo.Add(ctx, nil, u.ID, lesson.ID); err != nil {
		return apierr.From(fmt.Errorf("record watch: %w", err))
	}
	return nil
}

package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
	"gorm.io/gorm"
)

// CurriculumRepo writes modules and lessons. Position uniqueness is held by
// the unique indexes on (course_id, position) and (module_id, position).
type CurriculumRepo interface {
	CreateModule(ctx context.Context, tx *gorm.DB, module *types.Module) (*types.Module, error)
	GetModule(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) (*types.Module, error)
	CreateLesson(ctx context.Context, tx *gorm.DB, lesson *types.Lesson) (*types.Lesson, error)
	GetLesson(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (*types.Lesson, error)
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type curriculumRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCurriculumRepo(db *gorm.DB, baseLog *logger.Logger) CurriculumRepo {
	repoLog := baseLog.With("repo", "CurriculumRepo")
	return &curriculumRepo{db: db, log: repoLog}
}

func (cr *curriculumRepo) CreateModule(ctx context.Context, tx *gorm.DB, module *types.Module) (*types.Module, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if err := transaction.WithContext(ctx).Create(module).Error; err != nil {
		return nil, err
	}
	return module, nil
}

func (cr *curriculumRepo) GetModule(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) (*types.Module, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var m types.Module
	if err := transaction.WithContext(ctx).Where("id = ?", moduleID).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (cr *curriculumRepo) CreateLesson(ctx context.Context, tx *gorm.DB, lesson *types.Lesson) (*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if err := transaction.WithContext(ctx).Create(lesson).Error; err != nil {
		return nil, err
	}
	return lesson, nil
}

func (cr *curriculumRepo) GetLesson(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var l types.Lesson
	if err := transaction.WithContext(ctx).Where("id = ?", lessonID).Take(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (cr *curriculumRepo) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if err := transaction.WithContext(ctx).Where("course_id = ?", courseID).Delete(&types.Lesson{}).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).Where("course_id = ?", courseID).Delete(&types.Module{}).Error
}

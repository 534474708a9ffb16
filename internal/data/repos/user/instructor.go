package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InstructorRepo manages the instructor mapping and its course links.
type InstructorRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Instructor, error)
	EnsureForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Instructor, error)
	LinkCourse(ctx context.Context, tx *gorm.DB, instructorID, courseID uuid.UUID) error
	UnlinkCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type instructorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInstructorRepo(db *gorm.DB, baseLog *logger.Logger) InstructorRepo {
	repoLog := baseLog.With("repo", "InstructorRepo")
	return &instructorRepo{db: db, log: repoLog}
}

func (ir *instructorRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Instructor, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	var in types.Instructor
	if err := transaction.WithContext(ctx).Where("user_id = ?", userID).Take(&in).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &in, nil
}

// EnsureForUser returns the user's mapping, creating it on first use.
func (ir *instructorRepo) EnsureForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Instructor, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	in := &types.Instructor{UserID: userID}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(in).Error; err != nil {
		return nil, err
	}
	return ir.GetByUserID(ctx, transaction, userID)
}

func (ir *instructorRepo) LinkCourse(ctx context.Context, tx *gorm.DB, instructorID, courseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&types.InstructorCourse{InstructorID: instructorID, CourseID: courseID}).Error
}

func (ir *instructorRepo) UnlinkCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	return transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&types.InstructorCourse{}).Error
}

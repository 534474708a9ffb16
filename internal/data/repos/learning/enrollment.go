package learning

import (
	"context"
	"errors"

	"github.com/google/uuid"
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *types.Enrollment) (*types.Enrollment, error)
	// EnsureMany enrolls studentID in every course, skipping existing
	// enrollments.
	EnsureMany(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, courseIDs []uuid.UUID) error
	GetByID(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (*types.Enrollment, error)
	GetByStudentAndCourse(ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID) (*types.Enrollment, error)
	UpdateProgress(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID, progress *float64, completed *bool) error
	DeleteByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) error
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	repoLog := baseLog.With("repo", "EnrollmentRepo")
	return &enrollmentRepo{db: db, log: repoLog}
}

func (er *enrollmentRepo) Create(ctx context.Context, tx *gorm.DB, enrollment *types.Enrollment) (*types.Enrollment, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	if err := transaction.WithContext(ctx).Create(enrollment).Error; err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (er *enrollmentRepo) EnsureMany(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, courseIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	if len(courseIDs) == 0 {
		return nil
	}
	rows := make([]*types.Enrollment, 0, len(courseIDs))
	for _, id := range courseIDs {
		rows = append(rows, &types.Enrollment{StudentID: studentID, CourseID: id})
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}

func (er *enrollmentRepo) GetByID(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (*types.Enrollment, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	return take(transaction.WithContext(ctx).Where("id = ?", enrollmentID))
}

func (er *enrollmentRepo) GetByStudentAndCourse(ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID) (*types.Enrollment, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	return take(transaction.WithContext(ctx).Where("student_id = ? AND course_id = ?", studentID, courseID))
}

// UpdateProgress sets whichever of progress and completed is non-nil. The
// two are independent.
func (er *enrollmentRepo) UpdateProgress(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID, progress *float64, completed *bool) error {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	fields := map[string]any{}
	if progress != nil {
		fields["progress"] = *progress
	}
	if completed != nil {
		fields["completed"] = *completed
	}
	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Enrollment{}).
		Where("id = ?", enrollmentID).
		Updates(fields).Error
}

func (er *enrollmentRepo) DeleteByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	return transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Delete(&types.Enrollment{}).Error
}

func take(q *gorm.DB) (*types.Enrollment, error) {
	var e types.Enrollment
	if err := q.Take(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

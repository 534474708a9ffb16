package user

import (
	"context"

	"github.com/google/uuid"
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WatchHistoryRepo interface {
	Add(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) error
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type watchHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWatchHistoryRepo(db *gorm.DB, baseLog *logger.Logger) WatchHistoryRepo {
	repoLog := baseLog.With("repo", "WatchHistoryRepo")
	return &watchHistoryRepo{db: db, log: repoLog}
}

// Add records a watch. Re-watching a lesson keeps its first position.
func (wr *watchHistoryRepo) Add(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = wr.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&types.WatchEntry{UserID: userID, LessonID: lessonID}).Error
}

func (wr *watchHistoryRepo) DeleteByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = wr.db
	}
	return transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&types.WatchEntry{}).Error
}

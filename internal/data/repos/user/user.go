package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error)
	GetByIdentifier(ctx context.Context, tx *gorm.DB, identifier string) (*types.User, error)
	GetByRefreshToken(ctx context.Context, tx *gorm.DB, token string) (*types.User, error)
	Taken(ctx context.Context, tx *gorm.DB, username, email string, except uuid.UUID) (usernameTaken, emailTaken bool, err error)
	UpdateFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, fields map[string]any) error
	SetRefreshToken(ctx context.Context, tx *gorm.DB, userID uuid.UUID, token string) error
	Delete(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	if len(users) == 0 {
		return []*types.User{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetByID returns nil without error when the user does not exist.
func (ur *userRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	return first(transaction.WithContext(ctx).Where("id = ?", userID))
}

// GetByIdentifier matches either the email or the username.
func (ur *userRepo) GetByIdentifier(ctx context.Context, tx *gorm.DB, identifier string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	return first(transaction.WithContext(ctx).Where("email = ? OR username = ?", identifier, identifier))
}

func (ur *userRepo) GetByRefreshToken(ctx context.Context, tx *gorm.DB, token string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	if token == "" {
		return nil, nil
	}
	return first(transaction.WithContext(ctx).Where("refresh_token = ?", token))
}

func (ur *userRepo) Taken(ctx context.Context, tx *gorm.DB, username, email string, except uuid.UUID) (bool, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var rows []types.User
	q := transaction.WithContext(ctx).
		Select("id", "username", "email").
		Where("username = ? OR email = ?", username, email)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Find(&rows).Error; err != nil {
		return false, false, err
	}

	var usernameTaken, emailTaken bool
	for _, u := range rows {
		if username != "" && u.Username == username {
			usernameTaken = true
		}
		if email != "" && u.Email == email {
			emailTaken = true
		}
	}
	return usernameTaken, emailTaken, nil
}

func (ur *userRepo) UpdateFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(fields).Error
}

func (ur *userRepo) SetRefreshToken(ctx context.Context, tx *gorm.DB, userID uuid.UUID, token string) error {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	return transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Update("refresh_token", token).Error
}

func (ur *userRepo) Delete(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", userID).
		Delete(&types.User{}).Error
}

func first(q *gorm.DB) (*types.User, error) {
	var u types.User
	if err := q.Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

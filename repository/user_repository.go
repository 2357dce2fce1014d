package repository

import (
	"context"

	"LabelDesk/errs"
	"LabelDesk/model"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ListByLabels(ctx context.Context, labelIDs []string) ([]*model.User, error)
	DeleteByLabels(ctx context.Context, labelIDs []string) error
}

type gormUserRepository struct {
	db *gorm.DB
}

// Create adds a new user.
func (r *gormUserRepository) Create(ctx context.Context, user *model.User) error {
	return errs.Upstream("create user", r.db.WithContext(ctx).Create(user).Error)
}

// GetByID retrieves a user by their ID.
func (r *gormUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate("get user", "user", id, err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by login email.
func (r *gormUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate("get user", "user", email, err)
	}
	return &user, nil
}

func (r *gormUserRepository) ListByLabels(ctx context.Context, labelIDs []string) ([]*model.User, error) {
	if len(labelIDs) == 0 {
		return nil, nil
	}
	var users []*model.User
	err := r.db.WithContext(ctx).Where("label_id IN ?", labelIDs).Order("created_at ASC, id ASC").Find(&users).Error
	return users, errs.Upstream("list users", err)
}

func (r *gormUserRepository) DeleteByLabels(ctx context.Context, labelIDs []string) error {
	if len(labelIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Where("label_id IN ?", labelIDs).Delete(&model.User{}).Error
	return errs.Upstream("delete users", err)
}

package mysql

import (
	"context"

	"gorm.io/gorm"

	"Tweeter/internal/model"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// Create 唯一键冲突返回 gorm.ErrDuplicatedKey，不会留下半条记录
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	return &user, err
}

// ListFirst 按自然顺序（id 升序）取前 limit 个用户
func (r *UserRepository) ListFirst(ctx context.Context, limit int) ([]model.User, error) {
	var list []model.User
	err := r.DB.WithContext(ctx).Order("id ASC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *UserRepository) UpdateImage(ctx context.Context, id uint64, imageFile string) error {
	return r.updateColumn(ctx, id, "image_file", imageFile)
}

func (r *UserRepository) MarkVerified(ctx context.Context, id uint64) error {
	return r.updateColumn(ctx, id, "verified", true)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return r.updateColumn(ctx, id, "password", hash)
}

func (r *UserRepository) updateColumn(ctx context.Context, id uint64, column string, value any) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update(column, value).Error
}

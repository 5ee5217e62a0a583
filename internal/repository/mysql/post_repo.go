package mysql

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"Tweeter/internal/model"
)

// likeEscape LIKE 转义字符，MySQL / Postgres / SQLite 通用
const likeEscape = "!"

type PostRepository struct {
	DB *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{DB: db}
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Create(post).Error
}

func (r *PostRepository) FindByID(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).Preload("Author").First(&post, id).Error
	return &post, err
}

// ListAll 全部帖子，按插入顺序
func (r *PostRepository) ListAll(ctx context.Context) ([]model.Post, error) {
	var list []model.Post
	err := r.DB.WithContext(ctx).Preload("Author").Order("id ASC").Find(&list).Error
	return list, err
}

// ListByFollowing 关注的人的帖子，按发布时间升序（同一时间按 id）
func (r *PostRepository) ListByFollowing(ctx context.Context, viewerID uint64) ([]model.Post, error) {
	db := r.DB.WithContext(ctx)
	followed := db.Model(&model.Follow{}).
		Select("followed_id").
		Where("follower_id = ? AND status = ?", viewerID, model.FollowActive)

	var list []model.Post
	err := db.
		Preload("Author").
		Where("user_id IN (?)", followed).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

// SearchContent 内容子串匹配，大小写不敏感
func (r *PostRepository) SearchContent(ctx context.Context, query string) ([]model.Post, error) {
	var list []model.Post
	err := r.DB.WithContext(ctx).
		Preload("Author").
		Where("LOWER(content) LIKE LOWER(?) ESCAPE '"+likeEscape+"'", likePattern(query)).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

// SearchByAuthor 用户名包含 query 的作者发布的帖子
func (r *PostRepository) SearchByAuthor(ctx context.Context, query string) ([]model.Post, error) {
	db := r.DB.WithContext(ctx)
	authors := db.Model(&model.User{}).
		Select("id").
		Where("LOWER(username) LIKE LOWER(?) ESCAPE '"+likeEscape+"'", likePattern(query))

	var list []model.Post
	err := db.
		Preload("Author").
		Where("user_id IN (?)", authors).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

// likePattern 把 query 转成 %query%，其中的通配符按字面匹配。
// 大小写折叠交给数据库，两边用同一个 LOWER
func likePattern(query string) string {
	replacer := strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	)
	return "%" + replacer.Replace(query) + "%"
}

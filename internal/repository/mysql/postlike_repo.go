package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Tweeter/internal/model"
)

type PostLikeRepository struct {
	DB *gorm.DB
}

func NewPostLikeRepository(db *gorm.DB) *PostLikeRepository {
	return &PostLikeRepository{DB: db}
}

// Toggle 切换点赞状态，返回切换后的状态。
// 先对帖子行加锁，同一帖子上的切换串行执行；帖子不存在返回 gorm.ErrRecordNotFound
func (r *PostLikeRepository) Toggle(ctx context.Context, userID, postID uint64) (bool, error) {
	var liked bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&post, postID).Error; err != nil {
			return err
		}

		// 已点赞则删除
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&model.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			return r.adjustCount(tx, postID, -1)
		}

		// 未点赞则创建
		if err := tx.Create(&model.PostLike{UserID: userID, PostID: postID}).Error; err != nil {
			return err
		}
		liked = true
		return r.adjustCount(tx, postID, +1)
	})
	return liked, err
}

func (r *PostLikeRepository) IsLiked(ctx context.Context, userID, postID uint64) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&model.PostLike{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	return count > 0, err
}

// LikedPostIDs 返回 postIDs 中被 userID 点赞过的帖子
func (r *PostLikeRepository) LikedPostIDs(ctx context.Context, userID uint64, postIDs []uint64) (map[uint64]bool, error) {
	liked := make(map[uint64]bool, len(postIDs))
	if userID == 0 || len(postIDs) == 0 {
		return liked, nil
	}
	var ids []uint64
	if err := r.DB.WithContext(ctx).
		Model(&model.PostLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// Likers 点赞某个帖子的用户，按点赞先后
func (r *PostLikeRepository) Likers(ctx context.Context, postID uint64) ([]model.User, error) {
	var list []model.User
	err := r.DB.WithContext(ctx).
		Joins("JOIN post_likes ON post_likes.user_id = users.id").
		Where("post_likes.post_id = ?", postID).
		Order("post_likes.id ASC").
		Find(&list).Error
	return list, err
}

// GetLikeCount 读帖子上的冗余计数
func (r *PostLikeRepository) GetLikeCount(ctx context.Context, postID uint64) (int64, error) {
	var p model.Post
	err := r.DB.WithContext(ctx).Select("id", "like_count").First(&p, postID).Error
	if err != nil {
		return 0, err
	}
	return p.LikeCount, nil
}

func (r *PostLikeRepository) adjustCount(tx *gorm.DB, postID uint64, delta int64) error {
	return tx.Model(&model.Post{}).
		Where("id = ?", postID).
		UpdateColumn("like_count", gorm.Expr("CASE WHEN like_count + ? < 0 THEN 0 ELSE like_count + ? END", delta, delta)).
		Error
}

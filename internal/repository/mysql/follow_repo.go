package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Tweeter/internal/model"
)

type FollowRepository struct {
	DB *gorm.DB
}

type OutboxRepository struct {
	DB *gorm.DB
}

type FollowCountReconcilerRepo struct {
	DB *gorm.DB
}

// Pair 对账用的计数快照
type Pair struct {
	ID             uint64
	FollowingCount int64
	FollowerCount  int64
}

func NewFollowRepository(db *gorm.DB) *FollowRepository {
	return &FollowRepository{DB: db}
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{DB: db}
}

func NewFollowCountReconcilerRepo(db *gorm.DB) *FollowCountReconcilerRepo {
	return &FollowCountReconcilerRepo{DB: db}
}

// Follow 设置关系为关注（幂等）。如果状态从未关注切换为已关注，则返回 changed=true。
func (r *FollowRepository) Follow(ctx context.Context, followerID, followedID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rel model.Follow
		// select for update 避免竞争
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("follower_id = ? AND followed_id = ?", followerID, followedID).
			First(&rel).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rel = model.Follow{
				FollowerID: followerID,
				FollowedID: followedID,
				Status:     model.FollowActive,
			}
			// 唯一索引兜底：并发插入时只有一个成功
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rel)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			changed = true
			if err = r.adjustCounts(tx, followerID, followedID, +1); err != nil {
				return err
			}
			// 写outbox表
			return insertOutbox(tx, "follow", followerID, followedID)
		}
		if err != nil {
			return err
		}
		// 已经是关注状态，重复请求
		if rel.Status == model.FollowActive {
			return nil
		}
		if err = tx.Model(&model.Follow{}).
			Where("id = ? AND status = ?", rel.ID, model.FollowInactive).
			Update("status", model.FollowActive).Error; err != nil {
			return err
		}
		changed = true
		if err = r.adjustCounts(tx, followerID, followedID, +1); err != nil {
			return err
		}
		return insertOutbox(tx, "follow", followerID, followedID)
	})
	return changed, err
}

// Unfollow 取消关注；关系不存在时不做任何修改，changed=false
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followedID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rel model.Follow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("follower_id = ? AND followed_id = ?", followerID, followedID).
			First(&rel).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if rel.Status == model.FollowInactive {
			return nil
		}
		if err := tx.Model(&model.Follow{}).
			Where("id = ? AND status = ?", rel.ID, model.FollowActive).
			Update("status", model.FollowInactive).Error; err != nil {
			return err
		}
		changed = true
		if err := r.adjustCounts(tx, followerID, followedID, -1); err != nil {
			return err
		}
		return insertOutbox(tx, "unfollow", followerID, followedID)
	})
	return changed, err
}

// IsFollowing 判断是否关注
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followedID uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ? AND followed_id = ? AND status = ?", followerID, followedID, model.FollowActive).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountEdges 统计 (follower, followed) 的行数，不区分状态
func (r *FollowRepository) CountEdges(ctx context.Context, followerID, followedID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&n).Error
	return n, err
}

// Followers 关注 userID 的全部用户
func (r *FollowRepository) Followers(ctx context.Context, userID uint64) ([]model.User, error) {
	return r.relatedUsers(ctx, "follower_id", "followed_id", userID)
}

// Following userID 关注的全部用户
func (r *FollowRepository) Following(ctx context.Context, userID uint64) ([]model.User, error) {
	return r.relatedUsers(ctx, "followed_id", "follower_id", userID)
}

func (r *FollowRepository) relatedUsers(ctx context.Context, pick, match string, userID uint64) ([]model.User, error) {
	db := r.DB.WithContext(ctx)
	ids := db.Model(&model.Follow{}).
		Select(pick).
		Where(match+" = ? AND status = ?", userID, model.FollowActive)

	var list []model.User
	err := db.Where("id IN (?)", ids).Order("id ASC").Find(&list).Error
	return list, err
}

// ListFollowings 关注列表（游标分页，按关注时间倒序）
func (r *FollowRepository) ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	return r.listPage(ctx, "follower_id", "Followed", userID, cursor, limit)
}

// ListFollowers 粉丝列表（游标分页，按关注时间倒序）
func (r *FollowRepository) ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	return r.listPage(ctx, "followed_id", "Follower", userID, cursor, limit)
}

func (r *FollowRepository) listPage(ctx context.Context, match, preload string, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Preload(preload).
		Where(match+" = ? AND status = ?", userID, model.FollowActive)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var rows []model.Follow
	// 这里limit+1是为了判断是否还有下一页
	if err := q.Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	var next uint64
	if len(rows) > limit {
		next = rows[limit-1].ID
		rows = rows[:limit]
	}
	return rows, next, nil
}

// adjustCounts 调整关注数和粉丝数，不会小于0
func (r *FollowRepository) adjustCounts(tx *gorm.DB, followerID, followedID uint64, delta int64) error {
	if err := tx.Model(&model.User{}).
		Where("id = ?", followerID).
		UpdateColumn("following_count", gorm.Expr("CASE WHEN following_count + ? < 0 THEN 0 ELSE following_count + ? END", delta, delta)).Error; err != nil {
		return err
	}
	return tx.Model(&model.User{}).
		Where("id = ?", followedID).
		UpdateColumn("follower_count", gorm.Expr("CASE WHEN follower_count + ? < 0 THEN 0 ELSE follower_count + ? END", delta, delta)).Error
}

// insertOutbox 和关系变更在同一个事务里写事件
func insertOutbox(tx *gorm.DB, event string, follower, followed uint64) error {
	payload, err := json.Marshal(map[string]any{
		"event":      event,
		"event_time": time.Now().UTC().Format(time.RFC3339Nano),
		"follower":   follower,
		"followed":   followed,
	})
	if err != nil {
		return err
	}
	return tx.Create(&model.SocialOutbox{
		EventType: event,
		Follower:  follower,
		Followed:  followed,
		Payload:   string(payload),
		Status:    model.OutboxPending,
	}).Error
}

// List 待投递的事件：未发送的以及重试次数未超限的失败事件
func (r *OutboxRepository) List(ctx context.Context, batchSize, maxRetry int) ([]model.SocialOutbox, error) {
	var list []model.SocialOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ? OR (status = ? AND retry < ?)", model.OutboxPending, model.OutboxFailed, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate 投递失败，记录重试次数
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id = ?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate 投递成功
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}

// ReconcileList 按 id 分批取用户计数
func (r *FollowCountReconcilerRepo) ReconcileList(ctx context.Context, batchSize int, lastID uint64) ([]Pair, uint64, error) {
	var list []Pair
	if err := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("id", "following_count", "follower_count").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

// RealFollowing userID 实际关注的人数
func (r *FollowCountReconcilerRepo) RealFollowing(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ? AND status = ?", userID, model.FollowActive).
		Count(&n).Error
	return n, err
}

// RealFollowers userID 实际粉丝数
func (r *FollowCountReconcilerRepo) RealFollowers(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("followed_id = ? AND status = ?", userID, model.FollowActive).
		Count(&n).Error
	return n, err
}

// FixCounts 用真实值覆盖冗余计数
func (r *FollowCountReconcilerRepo) FixCounts(ctx context.Context, userID uint64, following, followers int64) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		UpdateColumns(map[string]any{"following_count": following, "follower_count": followers}).Error
}

package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Tweeter/internal/logging"
	"Tweeter/internal/model"
	"Tweeter/internal/repository/mysql"
)

// countDelDelay 延迟双删的间隔
const countDelDelay = 500 * time.Millisecond

type PostLikeService struct {
	repo      *mysql.PostLikeRepository
	likeCache LikeCache
	lock      Locker
}

// NewPostLikeService cache 和 lock 为 nil 时直接走数据库
func NewPostLikeService(repo *mysql.PostLikeRepository, cache LikeCache, lock Locker) *PostLikeService {
	return &PostLikeService{repo: repo, likeCache: cache, lock: lock}
}

// ToggleLike 切换点赞，返回切换后的状态。
// 写库成功后更新集合缓存，计数 key 删除并延迟再删一次，交给读侧回填
func (s *PostLikeService) ToggleLike(ctx context.Context, userID, postID uint64) (bool, error) {
	if userID == 0 || postID == 0 {
		return false, ErrInvalidInput
	}
	liked, err := s.repo.Toggle(ctx, userID, postID)
	if err != nil {
		return false, translate(err, "post")
	}
	if s.likeCache != nil {
		s.likeCache.WarmIsLiked(ctx, userID, postID, liked)
		if err = s.likeCache.DeleteCount(ctx, postID, countDelDelay); err != nil {
			logging.AppLogger.Warn("like count cache delete failed", zap.Uint64("post_id", postID), zap.Error(err))
		}
	}
	return liked, nil
}

func (s *PostLikeService) IsLiked(ctx context.Context, userID, postID uint64) (bool, error) {
	if userID == 0 || postID == 0 {
		return false, ErrInvalidInput
	}
	// 先查缓存集合（命中才用）
	if s.likeCache != nil {
		if b, ok, err := s.likeCache.IsLikedCached(ctx, userID, postID); err == nil && ok {
			return b, nil
		}
	}
	// 回源数据库
	b, err := s.repo.IsLiked(ctx, userID, postID)
	if err == nil && s.likeCache != nil {
		s.likeCache.WarmIsLiked(ctx, userID, postID, b)
	}
	return b, err
}

// LikedMap 批量判断 userID 对这些帖子是否点过赞，userID 为 0 时返回空 map
func (s *PostLikeService) LikedMap(ctx context.Context, userID uint64, posts []model.Post) (map[uint64]bool, error) {
	ids := make([]uint64, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	return s.repo.LikedPostIDs(ctx, userID, ids)
}

// Likers 点赞该帖子的用户，顺带重建集合缓存
func (s *PostLikeService) Likers(ctx context.Context, postID uint64) ([]model.User, error) {
	if _, err := s.repo.GetLikeCount(ctx, postID); err != nil {
		return nil, translate(err, "post")
	}
	users, err := s.repo.Likers(ctx, postID)
	if err != nil {
		return nil, err
	}
	if s.likeCache != nil {
		ids := make([]uint64, len(users))
		for i := range users {
			ids[i] = users[i].ID
		}
		if err = s.likeCache.FillLikers(ctx, postID, ids); err != nil {
			logging.AppLogger.Warn("likers cache fill failed", zap.Uint64("post_id", postID), zap.Error(err))
		}
	}
	return users, nil
}

// LikeCount 读点赞数：缓存 -> 加锁回源 -> 拿不到锁短暂退避再读
func (s *PostLikeService) LikeCount(ctx context.Context, postID uint64) (int64, error) {
	if s.likeCache == nil || s.lock == nil {
		n, err := s.repo.GetLikeCount(ctx, postID)
		return n, translate(err, "post")
	}
	if v, ok, err := s.likeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
		return v, nil
	}

	token := fmt.Sprintf("%d-%d", postID, time.Now().UnixNano())
	got, _ := s.lock.Acquire(ctx, postID, token)
	if got {
		defer func() {
			if err := s.lock.Release(ctx, postID, token); err != nil {
				logging.AppLogger.Warn("like lock release failed", zap.Uint64("post_id", postID), zap.Error(err))
			}
		}()
		// 第二次检查
		if v, ok, err := s.likeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
			return v, nil
		}
		v, err := s.repo.GetLikeCount(ctx, postID)
		if err != nil {
			return 0, translate(err, "post")
		}
		_ = s.likeCache.SetLikeCount(ctx, postID, v)
		return v, nil
	}

	time.Sleep(50 * time.Millisecond)
	if v, ok, err := s.likeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
		return v, nil
	}
	v, err := s.repo.GetLikeCount(ctx, postID)
	return v, translate(err, "post")
}

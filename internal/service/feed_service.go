package service

import (
	"context"

	"Tweeter/internal/model"
	"Tweeter/internal/repository/mysql"
)

// Feed 首页数据：帖子、当前用户的点赞情况、关注推荐
type Feed struct {
	Posts       []model.Post
	Liked       map[uint64]bool
	Suggestions []model.User
}

type FeedService struct {
	posts *mysql.PostRepository
	users *mysql.UserRepository
	likes *PostLikeService

	homeSuggestions      int
	followingSuggestions int
}

func NewFeedService(posts *mysql.PostRepository, users *mysql.UserRepository, likes *PostLikeService, homeSuggestions, followingSuggestions int) *FeedService {
	return &FeedService{
		posts:                posts,
		users:                users,
		likes:                likes,
		homeSuggestions:      homeSuggestions,
		followingSuggestions: followingSuggestions,
	}
}

// GlobalFeed 全部帖子，按 id 顺序
func (s *FeedService) GlobalFeed(ctx context.Context) ([]model.Post, error) {
	return s.posts.ListAll(ctx)
}

// FollowingFeed viewer 关注的人的帖子，按发布时间升序；没关注任何人时为空
func (s *FeedService) FollowingFeed(ctx context.Context, viewerID uint64) ([]model.Post, error) {
	if viewerID == 0 {
		return nil, ErrInvalidInput
	}
	return s.posts.ListByFollowing(ctx, viewerID)
}

// FollowSuggestions 先取前 limit 个用户，再去掉 viewer 自己。
// 顺序不能反过来：viewer 在前 limit 个里时返回的人数会少于 limit
func (s *FeedService) FollowSuggestions(ctx context.Context, viewerID uint64, limit int) ([]model.User, error) {
	if limit <= 0 {
		return []model.User{}, nil
	}
	users, err := s.users.ListFirst(ctx, limit)
	if err != nil {
		return nil, err
	}
	if viewerID == 0 {
		return users, nil
	}
	out := make([]model.User, 0, len(users))
	removed := false
	for _, u := range users {
		if !removed && u.ID == viewerID {
			removed = true
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// Home 全站首页，viewerID 为 0 表示未登录
func (s *FeedService) Home(ctx context.Context, viewerID uint64) (*Feed, error) {
	posts, err := s.GlobalFeed(ctx)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, viewerID, posts, s.homeSuggestions)
}

// FollowingHome 只看关注的人
func (s *FeedService) FollowingHome(ctx context.Context, viewerID uint64) (*Feed, error) {
	posts, err := s.FollowingFeed(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, viewerID, posts, s.followingSuggestions)
}

func (s *FeedService) assemble(ctx context.Context, viewerID uint64, posts []model.Post, limit int) (*Feed, error) {
	if posts == nil {
		posts = []model.Post{}
	}
	liked, err := s.likes.LikedMap(ctx, viewerID, posts)
	if err != nil {
		return nil, err
	}
	suggestions, err := s.FollowSuggestions(ctx, viewerID, limit)
	if err != nil {
		return nil, err
	}
	return &Feed{Posts: posts, Liked: liked, Suggestions: suggestions}, nil
}

package service

import (
	"context"

	"Tweeter/internal/model"
	"Tweeter/internal/repository/mysql"
)

type SearchService struct {
	posts *mysql.PostRepository
}

func NewSearchService(posts *mysql.PostRepository) *SearchService {
	return &SearchService{posts: posts}
}

// Search 先按内容匹配，再追加用户名匹配的作者的帖子，已出现过的不重复。
// 大小写不敏感；空 query 匹配全部帖子
func (s *SearchService) Search(ctx context.Context, query string) ([]model.Post, error) {
	byContent, err := s.posts.SearchContent(ctx, query)
	if err != nil {
		return nil, err
	}
	byAuthor, err := s.posts.SearchByAuthor(ctx, query)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint64]struct{}, len(byContent))
	out := make([]model.Post, 0, len(byContent)+len(byAuthor))
	for _, p := range byContent {
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	for _, p := range byAuthor {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

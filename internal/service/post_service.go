package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"Tweeter/internal/model"
	"Tweeter/internal/repository/mysql"
)

type PostService struct {
	repo  *mysql.PostRepository
	users *mysql.UserRepository
	now   func() time.Time
}

func NewPostService(repo *mysql.PostRepository, users *mysql.UserRepository) *PostService {
	return &PostService{
		repo:  repo,
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreatePost 发帖，内容去掉首尾空白后 1..280 个字符
func (s *PostService) CreatePost(ctx context.Context, authorID uint64, content string) (*model.Post, error) {
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < model.PostMinLen || n > model.PostMaxLen {
		return nil, fieldErr("content", ErrInvalidInput)
	}
	author, err := s.users.FindByID(ctx, authorID)
	if err != nil {
		return nil, translate(err, "author")
	}

	post := &model.Post{
		UserID:    authorID,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err = s.repo.Create(ctx, post); err != nil {
		return nil, translate(err, "post")
	}
	post.Author = author
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint64) (*model.Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "post")
	}
	return post, nil
}

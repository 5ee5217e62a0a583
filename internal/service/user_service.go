package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"Tweeter/internal/model"
	"Tweeter/internal/pkg"
	"Tweeter/internal/repository/mysql"
	"Tweeter/internal/storage"
)

const (
	usernameMaxLen = 25
	emailMinLen    = 6
	emailMaxLen    = 120
)

type UserService struct {
	repo     *mysql.UserRepository
	sessions SessionStore
	tokens   *pkg.TokenManager
	images   ImageStore
}

func NewUserService(repo *mysql.UserRepository, sessions SessionStore, tokens *pkg.TokenManager, images ImageStore) *UserService {
	return &UserService{
		repo:     repo,
		sessions: sessions,
		tokens:   tokens,
		images:   images,
	}
}

// Register 注册。用户名或邮箱已被占用时返回字段级 ErrDuplicate
func (s *UserService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if n := utf8.RuneCountInString(username); n < 1 || n > usernameMaxLen {
		return nil, fieldErr("username", ErrInvalidInput)
	}
	if n := len(email); n < emailMinLen || n > emailMaxLen {
		return nil, fieldErr("email", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fieldErr("email", ErrInvalidInput)
	}
	if password == "" {
		return nil, fieldErr("password", ErrInvalidInput)
	}

	if err := s.checkFree("username", func() (*model.User, error) { return s.repo.FindByUsername(ctx, username) }); err != nil {
		return nil, err
	}
	if err := s.checkFree("email", func() (*model.User, error) { return s.repo.FindByEmail(ctx, email) }); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:  username,
		Email:     email,
		Password:  string(hash),
		ImageFile: model.DefaultImageFile,
	}
	// 并发注册时由唯一索引兜底
	if err = s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.duplicateField(ctx, username, email)
		}
		return nil, translate(err, "user")
	}
	return user, nil
}

// duplicateField 唯一索引冲突后重新查一遍，找出是哪个字段撞了
func (s *UserService) duplicateField(ctx context.Context, username, email string) error {
	if err := s.checkFree("username", func() (*model.User, error) { return s.repo.FindByUsername(ctx, username) }); err != nil {
		return err
	}
	if err := s.checkFree("email", func() (*model.User, error) { return s.repo.FindByEmail(ctx, email) }); err != nil {
		return err
	}
	return ErrDuplicate
}

func (s *UserService) checkFree(field string, find func() (*model.User, error)) error {
	_, err := find()
	switch {
	case err == nil:
		return fieldErr(field, ErrDuplicate)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return err
	}
}

// Login 邮箱登录，access token 写入 redis，同一用户只保留最新的会话
func (s *UserService) Login(ctx context.Context, email, password string) (*pkg.Pair, *model.User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}
	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	return s.sessions.DeleteUserToken(ctx, userID)
}

// Refresh 用 refresh token 换新的一对 token
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, translate(err, "user")
	}
	return s.issue(ctx, user)
}

func (s *UserService) issue(ctx context.Context, user *model.User) (*pkg.Pair, error) {
	pair, err := s.tokens.GeneratePair(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	if err = s.sessions.AddUserToken(ctx, user.ID, pair.AccessToken); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *UserService) Profile(ctx context.Context, userID uint64) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "user")
	}
	return user, nil
}

// UpdatePhoto 保存头像，返回新的 image_file
func (s *UserService) UpdatePhoto(ctx context.Context, userID uint64, filename string, body io.Reader, size int64) (string, error) {
	if _, err := s.Profile(ctx, userID); err != nil {
		return "", err
	}
	key, err := storage.ImageKey(userID, filename)
	if err != nil {
		return "", fieldErr("file", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	ref, err := s.images.Save(ctx, key, body, size)
	if err != nil {
		return "", err
	}
	if err = s.repo.UpdateImage(ctx, userID, ref); err != nil {
		return "", err
	}
	return ref, nil
}

// ChangePassword 登录态修改密码，成功后注销当前会话
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fieldErr("new_password", ErrInvalidInput)
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return translate(err, "user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return fieldErr("old_password", ErrInvalidCredentials)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err = s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	return s.Logout(ctx, userID)
}

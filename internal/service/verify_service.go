package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"Tweeter/internal/logging"
	"Tweeter/internal/pkg"
	"Tweeter/internal/repository/mysql"
	"Tweeter/internal/repository/redis"
)

const verifySubject = "Verify your Tweeter email"

// VerifyService 邮箱验证码：pending -> 发信 -> confirmed -> 校验后删除
type VerifyService struct {
	users  *mysql.UserRepository
	codes  CodeStore
	mailer Mailer
	ttl    time.Duration
}

func NewVerifyService(users *mysql.UserRepository, codes CodeStore, mailer Mailer, ttl time.Duration) *VerifyService {
	return &VerifyService{users: users, codes: codes, mailer: mailer, ttl: ttl}
}

// SendCode 给用户邮箱发验证码。发信失败时清理 pending，不留下可用的验证码
func (s *VerifyService) SendCode(ctx context.Context, userID uint64) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return translate(err, "user")
	}
	if user.Verified {
		return ErrAlreadyVerified
	}

	code, err := pkg.NewVerifyCode()
	if err != nil {
		return err
	}
	if err = s.codes.CodePending(ctx, userID, code); err != nil {
		return err
	}
	if err = s.mailer.Send(user.Email, verifySubject, pkg.EmailCodeHTML(user.Username, code, s.ttl)); err != nil {
		logging.Error("send verify mail failed", zap.Uint64("user_id", userID), zap.Error(err))
		if delErr := s.codes.DeleteCodePending(ctx, userID); delErr != nil {
			logging.Error("delete pending code failed", zap.Uint64("user_id", userID), zap.Error(delErr))
		}
		return err
	}
	return s.codes.MarkCodeConfirmed(ctx, userID)
}

// Verify 校验验证码，成功后标记 verified；验证码只能用一次
func (s *VerifyService) Verify(ctx context.Context, userID uint64, code string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return translate(err, "user")
	}
	if user.Verified {
		return ErrAlreadyVerified
	}
	ok, err := s.codes.ConsumeCode(ctx, userID, code)
	if errors.Is(err, redis.ErrCodeNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}
	return s.users.MarkVerified(ctx, userID)
}

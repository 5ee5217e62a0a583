package service

import (
	"context"
	"io"
	"time"

	"Tweeter/internal/model"
)

// SessionStore 登录态 token 存储（redis）
type SessionStore interface {
	AddUserToken(ctx context.Context, userID uint64, token string) error
	GetUserToken(ctx context.Context, userID uint64) (string, error)
	ExtendUserToken(ctx context.Context, userID uint64) error
	DeleteUserToken(ctx context.Context, userID uint64) error
}

// LikeCache 点赞集合与计数缓存（redis）
type LikeCache interface {
	IsLikedCached(ctx context.Context, userID, postID uint64) (bool, bool, error)
	WarmIsLiked(ctx context.Context, userID, postID uint64, liked bool)
	FillLikers(ctx context.Context, postID uint64, userIDs []uint64) error
	GetLikeCountCached(ctx context.Context, postID uint64) (int64, bool, error)
	SetLikeCount(ctx context.Context, postID uint64, cnt int64) error
	DeleteCount(ctx context.Context, postID uint64, delay ...time.Duration) error
}

// Locker 分布式锁
type Locker interface {
	Acquire(ctx context.Context, postID uint64, token string) (bool, error)
	Release(ctx context.Context, postID uint64, token string) error
}

// CodeStore 邮箱验证码存储
type CodeStore interface {
	CodePending(ctx context.Context, userID uint64, code string) error
	MarkCodeConfirmed(ctx context.Context, userID uint64) error
	DeleteCodePending(ctx context.Context, userID uint64) error
	ConsumeCode(ctx context.Context, userID uint64, code string) (bool, error)
}

type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// ImageStore 头像文件存储，返回保存到 User.ImageFile 的引用
type ImageStore interface {
	Save(ctx context.Context, key string, body io.Reader, size int64) (string, error)
}

// Sender outbox 事件投递
type Sender func(ctx context.Context, ob *model.SocialOutbox) error

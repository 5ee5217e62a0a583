package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultEmailCodeTTL = 5 * time.Minute
	EmailCodePrefix     = "email:code:verify"

	// 两阶段键：邮件发出前 pending，发出后 confirmed
	PendingSuffix   = "pending"
	ConfirmedSuffix = "confirmed"
)

var (
	ErrCodeNotFound        = errors.New("verification code not found")
	ErrCodeDelFailed       = errors.New("verification code delete failed")
	ErrCodePendingFailed   = errors.New("code pending failed")
	ErrCodeConfirmedFailed = errors.New("code confirmed failed")
)

// 原子执行：取值+写入目标+设置 TTL+删除源
var promoteScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if not val then
  return 0
end
redis.call("SET", KEYS[2], val, "PX", ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`)

// 校验成功才删除，保证验证码只能用一次
var consumeScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if not val then
  return -1
end
if val ~= ARGV[1] then
  return 0
end
redis.call("DEL", KEYS[1])
return 1
`)

type EmailRepository struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewEmailRepository(rdb *redis.Client) *EmailRepository {
	return &EmailRepository{RDB: rdb, TTL: DefaultEmailCodeTTL}
}

func (e *EmailRepository) key(suffix string, userID uint64) string {
	return fmt.Sprintf("%s:%s:%d", EmailCodePrefix, suffix, userID)
}

// CodePending 写入 pending 键
func (e *EmailRepository) CodePending(ctx context.Context, userID uint64, code string) error {
	if err := e.RDB.Set(ctx, e.key(PendingSuffix, userID), code, e.TTL).Err(); err != nil {
		return ErrCodePendingFailed
	}
	return nil
}

// MarkCodeConfirmed 邮件发送成功后把 pending 转为 confirmed
func (e *EmailRepository) MarkCodeConfirmed(ctx context.Context, userID uint64) error {
	px := int64(e.TTL / time.Millisecond)
	ok, err := promoteScript.Run(ctx, e.RDB,
		[]string{e.key(PendingSuffix, userID), e.key(ConfirmedSuffix, userID)}, px).Int()
	if err != nil || ok != 1 {
		return ErrCodeConfirmedFailed
	}
	return nil
}

// DeleteCodePending 删除 pending 键（幂等）
func (e *EmailRepository) DeleteCodePending(ctx context.Context, userID uint64) error {
	if err := e.RDB.Del(ctx, e.key(PendingSuffix, userID)).Err(); err != nil {
		return ErrCodeDelFailed
	}
	return nil
}

// ConsumeCode 比对 confirmed 验证码，一致则删除
func (e *EmailRepository) ConsumeCode(ctx context.Context, userID uint64, code string) (bool, error) {
	res, err := consumeScript.Run(ctx, e.RDB, []string{e.key(ConfirmedSuffix, userID)}, code).Int()
	if err != nil {
		return false, err
	}
	if res == -1 {
		return false, ErrCodeNotFound
	}
	return res == 1, nil
}

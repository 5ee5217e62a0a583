package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	LikeSetTTL       = 24 * time.Hour
	LikeCntTTL       = 24 * time.Hour
	LockTTL          = 300 * time.Millisecond
	LikeSetKeyPrefix = "like:set:post"  // 某个帖子已点赞的用户ID集合
	LikeCntKeyPrefix = "like:cnt:post"  // 某个帖子的点赞计数
	LockKeyPrefix    = "lock:like:post" // 计数回填的分布式锁
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

type LikeCacheRepository struct {
	RDB        *redis.Client
	likeSetTTL time.Duration
	likeCntTTL time.Duration
}

type DistLock struct {
	RDB *redis.Client
}

func NewLikeCacheRepository(rdb *redis.Client) *LikeCacheRepository {
	return &LikeCacheRepository{
		RDB:        rdb,
		likeSetTTL: LikeSetTTL,
		likeCntTTL: LikeCntTTL,
	}
}

func NewDistLock(rdb *redis.Client) *DistLock {
	return &DistLock{RDB: rdb}
}

func (r *LikeCacheRepository) likeSetKey(postID uint64) string {
	return fmt.Sprintf("%s:%d", LikeSetKeyPrefix, postID)
}

func (r *LikeCacheRepository) likeCntKey(postID uint64) string {
	return fmt.Sprintf("%s:%d", LikeCntKeyPrefix, postID)
}

// IsLikedCached 返回 (是否点赞, 是否命中缓存, err)
func (r *LikeCacheRepository) IsLikedCached(ctx context.Context, userID, postID uint64) (bool, bool, error) {
	k := r.likeSetKey(postID)
	exists, err := r.RDB.Exists(ctx, k).Result()
	if err != nil {
		return false, false, err
	}
	if exists == 0 {
		return false, false, nil
	}
	b, err := r.RDB.SIsMember(ctx, k, userID).Result()
	return b, true, err
}

// WarmIsLiked 惰性回填：只在集合已存在时写，避免无界扩张
func (r *LikeCacheRepository) WarmIsLiked(ctx context.Context, userID, postID uint64, liked bool) {
	k := r.likeSetKey(postID)
	if ok, _ := r.RDB.Exists(ctx, k).Result(); ok > 0 {
		if liked {
			_ = r.RDB.SAdd(ctx, k, userID).Err()
		} else {
			_ = r.RDB.SRem(ctx, k, userID).Err()
		}
		_ = r.RDB.Expire(ctx, k, r.likeSetTTL).Err()
	}
}

// FillLikers 用数据库里的点赞用户整体重建集合
func (r *LikeCacheRepository) FillLikers(ctx context.Context, postID uint64, userIDs []uint64) error {
	k := r.likeSetKey(postID)
	_, err := r.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		if len(userIDs) > 0 {
			members := make([]any, len(userIDs))
			for i, id := range userIDs {
				members[i] = id
			}
			p.SAdd(ctx, k, members...)
			p.Expire(ctx, k, r.likeSetTTL)
		}
		return nil
	})
	return err
}

// GetLikeCountCached 返回 (计数, 是否命中, err)
func (r *LikeCacheRepository) GetLikeCountCached(ctx context.Context, postID uint64) (int64, bool, error) {
	val, err := r.RDB.Get(ctx, r.likeCntKey(postID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

// SetLikeCount 回填帖子点赞数
func (r *LikeCacheRepository) SetLikeCount(ctx context.Context, postID uint64, cnt int64) error {
	return r.RDB.Set(ctx, r.likeCntKey(postID), cnt, r.likeCntTTL).Err()
}

// DeleteCount 删除计数缓存；delay>0 时后台再删一次，抵消并发回填窗口
func (r *LikeCacheRepository) DeleteCount(ctx context.Context, postID uint64, delay ...time.Duration) error {
	key := r.likeCntKey(postID)
	if err := r.RDB.Del(ctx, key).Err(); err != nil {
		return err
	}
	if len(delay) > 0 && delay[0] > 0 {
		d := delay[0]
		go func() {
			t := time.NewTimer(d)
			defer t.Stop()
			<-t.C
			_ = r.RDB.Del(context.Background(), key).Err()
		}()
	}
	return nil
}

// Acquire 请求加分布式锁
func (l *DistLock) Acquire(ctx context.Context, postID uint64, token string) (bool, error) {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, postID)
	return l.RDB.SetNX(ctx, key, token, LockTTL).Result()
}

// Release 只释放自己持有的锁
func (l *DistLock) Release(ctx context.Context, postID uint64, token string) error {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, postID)
	return releaseScript.Run(ctx, l.RDB, []string{key}, token).Err()
}

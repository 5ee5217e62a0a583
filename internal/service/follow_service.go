package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"Tweeter/internal/logging"
	"Tweeter/internal/model"
	"Tweeter/internal/pkg"
	"Tweeter/internal/repository/mysql"
)

type FollowService struct {
	repo  *mysql.FollowRepository
	users *mysql.UserRepository
}

// FollowCountReconciler 用户关注计数对账
type FollowCountReconciler struct {
	repo      *mysql.FollowCountReconcilerRepo
	batchSize int
	interval  time.Duration
}

// OutboxRelayer 把 outbox 表里的关注事件投递出去
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
}

func NewFollowService(repo *mysql.FollowRepository, users *mysql.UserRepository) *FollowService {
	return &FollowService{repo: repo, users: users}
}

func NewOutboxRelayer(repo *mysql.OutboxRepository, sender Sender, batchSize int, interval time.Duration) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      repo,
		batchSize: batchSize,
		maxRetry:  5,
		interval:  interval,
		sender:    sender,
	}
}

func NewFollowCountReconciler(repo *mysql.FollowCountReconcilerRepo, batchSize int, interval time.Duration) *FollowCountReconciler {
	return &FollowCountReconciler{
		repo:      repo,
		batchSize: batchSize,
		interval:  interval,
	}
}

// Follow 关注 targetID，返回被关注的用户和是否真的发生了变化。
// 重复关注不报错也不会产生重复记录
func (s *FollowService) Follow(ctx context.Context, actorID, targetID uint64) (*model.User, bool, error) {
	target, err := s.checkPair(ctx, actorID, targetID)
	if err != nil {
		return nil, false, err
	}
	changed, err := s.repo.Follow(ctx, actorID, targetID)
	if err != nil {
		return nil, false, translate(err, "follow")
	}
	return target, changed, nil
}

// Unfollow 取消关注；本来就没关注时 changed=false
func (s *FollowService) Unfollow(ctx context.Context, actorID, targetID uint64) (*model.User, bool, error) {
	target, err := s.checkPair(ctx, actorID, targetID)
	if err != nil {
		return nil, false, err
	}
	changed, err := s.repo.Unfollow(ctx, actorID, targetID)
	if err != nil {
		return nil, false, translate(err, "unfollow")
	}
	return target, changed, nil
}

// checkPair 在任何写操作之前拒绝关注自己，并确认目标存在
func (s *FollowService) checkPair(ctx context.Context, actorID, targetID uint64) (*model.User, error) {
	if actorID == 0 || targetID == 0 {
		return nil, ErrInvalidInput
	}
	if actorID == targetID {
		return nil, ErrSelfReference
	}
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, translate(err, "user")
	}
	return target, nil
}

func (s *FollowService) IsFollowing(ctx context.Context, actorID, targetID uint64) (bool, error) {
	if actorID == 0 || targetID == 0 {
		return false, ErrInvalidInput
	}
	return s.repo.IsFollowing(ctx, actorID, targetID)
}

// FollowersOf 关注 userID 的所有用户
func (s *FollowService) FollowersOf(ctx context.Context, userID uint64) ([]model.User, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.Followers(ctx, userID)
}

// FollowingOf userID 关注的所有用户
func (s *FollowService) FollowingOf(ctx context.Context, userID uint64) ([]model.User, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.Following(ctx, userID)
}

// ListFollowers 粉丝分页
func (s *FollowService) ListFollowers(ctx context.Context, userID, cursor uint64, limit int) ([]model.User, uint64, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, 0, err
	}
	rows, next, err := s.repo.ListFollowers(ctx, userID, cursor, limit)
	if err != nil {
		return nil, 0, err
	}
	users := make([]model.User, 0, len(rows))
	for _, r := range rows {
		if r.Follower != nil {
			users = append(users, *r.Follower)
		}
	}
	return users, next, nil
}

// ListFollowings 关注分页
func (s *FollowService) ListFollowings(ctx context.Context, userID, cursor uint64, limit int) ([]model.User, uint64, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, 0, err
	}
	rows, next, err := s.repo.ListFollowings(ctx, userID, cursor, limit)
	if err != nil {
		return nil, 0, err
	}
	users := make([]model.User, 0, len(rows))
	for _, r := range rows {
		if r.Followed != nil {
			users = append(users, *r.Followed)
		}
	}
	return users, next, nil
}

func (s *FollowService) ensureUser(ctx context.Context, userID uint64) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return translate(err, "user")
	}
	return nil
}

// Run outbox 投递循环
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 投递一批事件，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		logging.Error("outbox query failed", zap.Error(err))
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			logging.AppLogger.Warn("outbox send failed",
				zap.Uint64("outbox_id", ob.ID), zap.Int("retry", ob.Retry), zap.Error(err))
			if err = r.repo.RetryUpdate(ctx, ob.ID); err != nil {
				logging.Error("outbox retry update failed", zap.Uint64("outbox_id", ob.ID), zap.Error(err))
			}
			continue
		}
		if err = r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			logging.Error("outbox success update failed", zap.Uint64("outbox_id", ob.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

// KafkaSender 以 follower id 为 key 投递到 kafka
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		return p.SendEvent(ctx, pkg.MakeKeyFromID(ob.Follower), ob.EventType, []byte(ob.Payload))
	}
}

// LogSender 没有配置 kafka 时只打日志
func LogSender(_ context.Context, ob *model.SocialOutbox) error {
	logging.AppLogger.Info("outbox event",
		zap.String("type", ob.EventType),
		zap.Uint64("follower", ob.Follower),
		zap.Uint64("followed", ob.Followed),
		zap.String("payload", ob.Payload))
	return nil
}

// Run 对账定时任务
func (r *FollowCountReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce 从头到尾扫一遍用户，返回修正的用户数
func (r *FollowCountReconciler) ReconcileOnce(ctx context.Context) int {
	fixed := 0
	var lastID uint64
	for {
		users, next, err := r.repo.ReconcileList(ctx, r.batchSize, lastID)
		if err != nil {
			logging.Error("reconcile list failed", zap.Error(err))
			return fixed
		}
		if len(users) == 0 {
			return fixed
		}
		for _, u := range users {
			following, err := r.repo.RealFollowing(ctx, u.ID)
			if err != nil {
				continue
			}
			followers, err := r.repo.RealFollowers(ctx, u.ID)
			if err != nil {
				continue
			}
			if following == u.FollowingCount && followers == u.FollowerCount {
				continue
			}
			if err = r.repo.FixCounts(ctx, u.ID, following, followers); err != nil {
				logging.Error("reconcile fix failed", zap.Uint64("user_id", u.ID), zap.Error(err))
				continue
			}
			logging.AppLogger.Info("follow counts repaired",
				zap.Uint64("user_id", u.ID),
				zap.Int64("following", following),
				zap.Int64("followers", followers))
			fixed++
		}
		lastID = next
	}
}

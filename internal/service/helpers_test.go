package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"Tweeter/internal/model"
	"Tweeter/internal/pkg"
	"Tweeter/internal/repository/mysql"
	"Tweeter/internal/repository/redis"
	"Tweeter/internal/testutil"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := redis.Init(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("init redis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newTokens() *pkg.TokenManager {
	return pkg.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

type fakeImages struct {
	saved map[string][]byte
}

func (f *fakeImages) Save(_ context.Context, key string, body io.Reader, _ int64) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[key] = b
	return key, nil
}

type recordingSender struct {
	got  []model.SocialOutbox
	fail bool
}

func (r *recordingSender) send(_ context.Context, ob *model.SocialOutbox) error {
	if r.fail {
		return errors.New("broker down")
	}
	r.got = append(r.got, *ob)
	return nil
}

// services 一套接在同一个 sqlite + miniredis 上的服务
type services struct {
	follow *FollowService
	likes  *PostLikeService
	feed   *FeedService
	search *SearchService
	posts  *PostService
	users  *UserService
}

func newServices(t *testing.T) *services {
	t.Helper()
	db := testutil.NewDB(t)
	_, rdb := newRedis(t)

	userRepo := mysql.NewUserRepository(db)
	postRepo := mysql.NewPostRepository(db)
	likes := NewPostLikeService(mysql.NewPostLikeRepository(db), redis.NewLikeCacheRepository(rdb), redis.NewDistLock(rdb))
	return &services{
		follow: NewFollowService(mysql.NewFollowRepository(db), userRepo),
		likes:  likes,
		feed:   NewFeedService(postRepo, userRepo, likes, 6, 5),
		search: NewSearchService(postRepo),
		posts:  NewPostService(postRepo, userRepo),
		users:  NewUserService(userRepo, redis.NewSessionRepository(rdb), newTokens(), &fakeImages{}),
	}
}

func mustRegister(t *testing.T, s *UserService, username string) *model.User {
	t.Helper()
	u, err := s.Register(context.Background(), username, username+"@example.com", "secret-"+username)
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

// fixedClock 每次调用前进一秒
func fixedClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		now := cur
		cur = cur.Add(time.Second)
		return now
	}
}

func postIDs(posts []model.Post) []uint64 {
	ids := make([]uint64, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	return ids
}

func userNames(users []model.User) []string {
	names := make([]string, len(users))
	for i := range users {
		names[i] = users[i].Username
	}
	return names
}

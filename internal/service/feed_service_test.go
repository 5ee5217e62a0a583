package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"Tweeter/internal/model"
	"Tweeter/internal/repository/mysql"
	"Tweeter/internal/testutil"
)

func newFeedService(t *testing.T) (*FeedService, func(string) *model.User, func(*model.User, string, time.Time) *model.Post, *FollowService) {
	t.Helper()
	db := testutil.NewDB(t)
	users := mysql.NewUserRepository(db)
	svc := NewFeedService(mysql.NewPostRepository(db), users, NewPostLikeService(mysql.NewPostLikeRepository(db), nil, nil), 6, 5)
	follow := NewFollowService(mysql.NewFollowRepository(db), users)
	mkUser := func(name string) *model.User { return testutil.MustUser(t, db, name) }
	mkPost := func(u *model.User, content string, at time.Time) *model.Post {
		return testutil.MustPost(t, db, u, content, at)
	}
	return svc, mkUser, mkPost, follow
}

func TestFollowingFeedAscendingByTimestamp(t *testing.T) {
	svc, mkUser, mkPost, follow := newFeedService(t)
	ctx := context.Background()
	viewer, b, c := mkUser("viewer"), mkUser("bob"), mkUser("carol")
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	// 插入顺序和时间顺序故意不一致
	p3 := mkPost(b, "third", t0.Add(3*time.Minute))
	p1 := mkPost(c, "first", t0.Add(1*time.Minute))
	mkPost(viewer, "mine", t0)
	p2 := mkPost(b, "second", t0.Add(2*time.Minute))

	posts, err := svc.FollowingFeed(ctx, viewer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 0 {
		t.Fatalf("following nobody should give empty feed, got %d", len(posts))
	}

	for _, u := range []uint64{b.ID, c.ID} {
		if _, _, err = follow.Follow(ctx, viewer.ID, u); err != nil {
			t.Fatal(err)
		}
	}
	posts, err = svc.FollowingFeed(ctx, viewer.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint64{p1.ID, p2.ID, p3.ID}
	if got := postIDs(posts); !slices.Equal(got, want) {
		t.Errorf("following feed = %v, want %v", got, want)
	}
	if posts[0].Author == nil || posts[0].Author.Username != "carol" {
		t.Errorf("author not loaded: %+v", posts[0].Author)
	}
}

func TestGlobalFeedInsertionOrder(t *testing.T) {
	svc, mkUser, mkPost, _ := newFeedService(t)
	a := mkUser("alice")
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p1 := mkPost(a, "later", t0.Add(time.Hour))
	p2 := mkPost(a, "earlier", t0)

	posts, err := svc.GlobalFeed(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := postIDs(posts); !slices.Equal(got, []uint64{p1.ID, p2.ID}) {
		t.Errorf("global feed = %v", got)
	}
}

func TestFollowSuggestionsTruncateThenFilter(t *testing.T) {
	svc, mkUser, _, _ := newFeedService(t)
	ctx := context.Background()
	var users []*model.User
	for i := 1; i <= 10; i++ {
		users = append(users, mkUser(fmt.Sprintf("user%02d", i)))
	}
	viewer := users[2]

	got, err := svc.FollowSuggestions(ctx, viewer.ID, 6)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"user01", "user02", "user04", "user05", "user06"}
	if names := userNames(got); !slices.Equal(names, want) {
		t.Errorf("suggestions = %v, want %v", names, want)
	}

	// viewer 不在前 limit 个里时不受影响
	got, err = svc.FollowSuggestions(ctx, users[9].ID, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 6 {
		t.Errorf("expected 6 suggestions, got %d", len(got))
	}
	if got, _ = svc.FollowSuggestions(ctx, viewer.ID, 0); len(got) != 0 {
		t.Errorf("limit 0 returned %d users", len(got))
	}
}

func TestHomeMarksLikedPosts(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	users := mysql.NewUserRepository(db)
	likeRepo := mysql.NewPostLikeRepository(db)
	svc := NewFeedService(mysql.NewPostRepository(db), users, NewPostLikeService(likeRepo, nil, nil), 6, 5)
	a, b := testutil.MustUser(t, db, "alice"), testutil.MustUser(t, db, "bob")
	now := time.Now().UTC()
	p1 := testutil.MustPost(t, db, b, "one", now)
	p2 := testutil.MustPost(t, db, b, "two", now)
	if _, err := likeRepo.Toggle(ctx, a.ID, p2.ID); err != nil {
		t.Fatal(err)
	}

	feed, err := svc.Home(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Posts) != 2 || feed.Liked[p1.ID] || !feed.Liked[p2.ID] {
		t.Errorf("home feed posts=%v liked=%v", postIDs(feed.Posts), feed.Liked)
	}
	if names := userNames(feed.Suggestions); !slices.Equal(names, []string{"bob"}) {
		t.Errorf("suggestions = %v", names)
	}

	anon, err := svc.Home(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(anon.Liked) != 0 || len(anon.Suggestions) != 2 {
		t.Errorf("anonymous home liked=%v suggestions=%v", anon.Liked, userNames(anon.Suggestions))
	}

	if _, err = svc.FollowingHome(ctx, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("FollowingHome without viewer: %v", err)
	}
	following, err := svc.FollowingHome(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(following.Posts) != 0 {
		t.Errorf("alice follows nobody, got %d posts", len(following.Posts))
	}
}

// 注册 -> 关注 -> 发帖 -> 关注流 -> 取关 -> 关注流为空
func TestRegisterFollowPostUnfollowScenario(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	s.posts.now = fixedClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	a := mustRegister(t, s.users, "alice")
	b := mustRegister(t, s.users, "bob")

	target, _, err := s.follow.Follow(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if target.Username != "bob" {
		t.Errorf("follow returned %q", target.Username)
	}
	hi, err := s.posts.CreatePost(ctx, b.ID, "hi")
	if err != nil {
		t.Fatal(err)
	}

	posts, err := s.feed.FollowingFeed(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := postIDs(posts); !slices.Equal(got, []uint64{hi.ID}) || posts[0].Content != "hi" {
		t.Fatalf("feed after follow = %v", got)
	}

	if _, _, err = s.follow.Unfollow(ctx, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	posts, err = s.feed.FollowingFeed(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 0 {
		t.Errorf("feed after unfollow = %v", postIDs(posts))
	}
}

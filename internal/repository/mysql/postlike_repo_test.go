package mysql

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"Tweeter/internal/model"
	"Tweeter/internal/testutil"
)

func countLikeRows(t *testing.T, db *gorm.DB, postID uint64) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&model.PostLike{}).Where("post_id = ?", postID).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestToggleIsInvolution(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostLikeRepository(db)
	ctx := context.Background()
	a := testutil.MustUser(t, db, "alice")
	p := testutil.MustPost(t, db, a, "hi", time.Now())

	liked, err := repo.Toggle(ctx, a.ID, p.ID)
	if err != nil || !liked {
		t.Fatalf("first toggle: liked=%v err=%v", liked, err)
	}
	if n, _ := repo.GetLikeCount(ctx, p.ID); n != 1 {
		t.Errorf("expected like_count 1, got %d", n)
	}

	liked, err = repo.Toggle(ctx, a.ID, p.ID)
	if err != nil || liked {
		t.Fatalf("second toggle: liked=%v err=%v", liked, err)
	}
	if n := countLikeRows(t, db, p.ID); n != 0 {
		t.Errorf("expected empty relation, got %d rows", n)
	}
	if n, _ := repo.GetLikeCount(ctx, p.ID); n != 0 {
		t.Errorf("expected like_count 0, got %d", n)
	}
}

func TestToggleUnknownPost(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostLikeRepository(db)
	a := testutil.MustUser(t, db, "alice")

	_, err := repo.Toggle(context.Background(), a.ID, 999)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestLikersAndLikedPostIDs(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostLikeRepository(db)
	ctx := context.Background()
	a := testutil.MustUser(t, db, "alice")
	b := testutil.MustUser(t, db, "bob")
	p1 := testutil.MustPost(t, db, a, "one", time.Now())
	p2 := testutil.MustPost(t, db, a, "two", time.Now())

	_, _ = repo.Toggle(ctx, b.ID, p1.ID)
	_, _ = repo.Toggle(ctx, a.ID, p1.ID)

	likers, err := repo.Likers(ctx, p1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(likers) != 2 || likers[0].ID != b.ID {
		t.Errorf("unexpected likers %+v", likers)
	}

	liked, err := repo.LikedPostIDs(ctx, b.ID, []uint64{p1.ID, p2.ID})
	if err != nil {
		t.Fatal(err)
	}
	if !liked[p1.ID] || liked[p2.ID] {
		t.Errorf("unexpected liked map %v", liked)
	}
}

// 多个用户同时点赞同一帖子，计数不能丢
func TestConcurrentTogglesKeepCountConsistent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostLikeRepository(db)
	ctx := context.Background()
	author := testutil.MustUser(t, db, "author")
	p := testutil.MustPost(t, db, author, "popular", time.Now())

	const n = 8
	likers := make([]uint64, n)
	for i := range likers {
		likers[i] = testutil.MustUser(t, db, fmt.Sprintf("fan%d", i)).ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, uid := range likers {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			if _, err := repo.Toggle(ctx, uid, p.ID); err != nil {
				errs <- err
			}
		}(uid)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("toggle failed: %v", err)
	}

	if rows := countLikeRows(t, db, p.ID); rows != n {
		t.Errorf("expected %d like rows, got %d", n, rows)
	}
	if c, _ := repo.GetLikeCount(ctx, p.ID); c != n {
		t.Errorf("expected like_count %d, got %d", n, c)
	}
}

// 同一用户并发切换偶数次，最终回到未点赞且计数为 0
func TestConcurrentTogglesSameUser(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostLikeRepository(db)
	ctx := context.Background()
	a := testutil.MustUser(t, db, "alice")
	p := testutil.MustPost(t, db, a, "hi", time.Now())

	const n = 6
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		likes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			liked, err := repo.Toggle(ctx, a.ID, p.ID)
			if err != nil {
				t.Errorf("toggle failed: %v", err)
				return
			}
			if liked {
				mu.Lock()
				likes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if likes != n/2 {
		t.Errorf("expected %d toggles to report liked, got %d", n/2, likes)
	}
	if ok, _ := repo.IsLiked(ctx, a.ID, p.ID); ok {
		t.Error("post should end up unliked")
	}
	if rows := countLikeRows(t, db, p.ID); rows != 0 {
		t.Errorf("expected no like rows, got %d", rows)
	}
	if c, _ := repo.GetLikeCount(ctx, p.ID); c != 0 {
		t.Errorf("expected like_count 0, got %d", c)
	}
}

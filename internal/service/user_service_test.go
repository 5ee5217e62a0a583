package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"Tweeter/internal/model"
	"Tweeter/internal/repository/mysql"
	"Tweeter/internal/repository/redis"
	"Tweeter/internal/testutil"
)

func newUserService(t *testing.T) (*UserService, *redis.SessionRepository, *fakeImages, *mysql.UserRepository) {
	t.Helper()
	db := testutil.NewDB(t)
	_, rdb := newRedis(t)
	repo := mysql.NewUserRepository(db)
	sessions := redis.NewSessionRepository(rdb)
	images := &fakeImages{}
	return NewUserService(repo, sessions, newTokens(), images), sessions, images, repo
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, repo := newUserService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "Alice@Example.com", "pw"); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Register(ctx, "alice2", "alice@example.com", "pw")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "email" {
		t.Errorf("expected email field error, got %v", err)
	}
	if _, err = repo.FindByUsername(ctx, "alice2"); err == nil {
		t.Error("partial row persisted for rejected registration")
	}

	_, err = svc.Register(ctx, "alice", "other@example.com", "pw")
	if !errors.As(err, &fe) || fe.Field != "username" || !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected username duplicate, got %v", err)
	}
}

func TestRegisterConcurrentSameEmail(t *testing.T) {
	svc, _, _, repo := newUserService(t)
	ctx := context.Background()

	names := []string{"alice", "bob"}
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, name, "same@example.com", "pw-"+name)
		}(i, name)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		failed++
		var fe *FieldError
		if !errors.Is(err, ErrDuplicate) || !errors.As(err, &fe) || fe.Field != "email" {
			t.Errorf("expected email duplicate, got %v", err)
		}
	}
	if failed != 1 {
		t.Fatalf("expected exactly one registration to fail, got %d (%v)", failed, errs)
	}
	if _, err := repo.FindByEmail(ctx, "same@example.com"); err != nil {
		t.Errorf("winner not persisted: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newUserService(t)
	ctx := context.Background()
	cases := []struct {
		name, username, email, password, field string
	}{
		{"empty username", " ", "a@example.com", "pw", "username"},
		{"long username", strings.Repeat("x", 26), "a@example.com", "pw", "username"},
		{"bad email", "alice", "not-an-email", "pw", "email"},
		{"empty password", "alice", "a@example.com", "", "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.username, tc.email, tc.password)
			var fe *FieldError
			if !errors.As(err, &fe) || fe.Field != tc.field || !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected %s invalid, got %v", tc.field, err)
			}
		})
	}
}

func TestLoginRefreshLogout(t *testing.T) {
	svc, sessions, _, _ := newUserService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, "alice", "alice@example.com", "correct horse")
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err = svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: %v", err)
	}
	if _, _, err = svc.Login(ctx, "nobody@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: %v", err)
	}

	pair, user, err := svc.Login(ctx, " ALICE@example.com ", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != u.ID {
		t.Errorf("logged in as %d", user.ID)
	}
	stored, err := sessions.GetUserToken(ctx, u.ID)
	if err != nil || stored != pair.AccessToken {
		t.Errorf("session token = %q, %v", stored, err)
	}

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if stored, _ = sessions.GetUserToken(ctx, u.ID); stored != next.AccessToken {
		t.Error("refresh did not replace the session token")
	}
	if _, err = svc.Refresh(ctx, pair.AccessToken); err == nil {
		t.Error("access token accepted as refresh token")
	}

	if err = svc.Logout(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err = sessions.GetUserToken(ctx, u.ID); !errors.Is(err, redis.ErrTokenNotFound) {
		t.Errorf("after logout: %v", err)
	}
}

func TestUpdatePhoto(t *testing.T) {
	svc, _, images, _ := newUserService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, "alice", "alice@example.com", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if u.ImageFile != model.DefaultImageFile {
		t.Errorf("default image = %q", u.ImageFile)
	}

	if _, err = svc.UpdatePhoto(ctx, u.ID, "evil.gif", strings.NewReader("x"), 1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("gif accepted: %v", err)
	}

	ref, err := svc.UpdatePhoto(ctx, u.ID, "../../Me Smiling.JPG", strings.NewReader("jpeg-bytes"), 10)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ref, "profile_pics/") || strings.Contains(ref, "..") || !strings.HasSuffix(ref, "Me_Smiling.JPG") {
		t.Errorf("unexpected image ref %q", ref)
	}
	if string(images.saved[ref]) != "jpeg-bytes" {
		t.Errorf("stored bytes = %q", images.saved[ref])
	}
	profile, err := svc.Profile(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if profile.ImageFile != ref {
		t.Errorf("profile image = %q, want %q", profile.ImageFile, ref)
	}

	if _, err = svc.UpdatePhoto(ctx, 999, "a.png", strings.NewReader("x"), 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, sessions, _, _ := newUserService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, "alice", "alice@example.com", "old")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err = svc.Login(ctx, "alice@example.com", "old"); err != nil {
		t.Fatal(err)
	}

	if err = svc.ChangePassword(ctx, u.ID, "nope", "new"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong old password: %v", err)
	}
	if err = svc.ChangePassword(ctx, u.ID, "old", "new"); err != nil {
		t.Fatal(err)
	}
	if _, err = sessions.GetUserToken(ctx, u.ID); !errors.Is(err, redis.ErrTokenNotFound) {
		t.Error("session survived password change")
	}
	if _, _, err = svc.Login(ctx, "alice@example.com", "new"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

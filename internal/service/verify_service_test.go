package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"Tweeter/internal/repository/mysql"
	"Tweeter/internal/repository/redis"
	"Tweeter/internal/testutil"
)

var codeInMail = regexp.MustCompile(`<b[^>]*>(\d{6})</b>`)

func TestSendCodeAndVerify(t *testing.T) {
	db := testutil.NewDB(t)
	_, rdb := newRedis(t)
	ctx := context.Background()
	users := mysql.NewUserRepository(db)
	mailer := &fakeMailer{}
	svc := NewVerifyService(users, redis.NewEmailRepository(rdb), mailer, 5*time.Minute)
	u := testutil.MustUser(t, db, "alice")

	if err := svc.Verify(ctx, u.ID, "123456"); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("verify without code: %v", err)
	}
	if err := svc.SendCode(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "alice@example.com" {
		t.Fatalf("mails = %+v", mailer.sent)
	}
	m := codeInMail.FindStringSubmatch(mailer.sent[0].body)
	if m == nil {
		t.Fatalf("no code in mail body %q", mailer.sent[0].body)
	}
	code := m[1]

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	if err := svc.Verify(ctx, u.ID, wrong); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("wrong code: %v", err)
	}
	if err := svc.Verify(ctx, u.ID, code); err != nil {
		t.Fatal(err)
	}
	got, _ := users.FindByID(ctx, u.ID)
	if !got.Verified {
		t.Error("user not marked verified")
	}
	if err := svc.SendCode(ctx, u.ID); !errors.Is(err, ErrAlreadyVerified) {
		t.Errorf("send to verified user: %v", err)
	}
}

func TestSendCodeMailFailureLeavesNoCode(t *testing.T) {
	db := testutil.NewDB(t)
	mr, rdb := newRedis(t)
	ctx := context.Background()
	mailer := &fakeMailer{err: errors.New("smtp down")}
	svc := NewVerifyService(mysql.NewUserRepository(db), redis.NewEmailRepository(rdb), mailer, 5*time.Minute)
	u := testutil.MustUser(t, db, "alice")

	if err := svc.SendCode(ctx, u.ID); err == nil {
		t.Fatal("expected mail error")
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("leftover keys %v", keys)
	}
	if err := svc.SendCode(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: %v", err)
	}
}

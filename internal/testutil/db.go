// Package testutil 测试用的内存数据库
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Tweeter/internal/model"
)

// NewDB 每个测试一个独立的 sqlite 内存库，已完成迁移
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// 单连接：事务之间串行，也保证内存库不会被提前释放
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err = db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// MustUser 直接写库创建用户
func MustUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "x",
		ImageFile: model.DefaultImageFile,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// MustPost 以指定时间创建帖子
func MustPost(t *testing.T, db *gorm.DB, author *model.User, content string, at time.Time) *model.Post {
	t.Helper()
	p := &model.Post{UserID: author.ID, Content: content, CreatedAt: at}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create post %q: %v", content, err)
	}
	return p
}

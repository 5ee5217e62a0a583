package model

import "time"

const (
	FollowInactive int8 = 0
	FollowActive   int8 = 1
)

// Follow 每个 (follower, followed) 只有一行，Status 标记当前是否关注
type Follow struct {
	ID         uint64 `gorm:"primaryKey"`
	FollowerID uint64 `gorm:"not null;uniqueIndex:uk_follower_followed;index:idx_follower_id"`
	FollowedID uint64 `gorm:"not null;uniqueIndex:uk_follower_followed;index:idx_followed_id"`
	Status     int8   `gorm:"not null;default:1;comment:'1=follow,0=unfollow'"`
	Follower   *User  `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followed   *User  `gorm:"foreignKey:FollowedID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName sets table name for Follow
func (Follow) TableName() string {
	return "follow"
}

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

// SocialOutbox 关注事件 outbox 表
type SocialOutbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:16;not null"` // follow / unfollow
	Follower  uint64 `gorm:"not null"`
	Followed  uint64 `gorm:"not null"`
	Payload   string `gorm:"type:text;not null"`
	Status    int8   `gorm:"not null;default:0;index;comment:'0=pending,1=sent,2=failed'"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SocialOutbox) TableName() string { return "social_outbox" }

// All 需要自动迁移的模型
func All() []any {
	return []any{&User{}, &Post{}, &PostLike{}, &Follow{}, &SocialOutbox{}}
}

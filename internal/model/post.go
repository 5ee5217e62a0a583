package model

import "time"

const (
	PostMinLen = 1
	PostMaxLen = 280
)

// Post 创建后不可修改
type Post struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	UserID    uint64    `gorm:"not null;index:idx_author_time,priority:1" json:"user_id"`
	Author    *User     `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"author,omitempty"`
	Content   string    `gorm:"size:280;not null" json:"content"`
	LikeCount int64     `gorm:"not null;default:0" json:"like_count"`
	CreatedAt time.Time `gorm:"index:idx_author_time,priority:2" json:"created_at"`
}

package model

import "time"

// PostLike (user_id, post_id) 唯一
type PostLike struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    uint64 `gorm:"not null;uniqueIndex:uk_user_post"`
	PostID    uint64 `gorm:"not null;uniqueIndex:uk_user_post;index"`
	User      *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Post      *Post  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (PostLike) TableName() string {
	return "post_likes"
}

package model

import "time"

const DefaultImageFile = "default.jpg"

type User struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;size:25;not null" json:"username"`
	Email          string    `gorm:"uniqueIndex;size:120;not null" json:"email"`
	Password       string    `gorm:"size:255;not null" json:"-"`
	ImageFile      string    `gorm:"size:255;not null;default:default.jpg" json:"image_file"`
	Verified       bool      `gorm:"not null;default:false" json:"verified"`
	FollowerCount  int64     `gorm:"not null;default:0" json:"follower_count"`
	FollowingCount int64     `gorm:"not null;default:0" json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"-"`
}

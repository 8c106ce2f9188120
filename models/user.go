package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a channel owner. The counter columns are derived caches; they are
// only written by the recount queries in the user repository.
type User struct {
	ID                 string    `gorm:"type:char(36);primaryKey" json:"id"`
	Username           string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Email              string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName           string    `gorm:"type:varchar(100)" json:"full_name"`
	Avatar             string    `gorm:"type:varchar(500)" json:"avatar"`
	CoverImage         string    `gorm:"type:varchar(500)" json:"cover_image"`
	Role               string    `gorm:"type:varchar(10);default:user" json:"role"`
	SubscriberCount    int64     `gorm:"default:0" json:"subscriber_count"`
	SubscriptionsCount int64     `gorm:"default:0" json:"subscriptions_count"`
	VideoCount         int64     `gorm:"default:0" json:"video_count"`
	TotalViews         int64     `gorm:"default:0" json:"total_views"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

package models

import (
	"time"

	"gorm.io/gorm"
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

type Subscription struct {
	ID           string             `gorm:"type:char(36);primaryKey" json:"id"`
	SubscriberID string             `gorm:"type:char(36);not null;uniqueIndex:idx_subscriber_channel" json:"subscriber_id"`
	ChannelID    string             `gorm:"type:char(36);not null;uniqueIndex:idx_subscriber_channel;index:idx_channel_status" json:"channel_id"`
	Status       SubscriptionStatus `gorm:"type:varchar(10);not null;default:active;index:idx_channel_status" json:"status"`
	CancelledAt  *time.Time         `gorm:"index" json:"cancelled_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

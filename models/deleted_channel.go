package models

import (
	"time"

	"gorm.io/gorm"
)

// ChannelStats is frozen at deletion time and never recomputed.
type ChannelStats struct {
	SubscriberCount int64 `gorm:"default:0" json:"subscriber_count"`
	VideoCount      int64 `gorm:"default:0" json:"video_count"`
	TotalViews      int64 `gorm:"default:0" json:"total_views"`
	TotalLikes      int64 `gorm:"default:0" json:"total_likes"`
	TotalComments   int64 `gorm:"default:0" json:"total_comments"`
}

// DeletedChannel is the tombstone of a deleted user. It can be consumed once
// by a recovery before RecoveryDeadline.
type DeletedChannel struct {
	ID               string         `gorm:"type:char(36);primaryKey" json:"id"`
	OriginalUserID   string         `gorm:"type:char(36);uniqueIndex;not null" json:"original_user_id"`
	Username         string         `gorm:"type:varchar(50);not null" json:"username"`
	FullName         string         `gorm:"type:varchar(100)" json:"full_name"`
	Email            string         `gorm:"type:varchar(255);not null" json:"email"`
	Avatar           string         `gorm:"type:varchar(500)" json:"avatar"`
	Stats            ChannelStats   `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	DeletionReason   DeletionReason `gorm:"type:varchar(20);not null;index" json:"deletion_reason"`
	DeletedBy        *string        `gorm:"type:char(36)" json:"deleted_by,omitempty"`
	DeletedAt        time.Time      `gorm:"not null;index" json:"deleted_at"`
	RecoveryDeadline time.Time      `gorm:"not null;index:idx_recoverable_deadline,priority:2" json:"recovery_deadline"`
	IsRecoverable    bool           `gorm:"not null;index:idx_recoverable_deadline,priority:1" json:"is_recoverable"`
	DataRetention    DataRetention  `gorm:"embedded;embeddedPrefix:retention_" json:"data_retention"`
	RecoveredAt      *time.Time     `json:"recovered_at,omitempty"`
	RecoveredUserID  *string        `gorm:"type:char(36)" json:"recovered_user_id,omitempty"`
}

func (d *DeletedChannel) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// RecoverableAt reports whether a recovery attempted at now would pass both gates.
func (d DeletedChannel) RecoverableAt(now time.Time) bool {
	return d.IsRecoverable && !now.After(d.RecoveryDeadline)
}

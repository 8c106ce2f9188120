package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ArchivedReasonChannelDeleted = "channel_deleted"
	ArchivedReasonVideoDeleted   = "video_deleted"
)

// WatchHistoryMetadata marks records whose video or viewer came from a
// deleted channel and keeps what is needed to re-link them.
type WatchHistoryMetadata struct {
	DeletedChannel    bool    `gorm:"default:false;index" json:"deleted_channel"`
	OriginalVideoID   *string `gorm:"type:char(36)" json:"original_video_id,omitempty"`
	OriginalUserID    *string `gorm:"type:char(36);index" json:"original_user_id,omitempty"`
	OriginalChannelID *string `gorm:"type:char(36);index" json:"original_channel_id,omitempty"`
}

type WatchHistory struct {
	ID             string               `gorm:"type:char(36);primaryKey" json:"id"`
	UserID         *string              `gorm:"type:char(36);uniqueIndex:idx_user_video" json:"user_id"`
	VideoID        *string              `gorm:"type:char(36);uniqueIndex:idx_user_video;index" json:"video_id"`
	Progress       float64              `gorm:"default:0" json:"progress"`
	Duration       float64              `gorm:"default:0" json:"duration"`
	Completed      bool                 `gorm:"default:false" json:"completed"`
	WatchCount     int                  `gorm:"default:1" json:"watch_count"`
	LastWatchedAt  time.Time            `gorm:"index" json:"last_watched_at"`
	Archived       bool                 `gorm:"default:false;index" json:"archived"`
	ArchivedAt     *time.Time           `json:"archived_at,omitempty"`
	ArchivedReason string               `gorm:"type:varchar(20)" json:"archived_reason,omitempty"`
	Metadata       WatchHistoryMetadata `gorm:"embedded;embeddedPrefix:metadata_" json:"metadata"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func (WatchHistory) TableName() string {
	return "watch_history"
}

func (w *WatchHistory) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// ProgressPercent is progress over duration, clamped to [0, 100].
func (w WatchHistory) ProgressPercent() float64 {
	if w.Duration <= 0 {
		return 0
	}
	pct := w.Progress / w.Duration * 100
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

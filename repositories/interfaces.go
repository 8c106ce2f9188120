package repositories

import (
	"context"
	"time"

	"tweetube/models"

	"gorm.io/gorm"
)

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, userID string) (models.User, error)
	CountByUsernameOrEmail(ctx context.Context, tx *gorm.DB, username string, email string) (int64, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, userID string) (int64, error)
	RecountSubscriptions(ctx context.Context, tx *gorm.DB, userIDs []string) error
	RecountSubscribers(ctx context.Context, tx *gorm.DB, channelIDs []string) error
	RecountContent(ctx context.Context, tx *gorm.DB, userID string) error
}

type VideoRepository interface {
	ListIDsByOwner(ctx context.Context, tx *gorm.DB, ownerID string) ([]string, error)
	CountByOwner(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error)
	SumViewsByOwner(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error)
	ListExistingIDs(ctx context.Context, tx *gorm.DB, videoIDs []string) ([]string, error)
	DeleteByOwner(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error)
	ArchiveByOwner(ctx context.Context, tx *gorm.DB, ownerID string, token string) (int64, error)
	AnonymizeByOwner(ctx context.Context, tx *gorm.DB, ownerID string, displayName string) (int64, error)
}

type CommentRepository interface {
	ListIDsByOwner(ctx context.Context, tx *gorm.DB, ownerID string) ([]string, error)
	CountByVideoIDs(ctx context.Context, tx *gorm.DB, videoIDs []string) (int64, error)
	DeleteByOwner(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error)
	ArchiveByOwner(ctx context.Context, tx *gorm.DB, ownerID string, token string) (int64, error)
	AnonymizeByOwner(ctx context.Context, tx *gorm.DB, ownerID string, displayName string) (int64, error)
}

type TweetRepository interface {
	ListIDsByOwner(ctx context.Context, tx *gorm.DB, ownerID string) ([]string, error)
	DeleteByOwner(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error)
}

type PlaylistRepository interface {
	ListIDsByOwner(ctx context.Context, tx *gorm.DB, ownerID string) ([]string, error)
	DeleteByOwner(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error)
}

type SubscriptionRepository interface {
	CountActiveByChannel(ctx context.Context, tx *gorm.DB, channelID string) (int64, error)
	ListActiveByChannel(ctx context.Context, tx *gorm.DB, channelID string, limit int) ([]models.Subscription, error)
	ListActiveBySubscriber(ctx context.Context, tx *gorm.DB, subscriberID string, limit int) ([]models.Subscription, error)
	CancelByIDs(ctx context.Context, tx *gorm.DB, subscriptionIDs []string, at time.Time) (int64, error)
	PurgeCancelledBefore(ctx context.Context, tx *gorm.DB, before time.Time) (int64, error)
}

type EngagementRepository interface {
	CountOnContent(ctx context.Context, tx *gorm.DB, refs []models.ContentRef, engagementType models.EngagementType) (int64, error)
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error)
	DeleteOnContent(ctx context.Context, tx *gorm.DB, refs []models.ContentRef) (int64, error)
}

type WatchHistoryListInput struct {
	UserID          string
	IncludeArchived bool
	Offset          int
	Limit           int
}

type WatchHistoryStats struct {
	TotalVideos        int64   `json:"total_videos"`
	CompletedVideos    int64   `json:"completed_videos"`
	TotalWatchSeconds  float64 `json:"total_watch_seconds"`
	AvgProgressPercent float64 `json:"avg_progress_percent"`
	ArchivedCount      int64   `json:"archived_count"`
}

type WatchHistoryRepository interface {
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error)
	DeleteByVideoIDs(ctx context.Context, tx *gorm.DB, videoIDs []string) (int64, error)
	AnonymizeByUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error)
	AnonymizeByVideoIDs(ctx context.Context, tx *gorm.DB, videoIDs []string) (int64, error)
	ArchiveByUser(ctx context.Context, tx *gorm.DB, userID string, at time.Time) (int64, error)
	ArchiveByVideoIDs(ctx context.Context, tx *gorm.DB, channelID string, videoIDs []string, at time.Time) (int64, error)

	ListByUser(ctx context.Context, tx *gorm.DB, in WatchHistoryListInput) ([]models.WatchHistory, error)
	CountByUser(ctx context.Context, tx *gorm.DB, userID string, includeArchived bool) (int64, error)
	StatsByUser(ctx context.Context, tx *gorm.DB, userID string) (WatchHistoryStats, error)
	DeleteActiveByUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error)
	ListOrphaned(ctx context.Context, tx *gorm.DB, limit int) ([]models.WatchHistory, error)
	ArchiveOrphaned(ctx context.Context, tx *gorm.DB, historyIDs []string, at time.Time) (int64, error)
	ListArchivedForChannel(ctx context.Context, tx *gorm.DB, originalUserID string) ([]models.WatchHistory, error)
	ExistsForUserVideo(ctx context.Context, tx *gorm.DB, userID string, videoID string) (bool, error)
	Restore(ctx context.Context, tx *gorm.DB, historyID string, userID *string, videoID *string) error
}

type DeletedChannelListInput struct {
	RecoverableOnly bool
	Offset          int
	Limit           int
}

type DeletionStatistics struct {
	Total       int64                           `json:"total"`
	Recoverable int64                           `json:"recoverable"`
	Recovered   int64                           `json:"recovered"`
	Expired     int64                           `json:"expired"`
	ByReason    map[models.DeletionReason]int64 `json:"by_reason"`
}

type DeletedChannelRepository interface {
	Create(ctx context.Context, tx *gorm.DB, tombstone *models.DeletedChannel) error
	GetByID(ctx context.Context, tx *gorm.DB, tombstoneID string) (models.DeletedChannel, error)
	Count(ctx context.Context, tx *gorm.DB, recoverableOnly bool) (int64, error)
	List(ctx context.Context, tx *gorm.DB, in DeletedChannelListInput) ([]models.DeletedChannel, error)
	MarkRecovered(ctx context.Context, tx *gorm.DB, tombstoneID string, newUserID string, at time.Time) (int64, error)
	ExpireOverdue(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
	DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
	Statistics(ctx context.Context, tx *gorm.DB, now time.Time) (DeletionStatistics, error)
}

// ChannelLock serializes work on one channel across processes. The returned
// release func is safe to call once the lock has expired.
type ChannelLock interface {
	Acquire(ctx context.Context, channelID string, ttl time.Duration) (release func(context.Context) error, err error)
}

// StatisticsCache holds the last computed DeletionStatistics. A miss is
// reported as (nil, nil).
type StatisticsCache interface {
	Get(ctx context.Context) (*DeletionStatistics, error)
	Set(ctx context.Context, stats DeletionStatistics, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type Container struct {
	TxManager       TxManager
	Users           UserRepository
	Videos          VideoRepository
	Comments        CommentRepository
	Tweets          TweetRepository
	Playlists       PlaylistRepository
	Subscriptions   SubscriptionRepository
	Engagements     EngagementRepository
	WatchHistory    WatchHistoryRepository
	DeletedChannels DeletedChannelRepository
	ChannelLock     ChannelLock
	StatisticsCache StatisticsCache
}

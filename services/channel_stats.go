package services

import (
	"context"
	"fmt"

	"tweetube/models"
	"tweetube/repositories"

	"gorm.io/gorm"
)

// channelStatsCollector computes the snapshot frozen on the tombstone. It must
// run before any retention step touches the source tables.
type channelStatsCollector struct {
	subscriptions repositories.SubscriptionRepository
	videos        repositories.VideoRepository
	comments      repositories.CommentRepository
	engagements   repositories.EngagementRepository
}

func (c channelStatsCollector) Capture(ctx context.Context, tx *gorm.DB, userID string, owned models.OwnedContent) (models.ChannelStats, error) {
	var stats models.ChannelStats
	var err error

	if stats.SubscriberCount, err = c.subscriptions.CountActiveByChannel(ctx, tx, userID); err != nil {
		return stats, fmt.Errorf("count subscribers: %w", err)
	}
	if stats.VideoCount, err = c.videos.CountByOwner(ctx, tx, userID); err != nil {
		return stats, fmt.Errorf("count videos: %w", err)
	}
	if stats.TotalViews, err = c.videos.SumViewsByOwner(ctx, tx, userID); err != nil {
		return stats, fmt.Errorf("sum views: %w", err)
	}

	videoRefs := make([]models.ContentRef, 0, len(owned.VideoIDs))
	for _, id := range owned.VideoIDs {
		videoRefs = append(videoRefs, models.VideoRef(id))
	}
	if stats.TotalLikes, err = c.engagements.CountOnContent(ctx, tx, videoRefs, models.EngagementLike); err != nil {
		return stats, fmt.Errorf("count likes: %w", err)
	}
	if stats.TotalComments, err = c.comments.CountByVideoIDs(ctx, tx, owned.VideoIDs); err != nil {
		return stats, fmt.Errorf("count comments: %w", err)
	}
	return stats, nil
}

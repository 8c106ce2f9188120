package services

import (
	"context"
	"fmt"

	"tweetube/models"
	"tweetube/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	anonymizedChannelName = "Deleted Channel"
	anonymizedAuthorName  = "Deleted User"
)

type contentRetention struct {
	videos      repositories.VideoRepository
	comments    repositories.CommentRepository
	tweets      repositories.TweetRepository
	playlists   repositories.PlaylistRepository
	engagements repositories.EngagementRepository
	newToken    func() string
}

func newContentRetention(repos repositories.Container) contentRetention {
	return contentRetention{
		videos:      repos.Videos,
		comments:    repos.Comments,
		tweets:      repos.Tweets,
		playlists:   repos.Playlists,
		engagements: repos.Engagements,
		newToken:    uuid.NewString,
	}
}

func (p contentRetention) HandleVideos(ctx context.Context, tx *gorm.DB, ownerID string, policy models.RetentionPolicy) (int64, error) {
	switch policy {
	case models.RetentionDeleted:
		return p.videos.DeleteByOwner(ctx, tx, ownerID)
	case models.RetentionArchived:
		return p.videos.ArchiveByOwner(ctx, tx, ownerID, p.newToken())
	case models.RetentionAnonymized:
		return p.videos.AnonymizeByOwner(ctx, tx, ownerID, anonymizedChannelName)
	}
	return 0, fmt.Errorf("unsupported video retention %q", policy)
}

func (p contentRetention) HandleComments(ctx context.Context, tx *gorm.DB, ownerID string, policy models.RetentionPolicy) (int64, error) {
	switch policy {
	case models.RetentionDeleted:
		return p.comments.DeleteByOwner(ctx, tx, ownerID)
	case models.RetentionArchived:
		return p.comments.ArchiveByOwner(ctx, tx, ownerID, p.newToken())
	case models.RetentionAnonymized:
		return p.comments.AnonymizeByOwner(ctx, tx, ownerID, anonymizedAuthorName)
	}
	return 0, fmt.Errorf("unsupported comment retention %q", policy)
}

// HandlePlaylists and HandleTweets always hard-delete; neither class has a
// retention setting.
func (p contentRetention) HandlePlaylists(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error) {
	return p.playlists.DeleteByOwner(ctx, tx, ownerID)
}

func (p contentRetention) HandleTweets(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error) {
	return p.tweets.DeleteByOwner(ctx, tx, ownerID)
}

// HandleEngagements removes the user's own reactions and every reaction on
// content the user owned.
func (p contentRetention) HandleEngagements(ctx context.Context, tx *gorm.DB, userID string, owned models.OwnedContent) (int64, error) {
	own, err := p.engagements.DeleteByUser(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	onContent, err := p.engagements.DeleteOnContent(ctx, tx, owned.Refs())
	if err != nil {
		return own, err
	}
	return own + onContent, nil
}

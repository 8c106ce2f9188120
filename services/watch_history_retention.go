package services

import (
	"context"
	"fmt"
	"time"

	"tweetube/models"
	"tweetube/repositories"

	"gorm.io/gorm"
)

// watchHistoryRetention applies one policy to both axes: records the user
// watched (A) and records of other viewers on the user's videos (B).
type watchHistoryRetention struct {
	history repositories.WatchHistoryRepository
	now     func() time.Time
}

func (p watchHistoryRetention) HandleWatchHistory(ctx context.Context, tx *gorm.DB, userID string, ownedVideoIDs []string, policy models.RetentionPolicy) (int64, error) {
	var viewer, video int64
	var err error

	switch policy {
	case models.RetentionDeleted:
		if viewer, err = p.history.DeleteByUser(ctx, tx, userID); err != nil {
			return 0, err
		}
		video, err = p.history.DeleteByVideoIDs(ctx, tx, ownedVideoIDs)
	case models.RetentionAnonymized:
		if viewer, err = p.history.AnonymizeByUser(ctx, tx, userID); err != nil {
			return 0, err
		}
		video, err = p.history.AnonymizeByVideoIDs(ctx, tx, ownedVideoIDs)
	case models.RetentionArchived:
		at := p.now()
		if viewer, err = p.history.ArchiveByUser(ctx, tx, userID, at); err != nil {
			return 0, err
		}
		video, err = p.history.ArchiveByVideoIDs(ctx, tx, userID, ownedVideoIDs, at)
	default:
		return 0, fmt.Errorf("unsupported watch history retention %q", policy)
	}
	if err != nil {
		return viewer, err
	}
	return viewer + video, nil
}

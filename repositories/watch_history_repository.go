package repositories

import (
	"context"
	"time"

	"tweetube/models"

	"gorm.io/gorm"
)

type GormWatchHistoryRepository struct {
	db *gorm.DB
}

func NewGormWatchHistoryRepository(db *gorm.DB) *GormWatchHistoryRepository {
	return &GormWatchHistoryRepository{db: db}
}

func (r *GormWatchHistoryRepository) DeleteByUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	result := useTx(ctx, r.db, tx).Where("user_id = ?", userID).Delete(&models.WatchHistory{})
	return result.RowsAffected, result.Error
}

func (r *GormWatchHistoryRepository) DeleteByVideoIDs(ctx context.Context, tx *gorm.DB, videoIDs []string) (int64, error) {
	db := useTx(ctx, r.db, tx)
	var affected int64
	for _, chunk := range chunkIDs(videoIDs, inClauseChunk) {
		result := db.Where("video_id IN ?", chunk).Delete(&models.WatchHistory{})
		if result.Error != nil {
			return affected, result.Error
		}
		affected += result.RowsAffected
	}
	return affected, nil
}

func (r *GormWatchHistoryRepository) AnonymizeByUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	result := useTx(ctx, r.db, tx).Model(&models.WatchHistory{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"user_id":                  nil,
			"metadata_deleted_channel": true,
		})
	return result.RowsAffected, result.Error
}

func (r *GormWatchHistoryRepository) AnonymizeByVideoIDs(ctx context.Context, tx *gorm.DB, videoIDs []string) (int64, error) {
	db := useTx(ctx, r.db, tx)
	var affected int64
	for _, chunk := range chunkIDs(videoIDs, inClauseChunk) {
		result := db.Model(&models.WatchHistory{}).
			Where("video_id IN ?", chunk).
			Updates(map[string]interface{}{
				"video_id":                 nil,
				"metadata_deleted_channel": true,
			})
		if result.Error != nil {
			return affected, result.Error
		}
		affected += result.RowsAffected
	}
	return affected, nil
}

// ArchiveByUser copies the references into metadata first and clears user_id
// in a second statement, so the copy never reads an already-cleared column.
func (r *GormWatchHistoryRepository) ArchiveByUser(ctx context.Context, tx *gorm.DB, userID string, at time.Time) (int64, error) {
	db := useTx(ctx, r.db, tx)
	result := db.Model(&models.WatchHistory{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"archived":                   true,
			"archived_at":                at,
			"archived_reason":            models.ArchivedReasonChannelDeleted,
			"metadata_deleted_channel":   true,
			"metadata_original_user_id":  gorm.Expr("user_id"),
			"metadata_original_video_id": gorm.Expr("video_id"),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if err := db.Model(&models.WatchHistory{}).
		Where("user_id = ?", userID).
		Update("user_id", nil).Error; err != nil {
		return 0, err
	}
	return result.RowsAffected, nil
}

func (r *GormWatchHistoryRepository) ArchiveByVideoIDs(ctx context.Context, tx *gorm.DB, channelID string, videoIDs []string, at time.Time) (int64, error) {
	db := useTx(ctx, r.db, tx)
	var affected int64
	for _, chunk := range chunkIDs(videoIDs, inClauseChunk) {
		result := db.Model(&models.WatchHistory{}).
			Where("video_id IN ?", chunk).
			Updates(map[string]interface{}{
				"archived":                     true,
				"archived_at":                  at,
				"archived_reason":              models.ArchivedReasonChannelDeleted,
				"metadata_deleted_channel":     true,
				"metadata_original_channel_id": channelID,
				"metadata_original_video_id":   gorm.Expr("video_id"),
			})
		if result.Error != nil {
			return affected, result.Error
		}
		affected += result.RowsAffected

		if err := db.Model(&models.WatchHistory{}).
			Where("video_id IN ?", chunk).
			Update("video_id", nil).Error; err != nil {
			return affected, err
		}
	}
	return affected, nil
}

func (r *GormWatchHistoryRepository) scopeUser(db *gorm.DB, userID string, includeArchived bool) *gorm.DB {
	query := db.Model(&models.WatchHistory{}).Where("user_id = ?", userID)
	if !includeArchived {
		query = query.Where("archived = ? AND metadata_deleted_channel = ?", false, false)
	}
	return query
}

func (r *GormWatchHistoryRepository) ListByUser(ctx context.Context, tx *gorm.DB, in WatchHistoryListInput) ([]models.WatchHistory, error) {
	var items []models.WatchHistory
	query := r.scopeUser(useTx(ctx, r.db, tx), in.UserID, in.IncludeArchived).
		Order("last_watched_at DESC")
	if in.Limit > 0 {
		query = query.Offset(in.Offset).Limit(in.Limit)
	}
	err := query.Find(&items).Error
	return items, err
}

func (r *GormWatchHistoryRepository) CountByUser(ctx context.Context, tx *gorm.DB, userID string, includeArchived bool) (int64, error) {
	var count int64
	err := r.scopeUser(useTx(ctx, r.db, tx), userID, includeArchived).Count(&count).Error
	return count, err
}

func (r *GormWatchHistoryRepository) StatsByUser(ctx context.Context, tx *gorm.DB, userID string) (WatchHistoryStats, error) {
	db := useTx(ctx, r.db, tx)
	var stats WatchHistoryStats
	err := r.scopeUser(db, userID, false).
		Select(`COUNT(*) AS total_videos,
			COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS completed_videos,
			COALESCE(SUM(progress), 0) AS total_watch_seconds,
			COALESCE(AVG(CASE WHEN duration <= 0 THEN 0 WHEN progress >= duration THEN 100 ELSE progress / duration * 100 END), 0) AS avg_progress_percent`).
		Scan(&stats).Error
	if err != nil {
		return stats, err
	}
	err = db.Model(&models.WatchHistory{}).
		Where("user_id = ? AND archived = ?", userID, true).
		Count(&stats.ArchivedCount).Error
	return stats, err
}

func (r *GormWatchHistoryRepository) DeleteActiveByUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	result := useTx(ctx, r.db, tx).
		Where("user_id = ? AND archived = ?", userID, false).
		Delete(&models.WatchHistory{})
	return result.RowsAffected, result.Error
}

func (r *GormWatchHistoryRepository) ListOrphaned(ctx context.Context, tx *gorm.DB, limit int) ([]models.WatchHistory, error) {
	var items []models.WatchHistory
	err := useTx(ctx, r.db, tx).
		Where("archived = ? AND video_id IS NOT NULL", false).
		Where("NOT EXISTS (SELECT 1 FROM videos v WHERE v.id = watch_history.video_id)").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *GormWatchHistoryRepository) ArchiveOrphaned(ctx context.Context, tx *gorm.DB, historyIDs []string, at time.Time) (int64, error) {
	db := useTx(ctx, r.db, tx)
	var affected int64
	for _, chunk := range chunkIDs(historyIDs, inClauseChunk) {
		result := db.Model(&models.WatchHistory{}).
			Where("id IN ? AND archived = ?", chunk, false).
			Updates(map[string]interface{}{
				"archived":                   true,
				"archived_at":                at,
				"archived_reason":            models.ArchivedReasonVideoDeleted,
				"metadata_original_video_id": gorm.Expr("video_id"),
			})
		if result.Error != nil {
			return affected, result.Error
		}
		affected += result.RowsAffected
	}
	return affected, nil
}

func (r *GormWatchHistoryRepository) ListArchivedForChannel(ctx context.Context, tx *gorm.DB, originalUserID string) ([]models.WatchHistory, error) {
	var items []models.WatchHistory
	err := useTx(ctx, r.db, tx).
		Where("archived = ? AND archived_reason = ?", true, models.ArchivedReasonChannelDeleted).
		Where("metadata_original_user_id = ? OR metadata_original_channel_id = ?", originalUserID, originalUserID).
		Find(&items).Error
	return items, err
}

func (r *GormWatchHistoryRepository) ExistsForUserVideo(ctx context.Context, tx *gorm.DB, userID string, videoID string) (bool, error) {
	var count int64
	err := useTx(ctx, r.db, tx).Model(&models.WatchHistory{}).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Count(&count).Error
	return count > 0, err
}

// Restore re-links one record and clears every archive marker on it.
func (r *GormWatchHistoryRepository) Restore(ctx context.Context, tx *gorm.DB, historyID string, userID *string, videoID *string) error {
	return useTx(ctx, r.db, tx).Model(&models.WatchHistory{}).
		Where("id = ?", historyID).
		Updates(map[string]interface{}{
			"user_id":                      userID,
			"video_id":                     videoID,
			"archived":                     false,
			"archived_at":                  nil,
			"archived_reason":              "",
			"metadata_deleted_channel":     false,
			"metadata_original_user_id":    nil,
			"metadata_original_video_id":   nil,
			"metadata_original_channel_id": nil,
		}).Error
}

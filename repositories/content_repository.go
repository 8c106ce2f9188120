package repositories

import (
	"context"
	"fmt"

	"tweetube/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArchiveMarker is the title/content written over archived rows. The SQL in
// archiveExpr produces the same string on MySQL and SQLite.
func ArchiveMarker(token string, rowID string) string {
	return fmt.Sprintf("[archived:%s:%s]", token, rowID)
}

func archiveExpr(db *gorm.DB, token string) clause.Expr {
	if db.Dialector != nil && db.Dialector.Name() == "sqlite" {
		return gorm.Expr("'[archived:' || ? || ':' || id || ']'", token)
	}
	return gorm.Expr("CONCAT('[archived:', ?, ':', id, ']')", token)
}

func pluckIDsByOwner(db *gorm.DB, model interface{}, ownerID string) ([]string, error) {
	var ids []string
	err := db.Model(model).Where("owner_id = ?", ownerID).Pluck("id", &ids).Error
	return ids, err
}

type GormVideoRepository struct {
	db *gorm.DB
}

func NewGormVideoRepository(db *gorm.DB) *GormVideoRepository {
	return &GormVideoRepository{db: db}
}

func (r *GormVideoRepository) ListIDsByOwner(ctx context.Context, tx *gorm.DB, ownerID string) ([]string, error) {
	return pluckIDsByOwner(useTx(ctx, r.db, tx), &models.Video{}, ownerID)
}

func (r *GormVideoRepository) CountByOwner(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error) {
	var count int64
	err := useTx(ctx, r.db, tx).Model(&models.Video{}).Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}

func (r *GormVideoRepository) SumViewsByOwner(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error) {
	var total int64
	err := useTx(ctx, r.db, tx).Model(&models.Video{}).
		Where("owner_id = ?", ownerID).
		Select("COALESCE(SUM(views), 0)").
		Scan(&total).Error
	return total, err
}

func (r *GormVideoRepository) ListExistingIDs(ctx context.Context, tx *gorm.DB, videoIDs []string) ([]string, error) {
	db := useTx(ctx, r.db, tx)
	existing := make([]string, 0, len(videoIDs))
	for _, chunk := range chunkIDs(videoIDs, inClauseChunk) {
		var ids []string
		if err := db.Model(&models.Video{}).Where("id IN ?", chunk).Pluck("id", &ids).Error; err != nil {
			return nil, err
		}
		existing = append(existing, ids...)
	}
	return existing, nil
}

func (r *GormVideoRepository) DeleteByOwner(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error) {
	result := useTx(ctx, r.db, tx).Where("owner_id = ?", ownerID).Delete(&models.Video{})
	return result.RowsAffected, result.Error
}

func (r *GormVideoRepository) ArchiveByOwner(ctx context.Context, tx *gorm.DB, ownerID string, token string) (int64, error) {
	db := useTx(ctx, r.db, tx)
	result := db.Model(&models.Video{}).
		Where("owner_id = ?", ownerID).
		Updates(map[string]interface{}{
			"title":        archiveExpr(db, token),
			"description":  "",
			"is_published": false,
			"owner_id":     nil,
		})
	return result.RowsAffected, result.Error
}

func (r *GormVideoRepository) AnonymizeByOwner(ctx context.Context, tx *gorm.DB, ownerID string, displayName string) (int64, error) {
	result := useTx(ctx, r.db, tx).Model(&models.Video{}).
		Where("owner_id = ?", ownerID).
		Updates(map[string]interface{}{
			"channel_name": displayName,
			"owner_id":     nil,
		})
	return result.RowsAffected, result.Error
}

type GormCommentRepository struct {
	db *gorm.DB
}

func NewGormCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) ListIDsByOwner(ctx context.Context, tx *gorm.DB, ownerID string) ([]string, error) {
	return pluckIDsByOwner(useTx(ctx, r.db, tx), &models.Comment{}, ownerID)
}

func (r *GormCommentRepository) CountByVideoIDs(ctx context.Context, tx *gorm.DB, videoIDs []string) (int64, error) {
	db := useTx(ctx, r.db, tx)
	var total int64
	for _, chunk := range chunkIDs(videoIDs, inClauseChunk) {
		var count int64
		if err := db.Model(&models.Comment{}).Where("video_id IN ?", chunk).Count(&count).Error; err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

func (r *GormCommentRepository) DeleteByOwner(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error) {
	result := useTx(ctx, r.db, tx).Where("owner_id = ?", ownerID).Delete(&models.Comment{})
	return result.RowsAffected, result.Error
}

func (r *GormCommentRepository) ArchiveByOwner(ctx context.Context, tx *gorm.DB, ownerID string, token string) (int64, error) {
	db := useTx(ctx, r.db, tx)
	result := db.Model(&models.Comment{}).
		Where("owner_id = ?", ownerID).
		Updates(map[string]interface{}{
			"content":  archiveExpr(db, token),
			"hidden":   true,
			"owner_id": nil,
		})
	return result.RowsAffected, result.Error
}

func (r *GormCommentRepository) AnonymizeByOwner(ctx context.Context, tx *gorm.DB, ownerID string, displayName string) (int64, error) {
	result := useTx(ctx, r.db, tx).Model(&models.Comment{}).
		Where("owner_id = ?", ownerID).
		Updates(map[string]interface{}{
			"author_name": displayName,
			"owner_id":    nil,
		})
	return result.RowsAffected, result.Error
}

type GormTweetRepository struct {
	db *gorm.DB
}

func NewGormTweetRepository(db *gorm.DB) *GormTweetRepository {
	return &GormTweetRepository{db: db}
}

func (r *GormTweetRepository) ListIDsByOwner(ctx context.Context, tx *gorm.DB, ownerID string) ([]string, error) {
	return pluckIDsByOwner(useTx(ctx, r.db, tx), &models.Tweet{}, ownerID)
}

func (r *GormTweetRepository) DeleteByOwner(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error) {
	result := useTx(ctx, r.db, tx).Where("owner_id = ?", ownerID).Delete(&models.Tweet{})
	return result.RowsAffected, result.Error
}

type GormPlaylistRepository struct {
	db *gorm.DB
}

func NewGormPlaylistRepository(db *gorm.DB) *GormPlaylistRepository {
	return &GormPlaylistRepository{db: db}
}

func (r *GormPlaylistRepository) ListIDsByOwner(ctx context.Context, tx *gorm.DB, ownerID string) ([]string, error) {
	return pluckIDsByOwner(useTx(ctx, r.db, tx), &models.Playlist{}, ownerID)
}

func (r *GormPlaylistRepository) DeleteByOwner(ctx context.Context, tx *gorm.DB, ownerID string) (int64, error) {
	result := useTx(ctx, r.db, tx).Where("owner_id = ?", ownerID).Delete(&models.Playlist{})
	return result.RowsAffected, result.Error
}

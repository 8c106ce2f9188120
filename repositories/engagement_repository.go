package repositories

import (
	"context"

	"tweetube/models"

	"gorm.io/gorm"
)

type GormEngagementRepository struct {
	db *gorm.DB
}

func NewGormEngagementRepository(db *gorm.DB) *GormEngagementRepository {
	return &GormEngagementRepository{db: db}
}

// CountOnContent counts engagements of one kind on the referenced rows. The
// content_type filter keeps ids from different tables apart.
func (r *GormEngagementRepository) CountOnContent(ctx context.Context, tx *gorm.DB, refs []models.ContentRef, engagementType models.EngagementType) (int64, error) {
	db := useTx(ctx, r.db, tx)
	var total int64
	for contentType, ids := range models.GroupRefs(refs) {
		for _, chunk := range chunkIDs(ids, inClauseChunk) {
			var count int64
			err := db.Model(&models.Engagement{}).
				Where("content_type = ? AND content_id IN ? AND engagement_type = ?", contentType, chunk, engagementType).
				Count(&count).Error
			if err != nil {
				return 0, err
			}
			total += count
		}
	}
	return total, nil
}

func (r *GormEngagementRepository) DeleteByUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	result := useTx(ctx, r.db, tx).Where("user_id = ?", userID).Delete(&models.Engagement{})
	return result.RowsAffected, result.Error
}

func (r *GormEngagementRepository) DeleteOnContent(ctx context.Context, tx *gorm.DB, refs []models.ContentRef) (int64, error) {
	db := useTx(ctx, r.db, tx)
	var affected int64
	for contentType, ids := range models.GroupRefs(refs) {
		for _, chunk := range chunkIDs(ids, inClauseChunk) {
			result := db.Where("content_type = ? AND content_id IN ?", contentType, chunk).Delete(&models.Engagement{})
			if result.Error != nil {
				return affected, result.Error
			}
			affected += result.RowsAffected
		}
	}
	return affected, nil
}

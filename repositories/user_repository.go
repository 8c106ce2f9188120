package repositories

import (
	"context"

	"tweetube/models"

	"gorm.io/gorm"
)

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	return useTx(ctx, r.db, tx).Create(user).Error
}

func (r *GormUserRepository) GetByID(ctx context.Context, tx *gorm.DB, userID string) (models.User, error) {
	var user models.User
	err := useTx(ctx, r.db, tx).Where("id = ?", userID).First(&user).Error
	return user, err
}

func (r *GormUserRepository) CountByUsernameOrEmail(ctx context.Context, tx *gorm.DB, username string, email string) (int64, error) {
	var count int64
	err := useTx(ctx, r.db, tx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count, err
}

func (r *GormUserRepository) DeleteByID(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	result := useTx(ctx, r.db, tx).Where("id = ?", userID).Delete(&models.User{})
	return result.RowsAffected, result.Error
}

// RecountSubscriptions rewrites subscriptions_count from the active rows in one
// correlated update per chunk.
func (r *GormUserRepository) RecountSubscriptions(ctx context.Context, tx *gorm.DB, userIDs []string) error {
	db := useTx(ctx, r.db, tx)
	for _, chunk := range chunkIDs(userIDs, inClauseChunk) {
		err := db.Model(&models.User{}).
			Where("id IN ?", chunk).
			UpdateColumn("subscriptions_count", gorm.Expr(
				"(SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = users.id AND s.status = ?)",
				models.SubscriptionActive,
			)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *GormUserRepository) RecountSubscribers(ctx context.Context, tx *gorm.DB, channelIDs []string) error {
	db := useTx(ctx, r.db, tx)
	for _, chunk := range chunkIDs(channelIDs, inClauseChunk) {
		err := db.Model(&models.User{}).
			Where("id IN ?", chunk).
			UpdateColumn("subscriber_count", gorm.Expr(
				"(SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = users.id AND s.status = ?)",
				models.SubscriptionActive,
			)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *GormUserRepository) RecountContent(ctx context.Context, tx *gorm.DB, userID string) error {
	return useTx(ctx, r.db, tx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"video_count": gorm.Expr("(SELECT COUNT(*) FROM videos v WHERE v.owner_id = users.id)"),
			"total_views": gorm.Expr("(SELECT COALESCE(SUM(v.views), 0) FROM videos v WHERE v.owner_id = users.id)"),
		}).Error
}

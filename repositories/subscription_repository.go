package repositories

import (
	"context"
	"time"

	"tweetube/models"

	"gorm.io/gorm"
)

type GormSubscriptionRepository struct {
	db *gorm.DB
}

func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

func (r *GormSubscriptionRepository) CountActiveByChannel(ctx context.Context, tx *gorm.DB, channelID string) (int64, error) {
	var count int64
	err := useTx(ctx, r.db, tx).Model(&models.Subscription{}).
		Where("channel_id = ? AND status = ?", channelID, models.SubscriptionActive).
		Count(&count).Error
	return count, err
}

// ListActiveByChannel returns at most limit active edges. Callers cancel what
// they get and call again until the result is empty.
func (r *GormSubscriptionRepository) ListActiveByChannel(ctx context.Context, tx *gorm.DB, channelID string, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := useTx(ctx, r.db, tx).
		Where("channel_id = ? AND status = ?", channelID, models.SubscriptionActive).
		Order("id ASC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

func (r *GormSubscriptionRepository) ListActiveBySubscriber(ctx context.Context, tx *gorm.DB, subscriberID string, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := useTx(ctx, r.db, tx).
		Where("subscriber_id = ? AND status = ?", subscriberID, models.SubscriptionActive).
		Order("id ASC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

func (r *GormSubscriptionRepository) CancelByIDs(ctx context.Context, tx *gorm.DB, subscriptionIDs []string, at time.Time) (int64, error) {
	db := useTx(ctx, r.db, tx)
	var affected int64
	for _, chunk := range chunkIDs(subscriptionIDs, inClauseChunk) {
		result := db.Model(&models.Subscription{}).
			Where("id IN ? AND status = ?", chunk, models.SubscriptionActive).
			Updates(map[string]interface{}{
				"status":       models.SubscriptionCancelled,
				"cancelled_at": at,
			})
		if result.Error != nil {
			return affected, result.Error
		}
		affected += result.RowsAffected
	}
	return affected, nil
}

func (r *GormSubscriptionRepository) PurgeCancelledBefore(ctx context.Context, tx *gorm.DB, before time.Time) (int64, error) {
	result := useTx(ctx, r.db, tx).
		Where("status = ? AND cancelled_at < ?", models.SubscriptionCancelled, before).
		Delete(&models.Subscription{})
	return result.RowsAffected, result.Error
}

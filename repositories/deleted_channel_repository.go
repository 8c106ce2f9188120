package repositories

import (
	"context"
	"time"

	"tweetube/models"

	"gorm.io/gorm"
)

type GormDeletedChannelRepository struct {
	db *gorm.DB
}

func NewGormDeletedChannelRepository(db *gorm.DB) *GormDeletedChannelRepository {
	return &GormDeletedChannelRepository{db: db}
}

func (r *GormDeletedChannelRepository) Create(ctx context.Context, tx *gorm.DB, tombstone *models.DeletedChannel) error {
	return useTx(ctx, r.db, tx).Create(tombstone).Error
}

func (r *GormDeletedChannelRepository) GetByID(ctx context.Context, tx *gorm.DB, tombstoneID string) (models.DeletedChannel, error) {
	var tombstone models.DeletedChannel
	err := useTx(ctx, r.db, tx).Where("id = ?", tombstoneID).First(&tombstone).Error
	return tombstone, err
}

func (r *GormDeletedChannelRepository) scope(db *gorm.DB, recoverableOnly bool) *gorm.DB {
	query := db.Model(&models.DeletedChannel{})
	if recoverableOnly {
		query = query.Where("is_recoverable = ?", true)
	}
	return query
}

func (r *GormDeletedChannelRepository) Count(ctx context.Context, tx *gorm.DB, recoverableOnly bool) (int64, error) {
	var count int64
	err := r.scope(useTx(ctx, r.db, tx), recoverableOnly).Count(&count).Error
	return count, err
}

func (r *GormDeletedChannelRepository) List(ctx context.Context, tx *gorm.DB, in DeletedChannelListInput) ([]models.DeletedChannel, error) {
	var items []models.DeletedChannel
	err := r.scope(useTx(ctx, r.db, tx), in.RecoverableOnly).
		Order("deleted_at DESC").
		Offset(in.Offset).
		Limit(in.Limit).
		Find(&items).Error
	return items, err
}

// MarkRecovered consumes the tombstone. The is_recoverable predicate makes it
// single-use: a second caller sees zero rows affected.
func (r *GormDeletedChannelRepository) MarkRecovered(ctx context.Context, tx *gorm.DB, tombstoneID string, newUserID string, at time.Time) (int64, error) {
	result := useTx(ctx, r.db, tx).Model(&models.DeletedChannel{}).
		Where("id = ? AND is_recoverable = ?", tombstoneID, true).
		Updates(map[string]interface{}{
			"is_recoverable":    false,
			"recovered_at":      at,
			"recovered_user_id": newUserID,
		})
	return result.RowsAffected, result.Error
}

func (r *GormDeletedChannelRepository) ExpireOverdue(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	result := useTx(ctx, r.db, tx).Model(&models.DeletedChannel{}).
		Where("is_recoverable = ? AND recovery_deadline < ?", true, now).
		Update("is_recoverable", false)
	return result.RowsAffected, result.Error
}

func (r *GormDeletedChannelRepository) DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	result := useTx(ctx, r.db, tx).
		Where("is_recoverable = ? AND recovery_deadline < ?", false, now).
		Delete(&models.DeletedChannel{})
	return result.RowsAffected, result.Error
}

type reasonCount struct {
	DeletionReason models.DeletionReason
	Count          int64
}

func (r *GormDeletedChannelRepository) Statistics(ctx context.Context, tx *gorm.DB, now time.Time) (DeletionStatistics, error) {
	db := useTx(ctx, r.db, tx)
	stats := DeletionStatistics{ByReason: make(map[models.DeletionReason]int64)}

	if err := db.Model(&models.DeletedChannel{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.DeletedChannel{}).
		Where("is_recoverable = ? AND recovery_deadline >= ?", true, now).
		Count(&stats.Recoverable).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.DeletedChannel{}).
		Where("recovered_at IS NOT NULL").
		Count(&stats.Recovered).Error; err != nil {
		return stats, err
	}
	stats.Expired = stats.Total - stats.Recoverable - stats.Recovered

	var rows []reasonCount
	if err := db.Model(&models.DeletedChannel{}).
		Select("deletion_reason, COUNT(*) AS count").
		Group("deletion_reason").
		Scan(&rows).Error; err != nil {
		return stats, err
	}
	for _, row := range rows {
		stats.ByReason[row.DeletionReason] = row.Count
	}
	return stats, nil
}

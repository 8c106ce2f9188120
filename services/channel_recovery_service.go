package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tweetube/logger"
	"tweetube/metrics"
	"tweetube/models"
	"tweetube/repositories"

	"gorm.io/gorm"
)

type RecoverChannelOutput struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id"`
}

type ChannelRecoveryService interface {
	RecoverChannel(ctx context.Context, tombstoneID string, newUserID string) (RecoverChannelOutput, error)
}

type channelRecoveryService struct {
	txManager  TxManager
	users      repositories.UserRepository
	deleted    repositories.DeletedChannelRepository
	statsCache repositories.StatisticsCache
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewChannelRecoveryService(repos repositories.Container, m *metrics.Metrics) ChannelRecoveryService {
	s := &channelRecoveryService{
		txManager:  repos.TxManager,
		users:      repos.Users,
		deleted:    repos.DeletedChannels,
		statsCache: repos.StatisticsCache,
		metrics:    m,
		now:        time.Now,
	}
	if s.statsCache == nil {
		s.statsCache = repositories.NoopStatisticsCache{}
	}
	return s
}

// RecoverChannel materializes a fresh user from the tombstone and consumes
// it. Content handled by the retention policies is not brought back.
func (s *channelRecoveryService) RecoverChannel(ctx context.Context, tombstoneID string, newUserID string) (RecoverChannelOutput, error) {
	log := logger.With("channel_recovery")

	tombstoneID = strings.TrimSpace(tombstoneID)
	newUserID = strings.TrimSpace(newUserID)
	if tombstoneID == "" || newUserID == "" {
		s.metrics.ObserveRecovery("rejected")
		return RecoverChannelOutput{}, newValidation("deleted channel id and new user id are required")
	}

	err := s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		tombstone, err := s.deleted.GetByID(ctx, tx, tombstoneID)
		if err != nil {
			return err
		}
		if !tombstone.IsRecoverable {
			return newValidation("channel is not recoverable")
		}
		now := s.now()
		if now.After(tombstone.RecoveryDeadline) {
			return newValidation("recovery period expired")
		}
		if newUserID == tombstone.OriginalUserID {
			return newValidation("new user id must differ from the deleted user id")
		}

		taken, err := s.users.CountByUsernameOrEmail(ctx, tx, tombstone.Username, tombstone.Email)
		if err != nil {
			return fmt.Errorf("check identity collisions: %w", err)
		}
		if taken > 0 {
			return newConflict("username or email is already in use", nil)
		}

		user := &models.User{
			ID:       newUserID,
			Username: tombstone.Username,
			Email:    tombstone.Email,
			FullName: tombstone.FullName,
			Avatar:   tombstone.Avatar,
			Role:     models.RoleUser,
		}
		if err := s.users.Create(ctx, tx, user); err != nil {
			return fmt.Errorf("create recovered user: %w", err)
		}

		affected, err := s.deleted.MarkRecovered(ctx, tx, tombstone.ID, newUserID, now)
		if err != nil {
			return fmt.Errorf("consume tombstone: %w", err)
		}
		if affected == 0 {
			return newValidation("channel is not recoverable")
		}
		return nil
	})
	if err != nil {
		appErr := translateStorageError(err, "deleted channel not found", "failed to recover channel")
		s.metrics.ObserveRecovery(resultLabel(appErr))
		log.Warn().Err(err).Str("tombstone_id", tombstoneID).Msg("channel recovery rejected")
		return RecoverChannelOutput{}, appErr
	}

	s.metrics.ObserveRecovery("success")
	if cacheErr := s.statsCache.Invalidate(ctx); cacheErr != nil {
		log.Warn().Err(cacheErr).Msg("failed to invalidate deletion statistics cache")
	}
	log.Info().Str("tombstone_id", tombstoneID).Str("user_id", newUserID).Msg("channel recovered")
	return RecoverChannelOutput{Success: true, UserID: newUserID}, nil
}

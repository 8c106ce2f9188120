package services

import (
	"context"
	"fmt"
	"time"

	"tweetube/config"
	"tweetube/logger"
	"tweetube/metrics"
	"tweetube/repositories"

	"gorm.io/gorm"
)

type CleanupService interface {
	ExpireTombstones(ctx context.Context, now time.Time) (expired int64, purged int64, err error)
	PurgeCancelledSubscriptions(ctx context.Context, olderThan time.Time) (int64, error)
	CleanupOrphanedHistory(ctx context.Context, limit int) (int64, error)
}

type cleanupService struct {
	txManager     TxManager
	deleted       repositories.DeletedChannelRepository
	subscriptions repositories.SubscriptionRepository
	statsCache    repositories.StatisticsCache
	history       WatchHistoryService
	metrics       *metrics.Metrics
}

func NewCleanupService(repos repositories.Container, history WatchHistoryService, m *metrics.Metrics) CleanupService {
	s := &cleanupService{
		txManager:     repos.TxManager,
		deleted:       repos.DeletedChannels,
		subscriptions: repos.Subscriptions,
		statsCache:    repos.StatisticsCache,
		history:       history,
		metrics:       m,
	}
	if s.statsCache == nil {
		s.statsCache = repositories.NoopStatisticsCache{}
	}
	return s
}

var defaultCleanupService CleanupService

func SetCleanupService(svc CleanupService) {
	defaultCleanupService = svc
}

// ExpireTombstones closes the recovery window on overdue tombstones and then
// drops every tombstone that is closed and past its deadline.
func (s *cleanupService) ExpireTombstones(ctx context.Context, now time.Time) (int64, int64, error) {
	var expired, purged int64
	err := s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		if expired, err = s.deleted.ExpireOverdue(ctx, tx, now); err != nil {
			return fmt.Errorf("expire tombstones: %w", err)
		}
		if purged, err = s.deleted.DeleteExpired(ctx, tx, now); err != nil {
			return fmt.Errorf("purge tombstones: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, translateStorageError(err, "deleted channel not found", "failed to expire deleted channels")
	}

	s.metrics.AddTombstonesExpired(expired)
	if expired > 0 || purged > 0 {
		if cacheErr := s.statsCache.Invalidate(ctx); cacheErr != nil {
			logger.With("cleanup").Warn().Err(cacheErr).Msg("failed to invalidate deletion statistics cache")
		}
	}
	return expired, purged, nil
}

func (s *cleanupService) PurgeCancelledSubscriptions(ctx context.Context, olderThan time.Time) (int64, error) {
	purged, err := s.subscriptions.PurgeCancelledBefore(ctx, nil, olderThan)
	if err != nil {
		return 0, translateStorageError(err, "subscription not found", "failed to purge cancelled subscriptions")
	}
	s.metrics.AddCancelledSubscriptionsPurged(purged)
	return purged, nil
}

func (s *cleanupService) CleanupOrphanedHistory(ctx context.Context, limit int) (int64, error) {
	if s.history == nil {
		return 0, nil
	}
	return s.history.CleanupOrphanedHistory(ctx, limit)
}

// StartCleanupWorkers starts the background sweeps. They stop when ctx is
// cancelled.
func StartCleanupWorkers(ctx context.Context) {
	svc := defaultCleanupService
	if svc == nil {
		return
	}

	cfg := config.AppConfig
	if cfg == nil {
		cfg = config.Default()
	}
	cd := cfg.ChannelDeletion

	go runEvery(ctx, "tombstone_expiry", secondsOr(cd.TombstoneSweepInterval, time.Hour), func(ctx context.Context) error {
		expired, purged, err := svc.ExpireTombstones(ctx, time.Now())
		if err == nil && (expired > 0 || purged > 0) {
			logger.With("cleanup").Info().Int64("expired", expired).Int64("purged", purged).Msg("deleted channels swept")
		}
		return err
	})
	go runEvery(ctx, "subscription_purge", secondsOr(cd.SubscriptionPurgeInterval, 24*time.Hour), func(ctx context.Context) error {
		purged, err := svc.PurgeCancelledSubscriptions(ctx, time.Now().Add(-cd.SubscriptionRetention()))
		if err == nil && purged > 0 {
			logger.With("cleanup").Info().Int64("purged", purged).Msg("cancelled subscriptions purged")
		}
		return err
	})
	go runEvery(ctx, "orphan_history", secondsOr(cd.OrphanHistoryInterval, 6*time.Hour), func(ctx context.Context) error {
		_, err := svc.CleanupOrphanedHistory(ctx, cd.OrphanHistoryBatch)
		return err
	})
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func runEvery(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				logger.With("cleanup").Error().Err(err).Str("job", name).Msg("cleanup job failed")
			}
		}
	}
}

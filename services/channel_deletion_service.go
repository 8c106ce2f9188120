package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tweetube/config"
	"tweetube/logger"
	"tweetube/metrics"
	"tweetube/models"
	"tweetube/repositories"
	"tweetube/utils"

	"gorm.io/gorm"
)

type DeleteChannelInput struct {
	UserID                string
	Reason                string
	DeletedBy             *string
	DataRetention         models.RetentionOverrides
	WatchHistoryRetention string
}

type DeleteChannelOutput struct {
	Success     bool                `json:"success"`
	TombstoneID string              `json:"tombstone_id"`
	Stats       models.ChannelStats `json:"stats"`
	Fanout      FanoutResult        `json:"fanout"`
}

type DeletedChannelListOutput struct {
	Items      []models.DeletedChannel `json:"items"`
	Pagination utils.PaginationData    `json:"pagination"`
}

type ChannelDeletionService interface {
	DeleteChannel(ctx context.Context, in DeleteChannelInput) (DeleteChannelOutput, error)
	ListDeletedChannels(ctx context.Context, page int, pageSize int, recoverableOnly bool) (DeletedChannelListOutput, error)
	GetDeletedChannel(ctx context.Context, tombstoneID string) (models.DeletedChannel, error)
	DeletionStatistics(ctx context.Context) (repositories.DeletionStatistics, error)
}

type ChannelDeletionOptions struct {
	RecoveryWindow        time.Duration
	SubscriptionBatchSize int
	LockTTL               time.Duration
	StatisticsTTL         time.Duration
	DefaultPageSize       int
	MaxPageSize           int
}

func ChannelDeletionOptionsFromConfig(cfg *config.Config) ChannelDeletionOptions {
	if cfg == nil {
		cfg = config.Default()
	}
	return ChannelDeletionOptions{
		RecoveryWindow:        cfg.ChannelDeletion.RecoveryWindow(),
		SubscriptionBatchSize: cfg.ChannelDeletion.SubscriptionBatchSize,
		LockTTL:               cfg.ChannelDeletion.LockTTL(),
		StatisticsTTL:         time.Minute,
		DefaultPageSize:       cfg.Pagination.DefaultPageSize,
		MaxPageSize:           cfg.Pagination.MaxPageSize,
	}
}

type channelDeletionService struct {
	txManager    TxManager
	users        repositories.UserRepository
	videos       repositories.VideoRepository
	comments     repositories.CommentRepository
	tweets       repositories.TweetRepository
	playlists    repositories.PlaylistRepository
	deleted      repositories.DeletedChannelRepository
	lock         repositories.ChannelLock
	statsCache   repositories.StatisticsCache
	stats        channelStatsCollector
	fanout       subscriptionFanout
	content      contentRetention
	watchHistory watchHistoryRetention
	metrics      *metrics.Metrics
	opts         ChannelDeletionOptions
	now          func() time.Time
}

func NewChannelDeletionService(repos repositories.Container, opts ChannelDeletionOptions, m *metrics.Metrics) ChannelDeletionService {
	s := &channelDeletionService{
		txManager:  repos.TxManager,
		users:      repos.Users,
		videos:     repos.Videos,
		comments:   repos.Comments,
		tweets:     repos.Tweets,
		playlists:  repos.Playlists,
		deleted:    repos.DeletedChannels,
		lock:       repos.ChannelLock,
		statsCache: repos.StatisticsCache,
		stats: channelStatsCollector{
			subscriptions: repos.Subscriptions,
			videos:        repos.Videos,
			comments:      repos.Comments,
			engagements:   repos.Engagements,
		},
		content: newContentRetention(repos),
		metrics: m,
		opts:    opts,
		now:     time.Now,
	}
	if s.lock == nil {
		s.lock = repositories.NoopChannelLock{}
	}
	if s.statsCache == nil {
		s.statsCache = repositories.NoopStatisticsCache{}
	}
	s.fanout = subscriptionFanout{
		subscriptions: repos.Subscriptions,
		users:         repos.Users,
		batchSize:     opts.SubscriptionBatchSize,
		now:           s.clock,
	}
	s.watchHistory = watchHistoryRetention{history: repos.WatchHistory, now: s.clock}
	return s
}

func (s *channelDeletionService) clock() time.Time {
	return s.now()
}

func validationFromInput(err error) error {
	var invalid *models.InvalidValueError
	if errors.As(err, &invalid) {
		return newAppErrorWithData(http.StatusBadRequest, invalid.Error(), map[string]string{
			"field": invalid.Field,
			"value": invalid.Value,
		}, nil)
	}
	return newValidation(err.Error())
}

func (s *channelDeletionService) DeleteChannel(ctx context.Context, in DeleteChannelInput) (DeleteChannelOutput, error) {
	log := logger.With("channel_deletion")

	if strings.TrimSpace(in.UserID) == "" {
		return DeleteChannelOutput{}, newValidation("user id is required")
	}
	reason, err := models.ParseDeletionReason(in.Reason)
	if err != nil {
		return DeleteChannelOutput{}, validationFromInput(err)
	}
	retention, err := models.ResolveDataRetention(in.DataRetention, in.WatchHistoryRetention)
	if err != nil {
		return DeleteChannelOutput{}, validationFromInput(err)
	}

	start := time.Now()
	release, err := s.lock.Acquire(ctx, in.UserID, s.opts.LockTTL)
	if err != nil {
		if errors.Is(err, repositories.ErrLockHeld) {
			s.metrics.ObserveDeletion(string(reason), "conflict", time.Since(start))
			return DeleteChannelOutput{}, newConflict("channel deletion already in progress", err)
		}
		return DeleteChannelOutput{}, newInternal("failed to acquire channel lock", err)
	}
	defer func() {
		if releaseErr := release(context.Background()); releaseErr != nil {
			log.Warn().Err(releaseErr).Str("user_id", in.UserID).Msg("failed to release channel lock")
		}
	}()

	var out DeleteChannelOutput
	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		result, err := s.deleteInTx(ctx, tx, in, reason, retention)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	if err != nil {
		appErr := translateStorageError(err, "user not found", "failed to delete channel")
		s.metrics.ObserveDeletion(string(reason), resultLabel(appErr), time.Since(start))
		log.Warn().Err(err).Str("user_id", in.UserID).Str("reason", string(reason)).Msg("channel deletion aborted")
		return DeleteChannelOutput{}, appErr
	}

	s.metrics.ObserveDeletion(string(reason), "success", time.Since(start))
	s.metrics.AddFanoutCancelled(out.Fanout.Cancelled)
	if cacheErr := s.statsCache.Invalidate(ctx); cacheErr != nil {
		log.Warn().Err(cacheErr).Msg("failed to invalidate deletion statistics cache")
	}
	log.Info().
		Str("user_id", in.UserID).
		Str("tombstone_id", out.TombstoneID).
		Str("reason", string(reason)).
		Int64("subscriptions_cancelled", out.Fanout.Cancelled).
		Dur("elapsed", time.Since(start)).
		Msg("channel deleted")
	return out, nil
}

func (s *channelDeletionService) deleteInTx(
	ctx context.Context,
	tx *gorm.DB,
	in DeleteChannelInput,
	reason models.DeletionReason,
	retention models.DataRetention,
) (DeleteChannelOutput, error) {
	user, err := s.users.GetByID(ctx, tx, in.UserID)
	if err != nil {
		return DeleteChannelOutput{}, err
	}

	owned, err := s.captureOwnedContent(ctx, tx, user.ID)
	if err != nil {
		return DeleteChannelOutput{}, fmt.Errorf("capture owned content: %w", err)
	}
	stats, err := s.stats.Capture(ctx, tx, user.ID, owned)
	if err != nil {
		return DeleteChannelOutput{}, fmt.Errorf("capture channel stats: %w", err)
	}

	now := s.now()
	tombstone := &models.DeletedChannel{
		OriginalUserID:   user.ID,
		Username:         user.Username,
		FullName:         user.FullName,
		Email:            user.Email,
		Avatar:           user.Avatar,
		Stats:            stats,
		DeletionReason:   reason,
		DeletedBy:        in.DeletedBy,
		DeletedAt:        now,
		RecoveryDeadline: now.Add(s.opts.RecoveryWindow),
		IsRecoverable:    true,
		DataRetention:    retention,
	}
	if err := s.deleted.Create(ctx, tx, tombstone); err != nil {
		return DeleteChannelOutput{}, fmt.Errorf("create tombstone: %w", err)
	}

	incoming, err := s.fanout.HandleSubscriptions(ctx, tx, user.ID)
	if err != nil {
		return DeleteChannelOutput{}, fmt.Errorf("cancel subscriptions: %w", err)
	}
	outgoing, err := s.fanout.HandleOutgoingSubscriptions(ctx, tx, user.ID)
	if err != nil {
		return DeleteChannelOutput{}, fmt.Errorf("cancel outgoing subscriptions: %w", err)
	}
	if _, err := s.content.HandleVideos(ctx, tx, user.ID, retention.Videos); err != nil {
		return DeleteChannelOutput{}, fmt.Errorf("apply video retention: %w", err)
	}
	if _, err := s.content.HandleComments(ctx, tx, user.ID, retention.Comments); err != nil {
		return DeleteChannelOutput{}, fmt.Errorf("apply comment retention: %w", err)
	}
	if _, err := s.content.HandlePlaylists(ctx, tx, user.ID); err != nil {
		return DeleteChannelOutput{}, fmt.Errorf("delete playlists: %w", err)
	}
	if _, err := s.content.HandleTweets(ctx, tx, user.ID); err != nil {
		return DeleteChannelOutput{}, fmt.Errorf("delete tweets: %w", err)
	}
	if _, err := s.content.HandleEngagements(ctx, tx, user.ID, owned); err != nil {
		return DeleteChannelOutput{}, fmt.Errorf("delete engagements: %w", err)
	}
	if _, err := s.watchHistory.HandleWatchHistory(ctx, tx, user.ID, owned.VideoIDs, retention.WatchHistory); err != nil {
		return DeleteChannelOutput{}, fmt.Errorf("apply watch history retention: %w", err)
	}

	affected, err := s.users.DeleteByID(ctx, tx, user.ID)
	if err != nil {
		return DeleteChannelOutput{}, fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return DeleteChannelOutput{}, newNotFound("user not found")
	}

	return DeleteChannelOutput{
		Success:     true,
		TombstoneID: tombstone.ID,
		Stats:       stats,
		Fanout:      incoming.add(outgoing),
	}, nil
}

func (s *channelDeletionService) captureOwnedContent(ctx context.Context, tx *gorm.DB, userID string) (models.OwnedContent, error) {
	var owned models.OwnedContent
	var err error
	if owned.VideoIDs, err = s.videos.ListIDsByOwner(ctx, tx, userID); err != nil {
		return owned, err
	}
	if owned.CommentIDs, err = s.comments.ListIDsByOwner(ctx, tx, userID); err != nil {
		return owned, err
	}
	if owned.TweetIDs, err = s.tweets.ListIDsByOwner(ctx, tx, userID); err != nil {
		return owned, err
	}
	if owned.PlaylistIDs, err = s.playlists.ListIDsByOwner(ctx, tx, userID); err != nil {
		return owned, err
	}
	return owned, nil
}

func (s *channelDeletionService) ListDeletedChannels(ctx context.Context, page int, pageSize int, recoverableOnly bool) (DeletedChannelListOutput, error) {
	page, pageSize = utils.NormalizePage(page, pageSize, s.opts.DefaultPageSize, s.opts.MaxPageSize)

	total, err := s.deleted.Count(ctx, nil, recoverableOnly)
	if err != nil {
		return DeletedChannelListOutput{}, newInternal("failed to count deleted channels", err)
	}
	items, err := s.deleted.List(ctx, nil, repositories.DeletedChannelListInput{
		RecoverableOnly: recoverableOnly,
		Offset:          (page - 1) * pageSize,
		Limit:           pageSize,
	})
	if err != nil {
		return DeletedChannelListOutput{}, newInternal("failed to list deleted channels", err)
	}

	return DeletedChannelListOutput{
		Items:      items,
		Pagination: utils.NewPagination(page, pageSize, total),
	}, nil
}

func (s *channelDeletionService) GetDeletedChannel(ctx context.Context, tombstoneID string) (models.DeletedChannel, error) {
	if strings.TrimSpace(tombstoneID) == "" {
		return models.DeletedChannel{}, newValidation("deleted channel id is required")
	}
	tombstone, err := s.deleted.GetByID(ctx, nil, tombstoneID)
	if err != nil {
		return models.DeletedChannel{}, translateStorageError(err, "deleted channel not found", "failed to query deleted channel")
	}
	return tombstone, nil
}

func (s *channelDeletionService) DeletionStatistics(ctx context.Context) (repositories.DeletionStatistics, error) {
	log := logger.With("channel_deletion")

	cached, err := s.statsCache.Get(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("deletion statistics cache read failed")
	}
	if cached != nil {
		s.metrics.StatisticsCacheHit(true)
		return *cached, nil
	}
	s.metrics.StatisticsCacheHit(false)

	stats, err := s.deleted.Statistics(ctx, nil, s.now())
	if err != nil {
		return repositories.DeletionStatistics{}, newInternal("failed to compute deletion statistics", err)
	}
	if err := s.statsCache.Set(ctx, stats, s.opts.StatisticsTTL); err != nil {
		log.Warn().Err(err).Msg("deletion statistics cache write failed")
	}
	return stats, nil
}

func resultLabel(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "error"
	}
	switch appErr.HTTPCode {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "rejected"
	case http.StatusConflict:
		return "conflict"
	}
	return "error"
}

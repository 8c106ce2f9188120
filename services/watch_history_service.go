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
	"tweetube/utils"

	"gorm.io/gorm"
)

const defaultOrphanHistoryBatch = 1000

type HistoryQuery struct {
	UserID          string
	Page            int
	PageSize        int
	IncludeArchived bool
}

type WatchHistoryItem struct {
	models.WatchHistory
	ProgressPercent float64 `json:"progress_percent"`
}

type WatchHistoryListOutput struct {
	Items      []WatchHistoryItem   `json:"items"`
	Pagination utils.PaginationData `json:"pagination"`
}

type WatchHistoryService interface {
	GetHistory(ctx context.Context, q HistoryQuery) (WatchHistoryListOutput, error)
	GetStats(ctx context.Context, userID string) (repositories.WatchHistoryStats, error)
	ExportHistory(ctx context.Context, userID string, includeArchived bool) ([]WatchHistoryItem, error)
	ClearHistory(ctx context.Context, userID string) (int64, error)
	CleanupOrphanedHistory(ctx context.Context, limit int) (int64, error)
	RestoreWatchHistoryForChannel(ctx context.Context, originalUserID string, newUserID string) (int64, error)
}

type watchHistoryService struct {
	txManager TxManager
	history   repositories.WatchHistoryRepository
	videos    repositories.VideoRepository
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewWatchHistoryService(repos repositories.Container, m *metrics.Metrics) WatchHistoryService {
	return &watchHistoryService{
		txManager: repos.TxManager,
		history:   repos.WatchHistory,
		videos:    repos.Videos,
		metrics:   m,
		now:       time.Now,
	}
}

func toHistoryItems(records []models.WatchHistory) []WatchHistoryItem {
	items := make([]WatchHistoryItem, 0, len(records))
	for _, record := range records {
		items = append(items, WatchHistoryItem{WatchHistory: record, ProgressPercent: record.ProgressPercent()})
	}
	return items
}

func (s *watchHistoryService) GetHistory(ctx context.Context, q HistoryQuery) (WatchHistoryListOutput, error) {
	if q.UserID == "" {
		return WatchHistoryListOutput{}, newValidation("user id is required")
	}
	page, pageSize := utils.NormalizePage(q.Page, q.PageSize, 20, 100)

	total, err := s.history.CountByUser(ctx, nil, q.UserID, q.IncludeArchived)
	if err != nil {
		return WatchHistoryListOutput{}, newInternal("failed to count watch history", err)
	}
	records, err := s.history.ListByUser(ctx, nil, repositories.WatchHistoryListInput{
		UserID:          q.UserID,
		IncludeArchived: q.IncludeArchived,
		Offset:          (page - 1) * pageSize,
		Limit:           pageSize,
	})
	if err != nil {
		return WatchHistoryListOutput{}, newInternal("failed to list watch history", err)
	}

	return WatchHistoryListOutput{
		Items:      toHistoryItems(records),
		Pagination: utils.NewPagination(page, pageSize, total),
	}, nil
}

func (s *watchHistoryService) GetStats(ctx context.Context, userID string) (repositories.WatchHistoryStats, error) {
	if userID == "" {
		return repositories.WatchHistoryStats{}, newValidation("user id is required")
	}
	stats, err := s.history.StatsByUser(ctx, nil, userID)
	if err != nil {
		return repositories.WatchHistoryStats{}, newInternal("failed to compute watch history stats", err)
	}
	return stats, nil
}

func (s *watchHistoryService) ExportHistory(ctx context.Context, userID string, includeArchived bool) ([]WatchHistoryItem, error) {
	if userID == "" {
		return nil, newValidation("user id is required")
	}
	records, err := s.history.ListByUser(ctx, nil, repositories.WatchHistoryListInput{
		UserID:          userID,
		IncludeArchived: includeArchived,
	})
	if err != nil {
		return nil, newInternal("failed to export watch history", err)
	}
	return toHistoryItems(records), nil
}

func (s *watchHistoryService) ClearHistory(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, newValidation("user id is required")
	}
	removed, err := s.history.DeleteActiveByUser(ctx, nil, userID)
	if err != nil {
		return 0, newInternal("failed to clear watch history", err)
	}
	return removed, nil
}

// CleanupOrphanedHistory archives up to limit records whose video is gone.
// Records are never deleted here.
func (s *watchHistoryService) CleanupOrphanedHistory(ctx context.Context, limit int) (int64, error) {
	if limit <= 0 {
		limit = defaultOrphanHistoryBatch
	}

	var archived int64
	err := s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		orphans, err := s.history.ListOrphaned(ctx, tx, limit)
		if err != nil {
			return fmt.Errorf("list orphaned history: %w", err)
		}
		if len(orphans) == 0 {
			return nil
		}
		ids := make([]string, 0, len(orphans))
		for _, record := range orphans {
			ids = append(ids, record.ID)
		}
		archived, err = s.history.ArchiveOrphaned(ctx, tx, ids, s.now())
		return err
	})
	if err != nil {
		return 0, translateStorageError(err, "watch history not found", "failed to archive orphaned watch history")
	}

	s.metrics.AddOrphanHistoryArchived(archived)
	if archived > 0 {
		logger.With("watch_history").Info().Int64("archived", archived).Msg("archived orphaned watch history")
	}
	return archived, nil
}

// RestoreWatchHistoryForChannel re-links records archived by a channel
// deletion. Viewer records move to newUserID; records on the channel's
// videos get their video back. A record is left archived when its video no
// longer exists or when the viewer already has a newer record for the video.
func (s *watchHistoryService) RestoreWatchHistoryForChannel(ctx context.Context, originalUserID string, newUserID string) (int64, error) {
	originalUserID = strings.TrimSpace(originalUserID)
	newUserID = strings.TrimSpace(newUserID)
	if originalUserID == "" || newUserID == "" {
		return 0, newValidation("original user id and new user id are required")
	}

	var restored int64
	err := s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		records, err := s.history.ListArchivedForChannel(ctx, tx, originalUserID)
		if err != nil {
			return fmt.Errorf("list archived history: %w", err)
		}
		if len(records) == 0 {
			return nil
		}

		candidates := make([]string, 0, len(records))
		for _, record := range records {
			if record.Metadata.OriginalVideoID != nil {
				candidates = append(candidates, *record.Metadata.OriginalVideoID)
			}
		}
		existingIDs, err := s.videos.ListExistingIDs(ctx, tx, candidates)
		if err != nil {
			return fmt.Errorf("check videos: %w", err)
		}
		existing := make(map[string]struct{}, len(existingIDs))
		for _, id := range existingIDs {
			existing[id] = struct{}{}
		}

		for _, record := range records {
			userID := record.UserID
			if record.Metadata.OriginalUserID != nil && *record.Metadata.OriginalUserID == originalUserID {
				target := newUserID
				userID = &target
			}
			videoID := record.VideoID
			if original := record.Metadata.OriginalVideoID; original != nil {
				if _, ok := existing[*original]; !ok {
					continue
				}
				target := *original
				videoID = &target
			}
			if userID == nil || videoID == nil {
				continue
			}

			taken, err := s.history.ExistsForUserVideo(ctx, tx, *userID, *videoID)
			if err != nil {
				return fmt.Errorf("check history collision: %w", err)
			}
			if taken {
				continue
			}
			if err := s.history.Restore(ctx, tx, record.ID, userID, videoID); err != nil {
				return fmt.Errorf("restore history %s: %w", record.ID, err)
			}
			restored++
		}
		return nil
	})
	if err != nil {
		return 0, translateStorageError(err, "watch history not found", "failed to restore watch history")
	}

	logger.With("watch_history").Info().
		Str("original_user_id", originalUserID).
		Str("user_id", newUserID).
		Int64("restored", restored).
		Msg("watch history restored")
	return restored, nil
}

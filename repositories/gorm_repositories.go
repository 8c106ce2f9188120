package repositories

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// inClauseChunk bounds the number of ids bound into a single IN (...) list.
const inClauseChunk = 1000

type GormTxManager struct {
	db *gorm.DB
}

func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

func (m *GormTxManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}

type GormRepositories struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewGormRepositories(db *gorm.DB, redisClient *redis.Client) *GormRepositories {
	return &GormRepositories{db: db, redis: redisClient}
}

func (r *GormRepositories) BuildContainer() Container {
	var lock ChannelLock = NoopChannelLock{}
	var statsCache StatisticsCache = NoopStatisticsCache{}
	if r.redis != nil {
		lock = NewRedisChannelLock(r.redis)
		statsCache = NewRedisStatisticsCache(r.redis)
	}
	return Container{
		TxManager:       NewGormTxManager(r.db),
		Users:           NewGormUserRepository(r.db),
		Videos:          NewGormVideoRepository(r.db),
		Comments:        NewGormCommentRepository(r.db),
		Tweets:          NewGormTweetRepository(r.db),
		Playlists:       NewGormPlaylistRepository(r.db),
		Subscriptions:   NewGormSubscriptionRepository(r.db),
		Engagements:     NewGormEngagementRepository(r.db),
		WatchHistory:    NewGormWatchHistoryRepository(r.db),
		DeletedChannels: NewGormDeletedChannelRepository(r.db),
		ChannelLock:     lock,
		StatisticsCache: statsCache,
	}
}

func useTx(ctx context.Context, db *gorm.DB, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

func chunkIDs(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

package services

import (
	"tweetube/config"
	"tweetube/metrics"
	"tweetube/repositories"
)

type Container struct {
	ChannelDeletion ChannelDeletionService
	ChannelRecovery ChannelRecoveryService
	WatchHistory    WatchHistoryService
	User            UserService
	Cleanup         CleanupService
}

func NewContainer(repos repositories.Container, cfg *config.Config, m *metrics.Metrics) *Container {
	history := NewWatchHistoryService(repos, m)
	container := &Container{
		ChannelDeletion: NewChannelDeletionService(repos, ChannelDeletionOptionsFromConfig(cfg), m),
		ChannelRecovery: NewChannelRecoveryService(repos, m),
		WatchHistory:    history,
		User:            NewUserService(repos.TxManager, repos.Users),
		Cleanup:         NewCleanupService(repos, history, m),
	}
	SetCleanupService(container.Cleanup)
	return container
}

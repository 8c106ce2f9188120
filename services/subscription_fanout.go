package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tweetube/models"
	"tweetube/repositories"

	"gorm.io/gorm"
)

const defaultSubscriptionBatchSize = 10000

var errFanoutStalled = errors.New("subscription batch cancelled no rows")

type FanoutResult struct {
	Cancelled            int64 `json:"cancelled"`
	SubscribersRecounted int   `json:"subscribers_recounted"`
	Batches              int   `json:"batches"`
}

func (r FanoutResult) add(other FanoutResult) FanoutResult {
	return FanoutResult{
		Cancelled:            r.Cancelled + other.Cancelled,
		SubscribersRecounted: r.SubscribersRecounted + other.SubscribersRecounted,
		Batches:              r.Batches + other.Batches,
	}
}

type subscriptionFanout struct {
	subscriptions repositories.SubscriptionRepository
	users         repositories.UserRepository
	batchSize     int
	now           func() time.Time
}

// HandleSubscriptions cancels every active edge pointing at channelID, one
// bounded batch at a time, and recounts subscriptions_count for the
// subscribers of each batch.
func (f subscriptionFanout) HandleSubscriptions(ctx context.Context, tx *gorm.DB, channelID string) (FanoutResult, error) {
	return f.drain(ctx, tx,
		func(limit int) ([]models.Subscription, error) {
			return f.subscriptions.ListActiveByChannel(ctx, tx, channelID, limit)
		},
		func(sub models.Subscription) string { return sub.SubscriberID },
		func(ids []string) error { return f.users.RecountSubscriptions(ctx, tx, ids) },
	)
}

// HandleOutgoingSubscriptions does the same for edges held by subscriberID and
// recounts subscriber_count on the channels they pointed at.
func (f subscriptionFanout) HandleOutgoingSubscriptions(ctx context.Context, tx *gorm.DB, subscriberID string) (FanoutResult, error) {
	return f.drain(ctx, tx,
		func(limit int) ([]models.Subscription, error) {
			return f.subscriptions.ListActiveBySubscriber(ctx, tx, subscriberID, limit)
		},
		func(sub models.Subscription) string { return sub.ChannelID },
		func(ids []string) error { return f.users.RecountSubscribers(ctx, tx, ids) },
	)
}

func (f subscriptionFanout) drain(
	ctx context.Context,
	tx *gorm.DB,
	next func(limit int) ([]models.Subscription, error),
	counterpart func(models.Subscription) string,
	recount func(ids []string) error,
) (FanoutResult, error) {
	batchSize := f.batchSize
	if batchSize <= 0 {
		batchSize = defaultSubscriptionBatchSize
	}

	var result FanoutResult
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch, err := next(batchSize)
		if err != nil {
			return result, fmt.Errorf("load subscription batch %d: %w", result.Batches+1, err)
		}
		if len(batch) == 0 {
			return result, nil
		}

		ids := make([]string, 0, len(batch))
		seen := make(map[string]struct{}, len(batch))
		affected := make([]string, 0, len(batch))
		for _, sub := range batch {
			ids = append(ids, sub.ID)
			other := counterpart(sub)
			if _, ok := seen[other]; ok {
				continue
			}
			seen[other] = struct{}{}
			affected = append(affected, other)
		}

		cancelled, err := f.subscriptions.CancelByIDs(ctx, tx, ids, f.now())
		if err != nil {
			return result, fmt.Errorf("cancel subscription batch %d: %w", result.Batches+1, err)
		}
		if cancelled == 0 {
			return result, errFanoutStalled
		}
		if err := recount(affected); err != nil {
			return result, fmt.Errorf("recount counters for batch %d: %w", result.Batches+1, err)
		}

		result.Cancelled += cancelled
		result.SubscribersRecounted += len(affected)
		result.Batches++
	}
}

package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"tweetube/models"
	"tweetube/repositories"

	"gorm.io/gorm"
)

var errInjected = errors.New("injected failure")

// fakeStore is an in-memory copy of every table. fakeTxManager snapshots it
// before a transaction and restores the snapshot when fn fails.
type fakeStore struct {
	users       map[string]models.User
	videos      map[string]models.Video
	comments    map[string]models.Comment
	tweets      map[string]models.Tweet
	playlists   map[string]models.Playlist
	subs        map[string]models.Subscription
	engagements map[string]models.Engagement
	history     map[string]models.WatchHistory
	tombstones  map[string]models.DeletedChannel

	failOn map[string]error
	calls  []string
	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       map[string]models.User{},
		videos:      map[string]models.Video{},
		comments:    map[string]models.Comment{},
		tweets:      map[string]models.Tweet{},
		playlists:   map[string]models.Playlist{},
		subs:        map[string]models.Subscription{},
		engagements: map[string]models.Engagement{},
		history:     map[string]models.WatchHistory{},
		tombstones:  map[string]models.DeletedChannel{},
		failOn:      map[string]error{},
	}
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type fakeSnapshot struct {
	users       map[string]models.User
	videos      map[string]models.Video
	comments    map[string]models.Comment
	tweets      map[string]models.Tweet
	playlists   map[string]models.Playlist
	subs        map[string]models.Subscription
	engagements map[string]models.Engagement
	history     map[string]models.WatchHistory
	tombstones  map[string]models.DeletedChannel
}

func (s *fakeStore) snapshot() fakeSnapshot {
	return fakeSnapshot{
		users:       copyMap(s.users),
		videos:      copyMap(s.videos),
		comments:    copyMap(s.comments),
		tweets:      copyMap(s.tweets),
		playlists:   copyMap(s.playlists),
		subs:        copyMap(s.subs),
		engagements: copyMap(s.engagements),
		history:     copyMap(s.history),
		tombstones:  copyMap(s.tombstones),
	}
}

func (s *fakeStore) restore(snap fakeSnapshot) {
	s.users = snap.users
	s.videos = snap.videos
	s.comments = snap.comments
	s.tweets = snap.tweets
	s.playlists = snap.playlists
	s.subs = snap.subs
	s.engagements = snap.engagements
	s.history = snap.history
	s.tombstones = snap.tombstones
}

func (s *fakeStore) call(name string) error {
	s.calls = append(s.calls, name)
	if err, ok := s.failOn[name]; ok {
		return err
	}
	return nil
}

func (s *fakeStore) newID(prefix string) string {
	s.nextID++
	return prefix + "-" + strconv.Itoa(s.nextID)
}

func strPtr(v string) *string { return &v }

func eqPtr(p *string, v string) bool { return p != nil && *p == v }

func inSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s *fakeStore) container() repositories.Container {
	return repositories.Container{
		TxManager:       fakeTxManager{store: s},
		Users:           fakeUsers{s},
		Videos:          fakeVideos{s},
		Comments:        fakeComments{s},
		Tweets:          fakeTweets{s},
		Playlists:       fakePlaylists{s},
		Subscriptions:   fakeSubscriptions{s},
		Engagements:     fakeEngagements{s},
		WatchHistory:    fakeHistory{s},
		DeletedChannels: fakeTombstones{s},
		ChannelLock:     repositories.NoopChannelLock{},
		StatisticsCache: repositories.NoopStatisticsCache{},
	}
}

type fakeTxManager struct {
	store *fakeStore
}

func (m fakeTxManager) WithTransaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	if m.store == nil {
		return fn(nil)
	}
	snap := m.store.snapshot()
	if err := fn(nil); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

type fakeUsers struct{ s *fakeStore }

func (r fakeUsers) Create(_ context.Context, _ *gorm.DB, user *models.User) error {
	if err := r.s.call("Users.Create"); err != nil {
		return err
	}
	if _, ok := r.s.users[user.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r fakeUsers) GetByID(_ context.Context, _ *gorm.DB, userID string) (models.User, error) {
	if err := r.s.call("Users.GetByID"); err != nil {
		return models.User{}, err
	}
	user, ok := r.s.users[userID]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r fakeUsers) CountByUsernameOrEmail(_ context.Context, _ *gorm.DB, username string, email string) (int64, error) {
	if err := r.s.call("Users.CountByUsernameOrEmail"); err != nil {
		return 0, err
	}
	var count int64
	for _, u := range r.s.users {
		if u.Username == username || u.Email == email {
			count++
		}
	}
	return count, nil
}

func (r fakeUsers) DeleteByID(_ context.Context, _ *gorm.DB, userID string) (int64, error) {
	if err := r.s.call("Users.DeleteByID"); err != nil {
		return 0, err
	}
	if _, ok := r.s.users[userID]; !ok {
		return 0, nil
	}
	delete(r.s.users, userID)
	return 1, nil
}

func (r fakeUsers) countActive(match func(models.Subscription) bool) int64 {
	var n int64
	for _, sub := range r.s.subs {
		if sub.Status == models.SubscriptionActive && match(sub) {
			n++
		}
	}
	return n
}

func (r fakeUsers) RecountSubscriptions(_ context.Context, _ *gorm.DB, userIDs []string) error {
	if err := r.s.call("Users.RecountSubscriptions"); err != nil {
		return err
	}
	for _, id := range userIDs {
		user, ok := r.s.users[id]
		if !ok {
			continue
		}
		user.SubscriptionsCount = r.countActive(func(sub models.Subscription) bool { return sub.SubscriberID == id })
		r.s.users[id] = user
	}
	return nil
}

func (r fakeUsers) RecountSubscribers(_ context.Context, _ *gorm.DB, channelIDs []string) error {
	if err := r.s.call("Users.RecountSubscribers"); err != nil {
		return err
	}
	for _, id := range channelIDs {
		user, ok := r.s.users[id]
		if !ok {
			continue
		}
		user.SubscriberCount = r.countActive(func(sub models.Subscription) bool { return sub.ChannelID == id })
		r.s.users[id] = user
	}
	return nil
}

func (r fakeUsers) RecountContent(_ context.Context, _ *gorm.DB, userID string) error {
	if err := r.s.call("Users.RecountContent"); err != nil {
		return err
	}
	user, ok := r.s.users[userID]
	if !ok {
		return nil
	}
	user.VideoCount, user.TotalViews = 0, 0
	for _, v := range r.s.videos {
		if eqPtr(v.OwnerID, userID) {
			user.VideoCount++
			user.TotalViews += v.Views
		}
	}
	r.s.users[userID] = user
	return nil
}

type fakeVideos struct{ s *fakeStore }

func (r fakeVideos) owned(ownerID string) []string {
	var ids []string
	for id, v := range r.s.videos {
		if eqPtr(v.OwnerID, ownerID) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (r fakeVideos) ListIDsByOwner(_ context.Context, _ *gorm.DB, ownerID string) ([]string, error) {
	if err := r.s.call("Videos.ListIDsByOwner"); err != nil {
		return nil, err
	}
	return r.owned(ownerID), nil
}

func (r fakeVideos) CountByOwner(_ context.Context, _ *gorm.DB, ownerID string) (int64, error) {
	if err := r.s.call("Videos.CountByOwner"); err != nil {
		return 0, err
	}
	return int64(len(r.owned(ownerID))), nil
}

func (r fakeVideos) SumViewsByOwner(_ context.Context, _ *gorm.DB, ownerID string) (int64, error) {
	if err := r.s.call("Videos.SumViewsByOwner"); err != nil {
		return 0, err
	}
	var total int64
	for _, id := range r.owned(ownerID) {
		total += r.s.videos[id].Views
	}
	return total, nil
}

func (r fakeVideos) ListExistingIDs(_ context.Context, _ *gorm.DB, videoIDs []string) ([]string, error) {
	if err := r.s.call("Videos.ListExistingIDs"); err != nil {
		return nil, err
	}
	var ids []string
	for _, id := range videoIDs {
		if _, ok := r.s.videos[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r fakeVideos) DeleteByOwner(_ context.Context, _ *gorm.DB, ownerID string) (int64, error) {
	if err := r.s.call("Videos.DeleteByOwner"); err != nil {
		return 0, err
	}
	ids := r.owned(ownerID)
	for _, id := range ids {
		delete(r.s.videos, id)
	}
	return int64(len(ids)), nil
}

func (r fakeVideos) ArchiveByOwner(_ context.Context, _ *gorm.DB, ownerID string, token string) (int64, error) {
	if err := r.s.call("Videos.ArchiveByOwner"); err != nil {
		return 0, err
	}
	ids := r.owned(ownerID)
	for _, id := range ids {
		v := r.s.videos[id]
		v.Title = repositories.ArchiveMarker(token, id)
		v.Description = ""
		v.IsPublished = false
		v.OwnerID = nil
		r.s.videos[id] = v
	}
	return int64(len(ids)), nil
}

func (r fakeVideos) AnonymizeByOwner(_ context.Context, _ *gorm.DB, ownerID string, displayName string) (int64, error) {
	if err := r.s.call("Videos.AnonymizeByOwner"); err != nil {
		return 0, err
	}
	ids := r.owned(ownerID)
	for _, id := range ids {
		v := r.s.videos[id]
		v.ChannelName = displayName
		v.OwnerID = nil
		r.s.videos[id] = v
	}
	return int64(len(ids)), nil
}

type fakeComments struct{ s *fakeStore }

func (r fakeComments) owned(ownerID string) []string {
	var ids []string
	for id, c := range r.s.comments {
		if eqPtr(c.OwnerID, ownerID) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (r fakeComments) ListIDsByOwner(_ context.Context, _ *gorm.DB, ownerID string) ([]string, error) {
	if err := r.s.call("Comments.ListIDsByOwner"); err != nil {
		return nil, err
	}
	return r.owned(ownerID), nil
}

func (r fakeComments) CountByVideoIDs(_ context.Context, _ *gorm.DB, videoIDs []string) (int64, error) {
	if err := r.s.call("Comments.CountByVideoIDs"); err != nil {
		return 0, err
	}
	set := inSet(videoIDs)
	var n int64
	for _, c := range r.s.comments {
		if _, ok := set[c.VideoID]; ok {
			n++
		}
	}
	return n, nil
}

func (r fakeComments) DeleteByOwner(_ context.Context, _ *gorm.DB, ownerID string) (int64, error) {
	if err := r.s.call("Comments.DeleteByOwner"); err != nil {
		return 0, err
	}
	ids := r.owned(ownerID)
	for _, id := range ids {
		delete(r.s.comments, id)
	}
	return int64(len(ids)), nil
}

func (r fakeComments) ArchiveByOwner(_ context.Context, _ *gorm.DB, ownerID string, token string) (int64, error) {
	if err := r.s.call("Comments.ArchiveByOwner"); err != nil {
		return 0, err
	}
	ids := r.owned(ownerID)
	for _, id := range ids {
		c := r.s.comments[id]
		c.Content = repositories.ArchiveMarker(token, id)
		c.Hidden = true
		c.OwnerID = nil
		r.s.comments[id] = c
	}
	return int64(len(ids)), nil
}

func (r fakeComments) AnonymizeByOwner(_ context.Context, _ *gorm.DB, ownerID string, displayName string) (int64, error) {
	if err := r.s.call("Comments.AnonymizeByOwner"); err != nil {
		return 0, err
	}
	ids := r.owned(ownerID)
	for _, id := range ids {
		c := r.s.comments[id]
		c.AuthorName = displayName
		c.OwnerID = nil
		r.s.comments[id] = c
	}
	return int64(len(ids)), nil
}

type fakeTweets struct{ s *fakeStore }

func (r fakeTweets) ListIDsByOwner(_ context.Context, _ *gorm.DB, ownerID string) ([]string, error) {
	if err := r.s.call("Tweets.ListIDsByOwner"); err != nil {
		return nil, err
	}
	var ids []string
	for id, tw := range r.s.tweets {
		if tw.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r fakeTweets) DeleteByOwner(_ context.Context, _ *gorm.DB, ownerID string) (int64, error) {
	if err := r.s.call("Tweets.DeleteByOwner"); err != nil {
		return 0, err
	}
	var n int64
	for id, tw := range r.s.tweets {
		if tw.OwnerID == ownerID {
			delete(r.s.tweets, id)
			n++
		}
	}
	return n, nil
}

type fakePlaylists struct{ s *fakeStore }

func (r fakePlaylists) ListIDsByOwner(_ context.Context, _ *gorm.DB, ownerID string) ([]string, error) {
	if err := r.s.call("Playlists.ListIDsByOwner"); err != nil {
		return nil, err
	}
	var ids []string
	for id, p := range r.s.playlists {
		if p.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r fakePlaylists) DeleteByOwner(_ context.Context, _ *gorm.DB, ownerID string) (int64, error) {
	if err := r.s.call("Playlists.DeleteByOwner"); err != nil {
		return 0, err
	}
	var n int64
	for id, p := range r.s.playlists {
		if p.OwnerID == ownerID {
			delete(r.s.playlists, id)
			n++
		}
	}
	return n, nil
}

type fakeSubscriptions struct{ s *fakeStore }

func (r fakeSubscriptions) active(match func(models.Subscription) bool, limit int) []models.Subscription {
	var out []models.Subscription
	for _, sub := range r.s.subs {
		if sub.Status == models.SubscriptionActive && match(sub) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r fakeSubscriptions) CountActiveByChannel(_ context.Context, _ *gorm.DB, channelID string) (int64, error) {
	if err := r.s.call("Subscriptions.CountActiveByChannel"); err != nil {
		return 0, err
	}
	return int64(len(r.active(func(sub models.Subscription) bool { return sub.ChannelID == channelID }, 0))), nil
}

func (r fakeSubscriptions) ListActiveByChannel(_ context.Context, _ *gorm.DB, channelID string, limit int) ([]models.Subscription, error) {
	if err := r.s.call("Subscriptions.ListActiveByChannel"); err != nil {
		return nil, err
	}
	return r.active(func(sub models.Subscription) bool { return sub.ChannelID == channelID }, limit), nil
}

func (r fakeSubscriptions) ListActiveBySubscriber(_ context.Context, _ *gorm.DB, subscriberID string, limit int) ([]models.Subscription, error) {
	if err := r.s.call("Subscriptions.ListActiveBySubscriber"); err != nil {
		return nil, err
	}
	return r.active(func(sub models.Subscription) bool { return sub.SubscriberID == subscriberID }, limit), nil
}

func (r fakeSubscriptions) CancelByIDs(_ context.Context, _ *gorm.DB, subscriptionIDs []string, at time.Time) (int64, error) {
	if err := r.s.call("Subscriptions.CancelByIDs"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range subscriptionIDs {
		sub, ok := r.s.subs[id]
		if !ok || sub.Status != models.SubscriptionActive {
			continue
		}
		cancelledAt := at
		sub.Status = models.SubscriptionCancelled
		sub.CancelledAt = &cancelledAt
		r.s.subs[id] = sub
		n++
	}
	return n, nil
}

func (r fakeSubscriptions) PurgeCancelledBefore(_ context.Context, _ *gorm.DB, before time.Time) (int64, error) {
	if err := r.s.call("Subscriptions.PurgeCancelledBefore"); err != nil {
		return 0, err
	}
	var n int64
	for id, sub := range r.s.subs {
		if sub.Status == models.SubscriptionCancelled && sub.CancelledAt != nil && sub.CancelledAt.Before(before) {
			delete(r.s.subs, id)
			n++
		}
	}
	return n, nil
}

type fakeEngagements struct{ s *fakeStore }

func refSet(refs []models.ContentRef) map[models.ContentRef]struct{} {
	set := make(map[models.ContentRef]struct{}, len(refs))
	for _, ref := range refs {
		set[ref] = struct{}{}
	}
	return set
}

func (r fakeEngagements) CountOnContent(_ context.Context, _ *gorm.DB, refs []models.ContentRef, engagementType models.EngagementType) (int64, error) {
	if err := r.s.call("Engagements.CountOnContent"); err != nil {
		return 0, err
	}
	set := refSet(refs)
	var n int64
	for _, e := range r.s.engagements {
		if _, ok := set[e.Ref()]; ok && e.EngagementType == engagementType {
			n++
		}
	}
	return n, nil
}

func (r fakeEngagements) DeleteByUser(_ context.Context, _ *gorm.DB, userID string) (int64, error) {
	if err := r.s.call("Engagements.DeleteByUser"); err != nil {
		return 0, err
	}
	var n int64
	for id, e := range r.s.engagements {
		if e.UserID == userID {
			delete(r.s.engagements, id)
			n++
		}
	}
	return n, nil
}

func (r fakeEngagements) DeleteOnContent(_ context.Context, _ *gorm.DB, refs []models.ContentRef) (int64, error) {
	if err := r.s.call("Engagements.DeleteOnContent"); err != nil {
		return 0, err
	}
	set := refSet(refs)
	var n int64
	for id, e := range r.s.engagements {
		if _, ok := set[e.Ref()]; ok {
			delete(r.s.engagements, id)
			n++
		}
	}
	return n, nil
}

type fakeHistory struct{ s *fakeStore }

func (r fakeHistory) update(match func(models.WatchHistory) bool, apply func(*models.WatchHistory)) int64 {
	var n int64
	for id, h := range r.s.history {
		if match(h) {
			apply(&h)
			r.s.history[id] = h
			n++
		}
	}
	return n
}

func (r fakeHistory) remove(match func(models.WatchHistory) bool) int64 {
	var n int64
	for id, h := range r.s.history {
		if match(h) {
			delete(r.s.history, id)
			n++
		}
	}
	return n
}

func (r fakeHistory) DeleteByUser(_ context.Context, _ *gorm.DB, userID string) (int64, error) {
	if err := r.s.call("WatchHistory.DeleteByUser"); err != nil {
		return 0, err
	}
	return r.remove(func(h models.WatchHistory) bool { return eqPtr(h.UserID, userID) }), nil
}

func (r fakeHistory) DeleteByVideoIDs(_ context.Context, _ *gorm.DB, videoIDs []string) (int64, error) {
	if err := r.s.call("WatchHistory.DeleteByVideoIDs"); err != nil {
		return 0, err
	}
	set := inSet(videoIDs)
	return r.remove(func(h models.WatchHistory) bool {
		if h.VideoID == nil {
			return false
		}
		_, ok := set[*h.VideoID]
		return ok
	}), nil
}

func (r fakeHistory) AnonymizeByUser(_ context.Context, _ *gorm.DB, userID string) (int64, error) {
	if err := r.s.call("WatchHistory.AnonymizeByUser"); err != nil {
		return 0, err
	}
	return r.update(func(h models.WatchHistory) bool { return eqPtr(h.UserID, userID) }, func(h *models.WatchHistory) {
		h.UserID = nil
		h.Metadata.DeletedChannel = true
	}), nil
}

func (r fakeHistory) AnonymizeByVideoIDs(_ context.Context, _ *gorm.DB, videoIDs []string) (int64, error) {
	if err := r.s.call("WatchHistory.AnonymizeByVideoIDs"); err != nil {
		return 0, err
	}
	set := inSet(videoIDs)
	return r.update(func(h models.WatchHistory) bool {
		if h.VideoID == nil {
			return false
		}
		_, ok := set[*h.VideoID]
		return ok
	}, func(h *models.WatchHistory) {
		h.VideoID = nil
		h.Metadata.DeletedChannel = true
	}), nil
}

func (r fakeHistory) ArchiveByUser(_ context.Context, _ *gorm.DB, userID string, at time.Time) (int64, error) {
	if err := r.s.call("WatchHistory.ArchiveByUser"); err != nil {
		return 0, err
	}
	return r.update(func(h models.WatchHistory) bool { return eqPtr(h.UserID, userID) }, func(h *models.WatchHistory) {
		archivedAt := at
		h.Archived = true
		h.ArchivedAt = &archivedAt
		h.ArchivedReason = models.ArchivedReasonChannelDeleted
		h.Metadata.DeletedChannel = true
		h.Metadata.OriginalUserID = h.UserID
		h.Metadata.OriginalVideoID = h.VideoID
		h.UserID = nil
	}), nil
}

func (r fakeHistory) ArchiveByVideoIDs(_ context.Context, _ *gorm.DB, channelID string, videoIDs []string, at time.Time) (int64, error) {
	if err := r.s.call("WatchHistory.ArchiveByVideoIDs"); err != nil {
		return 0, err
	}
	set := inSet(videoIDs)
	return r.update(func(h models.WatchHistory) bool {
		if h.VideoID == nil {
			return false
		}
		_, ok := set[*h.VideoID]
		return ok
	}, func(h *models.WatchHistory) {
		archivedAt := at
		h.Archived = true
		h.ArchivedAt = &archivedAt
		h.ArchivedReason = models.ArchivedReasonChannelDeleted
		h.Metadata.DeletedChannel = true
		h.Metadata.OriginalChannelID = strPtr(channelID)
		h.Metadata.OriginalVideoID = h.VideoID
		h.VideoID = nil
	}), nil
}

func (r fakeHistory) visible(userID string, includeArchived bool) []models.WatchHistory {
	var out []models.WatchHistory
	for _, h := range r.s.history {
		if !eqPtr(h.UserID, userID) {
			continue
		}
		if !includeArchived && (h.Archived || h.Metadata.DeletedChannel) {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastWatchedAt.After(out[j].LastWatchedAt) })
	return out
}

func (r fakeHistory) ListByUser(_ context.Context, _ *gorm.DB, in repositories.WatchHistoryListInput) ([]models.WatchHistory, error) {
	if err := r.s.call("WatchHistory.ListByUser"); err != nil {
		return nil, err
	}
	items := r.visible(in.UserID, in.IncludeArchived)
	if in.Limit <= 0 {
		return items, nil
	}
	if in.Offset >= len(items) {
		return nil, nil
	}
	end := in.Offset + in.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[in.Offset:end], nil
}

func (r fakeHistory) CountByUser(_ context.Context, _ *gorm.DB, userID string, includeArchived bool) (int64, error) {
	if err := r.s.call("WatchHistory.CountByUser"); err != nil {
		return 0, err
	}
	return int64(len(r.visible(userID, includeArchived))), nil
}

func (r fakeHistory) StatsByUser(_ context.Context, _ *gorm.DB, userID string) (repositories.WatchHistoryStats, error) {
	if err := r.s.call("WatchHistory.StatsByUser"); err != nil {
		return repositories.WatchHistoryStats{}, err
	}
	var stats repositories.WatchHistoryStats
	var pctSum float64
	for _, h := range r.visible(userID, false) {
		stats.TotalVideos++
		if h.Completed {
			stats.CompletedVideos++
		}
		stats.TotalWatchSeconds += h.Progress
		pctSum += h.ProgressPercent()
	}
	if stats.TotalVideos > 0 {
		stats.AvgProgressPercent = pctSum / float64(stats.TotalVideos)
	}
	for _, h := range r.s.history {
		if eqPtr(h.UserID, userID) && h.Archived {
			stats.ArchivedCount++
		}
	}
	return stats, nil
}

func (r fakeHistory) DeleteActiveByUser(_ context.Context, _ *gorm.DB, userID string) (int64, error) {
	if err := r.s.call("WatchHistory.DeleteActiveByUser"); err != nil {
		return 0, err
	}
	return r.remove(func(h models.WatchHistory) bool { return eqPtr(h.UserID, userID) && !h.Archived }), nil
}

func (r fakeHistory) ListOrphaned(_ context.Context, _ *gorm.DB, limit int) ([]models.WatchHistory, error) {
	if err := r.s.call("WatchHistory.ListOrphaned"); err != nil {
		return nil, err
	}
	var out []models.WatchHistory
	for _, h := range r.s.history {
		if h.Archived || h.VideoID == nil {
			continue
		}
		if _, ok := r.s.videos[*h.VideoID]; ok {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeHistory) ArchiveOrphaned(_ context.Context, _ *gorm.DB, historyIDs []string, at time.Time) (int64, error) {
	if err := r.s.call("WatchHistory.ArchiveOrphaned"); err != nil {
		return 0, err
	}
	set := inSet(historyIDs)
	return r.update(func(h models.WatchHistory) bool {
		_, ok := set[h.ID]
		return ok && !h.Archived
	}, func(h *models.WatchHistory) {
		archivedAt := at
		h.Archived = true
		h.ArchivedAt = &archivedAt
		h.ArchivedReason = models.ArchivedReasonVideoDeleted
		h.Metadata.OriginalVideoID = h.VideoID
	}), nil
}

func (r fakeHistory) ListArchivedForChannel(_ context.Context, _ *gorm.DB, originalUserID string) ([]models.WatchHistory, error) {
	if err := r.s.call("WatchHistory.ListArchivedForChannel"); err != nil {
		return nil, err
	}
	var out []models.WatchHistory
	for _, h := range r.s.history {
		if !h.Archived || h.ArchivedReason != models.ArchivedReasonChannelDeleted {
			continue
		}
		if eqPtr(h.Metadata.OriginalUserID, originalUserID) || eqPtr(h.Metadata.OriginalChannelID, originalUserID) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeHistory) ExistsForUserVideo(_ context.Context, _ *gorm.DB, userID string, videoID string) (bool, error) {
	if err := r.s.call("WatchHistory.ExistsForUserVideo"); err != nil {
		return false, err
	}
	for _, h := range r.s.history {
		if eqPtr(h.UserID, userID) && eqPtr(h.VideoID, videoID) {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeHistory) Restore(_ context.Context, _ *gorm.DB, historyID string, userID *string, videoID *string) error {
	if err := r.s.call("WatchHistory.Restore"); err != nil {
		return err
	}
	h, ok := r.s.history[historyID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	h.UserID = userID
	h.VideoID = videoID
	h.Archived = false
	h.ArchivedAt = nil
	h.ArchivedReason = ""
	h.Metadata = models.WatchHistoryMetadata{}
	r.s.history[historyID] = h
	return nil
}

type fakeTombstones struct{ s *fakeStore }

func (r fakeTombstones) Create(_ context.Context, _ *gorm.DB, tombstone *models.DeletedChannel) error {
	if err := r.s.call("DeletedChannels.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.tombstones {
		if existing.OriginalUserID == tombstone.OriginalUserID {
			return gorm.ErrDuplicatedKey
		}
	}
	if tombstone.ID == "" {
		tombstone.ID = r.s.newID("tomb")
	}
	r.s.tombstones[tombstone.ID] = *tombstone
	return nil
}

func (r fakeTombstones) GetByID(_ context.Context, _ *gorm.DB, tombstoneID string) (models.DeletedChannel, error) {
	if err := r.s.call("DeletedChannels.GetByID"); err != nil {
		return models.DeletedChannel{}, err
	}
	tombstone, ok := r.s.tombstones[tombstoneID]
	if !ok {
		return models.DeletedChannel{}, gorm.ErrRecordNotFound
	}
	return tombstone, nil
}

func (r fakeTombstones) filtered(recoverableOnly bool) []models.DeletedChannel {
	var out []models.DeletedChannel
	for _, t := range r.s.tombstones {
		if recoverableOnly && !t.IsRecoverable {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeletedAt.After(out[j].DeletedAt) })
	return out
}

func (r fakeTombstones) Count(_ context.Context, _ *gorm.DB, recoverableOnly bool) (int64, error) {
	if err := r.s.call("DeletedChannels.Count"); err != nil {
		return 0, err
	}
	return int64(len(r.filtered(recoverableOnly))), nil
}

func (r fakeTombstones) List(_ context.Context, _ *gorm.DB, in repositories.DeletedChannelListInput) ([]models.DeletedChannel, error) {
	if err := r.s.call("DeletedChannels.List"); err != nil {
		return nil, err
	}
	items := r.filtered(in.RecoverableOnly)
	if in.Offset >= len(items) {
		return nil, nil
	}
	end := in.Offset + in.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[in.Offset:end], nil
}

func (r fakeTombstones) MarkRecovered(_ context.Context, _ *gorm.DB, tombstoneID string, newUserID string, at time.Time) (int64, error) {
	if err := r.s.call("DeletedChannels.MarkRecovered"); err != nil {
		return 0, err
	}
	t, ok := r.s.tombstones[tombstoneID]
	if !ok || !t.IsRecoverable {
		return 0, nil
	}
	recoveredAt := at
	t.IsRecoverable = false
	t.RecoveredAt = &recoveredAt
	t.RecoveredUserID = strPtr(newUserID)
	r.s.tombstones[tombstoneID] = t
	return 1, nil
}

func (r fakeTombstones) ExpireOverdue(_ context.Context, _ *gorm.DB, now time.Time) (int64, error) {
	if err := r.s.call("DeletedChannels.ExpireOverdue"); err != nil {
		return 0, err
	}
	var n int64
	for id, t := range r.s.tombstones {
		if t.IsRecoverable && t.RecoveryDeadline.Before(now) {
			t.IsRecoverable = false
			r.s.tombstones[id] = t
			n++
		}
	}
	return n, nil
}

func (r fakeTombstones) DeleteExpired(_ context.Context, _ *gorm.DB, now time.Time) (int64, error) {
	if err := r.s.call("DeletedChannels.DeleteExpired"); err != nil {
		return 0, err
	}
	var n int64
	for id, t := range r.s.tombstones {
		if !t.IsRecoverable && t.RecoveryDeadline.Before(now) {
			delete(r.s.tombstones, id)
			n++
		}
	}
	return n, nil
}

func (r fakeTombstones) Statistics(_ context.Context, _ *gorm.DB, now time.Time) (repositories.DeletionStatistics, error) {
	if err := r.s.call("DeletedChannels.Statistics"); err != nil {
		return repositories.DeletionStatistics{}, err
	}
	stats := repositories.DeletionStatistics{ByReason: map[models.DeletionReason]int64{}}
	for _, t := range r.s.tombstones {
		stats.Total++
		stats.ByReason[t.DeletionReason]++
		switch {
		case t.RecoveredAt != nil:
			stats.Recovered++
		case t.IsRecoverable && !t.RecoveryDeadline.Before(now):
			stats.Recoverable++
		}
	}
	stats.Expired = stats.Total - stats.Recoverable - stats.Recovered
	return stats, nil
}

// fakeLock refuses any channel listed in held.
type fakeLock struct {
	held     map[string]bool
	released []string
}

func (l *fakeLock) Acquire(_ context.Context, channelID string, _ time.Duration) (func(context.Context) error, error) {
	if l.held[channelID] {
		return nil, repositories.ErrLockHeld
	}
	return func(context.Context) error {
		l.released = append(l.released, channelID)
		return nil
	}, nil
}

type fakeStatsCache struct {
	stored      *repositories.DeletionStatistics
	invalidated int
}

func (c *fakeStatsCache) Get(context.Context) (*repositories.DeletionStatistics, error) {
	return c.stored, nil
}

func (c *fakeStatsCache) Set(_ context.Context, stats repositories.DeletionStatistics, _ time.Duration) error {
	c.stored = &stats
	return nil
}

func (c *fakeStatsCache) Invalidate(context.Context) error {
	c.invalidated++
	c.stored = nil
	return nil
}

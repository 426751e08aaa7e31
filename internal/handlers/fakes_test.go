package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// memoryDB backs every fake store so cross-entity reads behave like the joins the
// PostgreSQL repositories perform.
type memoryDB struct {
	mu            sync.Mutex
	users         map[string]models.User
	refresh       map[string]string
	videos        map[string]models.Video
	history       map[string][]string
	comments      map[string]models.Comment
	tweets        map[string]models.Tweet
	likes         map[string]models.Like
	subscriptions map[string]models.Subscription
	playlists     map[string]models.Playlist
	statsQueries  int
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		users:         make(map[string]models.User),
		refresh:       make(map[string]string),
		videos:        make(map[string]models.Video),
		history:       make(map[string][]string),
		comments:      make(map[string]models.Comment),
		tweets:        make(map[string]models.Tweet),
		likes:         make(map[string]models.Like),
		subscriptions: make(map[string]models.Subscription),
		playlists:     make(map[string]models.Playlist),
	}
}

func (db *memoryDB) summaryLocked(userID string) *models.UserSummary {
	summary := db.users[userID].Summary()
	return &summary
}

func (db *memoryDB) videoViewLocked(video models.Video) models.Video {
	video.Owner = db.summaryLocked(video.OwnerID)
	video.LikesCount = 0
	for _, like := range db.likes {
		if like.TargetType == models.LikeTargetVideo && like.TargetID == video.ID {
			video.LikesCount++
		}
	}
	return video
}

func (db *memoryDB) liveVideoLocked(id string) (models.Video, bool) {
	video, ok := db.videos[id]
	if !ok || video.IsDeleted {
		return models.Video{}, false
	}
	return video, true
}

type fakeUsers struct{ db *memoryDB }

func (s fakeUsers) Create(_ context.Context, user models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.db.users[user.ID] = user
	return nil
}

func (s fakeUsers) FindByID(_ context.Context, id string) (models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	user, ok := s.db.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s fakeUsers) FindByLogin(_ context.Context, username, email string) (models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, user := range s.db.users {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s fakeUsers) UpdatePassword(_ context.Context, userID, hash string) error {
	return s.mutate(userID, func(u *models.User) error {
		u.Password = hash
		return nil
	})
}

func (s fakeUsers) UpdateAccount(_ context.Context, userID string, update models.AccountUpdate) (models.User, error) {
	err := s.mutate(userID, func(u *models.User) error {
		if update.Email != nil {
			for id, other := range s.db.users {
				if id != userID && other.Email == *update.Email {
					return repositories.ErrConflict
				}
			}
			u.Email = *update.Email
		}
		if update.FullName != nil {
			u.FullName = *update.FullName
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return s.FindByID(context.Background(), userID)
}

func (s fakeUsers) UpdateAvatar(_ context.Context, userID, url string) (models.User, error) {
	if err := s.mutate(userID, func(u *models.User) error { u.Avatar = url; return nil }); err != nil {
		return models.User{}, err
	}
	return s.FindByID(context.Background(), userID)
}

func (s fakeUsers) UpdateCoverImage(_ context.Context, userID, url string) (models.User, error) {
	if err := s.mutate(userID, func(u *models.User) error { u.CoverImage = url; return nil }); err != nil {
		return models.User{}, err
	}
	return s.FindByID(context.Background(), userID)
}

func (s fakeUsers) mutate(userID string, fn func(*models.User) error) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	user, ok := s.db.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	if err := fn(&user); err != nil {
		return err
	}
	user.UpdatedAt = time.Now().UTC()
	s.db.users[userID] = user
	return nil
}

func (s fakeUsers) ChannelProfile(_ context.Context, username, viewerID string) (models.ChannelProfile, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, user := range s.db.users {
		if user.Username != username {
			continue
		}
		profile := models.ChannelProfile{
			ID:         user.ID,
			Username:   user.Username,
			FullName:   user.FullName,
			Email:      user.Email,
			Avatar:     user.Avatar,
			CoverImage: user.CoverImage,
		}
		for _, sub := range s.db.subscriptions {
			if sub.ChannelID == user.ID {
				profile.SubscribersCount++
				if sub.SubscriberID == viewerID {
					profile.IsSubscribed = true
				}
			}
			if sub.SubscriberID == user.ID {
				profile.ChannelsSubscribedToCount++
			}
		}
		return profile, nil
	}
	return models.ChannelProfile{}, repositories.ErrNotFound
}

func (s fakeUsers) WatchHistory(_ context.Context, userID string) ([]models.Video, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	videos := []models.Video{}
	for _, id := range s.db.history[userID] {
		if video, ok := s.db.liveVideoLocked(id); ok {
			videos = append(videos, s.db.videoViewLocked(video))
		}
	}
	return videos, nil
}

func (s fakeUsers) SaveRefreshToken(_ context.Context, userID, token string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.refresh[userID] = token
	return nil
}

func (s fakeUsers) RefreshToken(_ context.Context, userID string) (string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	token, ok := s.db.refresh[userID]
	if !ok || token == "" {
		return "", auth.ErrSessionNotFound
	}
	return token, nil
}

func (s fakeUsers) RotateRefreshToken(_ context.Context, userID, old, next string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if current, ok := s.db.refresh[userID]; !ok || current != old {
		return false, nil
	}
	s.db.refresh[userID] = next
	return true, nil
}

func (s fakeUsers) ClearRefreshToken(_ context.Context, userID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.refresh, userID)
	return nil
}

type fakeVideos struct{ db *memoryDB }

func (s fakeVideos) Create(_ context.Context, video models.Video) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	video.Owner = nil
	s.db.videos[video.ID] = video
	return nil
}

func (s fakeVideos) FindByID(_ context.Context, id string) (models.Video, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	video, ok := s.db.liveVideoLocked(id)
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return s.db.videoViewLocked(video), nil
}

func (s fakeVideos) List(_ context.Context, query models.VideoQuery) (models.VideoPage, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(query.Search))
	matched := []models.Video{}
	for _, video := range s.db.videos {
		if video.IsDeleted || (!video.IsPublished && video.OwnerID != query.ViewerID) {
			continue
		}
		if query.OwnerID != "" && video.OwnerID != query.OwnerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(video.Title), search) &&
			!strings.Contains(strings.ToLower(video.Description), search) {
			continue
		}
		matched = append(matched, s.db.videoViewLocked(video))
	}
	sort.Slice(matched, func(i, j int) bool {
		less := matched[i].CreatedAt.Before(matched[j].CreatedAt)
		if query.SortBy == "views" {
			less = matched[i].Views < matched[j].Views
		}
		if query.SortDesc {
			return !less
		}
		return less
	})

	page, limit := max(query.Page, 1), query.Limit
	if limit < 1 {
		limit = 10
	}
	start := min((page-1)*limit, len(matched))
	end := min(start+limit, len(matched))
	videos := matched[start:end]
	return models.VideoPage{
		Videos: videos,
		Pagination: models.Pagination{
			CurrentPage: page,
			Limit:       limit,
			TotalVideos: int64(len(matched)),
			HasNextPage: len(videos) == limit,
		},
	}, nil
}

func (s fakeVideos) Update(_ context.Context, id string, update models.VideoUpdate) (models.Video, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	video, ok := s.db.liveVideoLocked(id)
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	if update.Title != nil {
		video.Title = *update.Title
	}
	if update.Description != nil {
		video.Description = *update.Description
	}
	if update.Thumbnail != nil {
		video.Thumbnail = *update.Thumbnail
	}
	if update.IsPublished != nil {
		video.IsPublished = *update.IsPublished
	}
	s.db.videos[id] = video
	return s.db.videoViewLocked(video), nil
}

func (s fakeVideos) SoftDelete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	video, ok := s.db.liveVideoLocked(id)
	if !ok {
		return repositories.ErrNotFound
	}
	video.IsDeleted = true
	s.db.videos[id] = video
	return nil
}

func (s fakeVideos) TogglePublish(_ context.Context, id string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	video, ok := s.db.liveVideoLocked(id)
	if !ok {
		return false, repositories.ErrNotFound
	}
	video.IsPublished = !video.IsPublished
	s.db.videos[id] = video
	return video.IsPublished, nil
}

func (s fakeVideos) RecordView(_ context.Context, videoID, viewerID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, id := range s.db.history[viewerID] {
		if id == videoID {
			return false, nil
		}
	}
	video, ok := s.db.liveVideoLocked(videoID)
	if !ok {
		return false, repositories.ErrNotFound
	}
	video.Views++
	s.db.videos[videoID] = video
	s.db.history[viewerID] = append(s.db.history[viewerID], videoID)
	return true, nil
}

func (s fakeVideos) ChannelVideos(_ context.Context, ownerID string, page, limit int) ([]models.Video, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	owned := []models.Video{}
	for _, video := range s.db.videos {
		if video.OwnerID == ownerID && !video.IsDeleted {
			owned = append(owned, s.db.videoViewLocked(video))
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	start := min((page-1)*limit, len(owned))
	end := min(start+limit, len(owned))
	return owned[start:end], int64(len(owned)), nil
}

type fakeComments struct{ db *memoryDB }

func (s fakeComments) Create(_ context.Context, comment models.Comment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.videos[comment.VideoID]; !ok {
		return repositories.ErrNotFound
	}
	comment.Owner = nil
	s.db.comments[comment.ID] = comment
	return nil
}

func (s fakeComments) FindByID(_ context.Context, id string) (models.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	comment, ok := s.db.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	comment.Owner = s.db.summaryLocked(comment.OwnerID)
	return comment, nil
}

func (s fakeComments) ListForVideo(_ context.Context, videoID string, page, limit int) ([]models.Comment, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	comments := []models.Comment{}
	for _, comment := range s.db.comments {
		if comment.VideoID == videoID {
			comment.Owner = s.db.summaryLocked(comment.OwnerID)
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	start := min((page-1)*limit, len(comments))
	end := min(start+limit, len(comments))
	return comments[start:end], int64(len(comments)), nil
}

func (s fakeComments) UpdateContent(ctx context.Context, id, content string) (models.Comment, error) {
	s.db.mu.Lock()
	comment, ok := s.db.comments[id]
	if ok {
		comment.Content = content
		s.db.comments[id] = comment
	}
	s.db.mu.Unlock()
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s fakeComments) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.db.comments, id)
	return nil
}

type fakeTweets struct{ db *memoryDB }

func (s fakeTweets) Create(_ context.Context, tweet models.Tweet) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	tweet.Owner = nil
	s.db.tweets[tweet.ID] = tweet
	return nil
}

func (s fakeTweets) FindByID(_ context.Context, id string) (models.Tweet, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	tweet, ok := s.db.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	tweet.Owner = s.db.summaryLocked(tweet.OwnerID)
	return tweet, nil
}

func (s fakeTweets) ListByOwner(_ context.Context, ownerID string) ([]models.Tweet, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	tweets := []models.Tweet{}
	for _, tweet := range s.db.tweets {
		if tweet.OwnerID == ownerID {
			tweet.Owner = s.db.summaryLocked(tweet.OwnerID)
			tweets = append(tweets, tweet)
		}
	}
	sort.Slice(tweets, func(i, j int) bool { return tweets[i].CreatedAt.After(tweets[j].CreatedAt) })
	return tweets, nil
}

func (s fakeTweets) UpdateContent(ctx context.Context, id, content string) (models.Tweet, error) {
	s.db.mu.Lock()
	tweet, ok := s.db.tweets[id]
	if ok {
		tweet.Content = content
		s.db.tweets[id] = tweet
	}
	s.db.mu.Unlock()
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s fakeTweets) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.tweets[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.db.tweets, id)
	return nil
}

type fakeLikes struct{ db *memoryDB }

func (s fakeLikes) Toggle(_ context.Context, like models.Like) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := like.LikedBy + "|" + string(like.TargetType) + "|" + like.TargetID
	if _, ok := s.db.likes[key]; ok {
		delete(s.db.likes, key)
		return false, nil
	}
	s.db.likes[key] = like
	return true, nil
}

func (s fakeLikes) LikedVideos(_ context.Context, userID string) ([]models.Video, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	videos := []models.Video{}
	for _, like := range s.db.likes {
		if like.LikedBy != userID || like.TargetType != models.LikeTargetVideo {
			continue
		}
		if video, ok := s.db.liveVideoLocked(like.TargetID); ok && (video.IsPublished || video.OwnerID == userID) {
			videos = append(videos, s.db.videoViewLocked(video))
		}
	}
	return videos, nil
}

type fakeSubscriptions struct{ db *memoryDB }

func (s fakeSubscriptions) Toggle(_ context.Context, sub models.Subscription) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if sub.SubscriberID == sub.ChannelID {
		return false, errors.New("check constraint violated")
	}
	key := sub.SubscriberID + "|" + sub.ChannelID
	if _, ok := s.db.subscriptions[key]; ok {
		delete(s.db.subscriptions, key)
		return false, nil
	}
	s.db.subscriptions[key] = sub
	return true, nil
}

func (s fakeSubscriptions) Subscribers(_ context.Context, channelID string) ([]models.UserSummary, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	users := []models.UserSummary{}
	for _, sub := range s.db.subscriptions {
		if sub.ChannelID == channelID {
			users = append(users, *s.db.summaryLocked(sub.SubscriberID))
		}
	}
	return users, nil
}

func (s fakeSubscriptions) SubscribedChannels(_ context.Context, subscriberID string) ([]models.UserSummary, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	users := []models.UserSummary{}
	for _, sub := range s.db.subscriptions {
		if sub.SubscriberID == subscriberID {
			users = append(users, *s.db.summaryLocked(sub.ChannelID))
		}
	}
	return users, nil
}

type fakePlaylists struct{ db *memoryDB }

func (s fakePlaylists) Create(_ context.Context, playlist models.Playlist) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	playlist.Videos = []string{}
	s.db.playlists[playlist.ID] = playlist
	return nil
}

func (s fakePlaylists) FindByID(_ context.Context, id string) (models.Playlist, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	playlist, ok := s.db.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	return s.db.playlistViewLocked(playlist), nil
}

// playlistViewLocked hides soft-deleted members, as the SQL store does.
func (db *memoryDB) playlistViewLocked(playlist models.Playlist) models.Playlist {
	members := []string{}
	for _, id := range playlist.Videos {
		if _, ok := db.liveVideoLocked(id); ok {
			members = append(members, id)
		}
	}
	playlist.Videos = members
	return playlist
}

func (s fakePlaylists) ListByOwner(_ context.Context, ownerID string) ([]models.Playlist, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	playlists := []models.Playlist{}
	for _, playlist := range s.db.playlists {
		if playlist.OwnerID == ownerID {
			playlists = append(playlists, s.db.playlistViewLocked(playlist))
		}
	}
	return playlists, nil
}

func (s fakePlaylists) AddVideo(_ context.Context, playlistID, videoID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	playlist, ok := s.db.playlists[playlistID]
	if !ok {
		return repositories.ErrNotFound
	}
	for _, id := range playlist.Videos {
		if id == videoID {
			return nil
		}
	}
	playlist.Videos = append(playlist.Videos, videoID)
	s.db.playlists[playlistID] = playlist
	return nil
}

func (s fakePlaylists) RemoveVideo(_ context.Context, playlistID, videoID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	playlist := s.db.playlists[playlistID]
	kept := []string{}
	for _, id := range playlist.Videos {
		if id != videoID {
			kept = append(kept, id)
		}
	}
	playlist.Videos = kept
	s.db.playlists[playlistID] = playlist
	return nil
}

func (s fakePlaylists) Update(ctx context.Context, id string, update models.PlaylistUpdate) (models.Playlist, error) {
	s.db.mu.Lock()
	playlist, ok := s.db.playlists[id]
	if ok {
		if update.Name != nil {
			playlist.Name = *update.Name
		}
		if update.Description != nil {
			playlist.Description = *update.Description
		}
		s.db.playlists[id] = playlist
	}
	s.db.mu.Unlock()
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s fakePlaylists) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.db.playlists, id)
	return nil
}

type fakeStats struct{ db *memoryDB }

func (s fakeStats) ChannelStats(_ context.Context, ownerID string) (models.ChannelStats, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.statsQueries++

	var stats models.ChannelStats
	for _, sub := range s.db.subscriptions {
		if sub.ChannelID == ownerID {
			stats.TotalSubscribers++
		}
	}
	for _, video := range s.db.videos {
		if video.OwnerID != ownerID || video.IsDeleted {
			continue
		}
		stats.TotalVideos++
		stats.TotalViews += video.Views
		stats.TotalLikes += s.db.videoViewLocked(video).LikesCount
	}
	return stats, nil
}

// fakeUploader mimics media.Uploader: it consumes the staged file and returns a URL.
// Staged files whose form field matches failField are rejected.
type fakeUploader struct {
	mu        sync.Mutex
	fail      bool
	failField string
	duration  float64
	uploaded  []string
	discarded []string
}

func (u *fakeUploader) Upload(_ context.Context, localPath string) (media.Asset, error) {
	defer os.Remove(localPath)
	u.mu.Lock()
	defer u.mu.Unlock()
	name := filepath.Base(localPath)
	if u.fail || (u.failField != "" && strings.HasPrefix(name, u.failField+"-")) {
		return media.Asset{}, media.ErrStorageUnavailable
	}
	u.uploaded = append(u.uploaded, name)
	asset := media.Asset{URL: "https://cdn.test/" + name, Key: name}
	if strings.HasPrefix(name, "videoFile-") {
		asset.Duration = u.duration
	}
	return asset, nil
}

func (u *fakeUploader) Discard(_ context.Context, asset media.Asset) error {
	if asset.Key == "" {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.discarded = append(u.discarded, asset.Key)
	return nil
}

// racingUsers loses every insert to a concurrent registration.
type racingUsers struct{ fakeUsers }

func (racingUsers) Create(context.Context, models.User) error { return repositories.ErrConflict }

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads []any
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, payload)
	return nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }

package handlers

import (
	"context"

	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/models"
)

// UserStore captures the persistence operations required by the user and auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, username, email string) (models.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateAccount(ctx context.Context, userID string, update models.AccountUpdate) (models.User, error)
	UpdateAvatar(ctx context.Context, userID, url string) (models.User, error)
	UpdateCoverImage(ctx context.Context, userID, url string) (models.User, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]models.Video, error)
}

// SessionManager issues, verifies and revokes authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Verify(accessToken string) (string, error)
	Revoke(ctx context.Context, userID string) error
}

// VideoStore captures persistence for uploaded videos.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, query models.VideoQuery) (models.VideoPage, error)
	Update(ctx context.Context, id string, update models.VideoUpdate) (models.Video, error)
	SoftDelete(ctx context.Context, id string) error
	TogglePublish(ctx context.Context, id string) (bool, error)
	RecordView(ctx context.Context, videoID, viewerID string) (bool, error)
	ChannelVideos(ctx context.Context, ownerID string, page, limit int) ([]models.Video, int64, error)
}

// CommentStore captures persistence for video comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListForVideo(ctx context.Context, videoID string, page, limit int) ([]models.Comment, int64, error)
	UpdateContent(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// TweetStore captures persistence for tweets.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error)
	UpdateContent(ctx context.Context, id, content string) (models.Tweet, error)
	Delete(ctx context.Context, id string) error
}

// LikeStore captures persistence for likes.
type LikeStore interface {
	Toggle(ctx context.Context, like models.Like) (bool, error)
	LikedVideos(ctx context.Context, userID string) ([]models.Video, error)
}

// SubscriptionStore captures persistence for channel subscriptions.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscription models.Subscription) (bool, error)
	Subscribers(ctx context.Context, channelID string) ([]models.UserSummary, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]models.UserSummary, error)
}

// PlaylistStore captures persistence for playlists.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
	Update(ctx context.Context, id string, update models.PlaylistUpdate) (models.Playlist, error)
	Delete(ctx context.Context, id string) error
}

// StatsStore computes channel dashboard aggregates.
type StatsStore interface {
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

// StatsCache memoizes channel statistics per owner.
type StatsCache interface {
	Get(ctx context.Context, ownerID string) (models.ChannelStats, bool)
	Set(ctx context.Context, ownerID string, stats models.ChannelStats)
	Invalidate(ctx context.Context, ownerID string)
}

// MediaUploader moves a staged local file to durable storage. Discard removes an
// uploaded asset that ended up unreferenced.
type MediaUploader interface {
	Upload(ctx context.Context, localPath string) (media.Asset, error)
	Discard(ctx context.Context, asset media.Asset) error
}

// EventPublisher emits domain events for downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

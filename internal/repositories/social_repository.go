package repositories

import (
	"context"

	"github.com/videotube/backend/internal/models"
)

// CommentRepository exposes data access for video comments.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListForVideo(ctx context.Context, videoID string, page, limit int) ([]models.Comment, int64, error)
	UpdateContent(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// TweetRepository exposes data access for tweets.
type TweetRepository interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error)
	UpdateContent(ctx context.Context, id, content string) (models.Tweet, error)
	Delete(ctx context.Context, id string) error
}

// LikeRepository exposes data access for likes on comments, videos and tweets.
type LikeRepository interface {
	// Toggle removes the like when present, otherwise records it. It reports whether
	// the target is liked afterwards.
	Toggle(ctx context.Context, like models.Like) (bool, error)
	LikedVideos(ctx context.Context, userID string) ([]models.Video, error)
}

// SubscriptionRepository exposes data access for channel subscriptions.
type SubscriptionRepository interface {
	Toggle(ctx context.Context, subscription models.Subscription) (bool, error)
	Subscribers(ctx context.Context, channelID string) ([]models.UserSummary, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]models.UserSummary, error)
}

// PlaylistRepository exposes data access for playlists and their membership.
type PlaylistRepository interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
	Update(ctx context.Context, id string, update models.PlaylistUpdate) (models.Playlist, error)
	Delete(ctx context.Context, id string) error
}

// DashboardRepository exposes read-only aggregates over a channel.
type DashboardRepository interface {
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

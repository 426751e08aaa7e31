package models

import "time"

// User represents an account (and its channel) within the VideoTube platform.
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	Password     string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary projects the user to the minimal public shape embedded in other views.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, FullName: u.FullName, Avatar: u.Avatar}
}

// UserSummary is the public owner shape attached to videos, comments and tweets.
type UserSummary struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// AccountUpdate carries a partial profile update; nil fields are left untouched.
type AccountUpdate struct {
	FullName *string
	Email    *string
}

// ChannelProfile is the public channel view derived from a user and its subscriptions.
type ChannelProfile struct {
	ID                        string `json:"_id"`
	Username                  string `json:"username"`
	FullName                  string `json:"fullName"`
	Email                     string `json:"email"`
	Avatar                    string `json:"avatar"`
	CoverImage                string `json:"coverImage"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

// Video is an uploaded video together with its publishing state.
type Video struct {
	ID          string       `json:"_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	VideoFile   string       `json:"videoFile"`
	Thumbnail   string       `json:"thumbnail"`
	Duration    float64      `json:"duration"`
	Views       int64        `json:"views"`
	OwnerID     string       `json:"ownerId"`
	Owner       *UserSummary `json:"owner,omitempty"`
	IsPublished bool         `json:"isPublished"`
	IsDeleted   bool         `json:"-"`
	LikesCount  int64        `json:"likesCount"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// VideoUpdate carries a partial video update; nil fields are left untouched.
type VideoUpdate struct {
	Title       *string
	Description *string
	Thumbnail   *string
	IsPublished *bool
}

// VideoQuery filters, sorts and paginates video listings.
type VideoQuery struct {
	Search   string
	OwnerID  string
	ViewerID string
	SortBy   string
	SortDesc bool
	Page     int
	Limit    int
}

// Pagination describes the page returned by a listing.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	Limit       int   `json:"limit"`
	TotalVideos int64 `json:"totalVideos"`
	HasNextPage bool  `json:"hasNextPage"`
}

// VideoPage is one page of a video listing.
type VideoPage struct {
	Videos     []Video    `json:"videos"`
	Pagination Pagination `json:"paginationInfo"`
}

// Comment is a text comment attached to a video.
type Comment struct {
	ID        string       `json:"_id"`
	Content   string       `json:"content"`
	VideoID   string       `json:"video"`
	OwnerID   string       `json:"ownerId"`
	Owner     *UserSummary `json:"owner,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// LikeTarget enumerates the kinds of records that can be liked.
type LikeTarget string

const (
	LikeTargetComment LikeTarget = "comment"
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetTweet   LikeTarget = "tweet"
)

// Like records a user liking a comment, video or tweet.
type Like struct {
	ID         string     `json:"_id"`
	LikedBy    string     `json:"likedBy"`
	TargetType LikeTarget `json:"targetType"`
	TargetID   string     `json:"targetId"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Playlist is an owner-curated ordered list of videos.
type Playlist struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner"`
	Videos      []string  `json:"videos"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PlaylistUpdate carries a partial playlist update; nil fields are left untouched.
type PlaylistUpdate struct {
	Name        *string
	Description *string
}

// Subscription links a subscriber to a channel (another user).
type Subscription struct {
	ID           string    `json:"_id"`
	SubscriberID string    `json:"subscriber"`
	ChannelID    string    `json:"channel"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Tweet is a short text post owned by a user.
type Tweet struct {
	ID        string       `json:"_id"`
	Content   string       `json:"content"`
	OwnerID   string       `json:"ownerId"`
	Owner     *UserSummary `json:"owner,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// ChannelStats aggregates read-only statistics over a channel owner's videos.
type ChannelStats struct {
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalLikes       int64 `json:"totalLikes"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

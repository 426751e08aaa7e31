package handlers

import (
	"net/http"
	"net/netip"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/videotube/backend/internal/config"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Videos        VideoStore
	Comments      CommentStore
	Tweets        TweetStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Playlists     PlaylistStore
	Dashboard     StatsStore
	StatsCache    StatsCache
	Uploader      MediaUploader
	Events        EventPublisher
	AuthLimiter   RateLimiter
	Health        Pinger
	// Media serves locally stored uploads under /media/ when set.
	Media   http.Handler
	Cookies config.CookieConfig
	Staging Staging
	// TrustedProxies gates forwarded client address headers for rate limiting.
	TrustedProxies []netip.Prefix
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{DB: deps.Health}
	users := UserHandler{
		Users:    deps.Users,
		Sessions: deps.Sessions,
		Uploader: deps.Uploader,
		Events:   deps.Events,
		Limiter:  deps.AuthLimiter,
		Cookies:  deps.Cookies,
		Staging:  deps.Staging,

		TrustedProxies: deps.TrustedProxies,
	}
	videos := VideoHandler{
		Videos:   deps.Videos,
		Uploader: deps.Uploader,
		Events:   deps.Events,
		Stats:    deps.StatsCache,
		Staging:  deps.Staging,
	}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos}
	tweets := TweetHandler{Tweets: deps.Tweets, Users: deps.Users}
	likes := LikeHandler{
		Likes:    deps.Likes,
		Comments: deps.Comments,
		Videos:   deps.Videos,
		Tweets:   deps.Tweets,
		Stats:    deps.StatsCache,
	}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Users: deps.Users, Stats: deps.StatsCache}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Videos: deps.Videos}
	dashboard := DashboardHandler{Stats: deps.Dashboard, Cache: deps.StatsCache, Videos: deps.Videos}

	authn := Authenticator{Sessions: deps.Sessions, Users: deps.Users}
	public := func(pattern string, fn handlerFunc) { mux.Handle(pattern, handle(fn)) }
	private := func(pattern string, fn handlerFunc) { mux.Handle(pattern, authn.Require(handle(fn))) }

	mux.HandleFunc("GET /healthz", health.Handle)
	mux.Handle("GET /metrics", promhttp.Handler())
	if deps.Media != nil {
		mux.Handle("GET /media/", http.StripPrefix("/media/", deps.Media))
	}

	public("POST /api/v1/users/register", users.Register)
	public("POST /api/v1/users/login", users.Login)
	public("POST /api/v1/users/refresh-token", users.RefreshToken)
	private("POST /api/v1/users/logout", users.Logout)
	private("POST /api/v1/users/change-password", users.ChangePassword)
	private("GET /api/v1/users/current-user", users.CurrentUser)
	private("PATCH /api/v1/users/update-account", users.UpdateAccount)
	private("PATCH /api/v1/users/avatar", users.UpdateAvatar)
	private("PATCH /api/v1/users/cover-image", users.UpdateCoverImage)
	private("GET /api/v1/users/c/{username}", users.ChannelProfile)
	private("GET /api/v1/users/history", users.WatchHistory)

	private("GET /api/v1/videos", videos.List)
	private("POST /api/v1/videos", videos.Publish)
	private("GET /api/v1/videos/{videoId}", videos.Get)
	private("PATCH /api/v1/videos/{videoId}", videos.Update)
	private("DELETE /api/v1/videos/{videoId}", videos.Delete)
	private("PATCH /api/v1/videos/toggle/publish/{videoId}", videos.TogglePublish)

	private("GET /api/v1/comments/{videoId}", comments.List)
	private("POST /api/v1/comments/{videoId}", comments.Add)
	private("PATCH /api/v1/comments/c/{commentId}", comments.Update)
	private("DELETE /api/v1/comments/c/{commentId}", comments.Delete)

	private("POST /api/v1/tweets", tweets.Create)
	private("GET /api/v1/tweets/user/{userId}", tweets.ListByUser)
	private("PATCH /api/v1/tweets/{tweetId}", tweets.Update)
	private("DELETE /api/v1/tweets/{tweetId}", tweets.Delete)

	private("POST /api/v1/likes/toggle/c/{commentId}", likes.ToggleComment)
	private("POST /api/v1/likes/toggle/v/{videoId}", likes.ToggleVideo)
	private("POST /api/v1/likes/toggle/t/{tweetId}", likes.ToggleTweet)
	private("GET /api/v1/likes/videos", likes.LikedVideos)

	private("POST /api/v1/subscriptions/c/{channelId}", subscriptions.Toggle)
	private("GET /api/v1/subscriptions/c/{channelId}", subscriptions.Subscribers)
	private("GET /api/v1/subscriptions/u/{subscriberId}", subscriptions.SubscribedChannels)

	private("POST /api/v1/playlist", playlists.Create)
	private("GET /api/v1/playlist/{playlistId}", playlists.Get)
	private("GET /api/v1/playlist/user/{userId}", playlists.ListByUser)
	private("PATCH /api/v1/playlist/add/{videoId}/{playlistId}", playlists.AddVideo)
	private("PATCH /api/v1/playlist/remove/{videoId}/{playlistId}", playlists.RemoveVideo)
	private("PATCH /api/v1/playlist/{playlistId}", playlists.Update)
	private("DELETE /api/v1/playlist/{playlistId}", playlists.Delete)

	private("GET /api/v1/dashboard/stats", dashboard.ChannelStats)
	private("GET /api/v1/dashboard/videos", dashboard.ChannelVideos)
}

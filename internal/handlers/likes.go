package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/models"
)

// LikeHandler toggles likes on comments, videos and tweets.
type LikeHandler struct {
	Likes    LikeStore
	Comments CommentStore
	Videos   VideoStore
	Tweets   TweetStore
	Stats    StatsCache
	NowFunc  func() time.Time
}

type likeResponse struct {
	Liked bool         `json:"liked"`
	Like  *models.Like `json:"like,omitempty"`
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, models.LikeTargetComment, "commentId", func(ctx context.Context, id string) (string, error) {
		_, err := h.Comments.FindByID(ctx, id)
		return "", lookupError(err, "comment not found")
	})
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, models.LikeTargetVideo, "videoId", func(ctx context.Context, id string) (string, error) {
		user, err := currentUser(r)
		if err != nil {
			return "", err
		}
		video, err := visibleVideo(ctx, h.Videos, id, user.ID)
		if err != nil {
			return "", err
		}
		return video.OwnerID, nil
	})
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, models.LikeTargetTweet, "tweetId", func(ctx context.Context, id string) (string, error) {
		_, err := h.Tweets.FindByID(ctx, id)
		return "", lookupError(err, "tweet not found")
	})
}

// targetLookup confirms a like target exists and returns the channel whose dashboard
// aggregates it feeds, if any.
type targetLookup func(ctx context.Context, id string) (string, error)

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, target models.LikeTarget, param string, lookup targetLookup) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	targetID, err := pathID(r, param)
	if err != nil {
		return err
	}

	ctx := r.Context()
	channelID, err := lookup(ctx, targetID)
	if err != nil {
		return err
	}

	like := models.Like{
		ID:         uuid.NewString(),
		LikedBy:    user.ID,
		TargetType: target,
		TargetID:   targetID,
		CreatedAt:  h.now(),
	}
	liked, err := h.Likes.Toggle(ctx, like)
	if err != nil {
		return lookupError(err, string(target)+" not found")
	}
	invalidateStats(ctx, h.Stats, channelID)

	resp := likeResponse{Liked: liked}
	message := string(target) + " unliked"
	if liked {
		resp.Like = &like
		message = string(target) + " liked"
	}
	return respond(w, r, http.StatusOK, resp, message)
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	videos, err := h.Likes.LikedVideos(r.Context(), user.ID)
	if err != nil {
		return err
	}
	return respond(w, r, http.StatusOK, videos, "liked videos fetched successfully")
}

func (h LikeHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

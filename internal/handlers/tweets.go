package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/models"
)

// TweetHandler manages short text posts.
type TweetHandler struct {
	Tweets  TweetStore
	Users   UserStore
	NowFunc func() time.Time
}

// Create handles POST /api/v1/tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	content, err := readContent(r)
	if err != nil {
		return err
	}

	now := h.now()
	owner := user.Summary()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		Content:   content,
		OwnerID:   user.ID,
		Owner:     &owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Tweets.Create(r.Context(), tweet); err != nil {
		return err
	}
	return respond(w, r, http.StatusCreated, tweet, "tweet created successfully")
}

// ListByUser handles GET /api/v1/tweets/user/{userId}.
func (h TweetHandler) ListByUser(w http.ResponseWriter, r *http.Request) error {
	userID, err := pathID(r, "userId")
	if err != nil {
		return err
	}

	ctx := r.Context()
	if _, err := h.Users.FindByID(ctx, userID); err != nil {
		return lookupError(err, "user does not exist")
	}

	tweets, err := h.Tweets.ListByOwner(ctx, userID)
	if err != nil {
		return err
	}
	return respond(w, r, http.StatusOK, tweets, "tweets fetched successfully")
}

// Update handles PATCH /api/v1/tweets/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	tweetID, err := pathID(r, "tweetId")
	if err != nil {
		return err
	}
	content, err := readContent(r)
	if err != nil {
		return err
	}
	if err := h.authorize(r, tweetID, user.ID); err != nil {
		return err
	}

	updated, err := h.Tweets.UpdateContent(r.Context(), tweetID, content)
	if err != nil {
		return lookupError(err, "tweet not found")
	}
	return respond(w, r, http.StatusOK, updated, "tweet updated successfully")
}

// Delete handles DELETE /api/v1/tweets/{tweetId}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	tweetID, err := pathID(r, "tweetId")
	if err != nil {
		return err
	}
	if err := h.authorize(r, tweetID, user.ID); err != nil {
		return err
	}

	if err := h.Tweets.Delete(r.Context(), tweetID); err != nil {
		return lookupError(err, "tweet not found")
	}
	return respond(w, r, http.StatusOK, struct{}{}, "tweet deleted successfully")
}

func (h TweetHandler) authorize(r *http.Request, tweetID, userID string) error {
	tweet, err := h.Tweets.FindByID(r.Context(), tweetID)
	if err != nil {
		return lookupError(err, "tweet not found")
	}
	if tweet.OwnerID != userID {
		return forbidden("only the owner can modify this tweet")
	}
	return nil
}

func (h TweetHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/models"
)

// SubscriptionHandler manages subscriptions between users and channels.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Users         UserStore
	Stats         StatsCache
	NowFunc       func() time.Time
}

type subscriptionResponse struct {
	Subscribed bool `json:"subscribed"`
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	channelID, err := pathID(r, "channelId")
	if err != nil {
		return err
	}
	if channelID == user.ID {
		return badRequest("cannot subscribe to your own channel")
	}

	ctx := r.Context()
	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		return lookupError(err, "channel does not exist")
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, models.Subscription{
		ID:           uuid.NewString(),
		SubscriberID: user.ID,
		ChannelID:    channelID,
		CreatedAt:    h.now(),
	})
	if err != nil {
		return lookupError(err, "channel does not exist")
	}
	invalidateStats(ctx, h.Stats, channelID)

	message := "unsubscribed successfully"
	if subscribed {
		message = "subscribed successfully"
	}
	return respond(w, r, http.StatusOK, subscriptionResponse{Subscribed: subscribed}, message)
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) error {
	channelID, err := pathID(r, "channelId")
	if err != nil {
		return err
	}

	ctx := r.Context()
	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		return lookupError(err, "channel does not exist")
	}

	subscribers, err := h.Subscriptions.Subscribers(ctx, channelID)
	if err != nil {
		return err
	}
	return respond(w, r, http.StatusOK, subscribers, "subscribers fetched successfully")
}

// SubscribedChannels handles GET /api/v1/subscriptions/u/{subscriberId}.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) error {
	subscriberID, err := pathID(r, "subscriberId")
	if err != nil {
		return err
	}

	ctx := r.Context()
	if _, err := h.Users.FindByID(ctx, subscriberID); err != nil {
		return lookupError(err, "user does not exist")
	}

	channels, err := h.Subscriptions.SubscribedChannels(ctx, subscriberID)
	if err != nil {
		return err
	}
	return respond(w, r, http.StatusOK, channels, "subscribed channels fetched successfully")
}

func (h SubscriptionHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

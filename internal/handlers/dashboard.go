package handlers

import (
	"net/http"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/models"
)

// DashboardHandler serves read-only channel statistics for the requester.
type DashboardHandler struct {
	Stats  StatsStore
	Cache  StatsCache
	Videos VideoStore
}

type channelVideosResponse struct {
	Videos      []models.Video `json:"videos"`
	TotalVideos int64          `json:"totalVideos"`
	CurrentPage int            `json:"currentPage"`
	TotalPages  int64          `json:"totalPages"`
}

// ChannelStats handles GET /api/v1/dashboard/stats.
func (h DashboardHandler) ChannelStats(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	ctx := r.Context()
	if h.Cache != nil {
		if stats, ok := h.Cache.Get(ctx, user.ID); ok {
			return respond(w, r, http.StatusOK, stats, "channel stats fetched successfully")
		}
	}

	stats, err := h.Stats.ChannelStats(ctx, user.ID)
	if err != nil {
		return err
	}
	if h.Cache != nil {
		h.Cache.Set(ctx, user.ID, stats)
	}
	logging.FromContext(ctx).Debug("channel stats computed", "videos", stats.TotalVideos)
	return respond(w, r, http.StatusOK, stats, "channel stats fetched successfully")
}

// ChannelVideos handles GET /api/v1/dashboard/videos.
func (h DashboardHandler) ChannelVideos(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	page, limit, err := pagination(r)
	if err != nil {
		return err
	}

	videos, total, err := h.Videos.ChannelVideos(r.Context(), user.ID, page, limit)
	if err != nil {
		return err
	}
	return respond(w, r, http.StatusOK, channelVideosResponse{
		Videos:      videos,
		TotalVideos: total,
		CurrentPage: page,
		TotalPages:  (total + int64(limit) - 1) / int64(limit),
	}, "channel videos fetched successfully")
}

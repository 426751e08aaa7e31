package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/models"
)

// PlaylistHandler manages owner-curated playlists.
type PlaylistHandler struct {
	Playlists PlaylistStore
	Videos    VideoStore
	NowFunc   func() time.Time
}

type createPlaylistRequest struct {
	Name        string `json:"name" validate:"required,max=150"`
	Description string `json:"description" validate:"max=1000"`
}

type updatePlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Create handles POST /api/v1/playlist.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req createPlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validateRequest(req); err != nil {
		return err
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     user.ID,
		Videos:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Playlists.Create(r.Context(), playlist); err != nil {
		return err
	}
	return respond(w, r, http.StatusCreated, playlist, "playlist created successfully")
}

// Get handles GET /api/v1/playlist/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) error {
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		return err
	}

	playlist, err := h.Playlists.FindByID(r.Context(), playlistID)
	if err != nil {
		return lookupError(err, "playlist not found")
	}
	return respond(w, r, http.StatusOK, playlist, "playlist fetched successfully")
}

// ListByUser handles GET /api/v1/playlist/user/{userId}. Only the owner may list.
func (h PlaylistHandler) ListByUser(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	userID, err := pathID(r, "userId")
	if err != nil {
		return err
	}
	if userID != user.ID {
		return forbidden("you can only list your own playlists")
	}

	playlists, err := h.Playlists.ListByOwner(r.Context(), userID)
	if err != nil {
		return err
	}
	return respond(w, r, http.StatusOK, playlists, "playlists fetched successfully")
}

// AddVideo handles PATCH /api/v1/playlist/add/{videoId}/{playlistId}. Adding a video
// that is already a member succeeds without changing the playlist.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) error {
	playlistID, videoID, err := h.membershipTarget(r)
	if err != nil {
		return err
	}
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	ctx := r.Context()
	if _, err := visibleVideo(ctx, h.Videos, videoID, user.ID); err != nil {
		return err
	}
	if err := h.Playlists.AddVideo(ctx, playlistID, videoID); err != nil {
		return lookupError(err, "video not found")
	}

	playlist, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		return lookupError(err, "playlist not found")
	}
	return respond(w, r, http.StatusOK, playlist, "video added to playlist")
}

// RemoveVideo handles PATCH /api/v1/playlist/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) error {
	playlistID, videoID, err := h.membershipTarget(r)
	if err != nil {
		return err
	}

	ctx := r.Context()
	if err := h.Playlists.RemoveVideo(ctx, playlistID, videoID); err != nil {
		return err
	}

	playlist, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		return lookupError(err, "playlist not found")
	}
	return respond(w, r, http.StatusOK, playlist, "video removed from playlist")
}

// Update handles PATCH /api/v1/playlist/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		return err
	}

	var req updatePlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.Name == nil && req.Description == nil {
		return badRequest("name or description is required")
	}

	var update models.PlaylistUpdate
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return badRequest("validation failed", "name must not be blank")
		}
		update.Name = &name
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		update.Description = &description
	}

	if err := h.authorize(r, playlistID, user.ID); err != nil {
		return err
	}
	updated, err := h.Playlists.Update(r.Context(), playlistID, update)
	if err != nil {
		return lookupError(err, "playlist not found")
	}
	return respond(w, r, http.StatusOK, updated, "playlist updated successfully")
}

// Delete handles DELETE /api/v1/playlist/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		return err
	}
	if err := h.authorize(r, playlistID, user.ID); err != nil {
		return err
	}

	if err := h.Playlists.Delete(r.Context(), playlistID); err != nil {
		return lookupError(err, "playlist not found")
	}
	return respond(w, r, http.StatusOK, struct{}{}, "playlist deleted successfully")
}

// membershipTarget resolves the path ids of an add/remove request and checks the
// requester owns the playlist.
func (h PlaylistHandler) membershipTarget(r *http.Request) (string, string, error) {
	user, err := currentUser(r)
	if err != nil {
		return "", "", err
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return "", "", err
	}
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		return "", "", err
	}
	if err := h.authorize(r, playlistID, user.ID); err != nil {
		return "", "", err
	}
	return playlistID, videoID, nil
}

func (h PlaylistHandler) authorize(r *http.Request, playlistID, userID string) error {
	playlist, err := h.Playlists.FindByID(r.Context(), playlistID)
	if err != nil {
		return lookupError(err, "playlist not found")
	}
	if playlist.OwnerID != userID {
		return forbidden("only the owner can modify this playlist")
	}
	return nil
}

func (h PlaylistHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

package handlers

import (
	"context"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/events"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/models"
)

// VideoHandler manages video publishing, listing and playback bookkeeping.
type VideoHandler struct {
	Videos   VideoStore
	Uploader MediaUploader
	Events   EventPublisher
	Stats    StatsCache
	Staging  Staging
	NowFunc  func() time.Time
}

type listVideosQuery struct {
	SortBy   string `json:"sortBy" validate:"omitempty,oneof=createdAt updatedAt views duration title"`
	SortType string `json:"sortType" validate:"omitempty,oneof=asc desc"`
	UserID   string `json:"userId" validate:"omitempty,uuid"`
}

type publishVideoRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

type updateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPublished *bool   `json:"isPublished"`
}

type publishStatusResponse struct {
	ID          string `json:"_id"`
	IsPublished bool   `json:"isPublished"`
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) error {
	viewer, err := currentUser(r)
	if err != nil {
		return err
	}

	page, limit, err := pagination(r)
	if err != nil {
		return err
	}

	values := r.URL.Query()
	params := listVideosQuery{
		SortBy:   strings.TrimSpace(values.Get("sortBy")),
		SortType: strings.ToLower(strings.TrimSpace(values.Get("sortType"))),
		UserID:   strings.TrimSpace(values.Get("userId")),
	}
	if err := validateRequest(params); err != nil {
		return err
	}

	result, err := h.Videos.List(r.Context(), models.VideoQuery{
		Search:   strings.TrimSpace(values.Get("query")),
		OwnerID:  params.UserID,
		ViewerID: viewer.ID,
		SortBy:   params.SortBy,
		SortDesc: params.SortType != "asc",
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return err
	}
	return respond(w, r, http.StatusOK, result, "videos fetched successfully")
}

// Publish handles POST /api/v1/videos.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) error {
	owner, err := currentUser(r)
	if err != nil {
		return err
	}

	cleanup, err := h.Staging.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		return err
	}

	req := publishVideoRequest{
		Title:       formValue(r, "title"),
		Description: formValue(r, "description"),
	}
	if err := validateRequest(req); err != nil {
		return err
	}
	published := true
	if raw := formValue(r, "isPublished"); raw != "" {
		if published, err = strconv.ParseBool(raw); err != nil {
			return badRequest("isPublished must be a boolean")
		}
	}

	videoPath, err := h.Staging.stage(r, "videoFile")
	if err != nil {
		return err
	}
	thumbnailPath, err := h.Staging.stage(r, "thumbnail")
	if err != nil {
		discard(videoPath)
		return err
	}
	if videoPath == "" {
		discard(thumbnailPath)
		return badRequest("videoFile is required")
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	videoAsset, err := h.Uploader.Upload(ctx, videoPath)
	if err != nil {
		discard(thumbnailPath)
		logger.Warn("video upload failed", "error", err)
		return badRequest("failed to upload video file")
	}

	var thumbnail media.Asset
	if thumbnailPath != "" {
		thumbnail, err = h.Uploader.Upload(ctx, thumbnailPath)
		if err != nil {
			discardAssets(ctx, h.Uploader, videoAsset)
			logger.Warn("thumbnail upload failed", "error", err)
			return badRequest("failed to upload thumbnail")
		}
	}

	now := h.now()
	summary := owner.Summary()
	video := models.Video{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		VideoFile:   videoAsset.URL,
		Thumbnail:   thumbnail.URL,
		Duration:    videoAsset.Duration,
		OwnerID:     owner.ID,
		Owner:       &summary,
		IsPublished: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Videos.Create(ctx, video); err != nil {
		discardAssets(ctx, h.Uploader, videoAsset, thumbnail)
		return err
	}

	invalidateStats(ctx, h.Stats, owner.ID)
	publishEvent(ctx, h.Events, events.SubjectVideoPublished, events.VideoPublished{
		VideoID:     video.ID,
		OwnerID:     video.OwnerID,
		Title:       video.Title,
		Duration:    video.Duration,
		IsPublished: video.IsPublished,
		Timestamp:   events.Timestamp(now),
	})

	return respond(w, r, http.StatusCreated, video, "video published successfully")
}

// Get handles GET /api/v1/videos/{videoId}. A permitted fetch records the view once per
// viewer.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) error {
	viewer, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}

	ctx := r.Context()
	video, err := visibleVideo(ctx, h.Videos, videoID, viewer.ID)
	if err != nil {
		return err
	}

	counted, err := h.Videos.RecordView(ctx, video.ID, viewer.ID)
	if err != nil {
		return lookupError(err, "video not found")
	}
	if counted {
		video.Views++
		invalidateStats(ctx, h.Stats, video.OwnerID)
	}

	return respond(w, r, http.StatusOK, video, "video fetched successfully")
}

// Update handles PATCH /api/v1/videos/{videoId}. It accepts JSON, or multipart when a
// replacement thumbnail is sent.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}
	if _, err := h.ownedVideo(r, videoID, user.ID); err != nil {
		return err
	}

	var (
		req           updateVideoRequest
		thumbnailPath string
	)
	if isMultipart(r) {
		cleanup, err := h.Staging.parseMultipart(w, r)
		defer cleanup()
		if err != nil {
			return err
		}
		if req, err = updateFromForm(r); err != nil {
			return err
		}
		if thumbnailPath, err = h.Staging.stage(r, "thumbnail"); err != nil {
			return err
		}
	} else if err := decodeJSON(r, &req); err != nil {
		return err
	}

	update := models.VideoUpdate{Description: req.Description, IsPublished: req.IsPublished}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			discard(thumbnailPath)
			return badRequest("validation failed", "title must not be blank")
		}
		update.Title = &title
	}

	ctx := r.Context()
	var thumbnail media.Asset
	if thumbnailPath != "" {
		thumbnail, err = h.Uploader.Upload(ctx, thumbnailPath)
		if err != nil {
			logging.FromContext(ctx).Warn("thumbnail upload failed", "error", err)
			return badRequest("failed to upload thumbnail")
		}
		update.Thumbnail = &thumbnail.URL
	}

	if update.Title == nil && update.Description == nil && update.Thumbnail == nil && update.IsPublished == nil {
		return badRequest("nothing to update")
	}

	updated, err := h.Videos.Update(ctx, videoID, update)
	if err != nil {
		discardAssets(ctx, h.Uploader, thumbnail)
		return lookupError(err, "video not found")
	}
	return respond(w, r, http.StatusOK, updated, "video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId}. The row is kept with its deleted flag set.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}
	if _, err := h.ownedVideo(r, videoID, user.ID); err != nil {
		return err
	}

	ctx := r.Context()
	if err := h.Videos.SoftDelete(ctx, videoID); err != nil {
		return lookupError(err, "video not found")
	}
	invalidateStats(ctx, h.Stats, user.ID)
	return respond(w, r, http.StatusOK, struct{}{}, "video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}
	if _, err := h.ownedVideo(r, videoID, user.ID); err != nil {
		return err
	}

	ctx := r.Context()
	published, err := h.Videos.TogglePublish(ctx, videoID)
	if err != nil {
		return lookupError(err, "video not found")
	}
	invalidateStats(ctx, h.Stats, user.ID)
	return respond(w, r, http.StatusOK, publishStatusResponse{ID: videoID, IsPublished: published}, "publish status toggled")
}

func (h VideoHandler) ownedVideo(r *http.Request, videoID, userID string) (models.Video, error) {
	video, err := h.Videos.FindByID(r.Context(), videoID)
	if err != nil {
		return models.Video{}, lookupError(err, "video not found")
	}
	if video.OwnerID != userID {
		return models.Video{}, forbidden("only the owner can modify this video")
	}
	return video, nil
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// updateFromForm reads the optional text fields of a multipart video update. Only
// fields present in the form are applied.
func updateFromForm(r *http.Request) (updateVideoRequest, error) {
	var req updateVideoRequest
	form := r.MultipartForm.Value
	if values, ok := form["title"]; ok && len(values) > 0 {
		req.Title = &values[0]
	}
	if values, ok := form["description"]; ok && len(values) > 0 {
		description := strings.TrimSpace(values[0])
		req.Description = &description
	}
	if values, ok := form["isPublished"]; ok && len(values) > 0 {
		published, err := strconv.ParseBool(strings.TrimSpace(values[0]))
		if err != nil {
			return updateVideoRequest{}, badRequest("isPublished must be a boolean")
		}
		req.IsPublished = &published
	}
	return req, nil
}

// visibleVideo loads a video the viewer may interact with: unpublished videos are
// reserved for their owner.
func visibleVideo(ctx context.Context, videos VideoStore, videoID, viewerID string) (models.Video, error) {
	video, err := videos.FindByID(ctx, videoID)
	if err != nil {
		return models.Video{}, lookupError(err, "video not found")
	}
	if !video.IsPublished && video.OwnerID != viewerID {
		return models.Video{}, forbidden("video is not published")
	}
	return video, nil
}

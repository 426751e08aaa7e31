package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/models"
)

// CommentHandler manages comments attached to videos.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	NowFunc  func() time.Time
}

type contentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type commentPage struct {
	Comments      []models.Comment `json:"comments"`
	TotalComments int64            `json:"totalComments"`
	CurrentPage   int              `json:"currentPage"`
	Limit         int              `json:"limit"`
	HasNextPage   bool             `json:"hasNextPage"`
}

// List handles GET /api/v1/comments/{videoId}.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}
	page, limit, err := pagination(r)
	if err != nil {
		return err
	}

	ctx := r.Context()
	if _, err := visibleVideo(ctx, h.Videos, videoID, user.ID); err != nil {
		return err
	}

	comments, total, err := h.Comments.ListForVideo(ctx, videoID, page, limit)
	if err != nil {
		return err
	}
	return respond(w, r, http.StatusOK, commentPage{
		Comments:      comments,
		TotalComments: total,
		CurrentPage:   page,
		Limit:         limit,
		HasNextPage:   len(comments) == limit,
	}, "comments fetched successfully")
}

// Add handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}
	content, err := readContent(r)
	if err != nil {
		return err
	}

	ctx := r.Context()
	if _, err := visibleVideo(ctx, h.Videos, videoID, user.ID); err != nil {
		return err
	}

	now := h.now()
	owner := user.Summary()
	comment := models.Comment{
		ID:        uuid.NewString(),
		Content:   content,
		VideoID:   videoID,
		OwnerID:   user.ID,
		Owner:     &owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Comments.Create(ctx, comment); err != nil {
		return lookupError(err, "video not found")
	}
	return respond(w, r, http.StatusCreated, comment, "comment added successfully")
}

// Update handles PATCH /api/v1/comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	commentID, err := pathID(r, "commentId")
	if err != nil {
		return err
	}
	content, err := readContent(r)
	if err != nil {
		return err
	}
	if err := h.authorize(r, commentID, user.ID); err != nil {
		return err
	}

	updated, err := h.Comments.UpdateContent(r.Context(), commentID, content)
	if err != nil {
		return lookupError(err, "comment not found")
	}
	return respond(w, r, http.StatusOK, updated, "comment updated successfully")
}

// Delete handles DELETE /api/v1/comments/c/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	commentID, err := pathID(r, "commentId")
	if err != nil {
		return err
	}
	if err := h.authorize(r, commentID, user.ID); err != nil {
		return err
	}

	if err := h.Comments.Delete(r.Context(), commentID); err != nil {
		return lookupError(err, "comment not found")
	}
	return respond(w, r, http.StatusOK, struct{}{}, "comment deleted successfully")
}

func (h CommentHandler) authorize(r *http.Request, commentID, userID string) error {
	comment, err := h.Comments.FindByID(r.Context(), commentID)
	if err != nil {
		return lookupError(err, "comment not found")
	}
	if comment.OwnerID != userID {
		return forbidden("only the owner can modify this comment")
	}
	return nil
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

// readContent decodes and validates a {content} body shared by comments and tweets.
func readContent(r *http.Request) (string, error) {
	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", err
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validateRequest(req); err != nil {
		return "", err
	}
	return req.Content, nil
}

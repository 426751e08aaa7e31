package repositories

import (
	"context"

	"github.com/videotube/backend/internal/models"
)

// VideoRepository exposes data access for uploaded videos. Soft-deleted rows are
// invisible to every read.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, query models.VideoQuery) (models.VideoPage, error)
	Update(ctx context.Context, id string, update models.VideoUpdate) (models.Video, error)
	SoftDelete(ctx context.Context, id string) error
	TogglePublish(ctx context.Context, id string) (bool, error)
	// RecordView appends the video to the viewer's history and increments the view
	// counter, both only on the viewer's first visit. It reports whether it counted.
	RecordView(ctx context.Context, videoID, viewerID string) (bool, error)
	ChannelVideos(ctx context.Context, ownerID string, page, limit int) ([]models.Video, int64, error)
}

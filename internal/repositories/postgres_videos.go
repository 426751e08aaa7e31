package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
)

// videoColumns selects a video with its owner summary and like count. Queries using it
// must alias videos as v and the owner join as u.
const videoColumns = `v.id, v.title, v.description, v.video_file, v.thumbnail, v.duration, v.views,
        v.owner_id, v.is_published, v.created_at, v.updated_at,
        u.id, u.username, u.full_name, u.avatar,
        (SELECT COUNT(*) FROM likes vl WHERE vl.target_type = 'video' AND vl.target_id = v.id)`

var videoSortColumns = map[string]string{
	"createdAt": "v.created_at",
	"updatedAt": "v.updated_at",
	"views":     "v.views",
	"duration":  "v.duration",
	"title":     "v.title",
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var (
		video models.Video
		owner models.UserSummary
	)
	err := row.Scan(&video.ID, &video.Title, &video.Description, &video.VideoFile, &video.Thumbnail, &video.Duration,
		&video.Views, &video.OwnerID, &video.IsPublished, &video.CreatedAt, &video.UpdatedAt,
		&owner.ID, &owner.Username, &owner.FullName, &owner.Avatar, &video.LikesCount)
	if err != nil {
		return models.Video{}, err
	}
	video.Owner = &owner
	return video, nil
}

func collectVideos(rows pgx.Rows, what string) ([]models.Video, error) {
	defer rows.Close()

	videos := []models.Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return videos, nil
}

// escapeLike neutralises LIKE wildcards so search text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// videoFilter builds the WHERE clause shared by the list and count queries.
func videoFilter(query models.VideoQuery) (string, []any) {
	var args []any
	param := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	clauses := []string{"v.is_deleted = FALSE"}
	if query.ViewerID != "" {
		clauses = append(clauses, fmt.Sprintf("(v.is_published OR v.owner_id = %s)", param(query.ViewerID)))
	} else {
		clauses = append(clauses, "v.is_published")
	}
	if query.OwnerID != "" {
		clauses = append(clauses, "v.owner_id = "+param(query.OwnerID))
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		p := param("%" + escapeLike(search) + "%")
		clauses = append(clauses, fmt.Sprintf("(v.title ILIKE %s OR v.description ILIKE %s)", p, p))
	}
	return strings.Join(clauses, " AND "), args
}

func videoOrder(sortBy string, desc bool) string {
	column, ok := videoSortColumns[sortBy]
	if !ok {
		column = videoSortColumns["createdAt"]
	}
	direction := "ASC"
	if desc {
		direction = "DESC"
	}
	return fmt.Sprintf("%s %s, v.id %s", column, direction, direction)
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_file, thumbnail, duration, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoFile, video.Thumbnail, video.Duration,
		video.IsPublished, video.CreatedAt, video.UpdatedAt)
	return translateError("insert video", err)
}

// FindByID fetches a non-deleted video with its owner summary.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return findVideo(ctx, conn, id)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findVideo(ctx context.Context, q rowQuerier, id string) (models.Video, error) {
	video, err := scanVideo(q.QueryRow(ctx, `
        SELECT `+videoColumns+`
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.id = $1 AND v.is_deleted = FALSE
    `, id))
	if err != nil {
		return models.Video{}, translateError("select video", err)
	}
	return video, nil
}

// List returns one page of videos visible to the query's viewer.
func (r *PostgresVideoRepository) List(ctx context.Context, query models.VideoQuery) (models.VideoPage, error) {
	page, limit, offset := normalizePage(query.Page, query.Limit)
	where, args := videoFilter(query)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM videos v WHERE `+where, args...).Scan(&total); err != nil {
		return models.VideoPage{}, fmt.Errorf("count videos: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, fmt.Sprintf(`
        SELECT %s
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE %s
        ORDER BY %s
        LIMIT $%d OFFSET $%d
    `, videoColumns, where, videoOrder(query.SortBy, query.SortDesc), len(args)-1, len(args)), args...)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("query videos: %w", err)
	}

	videos, err := collectVideos(rows, "videos")
	if err != nil {
		return models.VideoPage{}, err
	}

	return models.VideoPage{
		Videos: videos,
		Pagination: models.Pagination{
			CurrentPage: page,
			Limit:       limit,
			TotalVideos: total,
			HasNextPage: len(videos) == limit,
		},
	}, nil
}

// Update applies the non-nil fields of the update to a non-deleted video.
func (r *PostgresVideoRepository) Update(ctx context.Context, id string, update models.VideoUpdate) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = COALESCE($2, title),
            description = COALESCE($3, description),
            thumbnail = COALESCE($4, thumbnail),
            is_published = COALESCE($5, is_published),
            updated_at = NOW()
        WHERE id = $1 AND is_deleted = FALSE
    `, id, update.Title, update.Description, update.Thumbnail, update.IsPublished)
	if err != nil {
		return models.Video{}, translateError("update video", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Video{}, ErrNotFound
	}

	return findVideo(ctx, conn, id)
}

// SoftDelete marks the video deleted while keeping the row.
func (r *PostgresVideoRepository) SoftDelete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET is_deleted = TRUE, updated_at = NOW()
        WHERE id = $1 AND is_deleted = FALSE
    `, id)
	if err != nil {
		return fmt.Errorf("soft delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TogglePublish flips the publish flag in a single statement and returns the new state.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var published bool
	err = conn.QueryRow(ctx, `
        UPDATE videos
        SET is_published = NOT is_published, updated_at = NOW()
        WHERE id = $1 AND is_deleted = FALSE
        RETURNING is_published
    `, id).Scan(&published)
	if err != nil {
		return false, translateError("toggle publish", err)
	}
	return published, nil
}

// RecordView implements VideoRepository.
func (r *PostgresVideoRepository) RecordView(ctx context.Context, videoID, viewerID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin view transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id, video_id) DO NOTHING
    `, viewerID, videoID)
	if err != nil {
		return false, translateError("insert watch history", err)
	}

	counted := tag.RowsAffected() == 1
	if counted {
		tag, err = tx.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1 AND is_deleted = FALSE`, videoID)
		if err != nil {
			return false, fmt.Errorf("increment views: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return false, ErrNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit view transaction: %w", err)
	}
	return counted, nil
}

// ChannelVideos lists an owner's non-deleted videos, published or not, newest first.
func (r *PostgresVideoRepository) ChannelVideos(ctx context.Context, ownerID string, page, limit int) ([]models.Video, int64, error) {
	_, limit, offset := normalizePage(page, limit)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `
        SELECT COUNT(*) FROM videos WHERE owner_id = $1 AND is_deleted = FALSE
    `, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count channel videos: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.owner_id = $1 AND v.is_deleted = FALSE
        ORDER BY v.created_at DESC, v.id DESC
        LIMIT $2 OFFSET $3
    `, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query channel videos: %w", err)
	}

	videos, err := collectVideos(rows, "channel videos")
	if err != nil {
		return nil, 0, err
	}
	return videos, total, nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)

package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
)

// PostgresPlaylistRepository provides PostgreSQL-backed persistence for playlists.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

// playlistColumns includes the ids of the non-deleted member videos in the order they
// were added.
const playlistColumns = `p.id, p.name, p.description, p.owner_id, p.created_at, p.updated_at,
        ARRAY(SELECT pv.video_id::TEXT
              FROM playlist_videos pv
              JOIN videos v ON v.id = pv.video_id AND v.is_deleted = FALSE
              WHERE pv.playlist_id = p.id
              ORDER BY pv.added_at, pv.video_id)`

func scanPlaylist(row pgx.Row) (models.Playlist, error) {
	var playlist models.Playlist
	if err := row.Scan(&playlist.ID, &playlist.Name, &playlist.Description, &playlist.OwnerID,
		&playlist.CreatedAt, &playlist.UpdatedAt, &playlist.Videos); err != nil {
		return models.Playlist{}, err
	}
	if playlist.Videos == nil {
		playlist.Videos = []string{}
	}
	return playlist, nil
}

// Create stores a new, empty playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, playlist.CreatedAt, playlist.UpdatedAt)
	return translateError("insert playlist", err)
}

// FindByID fetches a playlist and its member video ids.
func (r *PostgresPlaylistRepository) FindByID(ctx context.Context, id string) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return findPlaylist(ctx, conn, id)
}

func findPlaylist(ctx context.Context, q rowQuerier, id string) (models.Playlist, error) {
	playlist, err := scanPlaylist(q.QueryRow(ctx, `SELECT `+playlistColumns+` FROM playlists p WHERE p.id = $1`, id))
	if err != nil {
		return models.Playlist{}, translateError("select playlist", err)
	}
	return playlist, nil
}

// ListByOwner returns the owner's playlists, newest first.
func (r *PostgresPlaylistRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+playlistColumns+`
        FROM playlists p
        WHERE p.owner_id = $1
        ORDER BY p.created_at DESC, p.id
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	return playlists, nil
}

// AddVideo appends a video to the playlist. Adding a member twice is a no-op.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, playlistID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlist_videos (playlist_id, video_id, added_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (playlist_id, video_id) DO NOTHING
    `, playlistID, videoID)
	return translateError("insert playlist video", err)
}

// RemoveVideo drops a video from the playlist; removing a non-member is a no-op.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, playlistID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2
    `, playlistID, videoID); err != nil {
		return fmt.Errorf("delete playlist video: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of the update.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, id string, update models.PlaylistUpdate) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE playlists
        SET name = COALESCE($2, name),
            description = COALESCE($3, description),
            updated_at = NOW()
        WHERE id = $1
    `, id, update.Name, update.Description)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Playlist{}, ErrNotFound
	}
	return findPlaylist(ctx, conn, id)
}

// Delete removes the playlist and its membership rows.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.pool, "playlists", id)
}

var _ PlaylistRepository = (*PostgresPlaylistRepository)(nil)

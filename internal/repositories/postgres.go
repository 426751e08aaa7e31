package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// normalizePage clamps 1-based pagination input and returns the page, limit and row offset.
func normalizePage(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit, (page - 1) * limit
}

const userColumns = `id, username, email, full_name, avatar, cover_image, password_hash,
        COALESCE(refresh_token, ''), created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Avatar, &user.CoverImage,
		&user.Password, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, avatar, cover_image, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Avatar, user.CoverImage, user.Password, user.CreatedAt, user.UpdatedAt)
	return translateError("insert user", err)
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return models.User{}, translateError("select user by id", err)
	}
	return user, nil
}

// FindByLogin fetches a user by username or email; empty identifiers never match.
func (r *PostgresUserRepository) FindByLogin(ctx context.Context, username, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
        LIMIT 1
    `, username, email))
	if err != nil {
		return models.User{}, translateError("select user by login", err)
	}
	return user, nil
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = NOW()
        WHERE id = $1
    `, userID, passwordHash)
	if err != nil {
		return translateError("update password", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAccount applies the non-nil fields of the update and returns the stored user.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, userID string, update models.AccountUpdate) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        UPDATE users
        SET full_name = COALESCE($2, full_name),
            email = COALESCE($3, email),
            updated_at = NOW()
        WHERE id = $1
        RETURNING `+userColumns, userID, update.FullName, update.Email))
	if err != nil {
		return models.User{}, translateError("update account", err)
	}
	return user, nil
}

// UpdateAvatar stores a new avatar URL for the user.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, userID, url string) (models.User, error) {
	return r.updateImage(ctx, "avatar", userID, url)
}

// UpdateCoverImage stores a new cover image URL for the user.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, userID, url string) (models.User, error) {
	return r.updateImage(ctx, "cover_image", userID, url)
}

func (r *PostgresUserRepository) updateImage(ctx context.Context, column, userID, url string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// column is one of two constants above, never caller input.
	user, err := scanUser(conn.QueryRow(ctx, `
        UPDATE users
        SET `+column+` = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING `+userColumns, userID, url))
	if err != nil {
		return models.User{}, translateError("update "+column, err)
	}
	return user, nil
}

// ChannelProfile derives the public channel view for username as seen by viewerID.
func (r *PostgresUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var profile models.ChannelProfile
	err = conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.full_name, u.email, u.avatar, u.cover_image,
            (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
            (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
            EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = $2)
        FROM users u
        WHERE u.username = $1
    `, username, viewerID).Scan(&profile.ID, &profile.Username, &profile.FullName, &profile.Email, &profile.Avatar,
		&profile.CoverImage, &profile.SubscribersCount, &profile.ChannelsSubscribedToCount, &profile.IsSubscribed)
	if err != nil {
		return models.ChannelProfile{}, translateError("select channel profile", err)
	}
	return profile, nil
}

// WatchHistory lists the user's watched videos in the order they were first watched.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID string) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`
        FROM watch_history h
        JOIN videos v ON v.id = h.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE h.user_id = $1 AND v.is_deleted = FALSE
        ORDER BY h.watched_at, v.id
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	return collectVideos(rows, "watch history")
}

// SaveRefreshToken replaces the user's single active refresh token.
func (r *PostgresUserRepository) SaveRefreshToken(ctx context.Context, userID, token string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE users SET refresh_token = $2 WHERE id = $1`, userID, token)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshToken returns the user's active refresh token.
func (r *PostgresUserRepository) RefreshToken(ctx context.Context, userID string) (string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var token *string
	if err := conn.QueryRow(ctx, `SELECT refresh_token FROM users WHERE id = $1`, userID).Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", auth.ErrSessionNotFound
		}
		return "", fmt.Errorf("select refresh token: %w", err)
	}
	if token == nil || *token == "" {
		return "", auth.ErrSessionNotFound
	}
	return *token, nil
}

// RotateRefreshToken replaces old with next in one conditional update, so only one of
// several concurrent rotations of the same token can succeed.
func (r *PostgresUserRepository) RotateRefreshToken(ctx context.Context, userID, old, next string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET refresh_token = $3
        WHERE id = $1 AND refresh_token = $2
    `, userID, old, next)
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ClearRefreshToken removes the user's active refresh token.
func (r *PostgresUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `UPDATE users SET refresh_token = NULL WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ auth.RefreshStore = (*PostgresUserRepository)(nil)

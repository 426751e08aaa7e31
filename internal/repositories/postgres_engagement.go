package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/models"
)

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Toggle removes an existing like or records a new one within a single transaction.
// The unique (liked_by, target_type, target_id) key keeps concurrent toggles from
// producing duplicates.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, like models.Like) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return toggle(ctx, conn,
		`DELETE FROM likes WHERE liked_by = $1 AND target_type = $2 AND target_id = $3`,
		[]any{like.LikedBy, string(like.TargetType), like.TargetID},
		`INSERT INTO likes (id, liked_by, target_type, target_id, created_at)
         VALUES ($1, $2, $3, $4, $5)
         ON CONFLICT (liked_by, target_type, target_id) DO NOTHING`,
		[]any{like.ID, like.LikedBy, string(like.TargetType), like.TargetID, like.CreatedAt},
	)
}

// LikedVideos lists the visible, non-deleted videos the user has liked, most recent like first.
func (r *PostgresLikeRepository) LikedVideos(ctx context.Context, userID string) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`
        FROM likes l
        JOIN videos v ON v.id = l.target_id
        JOIN users u ON u.id = v.owner_id
        WHERE l.liked_by = $1
          AND l.target_type = 'video'
          AND v.is_deleted = FALSE
          AND (v.is_published OR v.owner_id = $1)
        ORDER BY l.created_at DESC, v.id
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}
	return collectVideos(rows, "liked videos")
}

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for subscriptions.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Toggle unsubscribes when subscribed, otherwise subscribes.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, sub models.Subscription) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return toggle(ctx, conn,
		`DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2`,
		[]any{sub.SubscriberID, sub.ChannelID},
		`INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (subscriber_id, channel_id) DO NOTHING`,
		[]any{sub.ID, sub.SubscriberID, sub.ChannelID, sub.CreatedAt},
	)
}

// Subscribers lists the users subscribed to channelID.
func (r *PostgresSubscriptionRepository) Subscribers(ctx context.Context, channelID string) ([]models.UserSummary, error) {
	return r.listUsers(ctx, `
        SELECT u.id, u.username, u.full_name, u.avatar
        FROM subscriptions s
        JOIN users u ON u.id = s.subscriber_id
        WHERE s.channel_id = $1
        ORDER BY s.created_at DESC, u.id
    `, channelID)
}

// SubscribedChannels lists the channels subscriberID is subscribed to.
func (r *PostgresSubscriptionRepository) SubscribedChannels(ctx context.Context, subscriberID string) ([]models.UserSummary, error) {
	return r.listUsers(ctx, `
        SELECT u.id, u.username, u.full_name, u.avatar
        FROM subscriptions s
        JOIN users u ON u.id = s.channel_id
        WHERE s.subscriber_id = $1
        ORDER BY s.created_at DESC, u.id
    `, subscriberID)
}

func (r *PostgresSubscriptionRepository) listUsers(ctx context.Context, query, id string) ([]models.UserSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	users := []models.UserSummary{}
	for rows.Next() {
		var user models.UserSummary
		if err := rows.Scan(&user.ID, &user.Username, &user.FullName, &user.Avatar); err != nil {
			return nil, fmt.Errorf("scan subscription user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return users, nil
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// toggle deletes the keyed row when it exists and inserts it otherwise, reporting
// whether the row exists afterwards.
func toggle(ctx context.Context, conn txBeginner, deleteSQL string, deleteArgs []any, insertSQL string, insertArgs []any) (bool, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin toggle transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, deleteSQL, deleteArgs...)
	if err != nil {
		return false, fmt.Errorf("toggle delete: %w", err)
	}
	active := tag.RowsAffected() == 0
	if active {
		if _, err := tx.Exec(ctx, insertSQL, insertArgs...); err != nil {
			return false, translateError("toggle insert", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit toggle transaction: %w", err)
	}
	return active, nil
}

// PostgresDashboardRepository computes channel aggregates in PostgreSQL.
type PostgresDashboardRepository struct {
	pool db.Pool
}

// NewPostgresDashboardRepository constructs a dashboard repository backed by PostgreSQL.
func NewPostgresDashboardRepository(pool db.Pool) *PostgresDashboardRepository {
	return &PostgresDashboardRepository{pool: pool}
}

// ChannelStats aggregates subscribers, videos, views and likes over the owner's non-deleted videos.
func (r *PostgresDashboardRepository) ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	ctx, span := logging.StartSpan(ctx, "dashboard.channel_stats")
	defer span.End()
	span.Annotate("owner_id", ownerID)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var stats models.ChannelStats
	err = conn.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1),
            (SELECT COUNT(*) FROM videos WHERE owner_id = $1 AND is_deleted = FALSE),
            (SELECT COALESCE(SUM(views), 0)::BIGINT FROM videos WHERE owner_id = $1 AND is_deleted = FALSE),
            (SELECT COUNT(*)
             FROM likes l
             JOIN videos v ON v.id = l.target_id
             WHERE l.target_type = 'video' AND v.owner_id = $1 AND v.is_deleted = FALSE)
    `, ownerID).Scan(&stats.TotalSubscribers, &stats.TotalVideos, &stats.TotalViews, &stats.TotalLikes)
	if err != nil {
		span.Fail(err)
		return models.ChannelStats{}, fmt.Errorf("select channel stats: %w", err)
	}
	return stats, nil
}

var _ LikeRepository = (*PostgresLikeRepository)(nil)
var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
var _ DashboardRepository = (*PostgresDashboardRepository)(nil)

package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
)

// PostgresCommentRepository provides PostgreSQL-backed persistence for comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

const commentColumns = `c.id, c.content, c.video_id, c.owner_id, c.created_at, c.updated_at,
        u.id, u.username, u.full_name, u.avatar`

func scanComment(row pgx.Row) (models.Comment, error) {
	var (
		comment models.Comment
		owner   models.UserSummary
	)
	if err := row.Scan(&comment.ID, &comment.Content, &comment.VideoID, &comment.OwnerID, &comment.CreatedAt,
		&comment.UpdatedAt, &owner.ID, &owner.Username, &owner.FullName, &owner.Avatar); err != nil {
		return models.Comment{}, err
	}
	comment.Owner = &owner
	return comment, nil
}

// Create stores a new comment. An unknown video or owner yields ErrNotFound.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt, comment.UpdatedAt)
	return translateError("insert comment", err)
}

// FindByID fetches a comment with its owner summary.
func (r *PostgresCommentRepository) FindByID(ctx context.Context, id string) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return findComment(ctx, conn, id)
}

func findComment(ctx context.Context, q rowQuerier, id string) (models.Comment, error) {
	comment, err := scanComment(q.QueryRow(ctx, `
        SELECT `+commentColumns+`
        FROM comments c
        JOIN users u ON u.id = c.owner_id
        WHERE c.id = $1
    `, id))
	if err != nil {
		return models.Comment{}, translateError("select comment", err)
	}
	return comment, nil
}

// ListForVideo returns one page of a video's comments, oldest first, and the total count.
func (r *PostgresCommentRepository) ListForVideo(ctx context.Context, videoID string, page, limit int) ([]models.Comment, int64, error) {
	_, limit, offset := normalizePage(page, limit)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE video_id = $1`, videoID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT `+commentColumns+`
        FROM comments c
        JOIN users u ON u.id = c.owner_id
        WHERE c.video_id = $1
        ORDER BY c.created_at, c.id
        LIMIT $2 OFFSET $3
    `, videoID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, total, nil
}

// UpdateContent replaces a comment's text.
func (r *PostgresCommentRepository) UpdateContent(ctx context.Context, id, content string) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE comments SET content = $2, updated_at = NOW() WHERE id = $1`, id, content)
	if err != nil {
		return models.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Comment{}, ErrNotFound
	}
	return findComment(ctx, conn, id)
}

// Delete removes a comment.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.pool, "comments", id)
}

// PostgresTweetRepository provides PostgreSQL-backed persistence for tweets.
type PostgresTweetRepository struct {
	pool db.Pool
}

// NewPostgresTweetRepository constructs a tweet repository backed by PostgreSQL.
func NewPostgresTweetRepository(pool db.Pool) *PostgresTweetRepository {
	return &PostgresTweetRepository{pool: pool}
}

const tweetColumns = `t.id, t.content, t.owner_id, t.created_at, t.updated_at,
        u.id, u.username, u.full_name, u.avatar`

func scanTweet(row pgx.Row) (models.Tweet, error) {
	var (
		tweet models.Tweet
		owner models.UserSummary
	)
	if err := row.Scan(&tweet.ID, &tweet.Content, &tweet.OwnerID, &tweet.CreatedAt, &tweet.UpdatedAt,
		&owner.ID, &owner.Username, &owner.FullName, &owner.Avatar); err != nil {
		return models.Tweet{}, err
	}
	tweet.Owner = &owner
	return tweet, nil
}

// Create stores a new tweet.
func (r *PostgresTweetRepository) Create(ctx context.Context, tweet models.Tweet) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO tweets (id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt)
	return translateError("insert tweet", err)
}

// FindByID fetches a tweet with its owner summary.
func (r *PostgresTweetRepository) FindByID(ctx context.Context, id string) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return findTweet(ctx, conn, id)
}

func findTweet(ctx context.Context, q rowQuerier, id string) (models.Tweet, error) {
	tweet, err := scanTweet(q.QueryRow(ctx, `
        SELECT `+tweetColumns+`
        FROM tweets t
        JOIN users u ON u.id = t.owner_id
        WHERE t.id = $1
    `, id))
	if err != nil {
		return models.Tweet{}, translateError("select tweet", err)
	}
	return tweet, nil
}

// ListByOwner returns the owner's tweets, newest first.
func (r *PostgresTweetRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+tweetColumns+`
        FROM tweets t
        JOIN users u ON u.id = t.owner_id
        WHERE t.owner_id = $1
        ORDER BY t.created_at DESC, t.id DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query tweets: %w", err)
	}
	defer rows.Close()

	tweets := []models.Tweet{}
	for rows.Next() {
		tweet, err := scanTweet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tweet: %w", err)
		}
		tweets = append(tweets, tweet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tweets: %w", err)
	}
	return tweets, nil
}

// UpdateContent replaces a tweet's text.
func (r *PostgresTweetRepository) UpdateContent(ctx context.Context, id, content string) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE tweets SET content = $2, updated_at = NOW() WHERE id = $1`, id, content)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("update tweet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Tweet{}, ErrNotFound
	}
	return findTweet(ctx, conn, id)
}

// Delete removes a tweet.
func (r *PostgresTweetRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.pool, "tweets", id)
}

// deleteByID hard-deletes a row from one of the repository-owned tables.
func deleteByID(ctx context.Context, pool db.Pool, table, id string) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ CommentRepository = (*PostgresCommentRepository)(nil)
var _ TweetRepository = (*PostgresTweetRepository)(nil)

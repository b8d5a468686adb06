package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// likeTargetColumns maps a like target kind onto its column and the partial
// unique index predicate guarding the (liked_by, target) pair.
var likeTargetColumns = map[models.LikeTarget]string{
	models.LikeTargetVideo:   "video_id",
	models.LikeTargetComment: "comment_id",
	models.LikeTargetTweet:   "tweet_id",
}

// PostgresLikeRepository toggles like edges in PostgreSQL.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Toggle creates an active edge for (userID, target) or flips its active flag.
// The whole operation is a single upsert against the pair's partial unique
// index, so two racing toggles serialize on the constraint instead of both
// inserting.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, target models.LikeTarget, targetID, userID string) (models.Like, error) {
	column, ok := likeTargetColumns[target]
	if !ok {
		return models.Like{}, fmt.Errorf("unknown like target %q", target)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Like{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	query := fmt.Sprintf(`
        INSERT INTO likes (id, liked_by, %s, active, created_at, updated_at)
        VALUES ($1, $2, $3, TRUE, $4, $4)
        ON CONFLICT (liked_by, %s) WHERE %s IS NOT NULL
        DO UPDATE SET active = NOT likes.active, updated_at = $4
        RETURNING id, liked_by, video_id, comment_id, tweet_id, active, created_at, updated_at
    `, column, column, column)

	row := conn.QueryRow(ctx, query, uuid.NewString(), userID, targetID, time.Now().UTC())

	var (
		like                        models.Like
		videoID, commentID, tweetID *string
	)
	if err := row.Scan(
		&like.ID, &like.LikedBy, &videoID, &commentID, &tweetID,
		&like.Active, &like.CreatedAt, &like.UpdatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.Like{}, ErrNotFound
		}
		return models.Like{}, fmt.Errorf("toggle like: %w", err)
	}

	if videoID != nil {
		like.VideoID = *videoID
	}
	if commentID != nil {
		like.CommentID = *commentID
	}
	if tweetID != nil {
		like.TweetID = *tweetID
	}

	return like, nil
}

// PostgresSubscriptionRepository toggles subscription edges in PostgreSQL.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Toggle creates an active subscription edge or flips its active flag, atomic
// against the (subscriber_id, channel_id) uniqueness constraint.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, channelID, subscriberID string) (models.Subscription, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, active, created_at, updated_at)
        VALUES ($1, $2, $3, TRUE, $4, $4)
        ON CONFLICT (subscriber_id, channel_id)
        DO UPDATE SET active = NOT subscriptions.active, updated_at = $4
        RETURNING id, subscriber_id, channel_id, active, created_at, updated_at
    `, uuid.NewString(), subscriberID, channelID, time.Now().UTC())

	var sub models.Subscription
	if err := row.Scan(
		&sub.ID, &sub.SubscriberID, &sub.ChannelID, &sub.Active,
		&sub.CreatedAt, &sub.UpdatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.Subscription{}, ErrNotFound
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Subscription{}, ErrNotFound
		}
		return models.Subscription{}, fmt.Errorf("toggle subscription: %w", err)
	}

	return sub, nil
}

var _ LikeRepository = (*PostgresLikeRepository)(nil)
var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)

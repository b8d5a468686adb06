package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// historyRetention caps how many watch-history rows a user accumulates.
const historyRetention = 100

// PostgresHistoryRepository records watch events in PostgreSQL.
type PostgresHistoryRepository struct {
	pool db.Pool
}

// NewPostgresHistoryRepository constructs a watch-history repository backed by PostgreSQL.
func NewPostgresHistoryRepository(pool db.Pool) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{pool: pool}
}

// Record upserts the (user, video) row with the latest watch time, then trims
// rows past the retention bound.
func (r *PostgresHistoryRepository) Record(ctx context.Context, event models.WatchEvent) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, video_id)
        DO UPDATE SET watched_at = EXCLUDED.watched_at
    `, event.UserID, event.VideoID, event.WatchedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("record watch event: %w", err)
	}

	_, err = conn.Exec(ctx, `
        DELETE FROM watch_history
        WHERE user_id = $1
          AND video_id NOT IN (
            SELECT video_id FROM watch_history
            WHERE user_id = $1
            ORDER BY watched_at DESC
            LIMIT $2
          )
    `, event.UserID, historyRetention)
	if err != nil {
		return fmt.Errorf("trim watch history: %w", err)
	}

	return nil
}

var _ HistoryRepository = (*PostgresHistoryRepository)(nil)

package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// HistoryRepository records watch events. One row per (user, video) pair
// keeps the most recent watch time; retention is bounded per user.
type HistoryRepository interface {
	Record(ctx context.Context, event models.WatchEvent) error
}

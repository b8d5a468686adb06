package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// VideoRepository exposes data access for video records.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	// UpdateMetadata modifies title, description, and thumbnail.
	UpdateMetadata(ctx context.Context, video models.Video) error
	// Delete removes the record and returns the deleted row so callers can
	// schedule remote asset cleanup.
	Delete(ctx context.Context, id string) (models.Video, error)
	// TogglePublished atomically flips the publish flag and returns the new state.
	TogglePublished(ctx context.Context, id string) (bool, error)
	// RecordView bumps the view counter.
	RecordView(ctx context.Context, id string) error
}

package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. When no object-store bucket is configured, media uploads are left
// unwired and the corresponding endpoints report the storage as unavailable.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *media.Cleaner, error) {
	var assets media.AssetStorage
	if cfg.ObjectStore.Bucket != "" {
		s3, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, nil, err
		}
		assets = s3
	} else {
		logger.Warn("object store not configured, media uploads disabled")
	}

	uploads := media.NewStore(assets, 3, 500*time.Millisecond, logger)
	cleaner := media.NewCleaner(assets, media.CleanerConfig{}, logger)
	prober := media.NewFFProbeProber(cfg.FFProbePath, cfg.FFProbeTimeout)

	sessionStore := repositories.NewPostgresSessionStore(pool)

	deps := handlers.Dependencies{
		Users:         repositories.NewPostgresUserRepository(pool),
		Sessions:      auth.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, sessionStore),
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool),
		History:       repositories.NewPostgresHistoryRepository(pool),
		Views:         repositories.NewPostgresViewRepository(pool),
		Uploads:       uploads,
		Prober:        prober,
		Cleanup:       cleaner,

		Logger:        logger,
		LoginLimiter:  middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, 5*time.Minute),
		UploadTempDir: cfg.UploadTempDir,
	}

	return deps, cleaner, nil
}

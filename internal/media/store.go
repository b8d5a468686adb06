package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// ErrAssetStorageUnavailable indicates no asset storage backend is configured.
var ErrAssetStorageUnavailable = errors.New("asset storage unavailable")

// AssetStorage persists media content under a key and can remove it again by
// the location Save returned.
type AssetStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, location string) error
}

// Store uploads staged files to remote storage with bounded retries on
// transient failure.
type Store struct {
	storage  AssetStorage
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// NewStore wraps the storage backend with retry behaviour.
func NewStore(storage AssetStorage, attempts int, backoff time.Duration, logger *slog.Logger) *Store {
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{storage: storage, attempts: attempts, backoff: backoff, logger: logger}
}

// Upload streams the file at path to remote storage under key, retrying up to
// the configured attempt budget. The local file is left in place; removal is
// the caller's responsibility via its staging cleanup.
func (s *Store) Upload(ctx context.Context, key, path string) (string, error) {
	if s.storage == nil {
		return "", ErrAssetStorageUnavailable
	}

	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		if attempt > 0 {
			s.logger.Warn("retrying asset upload", "key", key, "attempt", attempt+1, "error", lastErr)
			timer := time.NewTimer(s.backoff * time.Duration(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
			timer.Stop()
		}

		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open staged file: %w", err)
		}

		location, err := s.storage.Save(ctx, key, f)
		f.Close()
		if err == nil {
			return location, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}

	return "", fmt.Errorf("upload %s: exceeded %d attempts: %w", key, s.attempts, lastErr)
}

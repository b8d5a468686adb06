package media

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var errCleanerClosed = errors.New("asset cleaner closed")

// CleanerConfig controls the concurrency characteristics of the cleaner.
type CleanerConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// Cleaner deletes remote assets in the background. Video deletion enqueues the
// orphaned locations here; a failed delete is logged and dropped, never
// surfaced to the request that triggered it.
type Cleaner struct {
	storage AssetStorage
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan string
	wg     sync.WaitGroup
	once   sync.Once
}

// NewCleaner constructs a background worker pool that removes remote assets.
func NewCleaner(storage AssetStorage, cfg CleanerConfig, logger *slog.Logger) *Cleaner {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cleaner{
		storage: storage,
		timeout: cfg.Timeout,
		logger:  logger,
		jobs:    make(chan string, cfg.QueueSize),
	}

	c.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go c.worker()
	}

	return c
}

// Enqueue schedules deletion of the provided asset locations. Empty locations
// are skipped. The read lock keeps the queue open for the duration of the
// sends, so Shutdown cannot close it underneath a producer.
func (c *Cleaner) Enqueue(ctx context.Context, locations ...string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return errCleanerClosed
	}

	for _, location := range locations {
		if location == "" {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case c.jobs <- location:
		}
	}
	return nil
}

// Shutdown waits for the worker pool to drain outstanding jobs. In-flight
// Enqueue calls finish first; later ones are rejected.
func (c *Cleaner) Shutdown(ctx context.Context) error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.jobs)
		c.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (c *Cleaner) worker() {
	defer c.wg.Done()

	for location := range c.jobs {
		c.delete(location)
	}
}

func (c *Cleaner) delete(location string) {
	if c.storage == nil {
		c.logger.Error("asset cleaner missing storage backend", "location", location)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.storage.Delete(ctx, location); err != nil {
		c.logger.Error("asset cleanup failed", "location", location, "error", err)
	}
}

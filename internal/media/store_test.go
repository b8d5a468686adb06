package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeAssetStorage struct {
	mu       sync.Mutex
	saves    []string
	deletes  []string
	failNext int
	saveErr  error
	delErr   error
}

func (s *fakeAssetStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return "", s.saveErr
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	s.saves = append(s.saves, name)
	return "https://cdn.example.com/" + name, nil
}

func (s *fakeAssetStorage) Delete(_ context.Context, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delErr != nil {
		return s.delErr
	}
	s.deletes = append(s.deletes, location)
	return nil
}

func stageTestFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o600); err != nil {
		t.Fatalf("write staged file: %v", err)
	}
	return path
}

func TestStoreUploadRetriesTransientFailures(t *testing.T) {
	storage := &fakeAssetStorage{failNext: 2, saveErr: errors.New("connection reset")}
	store := NewStore(storage, 3, time.Millisecond, nil)

	location, err := store.Upload(context.Background(), "videos/clip.mp4", stageTestFile(t))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if location != "https://cdn.example.com/videos/clip.mp4" {
		t.Fatalf("unexpected location %q", location)
	}
	if len(storage.saves) != 1 {
		t.Fatalf("expected exactly one successful save, got %d", len(storage.saves))
	}
}

func TestStoreUploadExhaustsAttempts(t *testing.T) {
	saveErr := errors.New("bucket gone")
	storage := &fakeAssetStorage{failNext: 10, saveErr: saveErr}
	store := NewStore(storage, 3, time.Millisecond, nil)

	if _, err := store.Upload(context.Background(), "videos/clip.mp4", stageTestFile(t)); !errors.Is(err, saveErr) {
		t.Fatalf("expected attempts exhausted with cause, got %v", err)
	}
}

func TestStoreUploadWithoutBackend(t *testing.T) {
	store := NewStore(nil, 3, time.Millisecond, nil)

	if _, err := store.Upload(context.Background(), "k", "p"); !errors.Is(err, ErrAssetStorageUnavailable) {
		t.Fatalf("expected ErrAssetStorageUnavailable, got %v", err)
	}
}

func TestCleanerDeletesQueuedAssets(t *testing.T) {
	storage := &fakeAssetStorage{}
	cleaner := NewCleaner(storage, CleanerConfig{Workers: 2, QueueSize: 8}, nil)

	if err := cleaner.Enqueue(context.Background(), "a.mp4", "", "b.jpg"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cleaner.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if len(storage.deletes) != 2 {
		t.Fatalf("expected 2 deletes with empty locations skipped, got %v", storage.deletes)
	}
}

func TestCleanerRejectsEnqueueAfterShutdown(t *testing.T) {
	cleaner := NewCleaner(&fakeAssetStorage{}, CleanerConfig{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cleaner.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if err := cleaner.Enqueue(context.Background(), "late.mp4"); err == nil {
		t.Fatal("expected enqueue after shutdown to fail")
	}
}

func TestCleanerEnqueueRacingShutdown(t *testing.T) {
	storage := &fakeAssetStorage{}
	cleaner := NewCleaner(storage, CleanerConfig{Workers: 2, QueueSize: 1}, nil)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
				if err := cleaner.Enqueue(context.Background(), "asset.mp4"); err != nil {
					if !errors.Is(err, errCleanerClosed) {
						t.Errorf("enqueue: %v", err)
					}
					return
				}
			}
		}()
	}

	close(start)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cleaner.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	wg.Wait()

	if err := cleaner.Enqueue(context.Background(), "late.mp4"); !errors.Is(err, errCleanerClosed) {
		t.Fatalf("expected errCleanerClosed after shutdown, got %v", err)
	}
}

func TestCleanerSwallowsDeleteFailures(t *testing.T) {
	storage := &fakeAssetStorage{delErr: errors.New("object store down")}
	cleaner := NewCleaner(storage, CleanerConfig{}, nil)

	if err := cleaner.Enqueue(context.Background(), "gone.mp4"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cleaner.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

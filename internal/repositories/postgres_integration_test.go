package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndUpdate(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	dup := user
	dup.ID = uuid.NewString()
	dup.Username = "alice2"
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate email, got %v", err)
	}

	byUsername, err := repo.FindByLogin(ctx, "alice")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if byUsername.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, byUsername.ID)
	}

	byEmail, err := repo.FindByLogin(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, byEmail.ID)
	}

	user.FullName = "Alice Updated"
	user.UpdatedAt = time.Now().UTC()
	if err := repo.Update(ctx, user); err != nil {
		t.Fatalf("update user: %v", err)
	}

	fetched, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.FullName != "Alice Updated" {
		t.Fatalf("expected updated full name, got %q", fetched.FullName)
	}

	if _, err := repo.FindByLogin(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLikeToggleParity(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	user := createTestUser(t, users, "liker")
	owner := createTestUser(t, users, "owner")

	videos := NewPostgresVideoRepository(testPool)
	video := createTestVideo(t, videos, owner.ID, "first", true)

	likes := NewPostgresLikeRepository(testPool)

	for i := 1; i <= 3; i++ {
		like, err := likes.Toggle(ctx, models.LikeTargetVideo, video.ID, user.ID)
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		wantActive := i%2 == 1
		if like.Active != wantActive {
			t.Fatalf("toggle %d: expected active=%v, got %v", i, wantActive, like.Active)
		}
	}

	if got := countRows(t, "SELECT COUNT(*) FROM likes"); got != 1 {
		t.Fatalf("expected a single like row, got %d", got)
	}
}

func TestLikeToggleParityUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	user := createTestUser(t, users, "racer")
	owner := createTestUser(t, users, "owner")

	videos := NewPostgresVideoRepository(testPool)
	video := createTestVideo(t, videos, owner.ID, "contended", true)

	likes := NewPostgresLikeRepository(testPool)

	const toggles = 8
	var wg sync.WaitGroup
	errCh := make(chan error, toggles)
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := likes.Toggle(ctx, models.LikeTargetVideo, video.ID, user.ID); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent toggle: %v", err)
	}

	if got := countRows(t, "SELECT COUNT(*) FROM likes"); got != 1 {
		t.Fatalf("expected a single like row after concurrent toggles, got %d", got)
	}

	var active bool
	if err := testPool.QueryRow(ctx, "SELECT active FROM likes").Scan(&active); err != nil {
		t.Fatalf("read like state: %v", err)
	}
	if active != (toggles%2 == 1) {
		t.Fatalf("expected active=%v after %d toggles, got %v", toggles%2 == 1, toggles, active)
	}
}

func TestSubscriptionToggleParityInStats(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	subscriber := createTestUser(t, users, "fan")
	channel := createTestUser(t, users, "channel")

	subs := NewPostgresSubscriptionRepository(testPool)
	views := NewPostgresViewRepository(testPool)

	for i := 1; i <= 3; i++ {
		sub, err := subs.Toggle(ctx, channel.ID, subscriber.ID)
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if sub.Active != (i%2 == 1) {
			t.Fatalf("toggle %d: expected active=%v, got %v", i, i%2 == 1, sub.Active)
		}
	}

	stats, err := views.ChannelStats(ctx, channel.ID)
	if err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if stats.TotalSubscribers != 1 {
		t.Fatalf("expected 1 subscriber after odd toggles, got %d", stats.TotalSubscribers)
	}

	if _, err := subs.Toggle(ctx, channel.ID, subscriber.ID); err != nil {
		t.Fatalf("fourth toggle: %v", err)
	}

	stats, err = views.ChannelStats(ctx, channel.ID)
	if err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if stats.TotalSubscribers != 0 {
		t.Fatalf("expected 0 subscribers after even toggles, got %d", stats.TotalSubscribers)
	}

	if got := countRows(t, "SELECT COUNT(*) FROM subscriptions"); got != 1 {
		t.Fatalf("expected a single subscription row, got %d", got)
	}
}

func TestVideoFeedSortingAndPagination(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, users, "creator")
	other := createTestUser(t, users, "lurker")

	videos := NewPostgresVideoRepository(testPool)
	base := time.Now().UTC().Add(-time.Hour)
	var ids []string
	for i := 0; i < 5; i++ {
		video := models.Video{
			ID:          uuid.NewString(),
			OwnerID:     owner.ID,
			Title:       fmt.Sprintf("video %d", i),
			VideoFile:   "https://cdn.example.com/v.mp4",
			Thumbnail:   "https://cdn.example.com/t.jpg",
			Duration:    int64(10 * (i + 1)),
			IsPublished: true,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := videos.Create(ctx, video); err != nil {
			t.Fatalf("create video %d: %v", i, err)
		}
		ids = append(ids, video.ID)
	}

	draft := createTestVideo(t, videos, owner.ID, "draft", false)

	views := NewPostgresViewRepository(testPool)

	var seen []string
	for page := 1; ; page++ {
		items, total, err := views.VideoFeed(ctx, VideoFeedFilter{
			SortBy:   SortByCreatedAt,
			SortDesc: true,
			Limit:    2,
			Offset:   (page - 1) * 2,
		})
		if err != nil {
			t.Fatalf("feed page %d: %v", page, err)
		}
		if total != 5 {
			t.Fatalf("expected total 5, got %d", total)
		}
		if len(items) == 0 {
			break
		}
		for _, item := range items {
			if item.ID == draft.ID {
				t.Fatal("unpublished video leaked into anonymous feed")
			}
			if item.Owner.Username != "creator" {
				t.Fatalf("expected owner projection, got %+v", item.Owner)
			}
			seen = append(seen, item.ID)
		}
	}

	if len(seen) != 5 {
		t.Fatalf("expected to page through 5 videos, saw %d", len(seen))
	}
	for i := 0; i < 5; i++ {
		if seen[i] != ids[4-i] {
			t.Fatalf("expected newest-first ordering, got %v", seen)
		}
	}

	// The owner sees their own draft.
	items, total, err := views.VideoFeed(ctx, VideoFeedFilter{
		ViewerID: owner.ID,
		SortBy:   SortByCreatedAt,
		SortDesc: true,
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("owner feed: %v", err)
	}
	if total != 6 || len(items) != 6 {
		t.Fatalf("expected owner to see 6 videos, got total=%d len=%d", total, len(items))
	}

	// Another authenticated viewer does not.
	_, total, err = views.VideoFeed(ctx, VideoFeedFilter{
		ViewerID: other.ID,
		SortBy:   SortByCreatedAt,
		SortDesc: true,
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("viewer feed: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected viewer to see 5 videos, got %d", total)
	}

	if _, _, err := views.VideoFeed(ctx, VideoFeedFilter{SortBy: "password_hash", Limit: 10}); !errors.Is(err, ErrBadSortField) {
		t.Fatalf("expected ErrBadSortField, got %v", err)
	}
}

func TestVideoDetailTotalsMatchJoinedSets(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, users, "owner")
	fan1 := createTestUser(t, users, "fan1")
	fan2 := createTestUser(t, users, "fan2")

	videos := NewPostgresVideoRepository(testPool)
	video := createTestVideo(t, videos, owner.ID, "detailed", true)

	likes := NewPostgresLikeRepository(testPool)
	for _, fan := range []models.User{fan1, fan2} {
		if _, err := likes.Toggle(ctx, models.LikeTargetVideo, video.ID, fan.ID); err != nil {
			t.Fatalf("like video: %v", err)
		}
	}
	// fan2 un-likes again; inactive edges must not count.
	if _, err := likes.Toggle(ctx, models.LikeTargetVideo, video.ID, fan2.ID); err != nil {
		t.Fatalf("unlike video: %v", err)
	}

	comments := NewPostgresCommentRepository(testPool)
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   video.ID,
		OwnerID:   fan1.ID,
		Content:   "first",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := comments.Create(ctx, comment); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if _, err := likes.Toggle(ctx, models.LikeTargetComment, comment.ID, fan2.ID); err != nil {
		t.Fatalf("like comment: %v", err)
	}

	views := NewPostgresViewRepository(testPool)
	detail, err := views.VideoDetail(ctx, video.ID, fan2.ID)
	if err != nil {
		t.Fatalf("video detail: %v", err)
	}

	if detail.LikesTotal != int64(len(detail.Likes)) {
		t.Fatalf("likes total %d does not match joined set %d", detail.LikesTotal, len(detail.Likes))
	}
	if detail.LikesTotal != 1 {
		t.Fatalf("expected 1 active like, got %d", detail.LikesTotal)
	}
	if detail.Likes[0].LikedBy.Username != "fan1" {
		t.Fatalf("expected liker projection fan1, got %+v", detail.Likes[0].LikedBy)
	}

	if detail.CommentsTotal != int64(len(detail.Comments)) {
		t.Fatalf("comments total %d does not match joined set %d", detail.CommentsTotal, len(detail.Comments))
	}
	if detail.CommentsTotal != 1 {
		t.Fatalf("expected 1 comment, got %d", detail.CommentsTotal)
	}
	got := detail.Comments[0]
	if got.Owner.Username != "fan1" || got.LikesCount != 1 || !got.IsLiked {
		t.Fatalf("unexpected comment view: %+v", got)
	}

	if detail.Owner.Username != "owner" {
		t.Fatalf("expected owner projection, got %+v", detail.Owner)
	}

	if _, err := views.VideoDetail(ctx, uuid.NewString(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing video, got %v", err)
	}
}

func TestPlaylistRoundTrip(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, users, "curator")

	videos := NewPostgresVideoRepository(testPool)
	first := createTestVideo(t, videos, owner.ID, "one", true)
	second := createTestVideo(t, videos, owner.ID, "two", true)

	playlists := NewPostgresPlaylistRepository(testPool)
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     owner.ID,
		Name:        "favorites",
		Description: "the good ones",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := playlists.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	dup := playlist
	dup.ID = uuid.NewString()
	if err := playlists.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate name, got %v", err)
	}

	if err := playlists.AddVideo(ctx, playlist.ID, first.ID); err != nil {
		t.Fatalf("add first video: %v", err)
	}
	if err := playlists.AddVideo(ctx, playlist.ID, second.ID); err != nil {
		t.Fatalf("add second video: %v", err)
	}
	if err := playlists.AddVideo(ctx, playlist.ID, first.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate membership, got %v", err)
	}

	views := NewPostgresViewRepository(testPool)
	detail, err := views.PlaylistDetail(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("playlist detail: %v", err)
	}

	if detail.Owner.Username != "curator" || detail.Owner.Avatar == "" {
		t.Fatalf("expected owner projection with username and avatar, got %+v", detail.Owner)
	}
	if len(detail.Videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(detail.Videos))
	}
	if detail.Videos[0].ID != first.ID || detail.Videos[1].ID != second.ID {
		t.Fatalf("expected insertion order, got %s then %s", detail.Videos[0].ID, detail.Videos[1].ID)
	}

	if err := playlists.RemoveVideo(ctx, playlist.ID, first.ID); err != nil {
		t.Fatalf("remove video: %v", err)
	}
	if err := playlists.RemoveVideo(ctx, playlist.ID, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on removing absent video, got %v", err)
	}

	detail, err = views.PlaylistDetail(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("playlist detail after remove: %v", err)
	}
	if len(detail.Videos) != 1 || detail.Videos[0].ID != second.ID {
		t.Fatalf("expected only second video to remain, got %+v", detail.Videos)
	}

	if _, err := views.PlaylistDetail(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing playlist, got %v", err)
	}
}

func TestPlaylistConcurrentAppendsGetDistinctPositions(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, users, "collector")

	videos := NewPostgresVideoRepository(testPool)
	const adds = 8
	ids := make([]string, adds)
	for i := 0; i < adds; i++ {
		ids[i] = createTestVideo(t, videos, owner.ID, fmt.Sprintf("clip-%d", i), true).ID
	}

	playlists := NewPostgresPlaylistRepository(testPool)
	playlist := models.Playlist{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		Name:      "contended",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := playlists.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, adds)
	for _, id := range ids {
		wg.Add(1)
		go func(videoID string) {
			defer wg.Done()
			if err := playlists.AddVideo(ctx, playlist.ID, videoID); err != nil {
				errCh <- err
			}
		}(id)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent add: %v", err)
	}

	if got := countRows(t, "SELECT COUNT(*) FROM playlist_videos"); got != adds {
		t.Fatalf("expected %d membership rows, got %d", adds, got)
	}
	if got := countRows(t, "SELECT COUNT(DISTINCT position) FROM playlist_videos"); got != adds {
		t.Fatalf("expected %d distinct positions, got %d", adds, got)
	}
}

func TestWatchHistoryOrderingAndDedupe(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	viewer := createTestUser(t, users, "viewer")
	owner := createTestUser(t, users, "owner")

	videos := NewPostgresVideoRepository(testPool)
	first := createTestVideo(t, videos, owner.ID, "one", true)
	second := createTestVideo(t, videos, owner.ID, "two", true)

	history := NewPostgresHistoryRepository(testPool)
	base := time.Now().UTC().Add(-time.Minute)

	for i, event := range []models.WatchEvent{
		{UserID: viewer.ID, VideoID: first.ID, WatchedAt: base},
		{UserID: viewer.ID, VideoID: second.ID, WatchedAt: base.Add(10 * time.Second)},
		{UserID: viewer.ID, VideoID: first.ID, WatchedAt: base.Add(20 * time.Second)},
	} {
		if err := history.Record(ctx, event); err != nil {
			t.Fatalf("record watch %d: %v", i, err)
		}
	}

	views := NewPostgresViewRepository(testPool)
	entries, err := views.WatchHistory(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("watch history: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected rewatches deduplicated to 2 entries, got %d", len(entries))
	}
	if entries[0].ID != first.ID || entries[1].ID != second.ID {
		t.Fatalf("expected most-recent-first order, got %s then %s", entries[0].ID, entries[1].ID)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE watch_history, playlist_videos, playlists, subscriptions, likes, comments, videos, sessions, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, username string) models.User {
	t.Helper()
	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test " + username,
		PasswordHash: "password-hash",
		Avatar:       "https://cdn.example.com/" + username + ".png",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func createTestVideo(t *testing.T, repo *PostgresVideoRepository, ownerID, title string, published bool) models.Video {
	t.Helper()
	now := time.Now().UTC()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		VideoFile:   "https://cdn.example.com/" + title + ".mp4",
		Thumbnail:   "https://cdn.example.com/" + title + ".jpg",
		Duration:    42,
		IsPublished: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("create test video: %v", err)
	}
	return video
}

func countRows(t *testing.T, query string) int64 {
	t.Helper()
	var count int64
	if err := testPool.QueryRow(context.Background(), query).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

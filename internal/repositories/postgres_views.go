package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

// feedSortColumns whitelists the caller-facing sort fields onto real columns.
var feedSortColumns = map[string]string{
	SortByCreatedAt: "created_at",
	SortByViews:     "views",
	SortByDuration:  "duration_seconds",
}

// ErrBadSortField indicates the requested feed sort field is not supported.
var ErrBadSortField = errors.New("unsupported sort field")

// PostgresViewRepository executes the cross-table aggregation queries backing
// every read model. All queries are read-only and safe to run concurrently.
type PostgresViewRepository struct {
	pool db.Pool
}

// NewPostgresViewRepository constructs a view repository backed by PostgreSQL.
func NewPostgresViewRepository(pool db.Pool) *PostgresViewRepository {
	return &PostgresViewRepository{pool: pool}
}

// ChannelStats aggregates a channel's dashboard numbers in a single pass.
// Absent rows aggregate to zero, never null.
func (r *PostgresViewRepository) ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error) {
	ctx, span := logging.StartSpan(ctx, "views.channel_stats")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, channelID).Scan(&exists); err != nil {
		return models.ChannelStats{}, fmt.Errorf("check channel: %w", err)
	}
	if !exists {
		return models.ChannelStats{}, ErrNotFound
	}

	stats := models.ChannelStats{ChannelID: channelID}
	err = conn.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM videos v WHERE v.owner_id = $1),
            (SELECT COALESCE(SUM(v.views), 0) FROM videos v WHERE v.owner_id = $1),
            (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = $1 AND s.active),
            (SELECT COUNT(*)
             FROM likes l
             JOIN videos v ON v.id = l.video_id
             WHERE l.active AND v.owner_id = $1)
    `, channelID).Scan(&stats.TotalVideos, &stats.TotalViews, &stats.TotalSubscribers, &stats.TotalLikes)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("aggregate channel stats: %w", err)
	}

	return stats, nil
}

// ChannelProfile resolves a username into the channel view, with subscription
// counts and the viewer's subscription state.
func (r *PostgresViewRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	ctx, span := logging.StartSpan(ctx, "views.channel_profile")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var profile models.ChannelProfile
	err = conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.email, u.full_name, u.avatar_url, u.cover_image_url,
            (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id AND s.active),
            (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id AND s.active),
            EXISTS (
                SELECT 1 FROM subscriptions s
                WHERE s.channel_id = u.id AND s.subscriber_id = $2::uuid AND s.active
            )
        FROM users u
        WHERE u.username = $1
    `, username, nullableID(viewerID)).Scan(
		&profile.ID, &profile.Username, &profile.Email, &profile.FullName,
		&profile.Avatar, &profile.CoverImage,
		&profile.SubscribersCount, &profile.SubscribedToCount, &profile.IsSubscribed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("aggregate channel profile: %w", err)
	}

	return profile, nil
}

// VideoDetail joins the video with its owner, active likes, and comments.
// Totals are the cardinality of the joined sets, not stored counters.
func (r *PostgresViewRepository) VideoDetail(ctx context.Context, videoID, viewerID string) (models.VideoDetail, error) {
	ctx, span := logging.StartSpan(ctx, "views.video_detail")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoDetail{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var detail models.VideoDetail
	err = conn.QueryRow(ctx, `
        SELECT `+prefixed("v", videoColumns)+`, u.id, u.username, u.avatar_url
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.id = $1
    `, videoID).Scan(
		&detail.ID, &detail.OwnerID, &detail.Title, &detail.Description, &detail.VideoFile,
		&detail.Thumbnail, &detail.Duration, &detail.IsPublished, &detail.Views,
		&detail.CreatedAt, &detail.UpdatedAt,
		&detail.Owner.ID, &detail.Owner.Username, &detail.Owner.Avatar,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoDetail{}, ErrNotFound
		}
		return models.VideoDetail{}, fmt.Errorf("select video detail: %w", err)
	}

	likeRows, err := conn.Query(ctx, `
        SELECT l.id, u.id, u.username, u.avatar_url, l.created_at
        FROM likes l
        JOIN users u ON u.id = l.liked_by
        WHERE l.video_id = $1 AND l.active
        ORDER BY l.created_at DESC, l.id
    `, videoID)
	if err != nil {
		return models.VideoDetail{}, fmt.Errorf("query video likes: %w", err)
	}
	defer likeRows.Close()

	detail.Likes = []models.LikeEntry{}
	for likeRows.Next() {
		var entry models.LikeEntry
		if err := likeRows.Scan(&entry.ID, &entry.LikedBy.ID, &entry.LikedBy.Username, &entry.LikedBy.Avatar, &entry.CreatedAt); err != nil {
			return models.VideoDetail{}, fmt.Errorf("scan video like: %w", err)
		}
		detail.Likes = append(detail.Likes, entry)
	}
	if err := likeRows.Err(); err != nil {
		return models.VideoDetail{}, fmt.Errorf("iterate video likes: %w", err)
	}

	comments, _, err := r.videoComments(ctx, conn, videoID, viewerID, 0, 0)
	if err != nil {
		return models.VideoDetail{}, err
	}
	detail.Comments = comments

	detail.LikesTotal = int64(len(detail.Likes))
	detail.CommentsTotal = int64(len(detail.Comments))

	return detail, nil
}

// ChannelVideos lists a channel's videos annotated with live like and comment counts.
func (r *PostgresViewRepository) ChannelVideos(ctx context.Context, channelID string) ([]models.VideoWithCounts, error) {
	ctx, span := logging.StartSpan(ctx, "views.channel_videos")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+prefixed("v", videoColumns)+`,
            (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id AND l.active),
            (SELECT COUNT(*) FROM comments c WHERE c.video_id = v.id)
        FROM videos v
        WHERE v.owner_id = $1
        ORDER BY v.created_at DESC, v.id
    `, channelID)
	if err != nil {
		return nil, fmt.Errorf("query channel videos: %w", err)
	}
	defer rows.Close()

	videos := []models.VideoWithCounts{}
	for rows.Next() {
		var v models.VideoWithCounts
		if err := rows.Scan(
			&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoFile,
			&v.Thumbnail, &v.Duration, &v.IsPublished, &v.Views,
			&v.CreatedAt, &v.UpdatedAt,
			&v.LikesCount, &v.CommentsCount,
		); err != nil {
			return nil, fmt.Errorf("scan channel video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel videos: %w", err)
	}

	return videos, nil
}

// VideoFeed returns one sorted page of the feed plus the total count over the
// same filter. Sorting happens before pagination, with the video ID as a
// tie-break so page boundaries stay deterministic.
func (r *PostgresViewRepository) VideoFeed(ctx context.Context, filter VideoFeedFilter) ([]models.VideoWithOwner, int64, error) {
	ctx, span := logging.StartSpan(ctx, "views.video_feed")
	defer span.End()

	sortColumn, ok := feedSortColumns[filter.SortBy]
	if !ok {
		return nil, 0, ErrBadSortField
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	const visibility = `
        (v.is_published OR v.owner_id = $1::uuid)
        AND ($2::uuid IS NULL OR v.owner_id = $2::uuid)
    `

	var total int64
	err = conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM videos v
        WHERE `+visibility, nullableID(filter.ViewerID), nullableID(filter.OwnerID)).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count video feed: %w", err)
	}

	query := fmt.Sprintf(`
        SELECT `+prefixed("v", videoColumns)+`, u.id, u.username, u.avatar_url
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE `+visibility+`
        ORDER BY v.%s %s, v.id
        LIMIT $3 OFFSET $4
    `, sortColumn, direction)

	rows, err := conn.Query(ctx, query, nullableID(filter.ViewerID), nullableID(filter.OwnerID), filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query video feed: %w", err)
	}
	defer rows.Close()

	videos, err := scanVideosWithOwner(rows)
	if err != nil {
		return nil, 0, err
	}

	return videos, total, nil
}

// VideoComments returns one page of a video's comments with like annotations,
// plus the total comment count over the same filter.
func (r *PostgresViewRepository) VideoComments(ctx context.Context, videoID, viewerID string, limit, offset int) ([]models.CommentView, int64, error) {
	ctx, span := logging.StartSpan(ctx, "views.video_comments")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return r.videoCommentsCounted(ctx, conn, videoID, viewerID, limit, offset)
}

func (r *PostgresViewRepository) videoCommentsCounted(ctx context.Context, conn queryer, videoID, viewerID string, limit, offset int) ([]models.CommentView, int64, error) {
	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE video_id = $1`, videoID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count video comments: %w", err)
	}

	comments, _, err := r.videoComments(ctx, conn, videoID, viewerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return comments, total, nil
}

// videoComments runs the comment join. A non-positive limit returns the whole set.
func (r *PostgresViewRepository) videoComments(ctx context.Context, conn queryer, videoID, viewerID string, limit, offset int) ([]models.CommentView, int64, error) {
	query := `
        SELECT c.id, c.content, u.id, u.username, u.avatar_url,
            (SELECT COUNT(*) FROM likes l WHERE l.comment_id = c.id AND l.active),
            EXISTS (
                SELECT 1 FROM likes l
                WHERE l.comment_id = c.id AND l.liked_by = $2::uuid AND l.active
            ),
            c.created_at, c.updated_at
        FROM comments c
        JOIN users u ON u.id = c.owner_id
        WHERE c.video_id = $1
        ORDER BY c.created_at DESC, c.id
    `
	args := []any{videoID, nullableID(viewerID)}
	if limit > 0 {
		query += ` LIMIT $3 OFFSET $4`
		args = append(args, limit, offset)
	}

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query video comments: %w", err)
	}
	defer rows.Close()

	comments := []models.CommentView{}
	for rows.Next() {
		var c models.CommentView
		if err := rows.Scan(
			&c.ID, &c.Content, &c.Owner.ID, &c.Owner.Username, &c.Owner.Avatar,
			&c.LikesCount, &c.IsLiked, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan video comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate video comments: %w", err)
	}

	return comments, int64(len(comments)), nil
}

// LikedVideos expands a user's active video likes into the liked videos.
func (r *PostgresViewRepository) LikedVideos(ctx context.Context, userID string) ([]models.VideoWithOwner, error) {
	ctx, span := logging.StartSpan(ctx, "views.liked_videos")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+prefixed("v", videoColumns)+`, u.id, u.username, u.avatar_url
        FROM likes l
        JOIN videos v ON v.id = l.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE l.liked_by = $1 AND l.active AND l.video_id IS NOT NULL
        ORDER BY l.updated_at DESC, l.id
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}
	defer rows.Close()

	return scanVideosWithOwner(rows)
}

// PlaylistDetail expands a playlist with its published videos in order.
func (r *PostgresViewRepository) PlaylistDetail(ctx context.Context, playlistID string) (models.PlaylistView, error) {
	ctx, span := logging.StartSpan(ctx, "views.playlist_detail")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.PlaylistView{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	views, err := r.playlists(ctx, conn, `WHERE p.id = $1`, playlistID)
	if err != nil {
		return models.PlaylistView{}, err
	}
	if len(views) == 0 {
		return models.PlaylistView{}, ErrNotFound
	}

	return views[0], nil
}

// UserPlaylists expands all playlists owned by a user.
func (r *PostgresViewRepository) UserPlaylists(ctx context.Context, ownerID string) ([]models.PlaylistView, error) {
	ctx, span := logging.StartSpan(ctx, "views.user_playlists")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return r.playlists(ctx, conn, `WHERE p.owner_id = $1 ORDER BY p.created_at DESC, p.id`, ownerID)
}

func (r *PostgresViewRepository) playlists(ctx context.Context, conn queryer, where string, arg any) ([]models.PlaylistView, error) {
	rows, err := conn.Query(ctx, `
        SELECT p.id, p.owner_id, p.name, p.description, p.created_at, p.updated_at,
            u.id, u.username, u.avatar_url
        FROM playlists p
        JOIN users u ON u.id = p.owner_id
        `+where, arg)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()

	views := []models.PlaylistView{}
	index := map[string]int{}
	ids := []string{}
	for rows.Next() {
		var view models.PlaylistView
		if err := rows.Scan(
			&view.ID, &view.OwnerID, &view.Name, &view.Description,
			&view.CreatedAt, &view.UpdatedAt,
			&view.Owner.ID, &view.Owner.Username, &view.Owner.Avatar,
		); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		view.Videos = []models.VideoWithOwner{}
		index[view.ID] = len(views)
		ids = append(ids, view.ID)
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}

	if len(views) == 0 {
		return views, nil
	}

	// Expand published member videos for all playlists in one pass, keeping
	// playlist order by position. Unpublished or dangling members drop out of
	// the join silently.
	videoRows, err := conn.Query(ctx, `
        SELECT pv.playlist_id, `+prefixed("v", videoColumns)+`, u.id, u.username, u.avatar_url
        FROM playlist_videos pv
        JOIN videos v ON v.id = pv.video_id AND v.is_published
        JOIN users u ON u.id = v.owner_id
        WHERE pv.playlist_id = ANY($1)
        ORDER BY pv.playlist_id, pv.position
    `, ids)
	if err != nil {
		return nil, fmt.Errorf("query playlist videos: %w", err)
	}
	defer videoRows.Close()

	for videoRows.Next() {
		var playlistID string
		var v models.VideoWithOwner
		if err := videoRows.Scan(
			&playlistID,
			&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoFile,
			&v.Thumbnail, &v.Duration, &v.IsPublished, &v.Views,
			&v.CreatedAt, &v.UpdatedAt,
			&v.Owner.ID, &v.Owner.Username, &v.Owner.Avatar,
		); err != nil {
			return nil, fmt.Errorf("scan playlist video: %w", err)
		}
		if i, ok := index[playlistID]; ok {
			views[i].Videos = append(views[i].Videos, v)
		}
	}
	if err := videoRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlist videos: %w", err)
	}

	return views, nil
}

// WatchHistory expands a user's watch history, most recent first.
func (r *PostgresViewRepository) WatchHistory(ctx context.Context, userID string) ([]models.HistoryEntry, error) {
	ctx, span := logging.StartSpan(ctx, "views.watch_history")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+prefixed("v", videoColumns)+`, u.id, u.username, u.avatar_url, wh.watched_at
        FROM watch_history wh
        JOIN videos v ON v.id = wh.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE wh.user_id = $1
        ORDER BY wh.watched_at DESC, v.id
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(
			&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.VideoFile,
			&e.Thumbnail, &e.Duration, &e.IsPublished, &e.Views,
			&e.CreatedAt, &e.UpdatedAt,
			&e.Owner.ID, &e.Owner.Username, &e.Owner.Avatar,
			&e.WatchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan watch history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}

	return entries, nil
}

// ChannelSubscribers lists active subscribers of a channel.
func (r *PostgresViewRepository) ChannelSubscribers(ctx context.Context, channelID string) ([]models.SubscriberEntry, error) {
	ctx, span := logging.StartSpan(ctx, "views.channel_subscribers")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.username, u.avatar_url, s.created_at
        FROM subscriptions s
        JOIN users u ON u.id = s.subscriber_id
        WHERE s.channel_id = $1 AND s.active
        ORDER BY s.created_at DESC, s.id
    `, channelID)
	if err != nil {
		return nil, fmt.Errorf("query channel subscribers: %w", err)
	}
	defer rows.Close()

	entries := []models.SubscriberEntry{}
	for rows.Next() {
		var e models.SubscriberEntry
		if err := rows.Scan(&e.Subscriber.ID, &e.Subscriber.Username, &e.Subscriber.Avatar, &e.Since); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}

	return entries, nil
}

// SubscribedChannels lists the channels a user actively subscribes to.
func (r *PostgresViewRepository) SubscribedChannels(ctx context.Context, subscriberID string) ([]models.ChannelEntry, error) {
	ctx, span := logging.StartSpan(ctx, "views.subscribed_channels")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.username, u.avatar_url, s.created_at
        FROM subscriptions s
        JOIN users u ON u.id = s.channel_id
        WHERE s.subscriber_id = $1 AND s.active
        ORDER BY s.created_at DESC, s.id
    `, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("query subscribed channels: %w", err)
	}
	defer rows.Close()

	entries := []models.ChannelEntry{}
	for rows.Next() {
		var e models.ChannelEntry
		if err := rows.Scan(&e.Channel.ID, &e.Channel.Username, &e.Channel.Avatar, &e.Since); err != nil {
			return nil, fmt.Errorf("scan subscribed channel: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribed channels: %w", err)
	}

	return entries, nil
}

// queryer is the subset of a pooled connection the view helpers need.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanVideosWithOwner(rows pgx.Rows) ([]models.VideoWithOwner, error) {
	videos := []models.VideoWithOwner{}
	for rows.Next() {
		var v models.VideoWithOwner
		if err := rows.Scan(
			&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoFile,
			&v.Thumbnail, &v.Duration, &v.IsPublished, &v.Views,
			&v.CreatedAt, &v.UpdatedAt,
			&v.Owner.ID, &v.Owner.Username, &v.Owner.Avatar,
		); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

// nullableID maps an empty ID onto SQL NULL so optional filters drop out.
func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// prefixed qualifies a comma-separated column list with a table alias.
func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}

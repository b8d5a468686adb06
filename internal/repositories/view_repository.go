package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// Feed sort fields accepted by VideoFeed. Anything else is rejected before a
// query runs.
const (
	SortByCreatedAt = "createdAt"
	SortByViews     = "views"
	SortByDuration  = "duration"
)

// VideoFeedFilter scopes and orders the paginated video feed. ViewerID widens
// visibility to the viewer's own unpublished videos; OwnerID narrows the feed
// to a single channel.
type VideoFeedFilter struct {
	OwnerID  string
	ViewerID string
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// ViewRepository materializes denormalized read models by joining across the
// entity tables. Every view is a pure function of current store state,
// recomputed per request. An empty joined collection is a valid result, never
// an error; only a missing root entity yields ErrNotFound.
type ViewRepository interface {
	ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	VideoDetail(ctx context.Context, videoID, viewerID string) (models.VideoDetail, error)
	ChannelVideos(ctx context.Context, channelID string) ([]models.VideoWithCounts, error)
	// VideoFeed returns one sorted page plus the total count over the same
	// filter, counted in a separate pass so limiting never undercounts.
	VideoFeed(ctx context.Context, filter VideoFeedFilter) ([]models.VideoWithOwner, int64, error)
	VideoComments(ctx context.Context, videoID, viewerID string, limit, offset int) ([]models.CommentView, int64, error)
	LikedVideos(ctx context.Context, userID string) ([]models.VideoWithOwner, error)
	PlaylistDetail(ctx context.Context, playlistID string) (models.PlaylistView, error)
	UserPlaylists(ctx context.Context, ownerID string) ([]models.PlaylistView, error)
	WatchHistory(ctx context.Context, userID string) ([]models.HistoryEntry, error)
	ChannelSubscribers(ctx context.Context, channelID string) ([]models.SubscriberEntry, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]models.ChannelEntry, error)
}

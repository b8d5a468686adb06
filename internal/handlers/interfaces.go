package handlers

import (
	"context"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// The handler package defines the narrow contracts it consumes so tests can
// substitute in-memory fakes without touching the Postgres implementations.

// UserStore exposes the account persistence operations handlers need.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, identifier string) (models.User, error)
	Update(ctx context.Context, user models.User) error
}

// SessionManager issues, verifies, and rotates session tokens.
type SessionManager interface {
	Issue(ctx context.Context, user models.User) (models.SessionTokens, error)
	Verify(tokenString string) (auth.Principal, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string)
}

// VideoStore exposes the video persistence operations handlers need.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	UpdateMetadata(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) (models.Video, error)
	TogglePublished(ctx context.Context, id string) (bool, error)
	RecordView(ctx context.Context, id string) error
}

// CommentStore exposes the comment persistence operations handlers need.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	UpdateContent(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// LikeToggler flips like edges atomically.
type LikeToggler interface {
	Toggle(ctx context.Context, target models.LikeTarget, targetID, userID string) (models.Like, error)
}

// SubscriptionToggler flips subscription edges atomically.
type SubscriptionToggler interface {
	Toggle(ctx context.Context, channelID, subscriberID string) (models.Subscription, error)
}

// PlaylistStore exposes playlist persistence and membership operations.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	Update(ctx context.Context, playlist models.Playlist) error
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
}

// HistoryStore records watch events.
type HistoryStore interface {
	Record(ctx context.Context, event models.WatchEvent) error
}

// Views materializes the denormalized read models.
type Views interface {
	ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	VideoDetail(ctx context.Context, videoID, viewerID string) (models.VideoDetail, error)
	ChannelVideos(ctx context.Context, channelID string) ([]models.VideoWithCounts, error)
	VideoFeed(ctx context.Context, filter repositories.VideoFeedFilter) ([]models.VideoWithOwner, int64, error)
	VideoComments(ctx context.Context, videoID, viewerID string, limit, offset int) ([]models.CommentView, int64, error)
	LikedVideos(ctx context.Context, userID string) ([]models.VideoWithOwner, error)
	PlaylistDetail(ctx context.Context, playlistID string) (models.PlaylistView, error)
	UserPlaylists(ctx context.Context, ownerID string) ([]models.PlaylistView, error)
	WatchHistory(ctx context.Context, userID string) ([]models.HistoryEntry, error)
	ChannelSubscribers(ctx context.Context, channelID string) ([]models.SubscriberEntry, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]models.ChannelEntry, error)
}

// Uploader pushes a staged local file to remote storage and returns its location.
type Uploader interface {
	Upload(ctx context.Context, key, path string) (string, error)
}

// Prober extracts media metadata from a staged file.
type Prober interface {
	Probe(ctx context.Context, path string) (media.Metadata, error)
}

// Cleaner schedules best-effort deletion of remote assets.
type Cleaner interface {
	Enqueue(ctx context.Context, locations ...string) error
}

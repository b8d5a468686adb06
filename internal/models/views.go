package models

import "time"

// Profile is the public projection of a user safe to expose to other
// principals: username and avatar, nothing else.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// ChannelProfile is a user viewed as a channel, annotated with live
// subscription counts and whether the requesting principal is subscribed.
type ChannelProfile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	FullName          string `json:"fullName"`
	Avatar            string `json:"avatar"`
	CoverImage        string `json:"coverImage,omitempty"`
	SubscribersCount  int64  `json:"subscribersCount"`
	SubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}

// ChannelStats aggregates a channel's dashboard numbers. Zero values, never
// nulls, when the channel has no videos or subscribers.
type ChannelStats struct {
	ChannelID        string `json:"channelId"`
	TotalVideos      int64  `json:"totalVideos"`
	TotalViews       int64  `json:"totalViews"`
	TotalSubscribers int64  `json:"totalSubscribers"`
	TotalLikes       int64  `json:"totalLikes"`
}

// VideoWithOwner annotates a video with its owner's public projection.
type VideoWithOwner struct {
	Video
	Owner Profile `json:"ownerDetails"`
}

// VideoWithCounts annotates a video with its live like and comment counts.
type VideoWithCounts struct {
	Video
	LikesCount    int64 `json:"likesCount"`
	CommentsCount int64 `json:"commentsCount"`
}

// LikeEntry is an active like edge with the liker's public projection.
type LikeEntry struct {
	ID        string    `json:"id"`
	LikedBy   Profile   `json:"likedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentView is a comment with its author projected and its like state
// relative to the requesting principal.
type CommentView struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Owner      Profile   `json:"owner"`
	LikesCount int64     `json:"likesCount"`
	IsLiked    bool      `json:"isLiked"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// VideoDetail is the full read model for a single video. LikesTotal and
// CommentsTotal are the cardinality of the joined sets, not stored counters.
type VideoDetail struct {
	Video
	Owner         Profile       `json:"ownerDetails"`
	Likes         []LikeEntry   `json:"likes"`
	Comments      []CommentView `json:"comments"`
	LikesTotal    int64         `json:"likes_total"`
	CommentsTotal int64         `json:"comments_total"`
}

// PlaylistView expands a playlist with its published videos in order, each
// with its owner projected, plus the playlist owner's projection.
type PlaylistView struct {
	Playlist
	Owner  Profile          `json:"ownerDetails"`
	Videos []VideoWithOwner `json:"videos"`
}

// SubscriberEntry is one channel subscriber with their public projection.
type SubscriberEntry struct {
	Subscriber Profile   `json:"subscriber"`
	Since      time.Time `json:"since"`
}

// ChannelEntry is one channel a user subscribes to.
type ChannelEntry struct {
	Channel Profile   `json:"channel"`
	Since   time.Time `json:"since"`
}

// HistoryEntry is a watch-history row expanded to the watched video.
type HistoryEntry struct {
	VideoWithOwner
	WatchedAt time.Time `json:"watchedAt"`
}

// Page is the uniform pagination envelope returned by every paginated feed.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
}

// NewPage assembles a pagination envelope, deriving TotalPages from the total
// count so that a page past the end yields an empty item list, not an error.
func NewPage[T any](items []T, page, limit int, totalItems int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := totalItems / int64(limit)
	if totalItems%int64(limit) != 0 {
		totalPages++
	}
	return Page[T]{
		Items:      items,
		Page:       page,
		Limit:      limit,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

package handlers

import (
	"context"
	"sync"

	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *fakeUserStore) FindByLogin(_ context.Context, identifier string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeUserStore) Update(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.users[user.ID] = user
	return nil
}

type fakeVideoStore struct {
	mu            sync.Mutex
	videos        map[string]models.Video
	viewsRecorded []string
}

func newFakeVideoStore() *fakeVideoStore {
	return &fakeVideoStore{videos: make(map[string]models.Video)}
}

func (s *fakeVideoStore) Create(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *fakeVideoStore) UpdateMetadata(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[video.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) Delete(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	delete(s.videos, id)
	return video, nil
}

func (s *fakeVideoStore) TogglePublished(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return false, repositories.ErrNotFound
	}
	video.IsPublished = !video.IsPublished
	s.videos[id] = video
	return video.IsPublished, nil
}

func (s *fakeVideoStore) RecordView(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	s.viewsRecorded = append(s.viewsRecorded, id)
	return nil
}

type fakeCommentStore struct {
	mu       sync.Mutex
	comments map[string]models.Comment
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{comments: make(map[string]models.Comment)}
}

func (s *fakeCommentStore) Create(_ context.Context, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[comment.ID] = comment
	return nil
}

func (s *fakeCommentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *fakeCommentStore) UpdateContent(_ context.Context, id, content string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	comment.Content = content
	s.comments[id] = comment
	return comment, nil
}

func (s *fakeCommentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

type toggleCall struct {
	Target   models.LikeTarget
	TargetID string
	UserID   string
}

type fakeLikeToggler struct {
	mu    sync.Mutex
	calls []toggleCall
}

func (s *fakeLikeToggler) Toggle(_ context.Context, target models.LikeTarget, targetID, userID string) (models.Like, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, toggleCall{Target: target, TargetID: targetID, UserID: userID})
	active := len(s.calls)%2 == 1
	like := models.Like{ID: "like-1", LikedBy: userID, Active: active}
	switch target {
	case models.LikeTargetComment:
		like.CommentID = targetID
	case models.LikeTargetTweet:
		like.TweetID = targetID
	default:
		like.VideoID = targetID
	}
	return like, nil
}

type fakeSubscriptionToggler struct {
	mu    sync.Mutex
	calls int
}

func (s *fakeSubscriptionToggler) Toggle(_ context.Context, channelID, subscriberID string) (models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return models.Subscription{
		ID:           "sub-1",
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		Active:       s.calls%2 == 1,
	}, nil
}

type fakePlaylistStore struct {
	mu        sync.Mutex
	playlists map[string]models.Playlist
	members   map[string][]string
}

func newFakePlaylistStore() *fakePlaylistStore {
	return &fakePlaylistStore{
		playlists: make(map[string]models.Playlist),
		members:   make(map[string][]string),
	}
}

func (s *fakePlaylistStore) Create(_ context.Context, playlist models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.playlists {
		if existing.OwnerID == playlist.OwnerID && existing.Name == playlist.Name {
			return repositories.ErrConflict
		}
	}
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *fakePlaylistStore) FindByID(_ context.Context, id string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	return playlist, nil
}

func (s *fakePlaylistStore) Update(_ context.Context, playlist models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playlists[playlist.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *fakePlaylistStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.playlists, id)
	delete(s.members, id)
	return nil
}

func (s *fakePlaylistStore) AddVideo(_ context.Context, playlistID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, member := range s.members[playlistID] {
		if member == videoID {
			return repositories.ErrConflict
		}
	}
	s.members[playlistID] = append(s.members[playlistID], videoID)
	return nil
}

func (s *fakePlaylistStore) RemoveVideo(_ context.Context, playlistID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.members[playlistID]
	for i, member := range members {
		if member == videoID {
			s.members[playlistID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeHistoryStore struct {
	mu     sync.Mutex
	events []models.WatchEvent
}

func (s *fakeHistoryStore) Record(_ context.Context, event models.WatchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// fakeViews returns canned read models and records the feed filters it was
// asked for.
type fakeViews struct {
	mu          sync.Mutex
	feedFilters []repositories.VideoFeedFilter
	feedItems   []models.VideoWithOwner
	feedTotal   int64
	feedErr     error
	detail      models.VideoDetail
	detailErr   error
}

func (v *fakeViews) ChannelStats(context.Context, string) (models.ChannelStats, error) {
	return models.ChannelStats{}, nil
}

func (v *fakeViews) ChannelProfile(context.Context, string, string) (models.ChannelProfile, error) {
	return models.ChannelProfile{}, nil
}

func (v *fakeViews) VideoDetail(context.Context, string, string) (models.VideoDetail, error) {
	return v.detail, v.detailErr
}

func (v *fakeViews) ChannelVideos(context.Context, string) ([]models.VideoWithCounts, error) {
	return nil, nil
}

func (v *fakeViews) VideoFeed(_ context.Context, filter repositories.VideoFeedFilter) ([]models.VideoWithOwner, int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.feedFilters = append(v.feedFilters, filter)
	return v.feedItems, v.feedTotal, v.feedErr
}

func (v *fakeViews) VideoComments(context.Context, string, string, int, int) ([]models.CommentView, int64, error) {
	return nil, 0, nil
}

func (v *fakeViews) LikedVideos(context.Context, string) ([]models.VideoWithOwner, error) {
	return nil, nil
}

func (v *fakeViews) PlaylistDetail(context.Context, string) (models.PlaylistView, error) {
	return models.PlaylistView{}, nil
}

func (v *fakeViews) UserPlaylists(context.Context, string) ([]models.PlaylistView, error) {
	return nil, nil
}

func (v *fakeViews) WatchHistory(context.Context, string) ([]models.HistoryEntry, error) {
	return nil, nil
}

func (v *fakeViews) ChannelSubscribers(context.Context, string) ([]models.SubscriberEntry, error) {
	return nil, nil
}

func (v *fakeViews) SubscribedChannels(context.Context, string) ([]models.ChannelEntry, error) {
	return nil, nil
}

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.keys = append(u.keys, key)
	return "https://cdn.example.com/" + key, nil
}

type fakeProber struct {
	meta media.Metadata
}

func (p *fakeProber) Probe(context.Context, string) (media.Metadata, error) {
	return p.meta, nil
}

type fakeCleaner struct {
	mu        sync.Mutex
	locations []string
}

func (c *fakeCleaner) Enqueue(_ context.Context, locations ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locations = append(c.locations, locations...)
	return nil
}

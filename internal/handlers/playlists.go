package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/models"
)

// PlaylistHandler implements playlist CRUD and membership endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore
	Videos    VideoStore
	Views     Views
	NowFunc   func() time.Time
}

func (h PlaylistHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type playlistRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

// Create handles POST /api/v1/playlists. The name is unique per owner;
// duplicates are rejected with Conflict.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     principal.UserID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Playlists.Create(ctx, playlist); err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusCreated, playlist, "playlist created")
}

// Mine handles GET /api/v1/playlists, listing the caller's playlists.
func (h PlaylistHandler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	playlists, err := h.Views.UserPlaylists(ctx, principal.UserID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, playlists, "playlists")
}

// Get handles GET /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlistID, err := parseID(chi.URLParam(r, "playlistId"), "playlist id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	playlist, err := h.Views.PlaylistDetail(ctx, playlistID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "playlist"))
		return
	}

	respond(ctx, w, http.StatusOK, playlist, "playlist detail")
}

// ByUser handles GET /api/v1/playlists/user/{userId}.
func (h PlaylistHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := parseID(chi.URLParam(r, "userId"), "user id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	playlists, err := h.Views.UserPlaylists(ctx, userID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, playlists, "user playlists")
}

// Update handles PATCH /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	playlistID, err := parseID(chi.URLParam(r, "playlistId"), "playlist id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	playlist, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "playlist"))
		return
	}
	if err := requireOwner(playlist.OwnerID, principal.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}

	playlist.Name = strings.TrimSpace(req.Name)
	playlist.Description = strings.TrimSpace(req.Description)
	playlist.UpdatedAt = h.now()

	if err := h.Playlists.Update(ctx, playlist); err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, playlist, "playlist updated")
}

// Delete handles DELETE /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	playlistID, err := parseID(chi.URLParam(r, "playlistId"), "playlist id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	playlist, err := h.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "playlist"))
		return
	}
	if err := requireOwner(playlist.OwnerID, principal.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Playlists.Delete(ctx, playlistID); err != nil {
		respondError(ctx, w, lookupErr(err, "playlist"))
		return
	}

	respond(ctx, w, http.StatusOK, nil, "playlist deleted")
}

// AddVideo handles PATCH /api/v1/playlists/add/{videoId}/{playlistId}.
// Adding a video twice is a Conflict; order of membership is append-only.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, videoID, err := h.memberParams(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		respondError(ctx, w, lookupErr(err, "video"))
		return
	}

	if err := h.Playlists.AddVideo(ctx, playlist.ID, videoID); err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, nil, "video added to playlist")
}

// RemoveVideo handles PATCH /api/v1/playlists/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, videoID, err := h.memberParams(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Playlists.RemoveVideo(ctx, playlist.ID, videoID); err != nil {
		respondError(ctx, w, lookupErr(err, "playlist video"))
		return
	}

	respond(ctx, w, http.StatusOK, nil, "video removed from playlist")
}

// memberParams resolves and owner-checks the playlist named in a membership
// mutation, returning it alongside the validated video ID.
func (h PlaylistHandler) memberParams(r *http.Request) (models.Playlist, string, error) {
	principal, err := requirePrincipal(r)
	if err != nil {
		return models.Playlist{}, "", err
	}

	playlistID, err := parseID(chi.URLParam(r, "playlistId"), "playlist id")
	if err != nil {
		return models.Playlist{}, "", err
	}

	videoID, err := parseID(chi.URLParam(r, "videoId"), "video id")
	if err != nil {
		return models.Playlist{}, "", err
	}

	playlist, err := h.Playlists.FindByID(r.Context(), playlistID)
	if err != nil {
		return models.Playlist{}, "", lookupErr(err, "playlist")
	}
	if err := requireOwner(playlist.OwnerID, principal.UserID); err != nil {
		return models.Playlist{}, "", err
	}

	return playlist, videoID, nil
}

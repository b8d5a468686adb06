package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/models"
)

// LikeHandler implements like toggling and the liked-videos listing.
type LikeHandler struct {
	Likes LikeToggler
	Views Views
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetVideo, "videoId", "video id")
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetComment, "commentId", "comment id")
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetTweet, "tweetId", "tweet id")
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, target models.LikeTarget, param, label string) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	targetID, err := parseID(chi.URLParam(r, param), label)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	like, err := h.Likes.Toggle(ctx, target, targetID, principal.UserID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, like, "like toggled")
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	videos, err := h.Views.LikedVideos(ctx, principal.UserID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, videos, "liked videos")
}

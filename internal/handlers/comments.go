package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
)

// CommentHandler implements the comment endpoints.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	Views    Views
	NowFunc  func() time.Time
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

// List handles GET /api/v1/comments/{videoId}. A video with no comments
// yields an empty page, not an error.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID, err := parseID(chi.URLParam(r, "videoId"), "video id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	page, limit, err := parsePagination(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		respondError(ctx, w, lookupErr(err, "video"))
		return
	}

	var viewerID string
	if principal, ok := auth.PrincipalFromContext(ctx); ok {
		viewerID = principal.UserID
	}

	comments, total, err := h.Views.VideoComments(ctx, videoID, viewerID, limit, (page-1)*limit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, models.NewPage(comments, page, limit, total), "video comments")
}

type commentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// Add handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	videoID, err := parseID(chi.URLParam(r, "videoId"), "video id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		respondError(ctx, w, lookupErr(err, "video"))
		return
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   principal.UserID,
		Content:   strings.TrimSpace(req.Content),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusCreated, comment, "comment added")
}

// Update handles PATCH /api/v1/comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	commentID, err := parseID(chi.URLParam(r, "commentId"), "comment id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	comment, err := h.Comments.FindByID(ctx, commentID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "comment"))
		return
	}
	if err := requireOwner(comment.OwnerID, principal.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}

	updated, err := h.Comments.UpdateContent(ctx, commentID, strings.TrimSpace(req.Content))
	if err != nil {
		respondError(ctx, w, lookupErr(err, "comment"))
		return
	}

	respond(ctx, w, http.StatusOK, updated, "comment updated")
}

// Delete handles DELETE /api/v1/comments/c/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	commentID, err := parseID(chi.URLParam(r, "commentId"), "comment id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	comment, err := h.Comments.FindByID(ctx, commentID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "comment"))
		return
	}
	if err := requireOwner(comment.OwnerID, principal.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Comments.Delete(ctx, commentID); err != nil {
		respondError(ctx, w, lookupErr(err, "comment"))
		return
	}

	respond(ctx, w, http.StatusOK, nil, "comment deleted")
}

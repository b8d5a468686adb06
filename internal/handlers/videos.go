package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// VideoHandler implements the video feed, publishing, and lifecycle endpoints.
type VideoHandler struct {
	Videos  VideoStore
	Views   Views
	History HistoryStore
	Uploads Uploader
	Prober  Prober
	Cleanup Cleaner
	TempDir string
	NowFunc func() time.Time
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

// Feed handles GET /api/v1/videos. Sorting happens before pagination; the
// sort field is validated against a whitelist before any query runs.
func (h VideoHandler) Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, limit, err := parsePagination(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	query := r.URL.Query()

	sortBy := query.Get("sortBy")
	if sortBy == "" {
		sortBy = repositories.SortByCreatedAt
	}

	sortDesc := true
	if sortType := query.Get("sortType"); sortType != "" {
		switch strings.ToLower(sortType) {
		case "asc":
			sortDesc = false
		case "desc":
			sortDesc = true
		default:
			respondError(ctx, w, apperr.New(apperr.InvalidArgument, "sortType must be asc or desc"))
			return
		}
	}

	ownerID := query.Get("userId")
	if ownerID != "" {
		if ownerID, err = parseID(ownerID, "userId"); err != nil {
			respondError(ctx, w, err)
			return
		}
	}

	var viewerID string
	if principal, ok := auth.PrincipalFromContext(ctx); ok {
		viewerID = principal.UserID
	}

	videos, total, err := h.Views.VideoFeed(ctx, repositories.VideoFeedFilter{
		OwnerID:  ownerID,
		ViewerID: viewerID,
		SortBy:   sortBy,
		SortDesc: sortDesc,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, models.NewPage(videos, page, limit, total), "video feed")
}

type publishForm struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"max=5000"`
}

// Publish handles POST /api/v1/videos. The video file and thumbnail are
// staged locally, the duration is probed, and both assets are pushed to
// remote storage before the record is created. Staged copies are removed on
// every exit path.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(ctx, w, apperr.Wrap(apperr.InvalidArgument, "invalid multipart payload", err))
		return
	}

	form := publishForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if err := validate.Struct(form); err != nil {
		respondError(ctx, w, apperr.Wrap(apperr.InvalidArgument, "invalid publish payload", err))
		return
	}

	videoFile, err := stageFormFile(r, "videoFile", h.TempDir)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer videoFile.Remove()
	if videoFile.Path == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidArgument, "videoFile is required"))
		return
	}

	thumbnail, err := stageFormFile(r, "thumbnail", h.TempDir)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer thumbnail.Remove()
	if thumbnail.Path == "" {
		respondError(ctx, w, apperr.New(apperr.InvalidArgument, "thumbnail is required"))
		return
	}

	meta, err := h.Prober.Probe(ctx, videoFile.Path)
	if err != nil {
		respondError(ctx, w, apperr.Wrap(apperr.InvalidArgument, "could not read video metadata", err))
		return
	}

	videoURL, err := h.Uploads.Upload(ctx, assetKey("videos", videoFile.Name), videoFile.Path)
	if err != nil {
		respondError(ctx, w, apperr.Wrap(apperr.Internal, "failed to store video", err))
		return
	}

	thumbURL, err := h.Uploads.Upload(ctx, assetKey("thumbnails", thumbnail.Name), thumbnail.Path)
	if err != nil {
		// The video asset is already remote; queue it for removal so a failed
		// publish leaves nothing behind.
		if h.Cleanup != nil {
			if cleanupErr := h.Cleanup.Enqueue(ctx, videoURL); cleanupErr != nil {
				logger.Warn("failed to queue orphaned video cleanup", "location", videoURL, "error", cleanupErr)
			}
		}
		respondError(ctx, w, apperr.Wrap(apperr.Internal, "failed to store thumbnail", err))
		return
	}

	now := h.now()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     principal.UserID,
		Title:       form.Title,
		Description: form.Description,
		VideoFile:   videoURL,
		Thumbnail:   thumbURL,
		Duration:    meta.DurationSeconds,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		respondError(ctx, w, err)
		return
	}

	logger.Info("video published", "videoId", video.ID, "ownerId", video.OwnerID, "duration", video.Duration)
	respond(ctx, w, http.StatusCreated, video, "video published")
}

// Get handles GET /api/v1/videos/{videoId}. An authenticated fetch counts as
// a watch: the view counter is bumped and the video lands at the head of the
// viewer's history before the detail is assembled.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID, err := parseID(chi.URLParam(r, "videoId"), "video id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var viewerID string
	if principal, ok := auth.PrincipalFromContext(ctx); ok {
		viewerID = principal.UserID

		if err := h.Videos.RecordView(ctx, videoID); err != nil {
			respondError(ctx, w, lookupErr(err, "video"))
			return
		}
		if err := h.History.Record(ctx, models.WatchEvent{
			UserID:    viewerID,
			VideoID:   videoID,
			WatchedAt: h.now(),
		}); err != nil {
			respondError(ctx, w, err)
			return
		}
	}

	detail, err := h.Views.VideoDetail(ctx, videoID, viewerID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "video"))
		return
	}

	respond(ctx, w, http.StatusOK, detail, "video detail")
}

type updateVideoRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

// Update handles PATCH /api/v1/videos/{videoId}. Accepts a JSON body or a
// multipart form carrying an optional replacement thumbnail.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "video"))
		return
	}
	if err := requireOwner(video.OwnerID, principal.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}

	var oldThumbnail string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			respondError(ctx, w, apperr.Wrap(apperr.InvalidArgument, "invalid multipart payload", err))
			return
		}

		req := updateVideoRequest{
			Title:       strings.TrimSpace(r.FormValue("title")),
			Description: strings.TrimSpace(r.FormValue("description")),
		}
		if err := validate.Struct(req); err != nil {
			respondError(ctx, w, apperr.Wrap(apperr.InvalidArgument, "invalid update payload", err))
			return
		}
		video.Title = req.Title
		video.Description = req.Description

		thumbnail, err := stageFormFile(r, "thumbnail", h.TempDir)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		defer thumbnail.Remove()

		if thumbnail.Path != "" {
			thumbURL, err := h.Uploads.Upload(ctx, assetKey("thumbnails", thumbnail.Name), thumbnail.Path)
			if err != nil {
				respondError(ctx, w, apperr.Wrap(apperr.Internal, "failed to store thumbnail", err))
				return
			}
			oldThumbnail = video.Thumbnail
			video.Thumbnail = thumbURL
		}
	} else {
		var req updateVideoRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(ctx, w, err)
			return
		}
		video.Title = strings.TrimSpace(req.Title)
		video.Description = strings.TrimSpace(req.Description)
	}

	video.UpdatedAt = h.now()
	if err := h.Videos.UpdateMetadata(ctx, video); err != nil {
		respondError(ctx, w, err)
		return
	}

	if h.Cleanup != nil && oldThumbnail != "" {
		if err := h.Cleanup.Enqueue(ctx, oldThumbnail); err != nil {
			logging.FromContext(ctx).Warn("failed to queue thumbnail cleanup", "location", oldThumbnail, "error", err)
		}
	}

	respond(ctx, w, http.StatusOK, video, "video updated")
}

// Delete handles DELETE /api/v1/videos/{videoId}. The record is removed
// first; remote assets are cleaned up asynchronously and best-effort, so a
// storage failure never surfaces to the caller.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "video"))
		return
	}
	if err := requireOwner(video.OwnerID, principal.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}

	deleted, err := h.Videos.Delete(ctx, videoID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "video"))
		return
	}

	if h.Cleanup != nil {
		if err := h.Cleanup.Enqueue(ctx, deleted.VideoFile, deleted.Thumbnail); err != nil {
			logging.FromContext(ctx).Warn("failed to queue asset cleanup", "videoId", videoID, "error", err)
		}
	}

	respond(ctx, w, http.StatusOK, nil, "video deleted")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
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

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "video"))
		return
	}
	if err := requireOwner(video.OwnerID, principal.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}

	published, err := h.Videos.TogglePublished(ctx, videoID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "video"))
		return
	}

	respond(ctx, w, http.StatusOK, map[string]bool{"isPublished": published}, "publish state toggled")
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// DashboardHandler implements the channel dashboard endpoints.
type DashboardHandler struct {
	Views Views
}

// Stats handles GET /api/v1/dashboard/stats/{channelId}. Every number is
// computed live from the entity tables; a channel with no activity reports
// zeroes.
func (h DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID, err := parseID(chi.URLParam(r, "channelId"), "channel id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	stats, err := h.Views.ChannelStats(ctx, channelID)
	if err != nil {
		respondError(ctx, w, lookupErr(err, "channel"))
		return
	}

	respond(ctx, w, http.StatusOK, stats, "channel stats")
}

// Videos handles GET /api/v1/dashboard/videos/{channelId}.
func (h DashboardHandler) Videos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID, err := parseID(chi.URLParam(r, "channelId"), "channel id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	videos, err := h.Views.ChannelVideos(ctx, channelID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, videos, "channel videos")
}

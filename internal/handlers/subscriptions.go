package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/apperr"
)

// SubscriptionHandler implements subscription toggling and edge listings.
type SubscriptionHandler struct {
	Subscriptions SubscriptionToggler
	Views         Views
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}. Subscribing to
// yourself is rejected before the store is touched.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, err := requirePrincipal(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	channelID, err := parseID(chi.URLParam(r, "channelId"), "channel id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if channelID == principal.UserID {
		respondError(ctx, w, apperr.New(apperr.InvalidArgument, "cannot subscribe to your own channel"))
		return
	}

	subscription, err := h.Subscriptions.Toggle(ctx, channelID, principal.UserID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, subscription, "subscription toggled")
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID, err := parseID(chi.URLParam(r, "channelId"), "channel id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	subscribers, err := h.Views.ChannelSubscribers(ctx, channelID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, subscribers, "channel subscribers")
}

// SubscribedChannels handles GET /api/v1/subscriptions/u/{subscriberId}.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscriberID, err := parseID(chi.URLParam(r, "subscriberId"), "subscriber id")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	channels, err := h.Views.SubscribedChannels(ctx, subscriberID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respond(ctx, w, http.StatusOK, channels, "subscribed channels")
}

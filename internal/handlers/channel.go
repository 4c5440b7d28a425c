package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/viewtube/apiserver/internal/services"
	"github.com/viewtube/apiserver/internal/store"
	"github.com/viewtube/apiserver/internal/token"
)

// ChannelHandler provides the public channel profile and the
// subscribe/unsubscribe endpoints.
type ChannelHandler struct {
	channelService *services.ChannelService
}

func NewChannelHandler(channelService *services.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelService: channelService}
}

// ChannelRouter registers channel routes on the given router. The
// profile route is public; authentication, when present, feeds the
// viewer-relative subscribed flag.
func ChannelRouter(r chi.Router, channelService *services.ChannelService, issuer *token.Issuer) {
	handler := NewChannelHandler(channelService)
	auth := RequireAuth(issuer)
	optional := OptionalAuth(issuer)

	r.Route("/{username}", func(r chi.Router) {
		r.With(optional).Get("/", handler.Profile)
		r.With(auth).Post("/subscribe", handler.Subscribe)
		r.With(auth).Delete("/subscribe", handler.Unsubscribe)
	})
}

// Profile returns the channel projection with subscriber counts.
func (h *ChannelHandler) Profile(w http.ResponseWriter, r *http.Request) {
	username, err := channelUsername(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	viewerID, _ := userIDFromContext(r.Context())

	profile, err := h.channelService.Profile(r.Context(), username, viewerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "channel not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load channel")
		return
	}

	writeData(w, http.StatusOK, profile, "channel profile")
}

// Subscribe adds the authenticated user as a subscriber of the channel.
func (h *ChannelHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	username, err := channelUsername(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.channelService.Subscribe(r.Context(), userID, username)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "channel not found")
		case errors.Is(err, services.ErrSelfSubscription):
			writeError(w, http.StatusBadRequest, "cannot subscribe to own channel")
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusConflict, "already subscribed")
		default:
			writeError(w, http.StatusInternalServerError, "failed to subscribe")
		}
		return
	}

	writeData(w, http.StatusCreated, sub, "subscribed successfully")
}

// Unsubscribe removes the authenticated user's subscription to the
// channel. Unsubscribing when not subscribed is not an error.
func (h *ChannelHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	username, err := channelUsername(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.channelService.Unsubscribe(r.Context(), userID, username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "channel not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to unsubscribe")
		return
	}

	writeData(w, http.StatusOK, nil, "unsubscribed successfully")
}

func channelUsername(r *http.Request) (string, error) {
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if username == "" {
		return "", errors.New("username is required")
	}
	return username, nil
}

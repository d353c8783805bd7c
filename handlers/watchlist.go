package handlers

import (
	"net/http"
	"strconv"

	"zenstream/models"
	"zenstream/services/watchlist"
)

// WatchlistHandler exposes the signed-in user's watchlist.
type WatchlistHandler struct {
	Watchlist *watchlist.Service
}

func NewWatchlistHandler(svc *watchlist.Service) *WatchlistHandler {
	return &WatchlistHandler{Watchlist: svc}
}

// List returns the current watchlist.
// GET /api/watchlist
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"items":   h.Watchlist.Items(),
		"loading": h.Watchlist.Loading(),
	})
}

// Toggle adds or removes a title.
// POST /api/watchlist/toggle
func (h *WatchlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var media models.Media
	if err := decodeBody(r, &media); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if media.ID == 0 || media.MediaType == "" {
		jsonError(w, "media id and media_type are required", http.StatusBadRequest)
		return
	}
	if err := h.Watchlist.Toggle(r.Context(), media); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"inWatchlist": h.Watchlist.Contains(media.ID)})
}

// Contains reports whether a title is on the watchlist.
// GET /api/watchlist/contains/{id}
func (h *WatchlistHandler) Contains(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(muxVar(r, "id"))
	if err != nil {
		jsonError(w, "invalid media id", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]bool{"inWatchlist": h.Watchlist.Contains(id)})
}

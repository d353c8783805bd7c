package handlers

import (
	"net/http"

	"zenstream/models"
	"zenstream/services/history"
	"zenstream/services/searches"
)

// HistoryHandler exposes the locally persisted watch history.
type HistoryHandler struct {
	History *history.Service
}

func NewHistoryHandler(svc *history.Service) *HistoryHandler {
	return &HistoryHandler{History: svc}
}

// List returns the watch history, most recent first.
// GET /api/history
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"items": h.History.Items()})
}

// Add records a watched title.
// POST /api/history
func (h *HistoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Media   models.Media `json:"media"`
		Season  int          `json:"season,omitempty"`
		Episode int          `json:"episode,omitempty"`
	}
	if err := decodeBody(r, &request); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if request.Media.ID == 0 {
		jsonError(w, "media is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.History.Add(request.Media, request.Season, request.Episode))
}

// Clear wipes the history.
// DELETE /api/history
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.History.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// SearchesHandler exposes the recent-search list.
type SearchesHandler struct {
	Searches *searches.Service
}

func NewSearchesHandler(svc *searches.Service) *SearchesHandler {
	return &SearchesHandler{Searches: svc}
}

// List returns the recent queries, most recent first.
// GET /api/searches
func (h *SearchesHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"queries": h.Searches.Queries(),
		"loading": h.Searches.Loading(),
	})
}

// Record remembers a query.
// POST /api/searches
func (h *SearchesHandler) Record(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Query string `json:"query"`
	}
	if err := decodeBody(r, &request); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.Searches.Record(request.Query)
	writeJSON(w, map[string]any{"queries": h.Searches.Queries()})
}

// Remove forgets one query (?query=...) or the whole list when no query is
// given.
// DELETE /api/searches
func (h *SearchesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if query := r.URL.Query().Get("query"); query != "" {
		h.Searches.Remove(query)
	} else {
		h.Searches.Clear()
	}
	writeJSON(w, map[string]any{"queries": h.Searches.Queries()})
}

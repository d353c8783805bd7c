package handlers

import (
	"net/http"
	"strings"

	"zenstream/services/metadata"
	"zenstream/services/suggest"
)

// SuggestHandler exposes AI-driven discovery endpoints.
type SuggestHandler struct {
	Suggest *suggest.Client
	Catalog *metadata.Client
}

func NewSuggestHandler(ai *suggest.Client, catalog *metadata.Client) *SuggestHandler {
	return &SuggestHandler{Suggest: ai, Catalog: catalog}
}

// Mood returns catalogue-resolved recommendations for a free-text mood
// prompt. Suggestions that match nothing in the catalogue are dropped.
// POST /api/suggest
func (h *SuggestHandler) Mood(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Prompt string `json:"prompt"`
	}
	if err := decodeBody(r, &request); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(request.Prompt) == "" {
		jsonError(w, "prompt is required", http.StatusBadRequest)
		return
	}

	suggestions, err := h.Suggest.Suggestions(r.Context(), request.Prompt)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"results": h.Suggest.Enrich(r.Context(), suggestions, h.Catalog),
	})
}

// Similar returns recommendations for viewers of a given title.
// POST /api/suggest/similar
func (h *SuggestHandler) Similar(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Title    string `json:"title"`
		Overview string `json:"overview"`
	}
	if err := decodeBody(r, &request); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(request.Title) == "" {
		jsonError(w, "title is required", http.StatusBadRequest)
		return
	}

	suggestions, err := h.Suggest.SimilarTo(r.Context(), request.Title, request.Overview)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"results": h.Suggest.Enrich(r.Context(), suggestions, h.Catalog),
	})
}

// Correct proposes a corrected title for a search query that found nothing.
// POST /api/suggest/correct
func (h *SuggestHandler) Correct(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Query string `json:"query"`
	}
	if err := decodeBody(r, &request); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	corrected, err := h.Suggest.CorrectTitle(r.Context(), request.Query)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, map[string]string{"corrected": corrected})
}

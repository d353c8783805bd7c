package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"zenstream/models"
	"zenstream/services/metadata"
)

// CatalogHandler proxies read-only catalogue queries for the UI.
type CatalogHandler struct {
	Catalog *metadata.Client
}

func NewCatalogHandler(catalog *metadata.Client) *CatalogHandler {
	return &CatalogHandler{Catalog: catalog}
}

// Trending lists this week's trending titles.
// GET /api/catalog/trending?type=movie|tv|all&page=1
func (h *CatalogHandler) Trending(w http.ResponseWriter, r *http.Request) {
	mediaType := r.URL.Query().Get("type")
	page := queryInt(r, "page", 1)
	writeJSON(w, h.Catalog.Trending(r.Context(), mediaType, page))
}

// Genres lists the genres for one media type.
// GET /api/catalog/genres?type=movie|tv
func (h *CatalogHandler) Genres(w http.ResponseWriter, r *http.Request) {
	mediaType := r.URL.Query().Get("type")
	if mediaType != models.MediaTypeMovie && mediaType != models.MediaTypeTV {
		jsonError(w, "type must be movie or tv", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"genres": h.Catalog.Genres(r.Context(), mediaType)})
}

// Search queries the catalogue.
// GET /api/catalog/search?query=...&type=movie|tv|all&page=1&year=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}
	mediaType := r.URL.Query().Get("type")
	if mediaType == "" {
		mediaType = "all"
	}
	page := queryInt(r, "page", 1)
	year := r.URL.Query().Get("year")
	writeJSON(w, h.Catalog.Search(r.Context(), query, mediaType, page, year))
}

// Discover browses the catalogue with filters.
// GET /api/catalog/discover?type=movie|tv&page=1&genre=&year=&rating=&language=
func (h *CatalogHandler) Discover(w http.ResponseWriter, r *http.Request) {
	mediaType := r.URL.Query().Get("type")
	if mediaType != models.MediaTypeMovie && mediaType != models.MediaTypeTV {
		jsonError(w, "type must be movie or tv", http.StatusBadRequest)
		return
	}
	filters := metadata.DiscoverFilters{
		Genre:    queryInt(r, "genre", 0),
		Year:     r.URL.Query().Get("year"),
		Language: r.URL.Query().Get("language"),
	}
	if raw := r.URL.Query().Get("rating"); raw != "" {
		if rating, err := strconv.ParseFloat(raw, 64); err == nil {
			filters.Rating = rating
		}
	}
	writeJSON(w, h.Catalog.Discover(r.Context(), mediaType, queryInt(r, "page", 1), filters))
}

// Anime lists popular anime series.
// GET /api/catalog/anime?page=1&genre=
func (h *CatalogHandler) Anime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Catalog.Anime(r.Context(), queryInt(r, "page", 1), queryInt(r, "genre", 0)))
}

// Details returns the full record for one title.
// GET /api/catalog/{type}/{id}
func (h *CatalogHandler) Details(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := pathMedia(w, r)
	if !ok {
		return
	}
	media, err := h.Catalog.Details(r.Context(), mediaType, id)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, media)
}

// Similar lists titles related to one title.
// GET /api/catalog/{type}/{id}/similar
func (h *CatalogHandler) Similar(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := pathMedia(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{"results": h.Catalog.Similar(r.Context(), mediaType, id)})
}

// SeasonEpisodes lists one season's episodes.
// GET /api/catalog/tv/{id}/season/{season}
func (h *CatalogHandler) SeasonEpisodes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		jsonError(w, "invalid series id", http.StatusBadRequest)
		return
	}
	season, err := strconv.Atoi(vars["season"])
	if err != nil {
		jsonError(w, "invalid season number", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"episodes": h.Catalog.SeasonEpisodes(r.Context(), id, season)})
}

func pathMedia(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	vars := mux.Vars(r)
	mediaType := vars["type"]
	if mediaType != models.MediaTypeMovie && mediaType != models.MediaTypeTV {
		jsonError(w, "type must be movie or tv", http.StatusBadRequest)
		return "", 0, false
	}
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		jsonError(w, "invalid media id", http.StatusBadRequest)
		return "", 0, false
	}
	return mediaType, id, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// Package metadata is the read-only client for the hosted movie/TV catalogue.
// Responses are cached briefly in memory keyed by request signature so
// navigating back and forth does not hammer the API.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"zenstream/models"
)

// animeGenreID is the catalogue's Animation genre, combined with a Japanese
// original-language filter for the anime section.
const animeGenreID = 16

// Page is one page of catalogue results.
type Page struct {
	Results    []models.Media `json:"results"`
	TotalPages int            `json:"total_pages"`
}

// DiscoverFilters narrow a discover query.
type DiscoverFilters struct {
	Genre    int
	Year     string
	Rating   float64
	Language string
}

type cacheEntry struct {
	data      []byte
	fetchedAt time.Time
}

// Client queries the catalogue service.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	cacheMu  sync.RWMutex
	cache    map[string]cacheEntry
	cacheTTL time.Duration
}

// NewClient creates a catalogue client. ttl bounds how long cached responses
// are reused.
func NewClient(apiKey, baseURL string, ttl time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      make(map[string]cacheEntry),
		cacheTTL:   ttl,
	}
}

type pageResponse struct {
	Results    []models.Media `json:"results"`
	TotalPages int            `json:"total_pages"`
}

// Trending returns this week's trending titles. mediaType is movie, tv, or
// all. Failures degrade to an empty page after logging.
func (c *Client) Trending(ctx context.Context, mediaType string, page int) Page {
	if mediaType == "" {
		mediaType = models.MediaTypeMovie
	}
	path := fmt.Sprintf("/trending/%s/week", mediaType)
	params := url.Values{"page": {strconv.Itoa(page)}}

	var resp pageResponse
	if err := c.get(ctx, path, params, true, &resp); err != nil {
		log.Printf("[metadata] trending failed type=%s page=%d: %v", mediaType, page, err)
		return Page{}
	}
	return Page{Results: stampMediaType(resp.Results, fallbackType(mediaType)), TotalPages: orOne(resp.TotalPages)}
}

// Genres lists the genres for movie or tv titles.
func (c *Client) Genres(ctx context.Context, mediaType string) []models.Genre {
	var resp struct {
		Genres []models.Genre `json:"genres"`
	}
	if err := c.get(ctx, "/genre/"+mediaType+"/list", nil, true, &resp); err != nil {
		log.Printf("[metadata] genre list failed type=%s: %v", mediaType, err)
		return nil
	}
	return resp.Genres
}

// Search queries the catalogue. With mediaType "all" a multi search is issued
// and non-title results are dropped; otherwise the query is scoped to movies
// or series, optionally restricted by release year.
func (c *Client) Search(ctx context.Context, query, mediaType string, page int, year string) Page {
	params := url.Values{
		"query": {query},
		"page":  {strconv.Itoa(page)},
	}

	if mediaType == "all" {
		var resp pageResponse
		if err := c.get(ctx, "/search/multi", params, false, &resp); err != nil {
			log.Printf("[metadata] search failed query=%q: %v", query, err)
			return Page{}
		}
		filtered := resp.Results[:0]
		for _, m := range resp.Results {
			if m.MediaType == models.MediaTypeMovie || m.MediaType == models.MediaTypeTV {
				filtered = append(filtered, m)
			}
		}
		return Page{Results: filtered, TotalPages: orOne(resp.TotalPages)}
	}

	endpoint := "/search/tv"
	if mediaType == models.MediaTypeMovie {
		endpoint = "/search/movie"
	}
	if year != "" {
		if mediaType == models.MediaTypeMovie {
			params.Set("primary_release_year", year)
		} else {
			params.Set("first_air_date_year", year)
		}
	}

	var resp pageResponse
	if err := c.get(ctx, endpoint, params, false, &resp); err != nil {
		log.Printf("[metadata] search failed query=%q type=%s: %v", query, mediaType, err)
		return Page{}
	}
	return Page{Results: stampMediaType(resp.Results, mediaType), TotalPages: orOne(resp.TotalPages)}
}

// Discover browses the catalogue by popularity with optional filters.
func (c *Client) Discover(ctx context.Context, mediaType string, page int, filters DiscoverFilters) Page {
	params := url.Values{
		"page":    {strconv.Itoa(page)},
		"sort_by": {"popularity.desc"},
	}
	if filters.Genre > 0 {
		params.Set("with_genres", strconv.Itoa(filters.Genre))
	}
	if filters.Language != "" {
		params.Set("with_original_language", filters.Language)
	}
	if filters.Year != "" {
		if mediaType == models.MediaTypeMovie {
			params.Set("primary_release_year", filters.Year)
		} else {
			params.Set("first_air_date_year", filters.Year)
		}
	}
	if filters.Rating > 0 {
		params.Set("vote_average.gte", strconv.FormatFloat(filters.Rating, 'f', -1, 64))
	}

	var resp pageResponse
	if err := c.get(ctx, "/discover/"+mediaType, params, false, &resp); err != nil {
		log.Printf("[metadata] discover failed type=%s: %v", mediaType, err)
		return Page{}
	}
	return Page{Results: stampMediaType(resp.Results, mediaType), TotalPages: orOne(resp.TotalPages)}
}

// Anime lists popular Japanese animation series, optionally narrowed by an
// additional genre.
func (c *Client) Anime(ctx context.Context, page, subGenre int) Page {
	genres := strconv.Itoa(animeGenreID)
	if subGenre > 0 {
		genres += "," + strconv.Itoa(subGenre)
	}
	params := url.Values{
		"page":                   {strconv.Itoa(page)},
		"with_genres":            {genres},
		"with_original_language": {"ja"},
		"sort_by":                {"popularity.desc"},
	}

	var resp pageResponse
	if err := c.get(ctx, "/discover/tv", params, true, &resp); err != nil {
		log.Printf("[metadata] anime listing failed page=%d: %v", page, err)
		return Page{}
	}
	return Page{Results: stampMediaType(resp.Results, models.MediaTypeTV), TotalPages: orOne(resp.TotalPages)}
}

// Details fetches the full record for one title, including external IDs and
// trailers. Unlike the listing calls this surfaces the error: a details page
// has nothing sensible to degrade to.
func (c *Client) Details(ctx context.Context, mediaType string, id int) (*models.Media, error) {
	params := url.Values{"append_to_response": {"external_ids,videos,credits"}}
	var media models.Media
	if err := c.get(ctx, fmt.Sprintf("/%s/%d", mediaType, id), params, true, &media); err != nil {
		return nil, err
	}
	media.MediaType = mediaType
	return &media, nil
}

// Similar lists titles related to the given one.
func (c *Client) Similar(ctx context.Context, mediaType string, id int) []models.Media {
	var resp pageResponse
	if err := c.get(ctx, fmt.Sprintf("/%s/%d/similar", mediaType, id), nil, true, &resp); err != nil {
		log.Printf("[metadata] similar titles failed type=%s id=%d: %v", mediaType, id, err)
		return nil
	}
	return stampMediaType(resp.Results, mediaType)
}

// SeasonEpisodes lists the episodes of one season of a series.
func (c *Client) SeasonEpisodes(ctx context.Context, seriesID, season int) []models.Episode {
	var resp struct {
		Episodes []models.Episode `json:"episodes"`
	}
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/season/%d", seriesID, season), nil, true, &resp); err != nil {
		log.Printf("[metadata] season episodes failed series=%d season=%d: %v", seriesID, season, err)
		return nil
	}
	return resp.Episodes
}

// FindByTitle resolves a free-text title to the most popular catalogue entry
// with artwork, or nil when nothing matches.
func (c *Client) FindByTitle(ctx context.Context, title string) *models.Media {
	params := url.Values{"query": {title}}
	var resp pageResponse
	if err := c.get(ctx, "/search/multi", params, false, &resp); err != nil {
		log.Printf("[metadata] title lookup failed title=%q: %v", title, err)
		return nil
	}

	candidates := resp.Results[:0]
	for _, m := range resp.Results {
		if m.PosterPath == "" {
			continue
		}
		if m.MediaType == models.MediaTypeMovie || m.MediaType == models.MediaTypeTV {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Popularity > candidates[j].Popularity
	})
	top := candidates[0]
	return &top
}

// get issues a catalogue request, serving and populating the response cache
// when cacheable is set.
func (c *Client) get(ctx context.Context, path string, params url.Values, cacheable bool, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	requestURL := c.baseURL + path + "?" + params.Encode()

	if cacheable {
		if data, ok := c.cached(requestURL); ok {
			return json.Unmarshal(data, out)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("build catalogue request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalogue request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read catalogue response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalogue request failed with status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode catalogue response: %w", err)
	}

	if cacheable {
		c.cacheMu.Lock()
		c.cache[requestURL] = cacheEntry{data: data, fetchedAt: time.Now()}
		c.cacheMu.Unlock()
	}
	return nil
}

func (c *Client) cached(key string) ([]byte, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || time.Since(entry.fetchedAt) > c.cacheTTL {
		return nil, false
	}
	return entry.data, true
}

func stampMediaType(items []models.Media, mediaType string) []models.Media {
	for i := range items {
		if items[i].MediaType == "" {
			items[i].MediaType = mediaType
		}
	}
	return items
}

func fallbackType(mediaType string) string {
	if mediaType == "all" {
		return models.MediaTypeMovie
	}
	return mediaType
}

func orOne(totalPages int) int {
	if totalPages < 1 {
		return 1
	}
	return totalPages
}

// Package suggest talks to the hosted generative-AI service for mood-based
// discovery, "more like this" recommendations, and fuzzy query correction.
// Responses are schema-constrained JSON; a malformed reply degrades to an
// empty result, never an error reaching the UI.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"zenstream/models"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// enrichWorkers bounds the concurrent catalogue lookups performed while
// resolving suggestion titles.
const enrichWorkers = 4

// TitleFinder resolves a free-text title to a catalogue entry.
type TitleFinder interface {
	FindByTitle(ctx context.Context, title string) *models.Media
}

// Client issues generation requests against the AI service.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an AI client for the given model.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// suggestionSchema constrains responses to an array of {title, reason}.
var suggestionSchema = map[string]any{
	"type": "ARRAY",
	"items": map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"title":  map[string]any{"type": "STRING", "description": "The title of the movie or series"},
			"reason": map[string]any{"type": "STRING", "description": "A brief explanation of why it fits the request"},
		},
		"required": []string{"title", "reason"},
	},
}

// Suggestions asks for six diverse recommendations matching the user's mood
// prompt.
func (c *Client) Suggestions(ctx context.Context, prompt string) ([]models.AISuggestion, error) {
	request := fmt.Sprintf(`Analyze the user's request for movies or TV series and provide 6 diverse, high-quality recommendations that fit the mood.
User request: %q
Ensure recommendations vary in popularity (mix of blockbusters and hidden gems) but remain strictly relevant to the vibe.`, prompt)
	return c.generateSuggestions(ctx, request, 4000)
}

// SimilarTo asks for five titles a viewer of the given one would enjoy.
func (c *Client) SimilarTo(ctx context.Context, title, overview string) ([]models.AISuggestion, error) {
	request := fmt.Sprintf(`The user is watching %q.
Overview: %q
Recommend 5 similar movies or TV series that someone who liked this would enjoy.
Focus on thematic depth, visual style, or plot parallels. Avoid obvious sequels.`, title, overview)
	return c.generateSuggestions(ctx, request, 2000)
}

// CorrectTitle asks for the most likely intended title for a possibly
// misspelled search query. Returns the empty string when no correction is
// available.
func (c *Client) CorrectTitle(ctx context.Context, query string) (string, error) {
	request := fmt.Sprintf(`The user searched a movie/TV catalogue for %q and got no results.
Reply with the single most likely title they meant, corrected for spelling. Reply with the title only.`, query)

	schema := map[string]any{"type": "STRING"}
	text, err := c.generate(ctx, request, schema, 1000)
	if err != nil {
		return "", err
	}
	var corrected string
	if err := json.Unmarshal([]byte(text), &corrected); err != nil {
		// Some responses arrive as a bare string rather than JSON.
		corrected = strings.Trim(strings.TrimSpace(text), `"`)
	}
	return strings.TrimSpace(corrected), nil
}

// Enrich resolves each suggestion's title against the catalogue, dropping the
// ones that do not match anything. Lookups run concurrently; order follows
// the suggestion order.
func (c *Client) Enrich(ctx context.Context, suggestions []models.AISuggestion, finder TitleFinder) []models.EnrichedSuggestion {
	resolved := make([]*models.Media, len(suggestions))

	p := pool.New().WithMaxGoroutines(enrichWorkers)
	for i, s := range suggestions {
		p.Go(func() {
			resolved[i] = finder.FindByTitle(ctx, s.Title)
		})
	}
	p.Wait()

	enriched := make([]models.EnrichedSuggestion, 0, len(suggestions))
	for i, media := range resolved {
		if media == nil {
			continue
		}
		// The catalogue's own title wins over the AI's phrasing.
		suggestion := suggestions[i]
		suggestion.Title = media.DisplayTitle()
		enriched = append(enriched, models.EnrichedSuggestion{Media: *media, Suggestion: suggestion})
	}
	return enriched
}

func (c *Client) generateSuggestions(ctx context.Context, request string, thinkingBudget int) ([]models.AISuggestion, error) {
	text, err := c.generate(ctx, request, suggestionSchema, thinkingBudget)
	if err != nil {
		return nil, err
	}
	var suggestions []models.AISuggestion
	if err := json.Unmarshal([]byte(text), &suggestions); err != nil {
		log.Printf("[suggest] discarding malformed AI response: %v", err)
		return nil, nil
	}
	return suggestions, nil
}

func (c *Client) generate(ctx context.Context, prompt string, schema map[string]any, thinkingBudget int) (string, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"responseMimeType": "application/json",
			"responseSchema":   schema,
			"thinkingConfig":   map[string]int{"thinkingBudget": thinkingBudget},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode generation request: %w", err)
	}

	requestURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation request failed with status %d", resp.StatusCode)
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode generation response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generation response contained no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

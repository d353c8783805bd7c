package models

// AISuggestion is one recommendation returned by the generative-AI service.
type AISuggestion struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// EnrichedSuggestion pairs an AI suggestion with its resolved catalogue entry.
type EnrichedSuggestion struct {
	Media      Media        `json:"media"`
	Suggestion AISuggestion `json:"suggestion"`
}

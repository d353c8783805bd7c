package models

// HistoryItem records that a title was watched. History is kept locally only;
// the JSON shape matches what the web client stores so the two can share a
// persisted list.
type HistoryItem struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	MediaID       int    `json:"media_id"`
	MediaType     string `json:"media_type"` // movie | tv
	MediaData     Media  `json:"media_data"`
	LastWatchedAt string `json:"last_watched_at"` // RFC 3339
	Season        int    `json:"season,omitempty"`
	Episode       int    `json:"episode,omitempty"`
}

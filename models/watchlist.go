package models

import "strconv"

// WatchlistRow is the remote watchlist table row. Each row pairs a media
// reference with a denormalized snapshot so the list renders without a
// catalogue re-fetch. Unique per (user_id, media_id); rows are inserted and
// deleted, never updated in place.
type WatchlistRow struct {
	UserID    string `json:"user_id"`
	MediaID   int    `json:"media_id"`
	MediaType string `json:"media_type"` // movie | tv
	MediaData *Media `json:"media_data"`
}

// Key returns a stable identifier for the watchlist row combining media type and ID.
func (w WatchlistRow) Key() string {
	return w.MediaType + ":" + strconv.Itoa(w.MediaID)
}

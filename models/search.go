package models

import "time"

// SearchHistoryRow is the remote search_history table row for a signed-in
// user. Anonymous sessions keep an equivalent local-only list of plain query
// strings instead.
type SearchHistoryRow struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

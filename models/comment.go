package models

import "time"

// Comment is a remote comment table row. A nil ParentID marks a top-level
// comment; a non-nil ParentID references another comment in the same
// (media_id, media_type) scope. Replies are derived by filtering on ParentID,
// never stored as a separate collection.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	MediaID   int       `json:"media_id"`
	MediaType string    `json:"media_type"`
	ParentID  *string   `json:"parent_id"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Likes     int       `json:"likes"`
	Dislikes  int       `json:"dislikes"`
}

// CommentSort selects the ordering applied to a comment thread.
type CommentSort string

const (
	CommentSortNewest CommentSort = "newest"
	CommentSortOldest CommentSort = "oldest"
	CommentSortTop    CommentSort = "top" // highest like count first
)

// VoteDirection is the kind of vote a viewer casts on a comment.
type VoteDirection string

const (
	VoteLike    VoteDirection = "like"
	VoteDislike VoteDirection = "dislike"
)

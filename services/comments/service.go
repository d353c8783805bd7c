// Package comments keeps the discussion thread for one title in memory,
// reconciled against the remote comments table and kept current by a change
// subscription. Any pushed change triggers a full re-fetch rather than an
// incremental patch, which guarantees convergence regardless of event
// ordering or loss.
package comments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"zenstream/internal/localstore"
	"zenstream/models"
	"zenstream/services/backend"
)

const (
	table         = "comments"
	profilesTable = "profiles"
	votesStore    = "comment_votes"

	remoteTimeout = 30 * time.Second
)

// ErrAlreadySubmitting rejects a post while a previous one is in flight.
var ErrAlreadySubmitting = errors.New("a comment is already being submitted")

// ErrNotCommentOwner rejects deleting someone else's comment.
var ErrNotCommentOwner = errors.New("only the author can delete a comment")

// ErrUnknownParent rejects replies to comments outside the thread's scope.
var ErrUnknownParent = errors.New("parent comment not found in this thread")

type sessionSource interface {
	User() *models.User
}

type realtimeSource interface {
	Subscribe(ctx context.Context, table, filter string, onChange func(backend.ChangeEvent)) (*backend.Subscription, error)
}

// Service manages the open comment threads, one per (media, kind) scope.
type Service struct {
	backend  *backend.Client
	realtime realtimeSource
	store    *localstore.Store
	sessions sessionSource

	mu      sync.Mutex
	threads map[string]*Thread
}

// NewService creates the comment service. realtime may be nil, which disables
// live updates (threads still converge on explicit re-fetches).
func NewService(client *backend.Client, realtime realtimeSource, store *localstore.Store, sessions sessionSource) *Service {
	return &Service{
		backend:  client,
		realtime: realtime,
		store:    store,
		sessions: sessions,
		threads:  make(map[string]*Thread),
	}
}

// Open returns the thread for the given title, creating and hydrating it on
// first use. A live change subscription scoped to the media identifier is
// opened alongside the thread.
func (s *Service) Open(ctx context.Context, mediaID int, mediaType string) (*Thread, error) {
	key := scopeKey(mediaID, mediaType)

	s.mu.Lock()
	if t, ok := s.threads[key]; ok {
		s.mu.Unlock()
		return t, nil
	}
	t := &Thread{
		backend:   s.backend,
		store:     s.store,
		sessions:  s.sessions,
		mediaID:   mediaID,
		mediaType: mediaType,
		sort:      models.CommentSortNewest,
		avatars:   make(map[string]string),
	}
	s.threads[key] = t
	s.mu.Unlock()

	t.Refetch(ctx)

	if s.realtime != nil {
		sub, err := s.realtime.Subscribe(ctx, table, "media_id=eq."+strconv.Itoa(mediaID), func(backend.ChangeEvent) {
			refetchCtx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
			defer cancel()
			t.Refetch(refetchCtx)
		})
		if err != nil {
			// Live updates are an enhancement; the thread still works without them.
			log.Printf("[comments] subscription failed media=%d: %v", mediaID, err)
		} else {
			t.mu.Lock()
			t.sub = sub
			t.mu.Unlock()
		}
	}
	return t, nil
}

// Release closes the thread for the given title, ending its subscription.
func (s *Service) Release(mediaID int, mediaType string) {
	key := scopeKey(mediaID, mediaType)

	s.mu.Lock()
	t, ok := s.threads[key]
	if ok {
		delete(s.threads, key)
	}
	s.mu.Unlock()

	if ok {
		t.Close()
	}
}

// Close releases every open thread.
func (s *Service) Close() {
	s.mu.Lock()
	threads := make([]*Thread, 0, len(s.threads))
	for k, t := range s.threads {
		threads = append(threads, t)
		delete(s.threads, k)
	}
	s.mu.Unlock()

	for _, t := range threads {
		t.Close()
	}
}

func scopeKey(mediaID int, mediaType string) string {
	return mediaType + ":" + strconv.Itoa(mediaID)
}

// viewerVotes is the per-viewer record of which comments they have liked and
// disliked. It is purely client-local; the remote counters are plain integers.
type viewerVotes struct {
	Likes    []string `json:"likes"`
	Dislikes []string `json:"dislikes"`
}

func (v *viewerVotes) has(set []string, id string) bool {
	for _, s := range set {
		if s == id {
			return true
		}
	}
	return false
}

func remove(set []string, id string) []string {
	out := set[:0]
	for _, s := range set {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}

// Thread is the in-memory comment list for one title.
type Thread struct {
	backend  *backend.Client
	store    *localstore.Store
	sessions sessionSource

	mediaID   int
	mediaType string

	mu         sync.RWMutex
	comments   []models.Comment
	avatars    map[string]string
	sort       models.CommentSort
	loading    bool
	submitting bool
	replyTo    string
	sub        *backend.Subscription
}

// Refetch reloads the full comment list for the scope, applying the current
// sort order, then merges avatar URLs for the distinct authors. Avatar
// failures degrade to initial-letter placeholders and never block the list.
func (t *Thread) Refetch(ctx context.Context) {
	t.mu.Lock()
	t.loading = true
	sort := t.sort
	t.mu.Unlock()

	q := t.backend.From(table).Eq("media_id", t.mediaID).Eq("media_type", t.mediaType)
	switch sort {
	case models.CommentSortOldest:
		q = q.Order("created_at", true)
	case models.CommentSortTop:
		q = q.Order("likes", false)
	default:
		q = q.Order("created_at", false)
	}

	var fetched []models.Comment
	err := q.Get(ctx, &fetched)

	t.mu.Lock()
	t.loading = false
	if err != nil {
		t.mu.Unlock()
		log.Printf("[comments] fetch failed media=%d: %v", t.mediaID, err)
		return
	}
	t.comments = fetched
	t.mu.Unlock()

	t.mergeAvatars(ctx, fetched)
}

func (t *Thread) mergeAvatars(ctx context.Context, comments []models.Comment) {
	seen := make(map[string]bool)
	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			ids = append(ids, c.UserID)
		}
	}
	if len(ids) == 0 {
		return
	}

	var profiles []models.Profile
	if err := t.backend.From(profilesTable).Select("id,avatar_url").In("id", ids).Get(ctx, &profiles); err != nil {
		log.Printf("[comments] avatar lookup failed media=%d: %v", t.mediaID, err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range profiles {
		if p.AvatarURL != "" {
			t.avatars[p.ID] = p.AvatarURL
		}
	}
}

// SetSort changes the thread ordering and re-fetches with it.
func (t *Thread) SetSort(ctx context.Context, sort models.CommentSort) {
	t.mu.Lock()
	t.sort = sort
	t.mu.Unlock()
	t.Refetch(ctx)
}

// Post submits a new comment or reply. The poster's username falls back from
// profile metadata to the email local part to a generic label. The in-memory
// list is not updated optimistically; the live-update re-fetch reflects the
// new comment, so a short latency window between submit and display is
// expected.
func (t *Thread) Post(ctx context.Context, content string, parentID *string) error {
	user := t.sessions.User()
	if user == nil {
		return backend.ErrSignInRequired
	}
	if strings.TrimSpace(content) == "" {
		return errors.New("comment is empty")
	}
	if parentID != nil && !t.hasComment(*parentID) {
		return ErrUnknownParent
	}

	t.mu.Lock()
	if t.submitting {
		t.mu.Unlock()
		return ErrAlreadySubmitting
	}
	t.submitting = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.submitting = false
		t.mu.Unlock()
	}()

	row := map[string]any{
		"user_id":    user.ID,
		"media_id":   t.mediaID,
		"media_type": t.mediaType,
		"content":    content,
		"username":   user.Username(),
		"parent_id":  parentID,
		"likes":      0,
		"dislikes":   0,
	}
	if err := t.backend.From(table).Insert(ctx, row, nil); err != nil {
		log.Printf("[comments] post failed media=%d: %v", t.mediaID, err)
		return fmt.Errorf("post comment: %w", err)
	}

	t.mu.Lock()
	if parentID != nil && t.replyTo == *parentID {
		t.replyTo = ""
	}
	t.mu.Unlock()
	return nil
}

// Delete removes one of the viewer's own comments, pruning its direct replies
// from the in-memory list as well.
func (t *Thread) Delete(ctx context.Context, commentID string) error {
	user := t.sessions.User()
	if user == nil {
		return backend.ErrSignInRequired
	}

	t.mu.RLock()
	var owner string
	for _, c := range t.comments {
		if c.ID == commentID {
			owner = c.UserID
			break
		}
	}
	t.mu.RUnlock()
	if owner != "" && owner != user.ID {
		return ErrNotCommentOwner
	}

	if err := t.backend.From(table).Eq("id", commentID).Eq("user_id", user.ID).Delete(ctx); err != nil {
		log.Printf("[comments] delete failed comment=%s: %v", commentID, err)
		return fmt.Errorf("delete comment: %w", err)
	}

	t.mu.Lock()
	filtered := t.comments[:0]
	for _, c := range t.comments {
		if c.ID == commentID {
			continue
		}
		if c.ParentID != nil && *c.ParentID == commentID {
			continue
		}
		filtered = append(filtered, c)
	}
	t.comments = filtered
	t.mu.Unlock()
	return nil
}

// Vote toggles the viewer's like or dislike on a comment. The new counters
// are computed from the viewer's local interaction sets (mutually exclusive
// per comment), applied optimistically in memory and persisted locally, then
// written to the remote row. A remote failure triggers a full re-fetch to
// reconcile instead of a compensating rollback. The remote counters are plain
// integers updated read-modify-write, so concurrent voters can lose an
// increment; that race is inherited from the data model, not hidden here.
func (t *Thread) Vote(ctx context.Context, commentID string, direction models.VoteDirection) error {
	user := t.sessions.User()
	if user == nil {
		return backend.ErrSignInRequired
	}
	if !t.hasComment(commentID) {
		return fmt.Errorf("unknown comment %s", commentID)
	}

	voteKey := localstore.UserKey(votesStore, user.ID)
	var votes viewerVotes
	t.store.Load(voteKey, &votes)

	likeDelta, dislikeDelta := 0, 0
	switch direction {
	case models.VoteLike:
		if votes.has(votes.Likes, commentID) {
			votes.Likes = remove(votes.Likes, commentID)
			likeDelta = -1
		} else {
			votes.Likes = append(votes.Likes, commentID)
			likeDelta = 1
			if votes.has(votes.Dislikes, commentID) {
				votes.Dislikes = remove(votes.Dislikes, commentID)
				dislikeDelta = -1
			}
		}
	case models.VoteDislike:
		if votes.has(votes.Dislikes, commentID) {
			votes.Dislikes = remove(votes.Dislikes, commentID)
			dislikeDelta = -1
		} else {
			votes.Dislikes = append(votes.Dislikes, commentID)
			dislikeDelta = 1
			if votes.has(votes.Likes, commentID) {
				votes.Likes = remove(votes.Likes, commentID)
				likeDelta = -1
			}
		}
	default:
		return fmt.Errorf("unknown vote direction %q", direction)
	}

	var newLikes, newDislikes int
	t.mu.Lock()
	for i := range t.comments {
		if t.comments[i].ID == commentID {
			t.comments[i].Likes += likeDelta
			t.comments[i].Dislikes += dislikeDelta
			newLikes = t.comments[i].Likes
			newDislikes = t.comments[i].Dislikes
			break
		}
	}
	t.mu.Unlock()

	t.store.Save(voteKey, votes)

	patch := map[string]int{"likes": newLikes, "dislikes": newDislikes}
	if err := t.backend.From(table).Eq("id", commentID).Update(ctx, patch); err != nil {
		log.Printf("[comments] vote sync failed comment=%s, re-fetching: %v", commentID, err)
		t.Refetch(ctx)
		return nil
	}
	return nil
}

// Votes returns the viewer's current like/dislike sets.
func (t *Thread) Votes() (likes, dislikes []string) {
	user := t.sessions.User()
	userID := ""
	if user != nil {
		userID = user.ID
	}
	var votes viewerVotes
	t.store.Load(localstore.UserKey(votesStore, userID), &votes)
	return votes.Likes, votes.Dislikes
}

// SetReplyTarget opens the inline reply composer for one comment; opening a
// new target implicitly closes any other.
func (t *Thread) SetReplyTarget(commentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.replyTo == commentID {
		t.replyTo = ""
		return
	}
	t.replyTo = commentID
}

// ReplyTarget returns the comment the reply composer is open for, if any.
func (t *Thread) ReplyTarget() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.replyTo
}

// Comments returns a copy of the thread in its current order.
func (t *Thread) Comments() []models.Comment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	comments := make([]models.Comment, len(t.comments))
	copy(comments, t.comments)
	return comments
}

// Avatars returns the author-to-avatar map accumulated so far.
func (t *Thread) Avatars() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	avatars := make(map[string]string, len(t.avatars))
	for k, v := range t.avatars {
		avatars[k] = v
	}
	return avatars
}

// Sort returns the current sort order.
func (t *Thread) Sort() models.CommentSort {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sort
}

// Loading reports whether a fetch is in flight.
func (t *Thread) Loading() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loading
}

// Close ends the thread's change subscription.
func (t *Thread) Close() {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

func (t *Thread) hasComment(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, c := range t.comments {
		if c.ID == id {
			return true
		}
	}
	return false
}

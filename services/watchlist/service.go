// Package watchlist keeps the signed-in user's watchlist in memory, backed by
// the remote watchlist table. There is no anonymous watchlist: signing out
// empties the list, signing in hydrates it from the remote rows.
package watchlist

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"zenstream/models"
	"zenstream/services/backend"
)

const table = "watchlist"

const remoteTimeout = 30 * time.Second

type sessionSource interface {
	User() *models.User
	OnChange(func(*models.User))
}

// Service is the in-memory watchlist reconciled against the remote store.
// Mutations confirm remotely before touching the list, so a failed toggle
// leaves the visible state exactly as it was.
type Service struct {
	backend  *backend.Client
	sessions sessionSource

	mu      sync.RWMutex
	userID  string
	items   []models.Media
	loading bool
}

// NewService creates the watchlist service. Call Start to begin following
// session changes.
func NewService(client *backend.Client, sessions sessionSource) *Service {
	return &Service{backend: client, sessions: sessions}
}

// Start subscribes to session changes; every change resets or re-hydrates the
// list for the new identity.
func (s *Service) Start() {
	s.sessions.OnChange(s.handleSessionChange)
}

func (s *Service) handleSessionChange(user *models.User) {
	if user == nil {
		s.mu.Lock()
		s.userID = ""
		s.items = nil
		s.loading = false
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.userID = user.ID
	s.loading = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	var rows []models.WatchlistRow
	err := s.backend.From(table).Select("media_id,media_type,media_data").Eq("user_id", user.ID).Get(ctx, &rows)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if s.userID != user.ID {
		// The session changed again while we were fetching.
		return
	}
	if err != nil {
		log.Printf("[watchlist] hydration failed user=%s: %v", user.ID, err)
		return
	}
	items := make([]models.Media, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.MediaData == nil || seen[row.Key()] {
			continue
		}
		seen[row.Key()] = true
		items = append(items, *row.MediaData)
	}
	s.items = items
}

// Toggle adds media to the watchlist when absent and removes it when present.
// The in-memory list is only updated after the remote call succeeds; on
// failure the list is left unchanged and the error is returned for the caller
// to surface.
func (s *Service) Toggle(ctx context.Context, media models.Media) error {
	user := s.sessions.User()
	if user == nil {
		return backend.ErrSignInRequired
	}

	if s.Contains(media.ID) {
		err := s.backend.From(table).Eq("user_id", user.ID).Eq("media_id", media.ID).Delete(ctx)
		if err != nil {
			log.Printf("[watchlist] remote remove failed media=%d: %v", media.ID, err)
			return fmt.Errorf("remove from watchlist: %w", err)
		}
		s.mu.Lock()
		filtered := s.items[:0]
		for _, m := range s.items {
			if m.ID != media.ID {
				filtered = append(filtered, m)
			}
		}
		s.items = filtered
		s.mu.Unlock()
		return nil
	}

	row := models.WatchlistRow{
		UserID:    user.ID,
		MediaID:   media.ID,
		MediaType: media.MediaType,
		MediaData: &media,
	}
	if err := s.backend.From(table).Insert(ctx, row, nil); err != nil {
		log.Printf("[watchlist] remote add failed media=%d: %v", media.ID, err)
		return fmt.Errorf("add to watchlist: %w", err)
	}
	s.mu.Lock()
	s.items = append(s.items, media)
	s.mu.Unlock()
	return nil
}

// Contains reports whether the media ID is currently on the watchlist.
func (s *Service) Contains(mediaID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.items {
		if m.ID == mediaID {
			return true
		}
	}
	return false
}

// Items returns a copy of the current watchlist.
func (s *Service) Items() []models.Media {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.Media, len(s.items))
	copy(items, s.items)
	return items
}

// Loading reports whether a hydration fetch is in flight.
func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

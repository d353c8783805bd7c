// Package history keeps the locally persisted watch history. History never
// syncs to the remote store; it lives in the local store under a versioned
// key shared with the web client.
package history

import (
	"fmt"
	"sync"
	"time"

	"zenstream/internal/localstore"
	"zenstream/models"
)

const storeKey = "watch_history_v2"

// localOwner marks history entries as decoupled from any remote account.
const localOwner = "local-user"

// maxEntries caps the retained history, most recently watched first.
const maxEntries = 20

// Service is the watch-history state container.
type Service struct {
	store *localstore.Store

	mu      sync.RWMutex
	items   []models.HistoryItem
	loading bool
	now     func() time.Time
}

// NewService creates the history service and loads the persisted list. A
// corrupt or missing persisted list starts empty.
func NewService(store *localstore.Store) *Service {
	s := &Service{store: store, now: time.Now}
	var items []models.HistoryItem
	s.store.Load(storeKey, &items)
	s.items = items
	return s
}

// Add records that media was watched, optionally at a season/episode
// position. An existing entry for the same media moves to the front with a
// fresh timestamp; the list is truncated to the cap and persisted.
func (s *Service) Add(media models.Media, season, episode int) models.HistoryItem {
	now := s.now()
	item := models.HistoryItem{
		ID:            fmt.Sprintf("local-%d-%d", media.ID, now.UnixMilli()),
		UserID:        localOwner,
		MediaID:       media.ID,
		MediaType:     media.MediaType,
		MediaData:     media,
		LastWatchedAt: now.UTC().Format(time.RFC3339),
		Season:        season,
		Episode:       episode,
	}

	s.mu.Lock()
	updated := make([]models.HistoryItem, 0, maxEntries)
	updated = append(updated, item)
	for _, existing := range s.items {
		if existing.MediaData.Key() == media.Key() {
			continue
		}
		updated = append(updated, existing)
	}
	if len(updated) > maxEntries {
		updated = updated[:maxEntries]
	}
	s.items = updated
	s.mu.Unlock()

	s.store.Save(storeKey, updated)
	return item
}

// Clear forgets the entire history.
func (s *Service) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
	s.store.Delete(storeKey)
}

// Items returns a copy of the history, most recently watched first.
func (s *Service) Items() []models.HistoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.HistoryItem, len(s.items))
	copy(items, s.items)
	return items
}

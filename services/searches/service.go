// Package searches keeps the most recent search queries, capped and
// deduplicated, merging a durable local copy with the remote search_history
// table when a user is signed in.
package searches

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"

	"zenstream/internal/localstore"
	"zenstream/models"
	"zenstream/services/backend"
)

const (
	table     = "search_history"
	storeName = "search_history"

	// maxEntries is the cap on retained queries, most recent first.
	maxEntries = 10

	// minQueryLen rejects queries too short to be worth remembering.
	minQueryLen = 2

	remoteTimeout = 15 * time.Second
)

type sessionSource interface {
	User() *models.User
	OnChange(func(*models.User))
}

// Service is the search-history state container. Mutations apply locally
// first for immediate feedback; remote persistence is best effort and never
// rolls the local state back.
type Service struct {
	backend  *backend.Client
	store    *localstore.Store
	sessions sessionSource

	mu      sync.RWMutex
	userID  string
	queries []string
	loading bool
}

// NewService creates the search-history service. Call Start to begin
// following session changes.
func NewService(client *backend.Client, store *localstore.Store, sessions sessionSource) *Service {
	return &Service{backend: client, store: store, sessions: sessions}
}

// Start subscribes to session changes and hydrates for the current identity.
func (s *Service) Start() {
	s.sessions.OnChange(s.handleSessionChange)
}

func (s *Service) handleSessionChange(user *models.User) {
	userID := ""
	if user != nil {
		userID = user.ID
	}

	s.mu.Lock()
	s.userID = userID
	s.loading = user != nil
	s.mu.Unlock()

	if user == nil {
		var local []string
		s.store.Load(localstore.UserKey(storeName, ""), &local)
		s.mu.Lock()
		s.queries = local
		s.mu.Unlock()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	var rows []models.SearchHistoryRow
	err := s.backend.From(table).
		Eq("user_id", user.ID).
		Order("created_at", false).
		Limit(maxEntries).
		Get(ctx, &rows)

	queries := make([]string, 0, maxEntries)
	if err != nil {
		// Fall back to the local copy rather than showing an empty list.
		log.Printf("[searches] hydration failed user=%s, using local copy: %v", user.ID, err)
		s.store.Load(localstore.UserKey(storeName, user.ID), &queries)
	} else {
		for _, row := range rows {
			queries = appendDeduped(queries, row.Query)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if s.userID != user.ID {
		return
	}
	s.queries = queries
}

// Record remembers a submitted query. The local list is mutated optimistically
// (dedupe, prepend, truncate); for signed-in users a remote insert is fired
// and forgotten. A failure leaves the local view ahead of the remote store
// until the next hydration.
func (s *Service) Record(query string) {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) < minQueryLen {
		return
	}

	user := s.sessions.User()
	userID := ""
	if user != nil {
		userID = user.ID
	}

	s.mu.Lock()
	updated := make([]string, 0, maxEntries)
	updated = append(updated, trimmed)
	key := normalizeQuery(trimmed)
	for _, q := range s.queries {
		if normalizeQuery(q) == key {
			continue
		}
		updated = append(updated, q)
	}
	if len(updated) > maxEntries {
		updated = updated[:maxEntries]
	}
	s.queries = updated
	s.mu.Unlock()

	s.store.Save(localstore.UserKey(storeName, userID), updated)

	if user == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		row := models.SearchHistoryRow{UserID: user.ID, Query: trimmed}
		if err := s.backend.From(table).Insert(ctx, row, nil); err != nil {
			log.Printf("[searches] remote record failed query=%q: %v", trimmed, err)
		}
	}()
}

// Remove forgets a single query, matched exactly.
func (s *Service) Remove(query string) {
	user := s.sessions.User()
	userID := ""
	if user != nil {
		userID = user.ID
	}

	s.mu.Lock()
	filtered := make([]string, 0, len(s.queries))
	for _, q := range s.queries {
		if q != query {
			filtered = append(filtered, q)
		}
	}
	s.queries = filtered
	s.mu.Unlock()

	s.store.Save(localstore.UserKey(storeName, userID), filtered)

	if user == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		err := s.backend.From(table).Eq("user_id", user.ID).Eq("query", query).Delete(ctx)
		if err != nil {
			log.Printf("[searches] remote remove failed query=%q: %v", query, err)
		}
	}()
}

// Clear forgets the entire history.
func (s *Service) Clear() {
	user := s.sessions.User()
	userID := ""
	if user != nil {
		userID = user.ID
	}

	s.mu.Lock()
	s.queries = nil
	s.mu.Unlock()

	s.store.Delete(localstore.UserKey(storeName, userID))

	if user == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		if err := s.backend.From(table).Eq("user_id", user.ID).Delete(ctx); err != nil {
			log.Printf("[searches] remote clear failed: %v", err)
		}
	}()
}

// Queries returns a copy of the current history, most recent first.
func (s *Service) Queries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	queries := make([]string, len(s.queries))
	copy(queries, s.queries)
	return queries
}

// Loading reports whether a hydration fetch is in flight.
func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// normalizeQuery lowers a query to its dedupe key: Unicode-normalized,
// transliterated to ASCII, and case-folded, so "Amélie" and "amelie" collapse
// to one entry.
func normalizeQuery(q string) string {
	return strings.ToLower(unidecode.Unidecode(norm.NFKC.String(q)))
}

func appendDeduped(queries []string, query string) []string {
	key := normalizeQuery(query)
	for _, q := range queries {
		if normalizeQuery(q) == key {
			return queries
		}
	}
	return append(queries, query)
}

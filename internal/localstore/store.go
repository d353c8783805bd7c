// Package localstore is the durable local key-value store backing guest-mode
// search history, watch history, and per-viewer comment interaction sets. It
// mirrors the browser's localStorage contract: synchronous, JSON-valued, and
// tolerant of missing or corrupt entries.
package localstore

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"zenstream/models"
)

const keyPrefix = "zenstream_"

// Store persists JSON values under namespaced keys. All operations swallow
// storage errors after logging them; a failed read behaves like a missing key.
type Store struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
}

// New returns a store writing beneath dir on the OS filesystem.
func New(dir string) *Store {
	return NewWithFs(afero.NewOsFs(), dir)
}

// NewWithFs returns a store on the supplied filesystem. Tests pass an
// afero.NewMemMapFs.
func NewWithFs(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// UserKey namespaces name by the owning user, falling back to the guest
// sentinel so anonymous and signed-in data never mix.
func UserKey(name, userID string) string {
	if userID == "" {
		userID = models.GuestUserID
	}
	return name + "_" + userID
}

// Load reads the value stored under key into out. It reports false when the
// key is missing or the stored JSON does not parse; a parse failure is logged
// and treated as empty, never surfaced to the caller.
func (s *Store) Load(key string, out any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, s.path(key))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("[localstore] discarding corrupt entry key=%s: %v", key, err)
		return false
	}
	return true
}

// Save writes v under key. Write failures (including quota errors) are logged
// and dropped.
func (s *Store) Save(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[localstore] failed to encode entry key=%s: %v", key, err)
		return
	}
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		log.Printf("[localstore] failed to create store directory: %v", err)
		return
	}
	if err := afero.WriteFile(s.fs, s.path(key), data, 0600); err != nil {
		log.Printf("[localstore] failed to save entry key=%s: %v", key, err)
	}
}

// Delete removes the value stored under key, if any.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		log.Printf("[localstore] failed to delete entry key=%s: %v", key, err)
	}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, keyPrefix+key+".json")
}

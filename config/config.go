package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Settings is the persisted server configuration.
type Settings struct {
	Server  ServerSettings  `json:"server"`
	Backend BackendSettings `json:"backend"`
	Catalog CatalogSettings `json:"catalog"`
	Suggest SuggestSettings `json:"suggest"`
	DataDir string          `json:"dataDir"`
	LogFile string          `json:"logFile,omitempty"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Address string `json:"address"`
	// APIKey, when set, is required on every /api request.
	APIKey string `json:"apiKey,omitempty"`
}

// BackendSettings configures the hosted auth/database backend.
type BackendSettings struct {
	URL     string `json:"url"`
	AnonKey string `json:"anonKey"`
}

// CatalogSettings configures the metadata catalogue service.
type CatalogSettings struct {
	APIKey       string `json:"apiKey"`
	BaseURL      string `json:"baseUrl,omitempty"`
	CacheTTLMins int    `json:"cacheTtlMinutes,omitempty"`
}

// SuggestSettings configures the generative-AI suggestion service.
type SuggestSettings struct {
	APIKey string `json:"apiKey"`
	Model  string `json:"model,omitempty"`
}

const (
	defaultAddress      = ":8080"
	defaultCatalogURL   = "https://api.themoviedb.org/3"
	defaultSuggestModel = "gemini-3-pro-preview"
	defaultCacheTTLMins = 10
)

// Manager loads and saves settings from a JSON file, applying defaults and
// environment overrides on every load.
type Manager struct {
	path string
	mu   sync.RWMutex
}

// NewManager returns a manager for the settings file at path. A missing file
// is treated as empty settings, not an error.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load reads the settings file, fills in defaults, and applies environment
// variable overrides.
func (m *Manager) Load() (*Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	settings := &Settings{}
	data, err := os.ReadFile(m.path)
	if err == nil {
		if err := json.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("parse settings file %s: %w", m.path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read settings file %s: %w", m.path, err)
	}

	applyEnvOverrides(settings)
	applyDefaults(settings)
	return settings, nil
}

// Save writes settings back to the settings file, creating the parent
// directory when needed.
func (m *Manager) Save(settings *Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := filepath.Dir(m.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0600); err != nil {
		return fmt.Errorf("write settings file %s: %w", m.path, err)
	}
	return nil
}

func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("ZENSTREAM_ADDRESS"); v != "" {
		s.Server.Address = v
	}
	if v := os.Getenv("ZENSTREAM_BACKEND_URL"); v != "" {
		s.Backend.URL = v
	}
	if v := os.Getenv("ZENSTREAM_BACKEND_ANON_KEY"); v != "" {
		s.Backend.AnonKey = v
	}
	if v := os.Getenv("ZENSTREAM_TMDB_API_KEY"); v != "" {
		s.Catalog.APIKey = v
	}
	if v := os.Getenv("ZENSTREAM_AI_API_KEY"); v != "" {
		s.Suggest.APIKey = v
	}
	if v := os.Getenv("ZENSTREAM_DATA_DIR"); v != "" {
		s.DataDir = v
	}
}

func applyDefaults(s *Settings) {
	if s.Server.Address == "" {
		s.Server.Address = defaultAddress
	}
	if s.Catalog.BaseURL == "" {
		s.Catalog.BaseURL = defaultCatalogURL
	}
	if s.Catalog.CacheTTLMins <= 0 {
		s.Catalog.CacheTTLMins = defaultCacheTTLMins
	}
	if s.Suggest.Model == "" {
		s.Suggest.Model = defaultSuggestModel
	}
	if s.DataDir == "" {
		s.DataDir = "data"
	}
}

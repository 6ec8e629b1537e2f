// Package config loads the engine's YAML configuration: a struct of
// yaml-tagged fields with sane defaults, a loader that never fails
// outright on a missing file, and an optional fsnotify watcher for
// hot-reload of the parts that are safe to change without a restart.
package config

import (
	"fmt"
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds every engine-level parameter, grouped by the subsystem
// each one configures.
type Config struct {
	// --- Identity / listeners ---
	MudName  string `yaml:"mud_name"`
	TCPAddr  string `yaml:"tcp_addr"`
	WSAddr   string `yaml:"ws_addr"`
	HTTPAddr string `yaml:"http_addr"`

	// --- Persistence ---
	StorePath       string `yaml:"store_path"`
	StoreMaxRetries int    `yaml:"store_max_retries"`

	// --- Tick loop ---
	TickIntervalMs int `yaml:"tick_interval_ms"`
	IdleGraceSecs  int `yaml:"idle_grace_seconds"`

	// --- Script host ---
	ScriptOperationBudget int `yaml:"script_operation_budget"`

	// --- Guests ---
	AllowGuests   bool   `yaml:"allow_guests"`
	GuestBasename string `yaml:"guest_basename"`

	// --- Control-plane auth ---
	JWTSecret        string `yaml:"jwt_secret"`
	JWTExpirySeconds int    `yaml:"jwt_expiry_seconds"`

	// --- CORS ---
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the engine's built-in defaults, used whenever a config
// file is absent or leaves a field unset.
func Default() *Config {
	return &Config{
		MudName:               "Lodestone",
		TCPAddr:               ":4201",
		WSAddr:                ":4202",
		HTTPAddr:              ":4203",
		StorePath:             "lodestone.db",
		StoreMaxRetries:       3,
		TickIntervalMs:        100,
		IdleGraceSecs:         300,
		ScriptOperationBudget: 10000,
		AllowGuests:           true,
		GuestBasename:         "Guest",
		JWTExpirySeconds:      86400,
	}
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error — Default() alone is a valid configuration for local testing —
// but a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("config: %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.JWTSecret == "" {
		log.Printf("config: no jwt_secret set, generating an ephemeral one for this run")
	}
	return cfg, nil
}

// Store is a hot-reloadable holder for the current Config, swapped
// atomically by Watch's fsnotify callback.
type Store struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewStore wraps an initial Config for concurrent, hot-reloadable access.
func NewStore(cfg *Config) *Store {
	return &Store{cfg: cfg}
}

// Get returns the current configuration snapshot.
func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Store) set(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

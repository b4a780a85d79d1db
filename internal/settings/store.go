package settings

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// KeyAPIKey is the slot holding the map provider API key.
const KeyAPIKey = "api_key"

const (
	dirPerm  = 0o700
	fileName = "session.yaml"
)

// Store is a small persistent key-value file for per-user settings. Writes go
// to disk immediately; values are read back on the next Open.
type Store struct {
	fs   afero.Fs
	path string
	log  *slog.Logger

	mu        sync.Mutex
	v         *viper.Viper
	listeners []func(string)
}

// DefaultPath returns the settings file under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config dir: %w", err)
	}

	return filepath.Join(dir, "waypoint", fileName), nil
}

// Open loads the settings file at path. A missing file yields an empty store.
func Open(fs afero.Fs, path string, log *slog.Logger) (*Store, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat settings file: %w", err)
	}

	if exists {
		if err = v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
		log.Debug("Settings loaded", "path", path)
	}

	return &Store{fs: fs, path: path, log: log, v: v}, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// APIKey returns the stored provider key, or "" when none was entered.
func (s *Store) APIKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.v.GetString(KeyAPIKey)
}

// SetAPIKey stores key and writes the file. The value is not validated.
// Registered listeners are notified after a successful write.
func (s *Store) SetAPIKey(key string) error {
	s.mu.Lock()
	s.v.Set(KeyAPIKey, key)

	if err := s.fs.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to create settings dir: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()

	s.log.Debug("API key updated", "path", s.path)

	for _, fn := range listeners {
		fn(key)
	}

	return nil
}

// OnAPIKeyChange registers fn to be called with every newly stored key.
func (s *Store) OnAPIKeyChange(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, fn)
}

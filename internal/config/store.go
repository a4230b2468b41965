package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// State is the persisted file content.
type State struct {
	// Position is nil until a position has been saved.
	Position *int     `yaml:"position,omitempty"`
	Settings Settings `yaml:"settings"`
}

// Store persists the settings and last position to a YAML file. It is safe
// for concurrent use; the control task saves positions while the background
// task saves settings.
type Store struct {
	path string

	mu    sync.Mutex
	state State
}

// OpenStore loads path. A missing file yields the default settings and no
// position. Keys missing from the file keep their defaults; out of range
// values are rejected.
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path, state: State{Settings: DefaultSettings()}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("unmarshal state file: %w", err)
	}
	if err := s.state.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("state file: %w", err)
	}
	return s, nil
}

// Settings returns a copy of the stored settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Settings
}

// Position returns the last saved position.
func (s *Store) Position() (pos int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Position == nil {
		return 0, false
	}
	return *s.state.Position, true
}

// SavePosition stores pos. Writing the same position again is a no-op.
func (s *Store) SavePosition(pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Position != nil && *s.state.Position == pos {
		return nil
	}
	s.state.Position = &pos
	return s.writeLocked()
}

// SaveSettings stores settings.
func (s *Store) SaveSettings(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Settings = settings
	return s.writeLocked()
}

// writeLocked replaces the file atomically through a temp file and rename.
func (s *Store) writeLocked() error {
	data, err := yaml.Marshal(&s.state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

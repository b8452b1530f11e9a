// Package config stores named connection profiles so a port and its line
// settings can be reused with "rawserial connect <name>"
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"rawserial/pkg/serial"
)

const (
	appDirName     = "rawserial"
	profilesFile   = "profiles.json"
	storageVersion = "1.0"
)

// ErrNotFound is returned when a named profile does not exist
var ErrNotFound = errors.New("profile not found")

// Profile is a saved serial configuration plus bookkeeping
type Profile struct {
	Name        string              `json:"name"`
	Config      serial.SerialConfig `json:"config"`
	CreatedAt   time.Time           `json:"created_at"`
	LastUsedAt  time.Time           `json:"last_used_at"`
	Description string              `json:"description,omitempty"`
}

// Validate checks if the profile is valid
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}

	if err := p.Config.Validate(); err != nil {
		return fmt.Errorf("invalid serial config: %w", err)
	}

	if p.CreatedAt.IsZero() {
		return fmt.Errorf("created_at timestamp cannot be zero")
	}

	return nil
}

// storage is the on-disk format
type storage struct {
	Profiles map[string]Profile `json:"profiles"`
	Version  string             `json:"version"`
}

// Store keeps profiles in a single JSON file
type Store struct {
	dir string
}

// DefaultDir returns <user config dir>/rawserial
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// NewStore creates a store rooted at dir. An empty dir selects DefaultDir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return &Store{dir: dir}, nil
}

// Path returns the full path of the profiles file
func (s *Store) Path() string {
	return filepath.Join(s.dir, profilesFile)
}

// Save creates or replaces the named profile. A new profile has never been
// used. Replacing keeps the original creation and last-used times, and keeps
// the description when description is empty.
func (s *Store) Save(name string, cfg serial.SerialConfig, description string) error {
	if name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := s.load()
	if err != nil {
		return err
	}

	now := time.Now()
	p := Profile{
		Name:        name,
		Config:      cfg,
		CreatedAt:   now,
		Description: description,
	}
	if existing, ok := st.Profiles[name]; ok {
		p.CreatedAt = existing.CreatedAt
		p.LastUsedAt = existing.LastUsedAt
		if description == "" {
			p.Description = existing.Description
		}
	}
	st.Profiles[name] = p

	if err := s.save(st); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Load returns the named profile
func (s *Store) Load(name string) (Profile, error) {
	if name == "" {
		return Profile{}, fmt.Errorf("profile name cannot be empty")
	}

	st, err := s.load()
	if err != nil {
		return Profile{}, err
	}

	p, ok := st.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", name, err)
	}
	return p, nil
}

// List returns every profile sorted by name
func (s *Store) List() ([]Profile, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}

	profiles := make([]Profile, 0, len(st.Profiles))
	for _, p := range st.Profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles, nil
}

// Delete removes the named profile
func (s *Store) Delete(name string) error {
	return s.update(name, func(st *storage) {
		delete(st.Profiles, name)
	})
}

// Exists reports whether the named profile exists
func (s *Store) Exists(name string) bool {
	if name == "" {
		return false
	}

	st, err := s.load()
	if err != nil {
		return false
	}
	_, ok := st.Profiles[name]
	return ok
}

// UpdateLastUsed stamps the named profile with the current time
func (s *Store) UpdateLastUsed(name string) error {
	return s.update(name, func(st *storage) {
		p := st.Profiles[name]
		p.LastUsedAt = time.Now()
		st.Profiles[name] = p
	})
}

// SetDescription replaces the description of the named profile
func (s *Store) SetDescription(name, description string) error {
	return s.update(name, func(st *storage) {
		p := st.Profiles[name]
		p.Description = description
		st.Profiles[name] = p
	})
}

// update applies fn to an existing profile and writes the result back
func (s *Store) update(name string, fn func(st *storage)) error {
	if name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}

	st, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := st.Profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	fn(&st)

	if err := s.save(st); err != nil {
		return fmt.Errorf("failed to save profiles: %w", err)
	}
	return nil
}

// load reads the profiles file. A missing file is an empty store.
func (s *Store) load() (storage, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return storage{Profiles: make(map[string]Profile), Version: storageVersion}, nil
		}
		return storage{}, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var st storage
	if err := json.Unmarshal(data, &st); err != nil {
		return storage{}, fmt.Errorf("failed to parse profiles file: %w", err)
	}
	if st.Profiles == nil {
		st.Profiles = make(map[string]Profile)
	}
	return st, nil
}

// save writes the profiles file through a temporary file and rename
func (s *Store) save(st storage) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	st.Version = storageVersion
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	path := s.Path()
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary profiles file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary profiles file: %w", err)
	}
	return nil
}

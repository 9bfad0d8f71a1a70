package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"

	"github.com/jonwraymond/vmcatalog/arm"
)

// Persisted is the part of the state kept across sessions. Identity and
// catalog data are never persisted.
type Persisted struct {
	SelectedSubscription string             `json:"selectedSubscription,omitempty"`
	SelectedLocation     string             `json:"selectedLocation,omitempty"`
	Subscriptions        []arm.Subscription `json:"subscriptions,omitempty"`
	Locations            []arm.Location     `json:"locations,omitempty"`
}

func (s State) persisted() Persisted {
	return Persisted{
		SelectedSubscription: s.SelectedSubscription,
		SelectedLocation:     s.SelectedLocation,
		Subscriptions:        s.Subscriptions,
		Locations:            s.Locations,
	}
}

// Persister loads and saves Persisted state.
type Persister interface {
	Load() (Persisted, error)
	Save(Persisted) error
}

// Restore replaces the persisted fields of the state with p. It is meant for
// startup and runs no hooks.
func (s *Store) Restore(p Persisted) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Subscriptions = p.Subscriptions
	s.state.Locations = p.Locations
	s.state.SelectedSubscription = p.SelectedSubscription
	if p.SelectedLocation != "" {
		s.state.SelectedLocation = p.SelectedLocation
	}
}

// Persisted returns the persisted subset of the current state.
func (s *Store) Persisted() Persisted {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.persisted()
}

// DefaultStateFile is the state file name under the XDG state directory.
const DefaultStateFile = "vmcatalog/state.json"

// DefaultStatePath returns the XDG state path of the state file, creating
// its parent directory.
func DefaultStatePath() (string, error) {
	return xdg.StateFile(DefaultStateFile)
}

// FilePersister stores Persisted state as JSON in one file.
type FilePersister struct {
	Path string
}

// NewFilePersister returns a persister for path, or for DefaultStatePath
// when path is empty.
func NewFilePersister(path string) (*FilePersister, error) {
	if path == "" {
		p, err := DefaultStatePath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve state path: %w", err)
		}
		path = p
	}
	return &FilePersister{Path: path}, nil
}

// Load reads the state file. A missing file is an empty state.
func (f *FilePersister) Load() (Persisted, error) {
	var p Persisted
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("failed to read state: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse state %s: %w", f.Path, err)
	}
	return p, nil
}

// Save writes the state file atomically.
func (f *FilePersister) Save(p Persisted) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("failed to replace state: %w", err)
	}
	return nil
}

// MemoryPersister keeps Persisted state in memory.
type MemoryPersister struct {
	mu    sync.Mutex
	state Persisted
	saves int
}

// Load returns the stored state.
func (m *MemoryPersister) Load() (Persisted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

// Save stores p.
func (m *MemoryPersister) Save(p Persisted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = p
	m.saves++
	return nil
}

// Saves returns the number of Save calls.
func (m *MemoryPersister) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

var (
	_ Persister = (*FilePersister)(nil)
	_ Persister = (*MemoryPersister)(nil)
)

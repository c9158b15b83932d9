// Package persistence stores responder parameter values across restarts.
// A responder keeps its device label, DMX start address and similar
// settings in a Store so a power cycle does not lose them.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("persistence: store closed")

// Store persists parameter values keyed by PID. Implementations must be
// safe for concurrent use.
type Store interface {
	// Load reads the value saved for pid into v. It reports whether a
	// value was present.
	Load(pid uint16, v any) (bool, error)

	// Save writes the value for pid.
	Save(pid uint16, v any) error

	// Delete removes the value for pid, if any.
	Delete(pid uint16) error
}

// MemStore is an in-memory Store for tests and ephemeral responders.
// The zero value is ready to use.
type MemStore struct {
	mu     sync.RWMutex
	values map[uint16]json.RawMessage
}

// Load reads the value saved for pid into v.
func (s *MemStore) Load(pid uint16, v any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.values[pid]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("persistence: decode pid %#04x: %w", pid, err)
	}
	return true, nil
}

// Save writes the value for pid.
func (s *MemStore) Save(pid uint16, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("persistence: encode pid %#04x: %w", pid, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[uint16]json.RawMessage)
	}
	s.values[pid] = raw
	return nil
}

// Delete removes the value for pid.
func (s *MemStore) Delete(pid uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, pid)
	return nil
}

// FileStore persists parameter values in a single JSON file. Every Save
// rewrites the file atomically via a temporary file and rename, so a crash
// mid-write never leaves a corrupt state file behind.
type FileStore struct {
	path string

	mu     sync.Mutex
	values map[string]json.RawMessage
	closed bool
}

// NewFileStore opens or creates the state file at path. Parent directories
// are created as needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("persistence: create state dir: %w", err)
	}

	s := &FileStore{
		path:   path,
		values: make(map[string]json.RawMessage),
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Fresh state file.
	case err != nil:
		return nil, fmt.Errorf("persistence: read state: %w", err)
	default:
		if err := json.Unmarshal(data, &s.values); err != nil {
			return nil, fmt.Errorf("persistence: parse state %s: %w", path, err)
		}
	}
	return s, nil
}

func pidKey(pid uint16) string { return fmt.Sprintf("0x%04x", pid) }

// Load reads the value saved for pid into v.
func (s *FileStore) Load(pid uint16, v any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	raw, ok := s.values[pidKey(pid)]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("persistence: decode pid %#04x: %w", pid, err)
	}
	return true, nil
}

// Save writes the value for pid and flushes the state file.
func (s *FileStore) Save(pid uint16, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("persistence: encode pid %#04x: %w", pid, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.values[pidKey(pid)] = raw
	return s.flushLocked()
}

// Delete removes the value for pid and flushes the state file.
func (s *FileStore) Delete(pid uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.values[pidKey(pid)]; !ok {
		return nil
	}
	delete(s.values, pidKey(pid))
	return s.flushLocked()
}

// Close marks the store closed. It does not flush; every mutation already
// flushed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("persistence: encode state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("persistence: write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("persistence: replace state: %w", err)
	}
	return nil
}

// Compile-time interface satisfaction checks.
var (
	_ Store = (*MemStore)(nil)
	_ Store = (*FileStore)(nil)
)

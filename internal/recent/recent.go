// Package recent keeps the most-recently-opened archive list.
package recent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultMax is the list capacity used when none is configured.
const DefaultMax = 10

type document struct {
	Files []string `yaml:"files"`
}

// Store is a YAML backed recent-files list, most recent first.
type Store struct {
	fs   afero.Fs
	path string
	max  int

	mu sync.Mutex
}

// NewStore creates a store on fs. max <= 0 means DefaultMax.
func NewStore(fs afero.Fs, path string, max int) *Store {
	if max <= 0 {
		max = DefaultMax
	}
	return &Store{fs: fs, path: path, max: max}
}

// NewOSStore creates a store on the real filesystem.
func NewOSStore(path string, max int) *Store {
	return NewStore(afero.NewOsFs(), path, max)
}

// List returns the stored paths. A missing file yields an empty list.
func (s *Store) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Record moves path to the front, dropping case-insensitive duplicates and
// anything past the capacity.
func (s *Store) Record(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.load()
	if err != nil {
		return err
	}

	updated := make([]string, 0, len(files)+1)
	updated = append(updated, path)
	for _, f := range files {
		if !strings.EqualFold(f, path) {
			updated = append(updated, f)
		}
	}
	if len(updated) > s.max {
		updated = updated[:s.max]
	}
	return s.save(updated)
}

// Remove drops path from the list.
func (s *Store) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.load()
	if err != nil {
		return err
	}
	kept := files[:0]
	for _, f := range files {
		if !strings.EqualFold(f, path) {
			kept = append(kept, f)
		}
	}
	return s.save(kept)
}

// Clear empties the list.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(nil)
}

func (s *Store) load() ([]string, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read recent files: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse recent files: %w", err)
	}
	if len(doc.Files) > s.max {
		doc.Files = doc.Files[:s.max]
	}
	return doc.Files, nil
}

func (s *Store) save(files []string) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create recent dir: %w", err)
	}
	data, err := yaml.Marshal(document{Files: files})
	if err != nil {
		return fmt.Errorf("encode recent files: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o600); err != nil {
		return fmt.Errorf("write recent files: %w", err)
	}
	return nil
}

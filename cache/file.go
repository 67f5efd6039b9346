package cache

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/jonwraymond/promptrelay/internal/atomicfile"
)

// FileStore keeps the cache in a single JSON object keyed by content hash:
//
//	{"<sha256>": {"description": "...", "timestamp": "2024-01-01T00:00:00Z"}}
//
// The file is read once at construction and rewritten on every Put.
type FileStore struct {
	path string

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewFileStore opens the cache file at path. A missing file yields an empty
// store; a corrupt one is an error.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read caption cache %s", path)
	}
	if len(data) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, errors.WithDetailf(errors.Wrap(err, "decode caption cache"), "path: %s", path)
	}
	for hash, e := range s.entries {
		e.ContentHash = hash
		s.entries[hash] = e
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get retrieves an entry. Returns (Entry{}, false) on miss.
func (s *FileStore) Get(_ context.Context, hash string) (Entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[hash]
	s.mu.RUnlock()
	return e, ok
}

// Put stores e and rewrites the file. An existing entry for the same hash
// is kept and the file is left untouched. The in-memory entry survives a
// failed write.
func (s *FileStore) Put(_ context.Context, e Entry) error {
	if err := ValidateKey(e.ContentHash); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[e.ContentHash]; ok {
		return nil
	}
	s.entries[e.ContentHash] = e

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode caption cache")
	}
	return atomicfile.WriteFile(s.path, data, 0o644)
}

// Len returns the number of entries.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ Store = (*FileStore)(nil)

package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONFileStore implements Store using a single JSON file. Suitable for
// small deployments; the sqlite store is the default backend.
type JSONFileStore struct {
	filePath string
	mu       sync.Mutex
}

// NewJSONFileStore creates a JSON file-based session store under dataDir.
func NewJSONFileStore(dataDir string) (*JSONFileStore, error) {
	if dataDir == "" {
		dataDir = "./data"
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	filePath := filepath.Join(dataDir, "sessions.json")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := os.WriteFile(filePath, []byte("{}"), 0644); err != nil {
			return nil, fmt.Errorf("failed to create storage file: %w", err)
		}
	}

	return &JSONFileStore{filePath: filePath}, nil
}

// Load returns the context for a locator, or nil when absent.
func (s *JSONFileStore) Load(locator string) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadWithoutLock()
	if err != nil {
		return nil, err
	}
	return all[locator], nil
}

// Save persists the context for a locator.
func (s *JSONFileStore) Save(locator string, sc *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadWithoutLock()
	if err != nil {
		return err
	}
	all[locator] = sc
	return s.saveWithoutLock(all)
}

// Close is a no-op for the file store.
func (s *JSONFileStore) Close() error {
	return nil
}

// loadWithoutLock loads all contexts without locking (caller must hold lock).
func (s *JSONFileStore) loadWithoutLock() (map[string]*Context, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	all := make(map[string]*Context)
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse storage file: %w", err)
	}
	return all, nil
}

// saveWithoutLock saves all contexts without locking (caller must hold lock).
func (s *JSONFileStore) saveWithoutLock(all map[string]*Context) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	return nil
}

package userstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// FileStore keeps the known-user set in a JSON file whose serialized form is
// a sorted array of integers. Every operation is read-modify-write against
// the file; a single logical process is assumed.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the given path. The file is created
// lazily on first Add.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Add records the user id and rewrites the file sorted.
func (s *FileStore) Add(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.load()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == userID {
			return nil
		}
	}
	ids = append(ids, userID)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return s.save(ids)
}

// List returns the known ids in ascending order.
func (s *FileStore) List(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() ([]int64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("userstore: read %s: %w", s.path, err)
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("userstore: parse %s: %w", s.path, err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *FileStore) save(ids []int64) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("userstore: encode: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("userstore: write %s: %w", s.path, err)
	}
	return nil
}

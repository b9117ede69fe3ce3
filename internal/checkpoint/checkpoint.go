package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrCorrupt is returned when the checkpoint file does not hold an integer.
	ErrCorrupt = errors.New("corrupt checkpoint")

	// ErrNegative is returned when saving a negative page index.
	ErrNegative = errors.New("negative page index")
)

// Store loads and saves the last completed page.
type Store interface {
	// Load returns the last completed page, or 0 when nothing was recorded.
	Load() (int, error)

	// Save records page as the last completed page.
	Save(page int) error
}

// FileStore is a Store backed by a plain-text file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore for path. The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the checkpoint file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the checkpoint. A missing or empty file means page 0.
func (s *FileStore) Load() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read checkpoint %s: %w", s.path, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(text)
	if err != nil || page < 0 {
		return 0, fmt.Errorf("%w: %s: %q", ErrCorrupt, s.path, text)
	}
	return page, nil
}

// Save writes page atomically: a temporary file in the same directory is
// written, synced and renamed over the checkpoint.
func (s *FileStore) Save(page int) error {
	if page < 0 {
		return fmt.Errorf("%w: %d", ErrNegative, page)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(strconv.Itoa(page) + "\n"); err != nil {
		_ = tmp.Close()        //nolint:errcheck // already failing
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()        //nolint:errcheck // already failing
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu    sync.Mutex
	page  int
	saves []int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore starting at page.
func NewMemoryStore(page int) *MemoryStore {
	return &MemoryStore{page: page}
}

// Load returns the stored page.
func (s *MemoryStore) Load() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page, nil
}

// Save stores page.
func (s *MemoryStore) Save(page int) error {
	if page < 0 {
		return fmt.Errorf("%w: %d", ErrNegative, page)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
	s.saves = append(s.saves, page)
	return nil
}

// Saves returns every saved value in order.
func (s *MemoryStore) Saves() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.saves...)
}

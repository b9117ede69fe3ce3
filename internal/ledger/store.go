package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/nao1215/carledger/internal/model"
)

// FileStore flushes record batches into a ledger file.
// The file is only read and written for the duration of a flush.
type FileStore struct {
	path   string
	newSKU bool
	logger *slog.Logger
	mu     sync.Mutex
}

// StoreOption configures a FileStore.
type StoreOption func(*FileStore)

// WithLegacyScheme makes a newly created ledger keyed by car_name instead
// of sku. Existing files keep their scheme.
func WithLegacyScheme() StoreOption {
	return func(s *FileStore) {
		s.newSKU = false
	}
}

// WithStoreLogger sets a custom logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string, opts ...StoreOption) *FileStore {
	s := &FileStore{path: path, newSKU: true}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Path returns the ledger file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the ledger. A missing or empty file yields an empty ledger.
func (s *FileStore) Load() (*Ledger, error) {
	l, err := ReadFile(s.path)
	if err == nil {
		return l, nil
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, ErrEmptyLedger) {
		s.logger.Info("starting new ledger", "path", s.path, "sku", s.newSKU)
		return New(s.newSKU), nil
	}
	return nil, err
}

// KeyedBySKU reports whether flushes key rows by sku: the scheme of the
// existing file, or the scheme of a new ledger when there is none.
func (s *FileStore) KeyedBySKU() (bool, error) {
	l, err := s.Load()
	if err != nil {
		return false, err
	}
	return l.HasSKU, nil
}

// Flush upserts records into the ledger file (read, modify, write).
// Concurrent flushes on the same store are serialized.
func (s *FileStore) Flush(records []model.ScrapedRecord) (UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.Load()
	if err != nil {
		return UpsertResult{}, err
	}

	res := Upsert(l, records)
	if err := WriteFile(s.path, l); err != nil {
		return res, fmt.Errorf("failed to flush %d records: %w", len(records), err)
	}

	s.logger.Info("ledger flushed",
		"path", s.path,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"rejected", len(res.Rejected),
		"rows", l.Len(),
	)
	return res, nil
}

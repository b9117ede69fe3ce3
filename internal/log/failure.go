package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/carledger/internal/model"
)

// FailureTimeLayout is the timestamp layout of failure log lines.
const FailureTimeLayout = "2006-01-02 15:04:05"

// FailureLog appends one line per failed item to a text file:
//
//	2006-01-02 15:04:05 <url> <reason>: <detail>
//
// The file is opened for each write so it is never held between pages.
type FailureLog struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewFailureLog creates a FailureLog writing to path.
func NewFailureLog(path string) *FailureLog {
	return &FailureLog{path: path, now: time.Now}
}

// Path returns the log file path.
func (f *FailureLog) Path() string {
	return f.path
}

// Record appends skips that are failures; policy filters are ignored.
func (f *FailureLog) Record(skips ...model.Skip) error {
	var b strings.Builder
	ts := f.now().Format(FailureTimeLayout)
	for _, s := range skips {
		if !s.Reason.IsFailure() {
			continue
		}
		b.WriteString(FormatFailure(ts, s))
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("failed to create failure log directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Clean(f.path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open failure log: %w", err)
	}
	if _, err := file.WriteString(b.String()); err != nil {
		_ = file.Close() //nolint:errcheck // already failing
		return fmt.Errorf("failed to write failure log: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close failure log: %w", err)
	}
	return nil
}

// FormatFailure formats one failure line without the trailing newline.
func FormatFailure(timestamp string, s model.Skip) string {
	line := timestamp + " " + s.URL + " " + string(s.Reason)
	if s.Detail != "" {
		line += ": " + strings.ReplaceAll(s.Detail, "\n", " ")
	}
	return line
}

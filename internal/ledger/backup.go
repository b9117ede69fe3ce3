package ledger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BackupPath returns "<name>_backup_YYYYMMDD_HHMMSS<ext>" next to path.
func BackupPath(path string, now time.Time) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + "_backup_" + now.Format("20060102_150405") + ext
}

// Backup copies the file at path to BackupPath and returns the copy's path.
func Backup(path string, now time.Time) (string, error) {
	dst := BackupPath(path, now)

	in, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to open %s for backup: %w", path, err)
	}
	defer in.Close() //nolint:errcheck // read-only file

	out, err := os.OpenFile(filepath.Clean(dst), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create backup %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close() //nolint:errcheck // already failing
		return "", fmt.Errorf("failed to copy backup %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close backup %s: %w", dst, err)
	}
	return dst, nil
}
